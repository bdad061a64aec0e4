package repo

import (
	"context"
	"database/sql"
	"strings"

	"leadline/internal/domain"
)

const policyColumns = `id,lead_id,agent_id,carrier,product_type,face_amount,premium,commission_rate,commission_amount,status,policy_number,term_years,mode,issue_date,underwriting_date,effective_date,created_at,updated_at`

func scanPolicy(scan func(dest ...any) error) (domain.Policy, error) {
	var p domain.Policy
	var policyNumber, mode, issueDate, underwritingDate, effectiveDate sql.NullString
	var termYears sql.NullInt64
	err := scan(&p.ID, &p.LeadID, &p.AgentID, &p.Carrier, &p.ProductType, &p.FaceAmount,
		&p.Premium, &p.CommissionRate, &p.CommissionAmount, &p.Status, &policyNumber,
		&termYears, &mode, &issueDate, &underwritingDate, &effectiveDate, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if policyNumber.Valid {
		p.PolicyNumber = policyNumber.String
	}
	if termYears.Valid {
		t := int(termYears.Int64)
		p.TermYears = &t
	}
	if mode.Valid {
		p.Mode = mode.String
	}
	if issueDate.Valid {
		p.IssueDate = &issueDate.String
	}
	if underwritingDate.Valid {
		p.UnderwritingDate = &underwritingDate.String
	}
	if effectiveDate.Valid {
		p.EffectiveDate = &effectiveDate.String
	}
	return p, nil
}

func (r Repo) InsertPolicy(ctx context.Context, tx *sql.Tx, p domain.Policy) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO policies(`+policyColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.LeadID, p.AgentID, p.Carrier, p.ProductType, p.FaceAmount, p.Premium,
		p.CommissionRate, p.CommissionAmount, p.Status, nullable(p.PolicyNumber),
		nullableIntPtr(p.TermYears), nullable(p.Mode), nullableStringPtr(p.IssueDate),
		nullableStringPtr(p.UnderwritingDate), nullableStringPtr(p.EffectiveDate),
		p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) UpdatePolicy(ctx context.Context, tx *sql.Tx, p domain.Policy) error {
	_, err := tx.ExecContext(ctx, `UPDATE policies SET carrier=?, product_type=?, face_amount=?, premium=?, commission_rate=?, commission_amount=?, status=?, policy_number=?, term_years=?, mode=?, issue_date=?, underwriting_date=?, effective_date=?, updated_at=? WHERE id=?`,
		p.Carrier, p.ProductType, p.FaceAmount, p.Premium, p.CommissionRate,
		p.CommissionAmount, p.Status, nullable(p.PolicyNumber), nullableIntPtr(p.TermYears),
		nullable(p.Mode), nullableStringPtr(p.IssueDate), nullableStringPtr(p.UnderwritingDate),
		nullableStringPtr(p.EffectiveDate), p.UpdatedAt, p.ID)
	return err
}

func (r Repo) GetPolicy(ctx context.Context, id string) (domain.Policy, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE id=?`, id)
	return scanPolicy(row.Scan)
}

type PolicyFilters struct {
	AgentID string
	LeadID  string
	Status  string
	Limit   int
}

func (r Repo) ListPolicies(ctx context.Context, f PolicyFilters) ([]domain.Policy, error) {
	var clauses []string
	var args []any
	if f.AgentID != "" {
		clauses = append(clauses, "agent_id=?")
		args = append(args, f.AgentID)
	}
	if f.LeadID != "" {
		clauses = append(clauses, "lead_id=?")
		args = append(args, f.LeadID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + policyColumns + ` FROM policies ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// SumPipelinePremium totals premium on policies not yet in a terminal state.
func (r Repo) SumPipelinePremium(ctx context.Context, agentID string) (float64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(premium),0) FROM policies WHERE agent_id=? AND status IN ('QUOTED','APPLIED','UNDERWRITING','APPROVED','PENDING_REQUIREMENTS')`, agentID)
	var total float64
	err := row.Scan(&total)
	return total, err
}
