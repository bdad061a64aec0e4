package repo

import (
	"context"
	"database/sql"
	"strings"

	"leadline/internal/domain"
)

const commissionColumns = `id,policy_id,agent_id,amount,rate,type,status,scheduled_date,paid_date,notes,created_at`

func scanCommission(scan func(dest ...any) error) (domain.Commission, error) {
	var c domain.Commission
	var paidDate, notes sql.NullString
	err := scan(&c.ID, &c.PolicyID, &c.AgentID, &c.Amount, &c.Rate, &c.Type, &c.Status,
		&c.ScheduledDate, &paidDate, &notes, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if paidDate.Valid {
		c.PaidDate = &paidDate.String
	}
	if notes.Valid {
		c.Notes = notes.String
	}
	return c, nil
}

func (r Repo) InsertCommission(ctx context.Context, tx *sql.Tx, c domain.Commission) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO commissions(`+commissionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.PolicyID, c.AgentID, c.Amount, c.Rate, c.Type, c.Status,
		c.ScheduledDate, nullableStringPtr(c.PaidDate), nullable(c.Notes), c.CreatedAt)
	return err
}

func (r Repo) UpdateCommission(ctx context.Context, tx *sql.Tx, c domain.Commission) error {
	_, err := tx.ExecContext(ctx, `UPDATE commissions SET status=?, paid_date=?, notes=? WHERE id=?`,
		c.Status, nullableStringPtr(c.PaidDate), nullable(c.Notes), c.ID)
	return err
}

func (r Repo) GetCommission(ctx context.Context, id string) (domain.Commission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+commissionColumns+` FROM commissions WHERE id=?`, id)
	return scanCommission(row.Scan)
}

// HasPendingCommission reports whether a PENDING commission of the given type
// already exists for the policy. At most one may exist at a time.
func (r Repo) HasPendingCommission(ctx context.Context, policyID string, typ domain.CommissionType) (bool, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT 1 FROM commissions WHERE policy_id=? AND type=? AND status='PENDING' LIMIT 1`, policyID, typ)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type CommissionFilters struct {
	AgentID  string
	PolicyID string
	Status   string
	Type     string
	Limit    int
}

func (r Repo) ListCommissions(ctx context.Context, f CommissionFilters) ([]domain.Commission, error) {
	var clauses []string
	var args []any
	if f.AgentID != "" {
		clauses = append(clauses, "agent_id=?")
		args = append(args, f.AgentID)
	}
	if f.PolicyID != "" {
		clauses = append(clauses, "policy_id=?")
		args = append(args, f.PolicyID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + commissionColumns + ` FROM commissions ` + where + ` ORDER BY scheduled_date ASC, id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) SumPendingCommissions(ctx context.Context, agentID string) (float64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount),0) FROM commissions WHERE agent_id=? AND status='PENDING'`, agentID)
	var total float64
	err := row.Scan(&total)
	return total, err
}
