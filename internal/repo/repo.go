package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"leadline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const leadColumns = `id,agent_id,first_name,last_name,phone,email,status,intent_level,score,source,notes,created_at,updated_at`

func scanLead(scan func(dest ...any) error) (domain.Lead, error) {
	var l domain.Lead
	var email, source, notes sql.NullString
	err := scan(&l.ID, &l.AgentID, &l.FirstName, &l.LastName, &l.Phone, &email,
		&l.Status, &l.IntentLevel, &l.Score, &source, &notes, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	if email.Valid {
		l.Email = email.String
	}
	if source.Valid {
		l.Source = source.String
	}
	if notes.Valid {
		l.Notes = notes.String
	}
	return l, nil
}

func (r Repo) InsertLead(ctx context.Context, tx *sql.Tx, l domain.Lead) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO leads(`+leadColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.AgentID, l.FirstName, l.LastName, l.Phone, nullable(l.Email),
		l.Status, l.IntentLevel, l.Score, nullable(l.Source), nullable(l.Notes), l.CreatedAt, l.UpdatedAt)
	return err
}

func (r Repo) UpdateLead(ctx context.Context, tx *sql.Tx, l domain.Lead) error {
	_, err := tx.ExecContext(ctx, `UPDATE leads SET first_name=?, last_name=?, phone=?, email=?, status=?, intent_level=?, score=?, source=?, notes=?, updated_at=? WHERE id=?`,
		l.FirstName, l.LastName, l.Phone, nullable(l.Email), l.Status, l.IntentLevel,
		l.Score, nullable(l.Source), nullable(l.Notes), l.UpdatedAt, l.ID)
	return err
}

func (r Repo) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id=?`, id)
	return scanLead(row.Scan)
}

// FindDuplicateLead returns the first lead for the agent matching the phone
// or, when an email is supplied, the email. Exact match only.
func (r Repo) FindDuplicateLead(ctx context.Context, agentID, phone, email string) (domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE agent_id=? AND phone=?`
	args := []any{agentID, phone}
	if email != "" {
		query = `SELECT ` + leadColumns + ` FROM leads WHERE agent_id=? AND (phone=? OR email=?)`
		args = append(args, email)
	}
	row := r.DB.QueryRowContext(ctx, query+` LIMIT 1`, args...)
	return scanLead(row.Scan)
}

type LeadFilters struct {
	AgentID  string
	Status   string
	Intent   string
	MinScore int
	Limit    int
}

func (r Repo) ListLeads(ctx context.Context, f LeadFilters) ([]domain.Lead, error) {
	var clauses []string
	var args []any
	if f.AgentID != "" {
		clauses = append(clauses, "agent_id=?")
		args = append(args, f.AgentID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Intent != "" {
		clauses = append(clauses, "intent_level=?")
		args = append(args, f.Intent)
	}
	if f.MinScore > 0 {
		clauses = append(clauses, "score>=?")
		args = append(args, f.MinScore)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + leadColumns + ` FROM leads ` + where + ` ORDER BY score DESC, created_at DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) CountLeadsByStatus(ctx context.Context, agentID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM leads WHERE agent_id=? GROUP BY status`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
