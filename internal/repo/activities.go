package repo

import (
	"context"
	"database/sql"
	"strings"

	"leadline/internal/domain"
)

const activityColumns = `id,lead_id,agent_id,type,outcome,title,description,duration_min,created_at`

func scanActivity(scan func(dest ...any) error) (domain.Activity, error) {
	var a domain.Activity
	var outcome, description sql.NullString
	var duration sql.NullInt64
	err := scan(&a.ID, &a.LeadID, &a.AgentID, &a.Type, &outcome, &a.Title, &description, &duration, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if outcome.Valid {
		a.Outcome = domain.Outcome(outcome.String)
	}
	if description.Valid {
		a.Description = description.String
	}
	if duration.Valid {
		d := int(duration.Int64)
		a.DurationMin = &d
	}
	return a, nil
}

func (r Repo) InsertActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO activities(`+activityColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.LeadID, a.AgentID, a.Type, nullable(string(a.Outcome)), a.Title,
		nullable(a.Description), nullableIntPtr(a.DurationMin), a.CreatedAt)
	return err
}

// UpdateActivity leaves created_at untouched; creation time is immutable.
func (r Repo) UpdateActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	_, err := tx.ExecContext(ctx, `UPDATE activities SET type=?, outcome=?, title=?, description=?, duration_min=? WHERE id=?`,
		a.Type, nullable(string(a.Outcome)), a.Title, nullable(a.Description), nullableIntPtr(a.DurationMin), a.ID)
	return err
}

func (r Repo) DeleteActivity(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetActivity(ctx context.Context, id string) (domain.Activity, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id=?`, id)
	return scanActivity(row.Scan)
}

// ListLeadActivities returns a lead's activities newest-first.
func (r Repo) ListLeadActivities(ctx context.Context, leadID string, limit int) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE lead_id=? ORDER BY created_at DESC, id DESC`
	args := []any{leadID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryActivities(ctx, query, args...)
}

type ActivityFilters struct {
	AgentID string
	LeadID  string
	Type    string
	Limit   int
}

func (r Repo) ListActivities(ctx context.Context, f ActivityFilters) ([]domain.Activity, error) {
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
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + activityColumns + ` FROM activities ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return r.queryActivities(ctx, query, args...)
}

func (r Repo) queryActivities(ctx context.Context, query string, args ...any) ([]domain.Activity, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
