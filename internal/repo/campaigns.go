package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"leadline/internal/domain"
)

const campaignColumns = `id,agent_id,name,active,trigger_json,actions_json,run_count,last_run_at,created_at,updated_at`

func scanCampaign(scan func(dest ...any) error) (domain.Campaign, error) {
	var c domain.Campaign
	var active int
	var triggerJSON, actionsJSON string
	var lastRunAt sql.NullString
	err := scan(&c.ID, &c.AgentID, &c.Name, &active, &triggerJSON, &actionsJSON,
		&c.RunCount, &lastRunAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.Active = active != 0
	if lastRunAt.Valid {
		c.LastRunAt = &lastRunAt.String
	}
	if err := json.Unmarshal([]byte(triggerJSON), &c.Trigger); err != nil {
		return c, fmt.Errorf("campaign %s trigger: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &c.Actions); err != nil {
		return c, fmt.Errorf("campaign %s actions: %w", c.ID, err)
	}
	return c, nil
}

func marshalCampaign(c domain.Campaign) (triggerJSON, actionsJSON string, err error) {
	tb, err := json.Marshal(c.Trigger)
	if err != nil {
		return "", "", err
	}
	ab, err := json.Marshal(c.Actions)
	if err != nil {
		return "", "", err
	}
	return string(tb), string(ab), nil
}

func (r Repo) InsertCampaign(ctx context.Context, tx *sql.Tx, c domain.Campaign) error {
	triggerJSON, actionsJSON, err := marshalCampaign(c)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO campaigns(`+campaignColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.AgentID, c.Name, boolToInt(c.Active), triggerJSON, actionsJSON,
		c.RunCount, nullableStringPtr(c.LastRunAt), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) UpdateCampaign(ctx context.Context, tx *sql.Tx, c domain.Campaign) error {
	triggerJSON, actionsJSON, err := marshalCampaign(c)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE campaigns SET name=?, active=?, trigger_json=?, actions_json=?, updated_at=? WHERE id=?`,
		c.Name, boolToInt(c.Active), triggerJSON, actionsJSON, c.UpdatedAt, c.ID)
	return err
}

// MarkCampaignRun bumps run bookkeeping after the action list executes.
func (r Repo) MarkCampaignRun(ctx context.Context, id, ranAt string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET run_count=run_count+1, last_run_at=? WHERE id=?`, ranAt, id)
	return err
}

func (r Repo) GetCampaign(ctx context.Context, id string) (domain.Campaign, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id=?`, id)
	return scanCampaign(row.Scan)
}

func (r Repo) ListCampaigns(ctx context.Context, agentID string, activeOnly bool) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE agent_id=?`
	if activeOnly {
		query += ` AND active=1`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows.Scan)
		if err != nil {
			return res, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ListActiveCampaigns returns the agent's active campaigns for dispatch.
// Rows whose stored trigger or action blobs fail to decode are skipped and
// reported by id so the dispatcher can log them without aborting the run.
func (r Repo) ListActiveCampaigns(ctx context.Context, agentID string) ([]domain.Campaign, []string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE agent_id=? AND active=1 ORDER BY created_at ASC, id ASC`, agentID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var res []domain.Campaign
	var malformed []string
	for rows.Next() {
		var c domain.Campaign
		var active int
		var triggerJSON, actionsJSON string
		var lastRunAt sql.NullString
		if err := rows.Scan(&c.ID, &c.AgentID, &c.Name, &active, &triggerJSON, &actionsJSON,
			&c.RunCount, &lastRunAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, nil, err
		}
		c.Active = active != 0
		if lastRunAt.Valid {
			c.LastRunAt = &lastRunAt.String
		}
		if json.Unmarshal([]byte(triggerJSON), &c.Trigger) != nil ||
			json.Unmarshal([]byte(actionsJSON), &c.Actions) != nil {
			malformed = append(malformed, c.ID)
			continue
		}
		res = append(res, c)
	}
	return res, malformed, rows.Err()
}

func (r Repo) DeleteCampaign(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
