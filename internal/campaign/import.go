package campaign

import (
	"context"

	"leadline/internal/engine"
)

// ImportResult summarizes an import run.
type ImportResult struct {
	Created int
	Updated int
}

// Import upserts the definitions in a file for one agent. Existing
// campaigns are matched by name.
func Import(ctx context.Context, e *engine.Engine, agentID, path string) (ImportResult, error) {
	var res ImportResult
	defs, err := Load(path)
	if err != nil {
		return res, err
	}
	existing, err := e.Repo.ListCampaigns(ctx, agentID, false)
	if err != nil {
		return res, err
	}
	byName := map[string]string{}
	for _, c := range existing {
		byName[c.Name] = c.ID
	}
	for _, def := range defs {
		cond := def.Condition()
		active := def.IsActive()
		if id, ok := byName[def.Name]; ok {
			_, err := e.UpdateCampaign(ctx, engine.CampaignUpdateOptions{
				ID:      id,
				Active:  &active,
				Trigger: &cond,
				Actions: def.Actions,
			})
			if err != nil {
				return res, err
			}
			res.Updated++
			continue
		}
		_, err := e.CreateCampaign(ctx, engine.CampaignCreateOptions{
			AgentID: agentID,
			Name:    def.Name,
			Active:  active,
			Trigger: cond,
			Actions: def.Actions,
		})
		if err != nil {
			return res, err
		}
		res.Created++
	}
	return res, nil
}
