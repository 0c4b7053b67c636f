package app

import (
	"context"
	"errors"
	"fmt"

	"releasecompass/internal/config"
	"releasecompass/internal/repo"
)

// ResolveProjectAndConfig picks the active project and loads its catalog,
// seeding the default catalog when none was stored. It prefers the
// override, then the single project in the workspace database. Unlike
// milestones, projects are never created implicitly here; a release plan
// needs a release date and a budget, so creation stays explicit.
func ResolveProjectAndConfig(ctx context.Context, projectOverride string, r repo.Repo) (string, *config.Config, error) {
	projectID := projectOverride
	if projectID == "" {
		p, err := r.SingleProject(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("project not specified; use --project")
		}
		projectID = p.ID
	}
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return "", nil, err
	}
	cfg, err := r.GetProjectConfig(ctx, projectID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return "", nil, err
		}
		cfg = config.Default(projectID)
		if err := r.UpsertProjectConfig(ctx, projectID, cfg); err != nil {
			return "", nil, fmt.Errorf("seed project config: %w", err)
		}
	}
	cfg.Project.ID = projectID
	return projectID, cfg, nil
}
