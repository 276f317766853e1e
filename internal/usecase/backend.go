package usecase

import (
	"os"

	"go.uber.org/zap"

	"repolens/config"
	"repolens/internal/adapter/azdo"
	"repolens/internal/adapter/fs"
	"repolens/internal/adapter/github"
	"repolens/internal/errs"
	"repolens/internal/mcp"
)

// OpenBackend builds the tool server for a target.
func OpenBackend(t Target, cfg *config.Config, version string, logger *zap.Logger) (*mcp.Server, error) {
	switch t.Kind {
	case TargetLocal:
		walker := fs.NewWalker(cfg.Local.Includes, cfg.Local.Excludes)
		repo, err := fs.NewRepository(t.Dir, walker, logger)
		if err != nil {
			return nil, err
		}
		return repo.Server(version), nil

	case TargetGitHub:
		client := github.NewClient(cfg.GitHub.BaseURL, os.Getenv(cfg.GitHub.TokenEnv), 0)
		ref := t.Ref
		if ref == "" {
			ref = cfg.GitHub.Ref
		}
		repo, err := github.NewRepository(client, t.Owner, t.Repo, ref, logger)
		if err != nil {
			return nil, err
		}
		return repo.Server(version), nil

	case TargetAzure:
		ado := cfg.AzureDevOps
		org := t.Org
		if org == "" {
			org = ado.Organization
		}
		branch := t.Ref
		if branch == "" {
			branch = ado.Branch
		}
		client := azdo.NewClient(ado.BaseURL, org, os.Getenv(ado.PATEnv), ado.APIVersion, 0)
		repo, err := azdo.NewRepository(client, t.Project, t.Repo, branch, logger)
		if err != nil {
			return nil, err
		}
		return repo.Server(version), nil
	}
	return nil, errs.Validationf("OpenBackend", "unknown target kind %q", t.Kind)
}
