// Package bootstrap wires a run config into a ready adapter.Registry and
// orchestrator.Orchestrator, the shared dependency-injection step both
// cmd/orchestratorctl and cmd/server need. Grounded in the donor's
// cmd/api/container.go Container, simplified to this service's single
// dependency graph instead of the donor's per-module use-case wiring.
package bootstrap

import (
	"context"

	"github.com/techappsUT/social-queue/internal/adapter"
	"github.com/techappsUT/social-queue/internal/config"
	"github.com/techappsUT/social-queue/internal/orchestrator"
	"github.com/techappsUT/social-queue/internal/platformlog"
	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// BuildRegistry constructs one adapter per configured client. Concrete
// provider integrations (Twitter/YouTube/TikTok/Instagram search APIs) are
// external collaborators: this registry wires a generic
// adapter.HTTPAdapter per platform with no query function, which is
// sufficient for test_data-backed tasks (the common path exercised by this
// repository's own tests and CLI demos) and a documented extension point
// for a real provider integration to plug into later.
func BuildRegistry(cfg *config.RunConfig) *adapter.Registry {
	registry := adapter.NewRegistry()
	for name, clientCfg := range cfg.Clients {
		platform := platformtypes.Platform(name)
		auth := make(map[string]interface{}, len(clientCfg.Auth))
		for k, v := range clientCfg.Auth {
			auth[k] = v
		}
		a := adapter.NewHTTPAdapter(platform, auth, []string{"query"}, nil)
		_ = registry.Register(a)
	}
	return registry
}

// New builds the Orchestrator for a loaded run config: a registry, a
// logger, and the Orchestrator itself, with startup recovery applied
// ("a task observed as RUNNING at orchestrator startup is
// transitioned to INIT before any new work starts").
func New(ctx context.Context, cfg *config.RunConfig) (*orchestrator.Orchestrator, platformlog.Logger, error) {
	logger := platformlog.New(cfg.Log.Level)
	registry := BuildRegistry(cfg)

	o, err := orchestrator.New(cfg, registry, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := o.ResetRunningTasks(); err != nil {
		return nil, nil, err
	}
	return o, logger, nil
}
