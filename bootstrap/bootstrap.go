package bootstrap

import (
	"context"

	"harvest-backend/internal/app"
	"harvest-backend/internal/config"
)

// New loads configuration and builds the wired ledger. Callers outside this
// module import this package rather than internal/.
func New(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg)
}
