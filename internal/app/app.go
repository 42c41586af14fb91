package app

import (
	"context"
	"time"

	"harvest-backend/internal/application/auctions"
	"harvest-backend/internal/application/batches"
	"harvest-backend/internal/application/escrow"
	"harvest-backend/internal/application/events"
	"harvest-backend/internal/application/policies"
	"harvest-backend/internal/application/reputation"
	"harvest-backend/internal/application/token"
	"harvest-backend/internal/config"
	"harvest-backend/internal/health"
	"harvest-backend/internal/infrastructure/database"
	"harvest-backend/internal/keeper"
	"harvest-backend/internal/pkg/validation"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App is the wired marketplace ledger: storage, the four ledger components,
// the token ledger backing the vault, and the settlement keeper.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Rdb    *redis.Client
	Ledger *database.Ledger

	Batches    *batches.Service
	Auctions   *auctions.Service
	Tokens     *token.Service
	Vault      *escrow.Service
	Reputation *reputation.Service
	Events     *events.Service

	Stats      *keeper.Stats
	Settlement *keeper.SettlementJob
}

// Build opens storage, migrates it and wires every component. Redis is
// optional; without it events are only logged.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opt)
	}

	sink := events.Fanout{events.LogSink{}}
	if rdb != nil {
		sink = append(sink, &events.RedisPublisher{Rdb: rdb, Channel: cfg.EventChannel})
	}
	ledger := &database.Ledger{DB: db, Sink: sink}

	a := &App{Config: cfg, DB: db, Rdb: rdb, Ledger: ledger}
	a.Batches = &batches.Service{Ledger: ledger}
	a.Auctions = &auctions.Service{Ledger: ledger, Batches: a.Batches, MinIncrement: cfg.MinBidIncrement}
	a.Tokens = &token.Service{Ledger: ledger}
	a.Vault = &escrow.Service{
		Ledger:   ledger,
		Auctions: a.Auctions,
		Custody:  &token.Account{Tokens: a.Tokens, Holder: cfg.VaultAccount},
	}
	a.Reputation = &reputation.Service{Ledger: ledger, Auctions: a.Auctions, Policy: Governance(cfg)}
	a.Events = &events.Service{Ledger: ledger}
	a.Stats = &keeper.Stats{Rdb: rdb}
	a.Settlement = &keeper.SettlementJob{
		Ledger:     ledger,
		Auctions:   a.Auctions,
		Vault:      a.Vault,
		Reputation: a.Reputation,
	}

	if validation.IsSetAccount(cfg.FeeCollector) && validation.IsSetAccount(cfg.VaultAccount) {
		if _, err := a.Vault.EnsureSettings(ctx, cfg.PlatformFeeBps, cfg.FeeCollector, cfg.VaultAccount); err != nil {
			return nil, err
		}
	} else {
		log.Warn().Msg("FEE_COLLECTOR or VAULT_ACCOUNT not set; escrow operations will fail until vault settings exist")
	}
	return a, nil
}

// Governance builds the authorizer for privileged reputation changes from
// whichever credentials are configured. With none, every request is refused.
func Governance(cfg *config.Config) policies.Authorizer {
	var auth policies.AnyOf
	if validation.IsSetAccount(cfg.GovernanceAddress) {
		auth = append(auth, policies.AddressAuthorizer{Governance: cfg.GovernanceAddress})
	}
	if cfg.GovernanceTokenHash != "" {
		auth = append(auth, policies.CapabilityAuthorizer{TokenHash: []byte(cfg.GovernanceTokenHash)})
	}
	return auth
}

// Keeper returns a runner with the settlement job scheduled.
func (a *App) Keeper(ctx context.Context) (*keeper.Runner, error) {
	runner := keeper.NewRunner(ctx, a.Stats)
	if _, err := runner.Add(a.Config.KeeperSchedule, a.Settlement); err != nil {
		return nil, err
	}
	return runner, nil
}

// Health reports dependency status and keeper statistics.
func (a *App) Health(ctx context.Context) health.CollectResult {
	return health.CollectHealth(ctx, a.Rdb, &database.Pinger{DB: a.DB})
}

// ResetStats clears the keeper counters and restarts the uptime clock at now.
func (a *App) ResetStats(ctx context.Context, now time.Time) error {
	return a.Stats.Reset(ctx, now)
}

func (a *App) Close() {
	if a.Rdb != nil {
		_ = a.Rdb.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
