package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	ghsource "github.com/alanyang/promptkit/internal/adapter/github"
	"github.com/alanyang/promptkit/internal/adapter/memory"
	pgdb "github.com/alanyang/promptkit/internal/adapter/postgres"
	pgcategory "github.com/alanyang/promptkit/internal/adapter/postgres/category"
	pgeventbus "github.com/alanyang/promptkit/internal/adapter/postgres/eventbus"
	pgidempotency "github.com/alanyang/promptkit/internal/adapter/postgres/idempotency"
	pglocker "github.com/alanyang/promptkit/internal/adapter/postgres/locker"
	pgprompt "github.com/alanyang/promptkit/internal/adapter/postgres/prompt"
	portsource "github.com/alanyang/promptkit/internal/port/source"

	categorysvc "github.com/alanyang/promptkit/internal/service/category"
	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"

	"github.com/alanyang/promptkit/internal/transport"
	mcptransport "github.com/alanyang/promptkit/internal/transport/mcp"
)

// Version is reported to MCP clients.
var Version = "dev"

const cacheSweepInterval = time.Minute

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Pool      *pgxpool.Pool
	Server    *http.Server
	PromptSvc *promptsvc.Service
	MCPServer *mcptransport.Server
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies.
func Build(ctx context.Context, cfg Config) (*App, error) {
	// ── Database ─────────────────────────────────────────────────────────────
	pool, err := pgdb.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// ── Adapters ─────────────────────────────────────────────────────────────
	promptRepo := pgprompt.New(pool)
	categoryRepo := pgcategory.New(pool)
	idempotencyRepo := pgidempotency.New(pool)
	eventBus := pgeventbus.New(pool)
	locker := pglocker.New(pool)

	cache := memory.NewCache()
	go cache.Janitor(ctx, cacheSweepInterval)

	// GitHub import is enabled only when a token is configured.
	var source portsource.DocumentSource
	if cfg.GitHubToken != "" {
		source = ghsource.NewSource(cfg.GitHubToken)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	promptSvcInstance := promptsvc.NewService(promptRepo, eventBus, locker, cache, source, cfg.Prompt)
	categorySvcInstance := categorysvc.NewService(categoryRepo, eventBus)

	mcpServer := mcptransport.New(mcptransport.NewWatchRegistry(), promptSvcInstance, Version)

	// ── Transport ─────────────────────────────────────────────────────────────
	router := transport.NewRouter(
		ctx,
		promptSvcInstance,
		categorySvcInstance,
		idempotencyRepo,
		mcpServer,
		eventBus,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("application wired", "port", cfg.Port, "github_import", source != nil)

	app := &App{
		Pool:      pool,
		Server:    server,
		PromptSvc: promptSvcInstance,
		MCPServer: mcpServer,
	}

	// ── Event-Driven Duplicate Auditor ─────────────────────────────────────────
	startAuditor(ctx, promptSvcInstance, eventBus, cfg.AuditGrace)

	return app, nil
}
