package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/promptkit/internal/domain/event"
	porteventbus "github.com/alanyang/promptkit/internal/port/eventbus"
	portidempotency "github.com/alanyang/promptkit/internal/port/idempotency"
	categorysvc "github.com/alanyang/promptkit/internal/service/category"
	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"

	categoryhandler "github.com/alanyang/promptkit/internal/transport/category"
	mcptransport "github.com/alanyang/promptkit/internal/transport/mcp"
	prompthandler "github.com/alanyang/promptkit/internal/transport/prompt"
	toolkithandler "github.com/alanyang/promptkit/internal/transport/toolkit"
	wshandler "github.com/alanyang/promptkit/internal/transport/ws"
)

func NewRouter(
	ctx context.Context,
	promptSvc *promptsvc.Service,
	categorySvc *categorysvc.Service,
	idempotency portidempotency.Store,
	mcpServer *mcptransport.Server,
	eventBus porteventbus.EventBus,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())
	r.Use(IdempotencyMiddleware(idempotency))

	api := r.Group("/api")

	toolkithandler.Register(api.Group("/toolkit"))
	prompthandler.Register(api.Group("/prompts"), promptSvc)
	categoryhandler.Register(api.Group("/categories"), categorySvc)

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	r.Any("/mcp", gin.WrapH(mcpServer.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// Bridge: one subscription per domain channel. Every event goes to the WS
	// hub and to MCP sessions watching its category.
	watchers := mcpServer.Watchers()
	for _, ch := range []event.Channel{
		event.ChannelPrompt,
		event.ChannelCategory,
	} {
		c := ch
		if _, err := eventBus.Subscribe(ctx, c, func(ctx context.Context, e event.Event) {
			hub.Broadcast(e)
			if err := watchers.Notify(ctx, e); err != nil {
				slog.WarnContext(ctx, "failed to notify mcp watchers", "type", e.Type, "error", err)
			}
		}); err != nil {
			slog.Error("failed to subscribe channel", "channel", c, "error", err)
		}
	}

	return r
}
