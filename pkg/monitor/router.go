package monitor

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/manelneto/penguin/pkg/history"
	"github.com/manelneto/penguin/pkg/monitor/handlers"
)

// Router holds the Gin engine and the read-only dependencies it serves:
// the transfer ledger and a snapshot of the active connection, if any. It
// never holds a byte channel or a link.Connection; this is observability
// bolted onto the side of the protocol, not a participant in it.
type Router struct {
	engine *gin.Engine
	store  *history.Store
	state  *ConnectionState
}

// NewRouter builds a router over store and state. The surface is three
// read-only GET endpoints, so the middleware stack is just panic
// recovery, request logging, and a GET-only CORS policy for dashboards
// served from another origin.
func NewRouter(store *history.Store, state *ConnectionState) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	router := &Router{
		engine: engine,
		store:  store,
		state:  state,
	}
	router.setupRoutes()

	return router
}

func (r *Router) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(r.state.Snapshot)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		transfersHandler := handlers.NewTransfersHandler(r.store)
		transfers := v1.Group("/transfers")
		{
			transfers.GET("", transfersHandler.List)
			transfers.GET("/:id", transfersHandler.Get)
		}
	}
}

// requestLogger emits one zerolog line per request, at Warn for client
// errors and Error for server errors.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}

		status := c.Writer.Status()
		evt := log.Info()
		switch {
		case status >= 500:
			evt = log.Error()
		case status >= 400:
			evt = log.Warn()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("monitor: request")
	}
}

// Run starts the HTTP server, blocking until it stops or fails.
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
