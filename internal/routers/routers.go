// Package routers registers the HTTP surface and holds the handlers.
package routers

import (
	"relay-api/internal/auth"
	"relay-api/internal/catalog"
	"relay-api/internal/files"
	"relay-api/internal/middleware"
	"relay-api/internal/relay"
	"relay-api/internal/shared"
	"relay-api/internal/upstream"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type RelayRouter struct {
	cfg     *shared.Config
	tokens  *auth.TokenService
	engine  *relay.Engine
	catalog *catalog.Catalog
	store   *files.Store
	up      *upstream.Client
	log     *zap.SugaredLogger
}

type Deps struct {
	Config   *shared.Config
	Tokens   *auth.TokenService
	Engine   *relay.Engine
	Catalog  *catalog.Catalog
	Store    *files.Store
	Upstream *upstream.Client
	Log      *zap.SugaredLogger
}

// RegisterRoutes wires every endpoint onto the group. The bearer gate runs
// before every protected handler, so an unauthenticated request never
// reaches the upstream client.
func RegisterRoutes(e *echo.Group, deps Deps) error {
	rr := &RelayRouter{
		cfg:     deps.Config,
		tokens:  deps.Tokens,
		engine:  deps.Engine,
		catalog: deps.Catalog,
		store:   deps.Store,
		up:      deps.Upstream,
		log:     deps.Log,
	}

	am := middleware.NewAuthMiddleware(deps.Tokens)
	protected := e.Group("", am.ExtractIdentity, am.RequireIdentity)

	e.POST("/login", rr.Login)
	e.GET("/health", rr.Health)

	protected.GET("/models", rr.Models)
	protected.POST("/chat", rr.Chat)
	protected.POST("/upload", rr.Upload)
	protected.GET("/files/:name", rr.Download)
	return nil
}
