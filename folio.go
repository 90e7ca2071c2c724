// Package folio is the JSON backend of a personal blog built with Echo and
// SQLite. It serves posts, comments, likes, site settings, an admin API, an
// RSS feed and a sitemap.
package folio

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// App wires together the store, cache, handlers and middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *SiteCache

	log          zerolog.Logger
	loginLimiter *LoginLimiter
	stopCleanup  func()
	customRoutes []func(*App)
	clock        func() time.Time
}

// New creates an App serving store. Routes and middleware are registered
// immediately, so a.Echo can be used with httptest before Start is called.
func New(cfg SiteConfig, store *Store, log zerolog.Logger, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
		Store:  store,
		log:    log.With().Str("component", "http").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.clock != nil {
		store.now = a.clock
	}

	a.Cache = NewSiteCache(store, cfg.CacheTTL)
	a.loginLimiter = NewLoginLimiter(cfg.LoginAttemptsPerMinute, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a
}

// Start schedules the view-log cleanup and serves HTTP until ctx is done,
// then shuts the server down gracefully.
func (a *App) Start(ctx context.Context) error {
	stop, err := a.Store.StartCleanupScheduler(a.Config.ViewLogRetentionDays)
	if err != nil {
		return err
	}
	a.stopCleanup = stop

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.Config.Addr).Msg("http server listening")
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	return a.Echo.Shutdown(shutdownCtx)
}

// Close stops background work. The Store is owned by the caller.
func (a *App) Close() {
	if a.stopCleanup != nil {
		a.stopCleanup()
		a.stopCleanup = nil
	}
	a.loginLimiter.Stop()
}

func (a *App) setupRoutes() {
	e := a.Echo
	writes := writeRateLimit()

	api := e.Group("/api")

	// Public routes
	api.GET("/posts", a.handleListPosts)
	api.GET("/posts/:id", a.handleGetPost)
	api.GET("/posts/:id/adjacent", a.handleAdjacentPosts)
	api.POST("/posts/:id/views", a.handleRecordView, writes)
	api.GET("/posts/:id/comments", a.handleListComments)
	api.POST("/posts/:id/comments", a.handleCreateComment, writes)
	api.GET("/posts/:id/likes", a.handleGetLikes)
	api.POST("/posts/:id/likes", a.handleToggleLike, writes)
	api.GET("/search", a.handleSearch)
	api.GET("/categories", a.handleCategories)
	api.GET("/settings", a.handleGetSettings)

	api.POST("/auth/login", a.handleLogin)
	api.GET("/auth/login", a.handleSession)
	api.POST("/auth/logout", handleLogout)

	// Admin routes
	api.POST("/posts", a.handleCreatePost, requireAdmin)
	api.PUT("/posts/:id", a.handleUpdatePost, requireAdmin)
	api.DELETE("/posts/:id", a.handleDeletePost, requireAdmin)
	api.PUT("/settings", a.handleUpdateSettings, requireAdmin)

	admin := api.Group("/admin", requireAdmin)
	admin.GET("/credentials", a.handleGetCredentials)
	admin.PUT("/credentials", a.handleUpdateCredentials)
	admin.GET("/comments", a.handleAdminComments)
	admin.DELETE("/comments/:id", a.handleDeleteComment)
	admin.GET("/likes", a.handleAdminLikes)
	admin.GET("/stats", a.handleAdminStats)
	admin.GET("/images", a.handleImageList)
	admin.POST("/images", a.handleImageUpload)
	admin.DELETE("/images/:filename", a.handleImageDelete)

	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/health", a.handleHealth)
	e.Static("/uploads", a.Config.UploadDir)
}
