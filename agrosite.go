// Package agrosite is the REST backend of an agribusiness marketing site:
// product catalog, blog, contact and job-application forms, notifications and
// a small admin back-office, built with Echo on top of a relational store.
//
// Form submissions are stored together with an outbox message; a background
// worker emails the operators, so a slow or failing mail relay never affects
// the HTTP response.
package agrosite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/agrosite/agrosite/auth"
	"github.com/agrosite/agrosite/logging"
	"github.com/agrosite/agrosite/notify"
	"github.com/agrosite/agrosite/service"
	"github.com/agrosite/agrosite/store"
)

// App is the central agrosite application. It wires together the store,
// services, cache, delivery worker, handlers and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    store.Store
	Services *service.Services
	Cache    *CatalogCache
	Worker   *notify.Worker
	Log      zerolog.Logger

	tokens       *auth.TokenIssuer
	loginLimiter *LoginLimiter
	csrf         echo.MiddlewareFunc
	sender       notify.Sender
	bcryptCost   int
	customLogger bool
	ownsStore    bool
}

// New creates an App with the given configuration. Call Setup before serving.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:     cfg,
		Echo:       echo.New(),
		bcryptCost: bcrypt.DefaultCost,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	if !a.customLogger {
		a.Log = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	}
	return a
}

// Setup opens and migrates the database (unless a store was supplied), builds
// the services and the delivery worker, and registers middleware and routes.
func (a *App) Setup(ctx context.Context) error {
	if err := a.Config.validate(); err != nil {
		return err
	}

	if a.Store == nil {
		st, err := OpenStore(ctx, a.Config, a.Log)
		if err != nil {
			return err
		}
		a.Store = st
		a.ownsStore = true
	}

	if a.sender == nil {
		a.sender = a.defaultSender()
	}
	a.Worker = notify.NewWorker(a.Store, a.sender, notify.WorkerConfig{
		SiteName:     a.Config.Name,
		From:         a.Config.MailFrom,
		To:           a.Config.MailTo,
		PollInterval: a.Config.OutboxPollInterval,
		BatchSize:    a.Config.OutboxBatch,
		MaxAttempts:  a.Config.OutboxMaxAttempts,
		SendTimeout:  a.Config.SMTPTimeout,
		Retries:      2,
	}, a.Log)

	a.Services = service.New(a.Store,
		service.WithBcryptCost(a.bcryptCost),
		service.WithNudger(a.Worker),
	)
	a.Cache = NewCatalogCache(a.Services, a.Config.CacheTTL)
	a.tokens = auth.NewTokenIssuer([]byte(a.Config.JWTSecret), a.Config.TokenTTL, a.Config.Name)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginMaxAttempts, a.Config.LoginWindow)

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// OpenStore opens the configured SQL database and applies migrations,
// logging migration progress to log.
func OpenStore(ctx context.Context, cfg SiteConfig, log zerolog.Logger) (*store.SQLStore, error) {
	cfg.setDefaults()
	dialect, err := store.ParseDialect(cfg.DatabaseDriver)
	if err != nil {
		return nil, fmt.Errorf("agrosite: %w", err)
	}
	st, err := store.Open(ctx, dialect, cfg.DatabaseDSN, store.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("agrosite: open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("agrosite: %w", err)
	}
	return st, nil
}

func (a *App) defaultSender() notify.Sender {
	if a.Config.SMTPHost == "" {
		a.Log.Warn().Msg("SMTP_HOST not set, operator emails will only be logged")
		return notify.NewLogSender(a.Log)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     a.Config.SMTPHost,
		Port:     a.Config.SMTPPort,
		Username: a.Config.SMTPUsername,
		Password: a.Config.SMTPPassword,
		Timeout:  a.Config.SMTPTimeout,
	})
}

func (a *App) setupRoutes() {
	e := a.Echo
	admin := a.adminOnly

	e.GET("/healthz", a.handleHealth)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.Static("/uploads", a.Config.UploadDir)

	api := e.Group("/api")

	api.GET("/products", a.handleListProducts)
	api.GET("/products/category/:category", a.handleListProductsByCategory)
	api.GET("/products/:slug", a.handleGetProduct)
	api.POST("/products", a.handleCreateProduct, admin)
	api.PUT("/products/:id", a.handleUpdateProduct, admin)
	api.DELETE("/products/:id", a.handleDeleteProduct, admin)

	api.GET("/blog", a.handleListBlog)
	api.GET("/blog/:slug", a.handleGetBlogPost)
	api.POST("/blog", a.handleCreateBlogPost, admin)
	api.PUT("/blog/:id", a.handleUpdateBlogPost, admin)
	api.DELETE("/blog/:id", a.handleDeleteBlogPost, admin)

	api.POST("/contact", a.handleContact)
	api.POST("/job-application", a.handleJobApplication)

	api.GET("/notifications", a.handleListNotifications)
	api.GET("/notifications/:id", a.handleGetNotification)
	api.POST("/notifications", a.handleCreateNotification, admin)
	api.PATCH("/notifications/read-all", a.handleMarkAllNotificationsRead)
	api.PATCH("/notifications/:id/read", a.handleMarkNotificationRead)
	api.DELETE("/notifications/:id", a.handleDeleteNotification, admin)

	api.POST("/admin/login", a.handleAdminLogin)
	api.POST("/admin/logout", a.handleAdminLogout)

	// Editors manage content; only admins manage accounts.
	owner := requireRole(store.RoleAdmin)

	back := api.Group("/admin", admin)
	back.GET("/me", a.handleAdminMe)
	back.GET("/users", a.handleListAdmins, owner)
	back.POST("/users", a.handleCreateAdmin, owner)
	back.GET("/users/:id", a.handleGetAdmin, owner)
	back.PUT("/users/:id", a.handleUpdateAdmin, owner)
	back.DELETE("/users/:id", a.handleDeleteAdmin, owner)
	back.GET("/products", a.handleAdminListProducts)
	back.GET("/products/:id", a.handleAdminGetProduct)
	back.GET("/blog", a.handleAdminListBlog)
	back.GET("/blog/:id", a.handleAdminGetBlogPost)
	back.GET("/contacts", a.handleAdminListContacts)
	back.GET("/job-applications", a.handleAdminListJobApplications)
	back.GET("/deliveries", a.handleAdminListDeliveries)
	back.GET("/images", a.handleImageList)
	back.POST("/images", a.handleImageUpload)
	back.DELETE("/images/:filename", a.handleImageDelete)
}

// Run serves HTTP and runs the delivery worker until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info().Str("addr", a.Config.Addr).Msg("http server listening")
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Worker.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Log.Info().Msg("shutting down")
		return a.Echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Start is Setup followed by Run.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	return a.Run(ctx)
}

// Close releases resources opened by Setup.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.ownsStore && a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
