// Package portal is a content-management backend for an institutional site
// built with Go, Echo, and templ. Staff manage announcements, articles, a
// user roster and a photo gallery; visitors browse paginated listings and
// send contact messages.
//
// Sites provide their own templ components via the ViewFuncs struct, and
// portal handles the handler logic, middleware, uploads, and database.
package portal

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/portal/media"
	"github.com/eringen/portal/pagination"
)

// ViewFuncs holds the templ components the handlers render. Fragments
// (lists, forms) are swapped into pages by htmx.
type ViewFuncs struct {
	Home          func(site string) templ.Component
	PublicList    func(kind Kind, items []ContentItem, page pagination.Page, mainPage bool) templ.Component
	ContentDetail func(item ContentItem) templ.Component
	Contact       func(sent bool, csrfToken string) templ.Component

	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(actor Actor, csrfToken string) templ.Component
	AdminList      func(kind Kind, items []ContentItem, page pagination.Page, csrfToken string) templ.Component
	AdminForm      func(kind Kind, item ContentItem, csrfToken string) templ.Component

	Users    func(csrfToken string) templ.Component
	UserList func(users []User, csrfToken string) templ.Component
	UserForm func(user User, csrfToken string) templ.Component

	Inbox    func(csrfToken string) templ.Component
	Messages func(msgs []ContactMessage) templ.Component

	Gallery func(images []string, csrfToken string) templ.Component
	Slider  func(images []string) templ.Component

	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App is the central portal application. It wires together the store,
// media, content service, handlers, and user-provided templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Media   *media.Store
	Content *ContentService
	Views   ViewFuncs

	logger       *slog.Logger
	loginLimiter *LoginLimiter
	registry     *prometheus.Registry
	metrics      *metrics
	customRoutes []func(*App)
	ready        bool
}

// New creates a new portal App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	return a
}

// Init opens the store, builds the content service, and registers
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo through httptest.
func (a *App) Init() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("portal: %w", err)
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("portal: init store: %w", err)
		}
		a.Store = store
	}

	filter, _ := media.ParseFilter(a.Config.GalleryFilter)
	a.Media = media.NewStore(a.Config.PublicDir)
	a.Content = NewContentService(a.Store, a.Media, ServiceConfig{
		UploadDir:     a.Config.UploadDir,
		GalleryDir:    a.Config.GalleryDir,
		MaxFieldSize:  a.Config.MaxFieldSize,
		MaxFileSize:   a.Config.MaxBodySize,
		DateLayout:    a.Config.DateLayout,
		GalleryWidth:  a.Config.GalleryWidth,
		GalleryHeight: a.Config.GalleryHeight,
		GalleryFilter: filter,
	}, a.logger)

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.registry = prometheus.NewRegistry()
	a.metrics = newMetrics(a.registry)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start initializes the app and runs the HTTP server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/assets", filepath.Join(a.Config.PublicDir, "assets"))

	if a.Config.MetricsEnabled {
		e.GET("/metrics", a.metricsHandler())
	}

	// Public routes
	e.GET("/", a.handleHome)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/slider", a.handleSlider)
	e.GET("/docs/:filename", a.handleDoc)
	e.GET("/contact", a.handleContactForm)
	e.POST("/contact", a.handleContactSubmit)
	for _, k := range Kinds {
		e.GET("/"+k.Plural()+"/:page", a.handlePublicList(k))
		e.GET("/"+k.Singular()+"/:id", a.handleDetail(k))
	}

	// Authentication
	e.GET("/admin", a.handleAdmin)
	e.POST("/login", a.handleLogin)
	e.GET("/logout", handleLogout)

	// Admin routes
	g := e.Group("/admin", a.requireActor)
	g.GET("/dashboard", a.handleDashboard)
	for _, k := range Kinds {
		g.GET("/"+k.Plural(), a.handleAdminList(k))
		g.GET("/"+k.Plural()+"/add/form", a.handleAddForm(k))
		g.POST("/"+k.Plural()+"/add", a.handleAdd(k))
		g.GET("/"+k.Singular()+"/edit/form/:id", a.handleEditForm(k))
		g.POST("/"+k.Singular()+"/edit", a.handleEdit(k))
		g.POST("/"+k.Plural()+"/delete/:id", a.handleDelete(k))
		g.DELETE("/"+k.Plural()+"/delete/:id", a.handleDelete(k))
	}

	g.GET("/user", a.handleUsers)
	g.GET("/user/list", a.handleUserList)
	g.GET("/user/add/form", a.handleUserAddForm)
	g.POST("/user/add", a.handleUserAdd)
	g.GET("/user/edit/form/:username", a.handleUserEditForm)
	g.POST("/user/edit/:username", a.handleUserEdit)
	g.PUT("/user/edit/:username", a.handleUserEdit)
	g.DELETE("/user/delete/:username", a.handleUserDelete)

	g.GET("/inbox", a.handleInbox)
	g.GET("/messages", a.handleMessages)

	g.GET("/gallery", a.handleGallery)
	g.GET("/image/list", a.handleImageList)
	g.GET("/image/count", a.handleImageCount)
	g.POST("/image/add", a.handleImageAdd)
	g.DELETE("/image/delete/:name", a.handleImageDelete)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
