package portal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eringen/portal/media"
)

// SiteConfig holds all configuration for a portal site.
type SiteConfig struct {
	Name string `mapstructure:"SITE_NAME"` // Site name (default "Portal")
	URL  string `mapstructure:"SITE_URL"`  // Canonical URL (default "http://localhost:3000")

	Addr         string `mapstructure:"ADDR"`          // Listen address (default ":3000")
	DatabasePath string `mapstructure:"DATABASE_PATH"` // SQLite path (default "data/portal.db")

	// PublicDir is served at "/assets"; the media directories below are
	// relative to it and begin with "assets/".
	PublicDir  string `mapstructure:"PUBLIC_DIR"`
	UploadDir  string `mapstructure:"UPLOAD_DIR"`
	GalleryDir string `mapstructure:"GALLERY_DIR"`
	DocsDir    string `mapstructure:"DOCS_DIR"`

	SessionSecret string `mapstructure:"SESSION_SECRET"` // Required: session encryption secret
	CookieSecure  bool   `mapstructure:"COOKIE_SECURE"`  // Set true for HTTPS

	MaxBodySize  int64 `mapstructure:"MAX_BODY_SIZE"`  // whole request body (default 10 MiB)
	MaxFieldSize int64 `mapstructure:"MAX_FIELD_SIZE"` // one text field (default 1 MiB)

	GalleryWidth  int    `mapstructure:"GALLERY_WIDTH"`
	GalleryHeight int    `mapstructure:"GALLERY_HEIGHT"`
	GalleryFilter string `mapstructure:"GALLERY_FILTER"`

	AdminPageSize   int `mapstructure:"ADMIN_PAGE_SIZE"`
	PublicPageSize  int `mapstructure:"PUBLIC_PAGE_SIZE"`
	MainPageSize    int `mapstructure:"MAIN_PAGE_SIZE"`
	GalleryPageSize int `mapstructure:"GALLERY_PAGE_SIZE"`
	SliderCount     int `mapstructure:"SLIDER_COUNT"`

	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	DateLayout     string `mapstructure:"DATE_LAYOUT"` // Go layout for content dates
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portal"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/portal.db"
	}
	if c.PublicDir == "" {
		c.PublicDir = "public"
	}
	if c.UploadDir == "" {
		c.UploadDir = "assets/image/upload"
	}
	if c.GalleryDir == "" {
		c.GalleryDir = "assets/slider"
	}
	if c.DocsDir == "" {
		c.DocsDir = "assets/docs"
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = 10 << 20
	}
	if c.MaxFieldSize == 0 {
		c.MaxFieldSize = 1 << 20
	}
	if c.GalleryWidth == 0 {
		c.GalleryWidth = 1280
	}
	if c.GalleryHeight == 0 {
		c.GalleryHeight = 720
	}
	if c.GalleryFilter == "" {
		c.GalleryFilter = string(media.Lanczos)
	}
	if c.AdminPageSize == 0 {
		c.AdminPageSize = 3
	}
	if c.PublicPageSize == 0 {
		c.PublicPageSize = 6
	}
	if c.MainPageSize == 0 {
		c.MainPageSize = 3
	}
	if c.GalleryPageSize == 0 {
		c.GalleryPageSize = 6
	}
	if c.SliderCount == 0 {
		c.SliderCount = 10
	}
	if c.DateLayout == "" {
		c.DateLayout = "02-01-2006"
	}
}

// Validate reports configuration that would keep the server from starting.
func (c *SiteConfig) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if _, err := media.ParseFilter(c.GalleryFilter); err != nil {
		return err
	}
	if c.GalleryWidth < 1 || c.GalleryHeight < 1 {
		return fmt.Errorf("invalid gallery size %dx%d", c.GalleryWidth, c.GalleryHeight)
	}
	return nil
}

// LoadConfig reads an optional .env file, an optional config.yml in the
// working directory, and environment variables, in increasing precedence.
func LoadConfig() (SiteConfig, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return SiteConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	// Unmarshal only sees keys viper knows about, so every field gets a default.
	var defaults SiteConfig
	defaults.setDefaults()
	v.SetDefault("SITE_NAME", defaults.Name)
	v.SetDefault("SITE_URL", defaults.URL)
	v.SetDefault("ADDR", defaults.Addr)
	v.SetDefault("DATABASE_PATH", defaults.DatabasePath)
	v.SetDefault("PUBLIC_DIR", defaults.PublicDir)
	v.SetDefault("UPLOAD_DIR", defaults.UploadDir)
	v.SetDefault("GALLERY_DIR", defaults.GalleryDir)
	v.SetDefault("DOCS_DIR", defaults.DocsDir)
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("MAX_BODY_SIZE", defaults.MaxBodySize)
	v.SetDefault("MAX_FIELD_SIZE", defaults.MaxFieldSize)
	v.SetDefault("GALLERY_WIDTH", defaults.GalleryWidth)
	v.SetDefault("GALLERY_HEIGHT", defaults.GalleryHeight)
	v.SetDefault("GALLERY_FILTER", defaults.GalleryFilter)
	v.SetDefault("ADMIN_PAGE_SIZE", defaults.AdminPageSize)
	v.SetDefault("PUBLIC_PAGE_SIZE", defaults.PublicPageSize)
	v.SetDefault("MAIN_PAGE_SIZE", defaults.MainPageSize)
	v.SetDefault("GALLERY_PAGE_SIZE", defaults.GalleryPageSize)
	v.SetDefault("SLIDER_COUNT", defaults.SliderCount)
	v.SetDefault("METRICS_ENABLED", false)
	v.SetDefault("DATE_LAYOUT", defaults.DateLayout)

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger sets the structured logger used by the service and handlers.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithStore uses an already opened Store instead of opening DatabasePath.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}
