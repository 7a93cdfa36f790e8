package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/albumen/internal/airtable"
	"github.com/starford/albumen/internal/board"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/slideshow"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Catalog   CatalogConfig     `yaml:"catalog"`
	Airtable  AirtableConfig    `yaml:"airtable"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Browse    BrowseConfig      `yaml:"browse"`
	Slideshow SlideshowConfig   `yaml:"slideshow"`
	Auth      AuthConfig        `yaml:"auth"`
	Resync    ResyncConfig      `yaml:"resync"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Catalog, &c.Airtable, &c.SQLite, &c.Browse, &c.Slideshow, &c.Auth, &c.Resync,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel    slog.Level    `yaml:"log_level"`
	HTTP        HTTPConfig    `yaml:"http"`
	CORSOrigins []string      `yaml:"cors_origins"`
	SessionIdle time.Duration `yaml:"session_idle"`
	// Title names the archive in shared e-mails.
	Title string `yaml:"title"`
	// ShareURL is the public page that share links point at.
	ShareURL string `yaml:"share_url"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.SessionIdle, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.ShareURL, validation.Required, absoluteURL),
	)
}

var absoluteURL = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
})

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CatalogConfig locates the catalog document and the image assets.
type CatalogConfig struct {
	// Source is a local path or an http(s) URL.
	Source           string `yaml:"source"`
	ImageBaseURL     string `yaml:"image_base_url"`
	ThumbnailBaseURL string `yaml:"thumbnail_base_url"`
	// Watch reloads a local catalog file when it changes.
	Watch bool `yaml:"watch"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.ImageBaseURL, validation.Required),
		validation.Field(&c.ThumbnailBaseURL, validation.Required),
	)
}

// URLs returns the asset URL resolver.
func (c *CatalogConfig) URLs() catalog.URLs {
	return catalog.URLs{ImageBase: c.ImageBaseURL, ThumbnailBase: c.ThumbnailBaseURL}
}

// AirtableConfig holds the remote record store settings.
type AirtableConfig struct {
	APIURL        string        `yaml:"api_url"`
	BaseID        string        `yaml:"base_id"`
	APIKey        string        `yaml:"api_key"`
	MessagesTable string        `yaml:"messages_table"`
	CommentsTable string        `yaml:"comments_table"`
	Timeout       time.Duration `yaml:"timeout"`
	PageSize      int           `yaml:"page_size"`
	Breaker       BreakerConfig `yaml:"breaker"`
}

// Validate validates the Airtable configuration.
func (c *AirtableConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required, absoluteURL),
		validation.Field(&c.BaseID, validation.Required),
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.MessagesTable, validation.Required),
		validation.Field(&c.CommentsTable, validation.Required),
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.PageSize, validation.Min(1), validation.Max(airtable.DefaultPageSize)),
	); err != nil {
		return err
	}
	return c.Breaker.Validate()
}

// Tables returns the configured table names.
func (c *AirtableConfig) Tables() board.Tables {
	return board.Tables{Messages: c.MessagesTable, Comments: c.CommentsTable}
}

// BreakerConfig tunes the circuit breaker around Airtable calls.
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Validate validates the breaker configuration.
func (c *BreakerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxRequests, validation.Required),
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.FailureThreshold, validation.Required, validation.Max(1.0)),
	)
}

// Settings converts c for the Airtable client.
func (c *BreakerConfig) Settings() airtable.BreakerSettings {
	return airtable.BreakerSettings{
		MaxRequests:      c.MaxRequests,
		Interval:         c.Interval,
		Timeout:          c.Timeout,
		FailureThreshold: c.FailureThreshold,
		MinRequests:      c.MinRequests,
	}
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// BrowseConfig holds the browse session defaults.
type BrowseConfig struct {
	ItemsPerPage int           `yaml:"items_per_page"`
	Debounce     time.Duration `yaml:"debounce"`
}

// Validate validates the browse configuration.
func (c *BrowseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ItemsPerPage, validation.Required, validation.Min(1)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// SlideshowConfig holds slideshow timing defaults.
type SlideshowConfig struct {
	Speed time.Duration `yaml:"speed"`
	Tick  time.Duration `yaml:"tick"`
}

// Validate validates the slideshow configuration.
func (c *SlideshowConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Speed, validation.Required, validation.Min(slideshow.MinSpeed)),
		validation.Field(&c.Tick, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ResyncConfig controls the periodic comment index reload. A zero
// interval disables it.
type ResyncConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Validate validates the resync configuration.
func (c *ResyncConfig) Validate() error {
	if c.Interval != 0 && c.Interval < time.Minute {
		return fmt.Errorf("resync: interval %s is below 1m", c.Interval)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	bs := airtable.DefaultBreakerSettings()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			SessionIdle: 30 * time.Minute,
			Title:       "Family Archive",
			ShareURL:    "http://localhost:8080/",
		},
		Catalog: CatalogConfig{
			Source:           "./data/catalog.json",
			ImageBaseURL:     "/images/",
			ThumbnailBaseURL: "/thumbnails/",
			Watch:            true,
		},
		Airtable: AirtableConfig{
			APIURL:        airtable.DefaultAPIURL,
			MessagesTable: board.DefaultTables.Messages,
			CommentsTable: board.DefaultTables.Comments,
			Timeout:       15 * time.Second,
			PageSize:      airtable.DefaultPageSize,
			Breaker: BreakerConfig{
				MaxRequests:      bs.MaxRequests,
				Interval:         bs.Interval,
				Timeout:          bs.Timeout,
				FailureThreshold: bs.FailureThreshold,
				MinRequests:      bs.MinRequests,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./albumen.db",
		},
		Browse: BrowseConfig{
			ItemsPerPage: 25,
			Debounce:     300 * time.Millisecond,
		},
		Slideshow: SlideshowConfig{
			Speed: 4 * time.Second,
			Tick:  50 * time.Millisecond,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
