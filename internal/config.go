package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/twigraph/internal/builder"
	"github.com/starford/twigraph/internal/centrality"
	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/ingest"
	"github.com/starford/twigraph/internal/propagate"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Input       InputConfig       `yaml:"input"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Propagation PropagationConfig `yaml:"propagation"`
	Metrics     []string          `yaml:"metrics"`
	Auth        AuthConfig        `yaml:"auth"`
	Watch       WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Input.Validate(); err != nil {
		return err
	}
	if err := c.Snapshot.Validate(); err != nil {
		return err
	}
	if err := c.Propagation.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.Metrics, validation.Each(validation.In(metricNames()...))); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

func metricNames() []any {
	names := centrality.Names()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

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

// InputConfig locates the collected chunk files and the time window of
// posts to keep. Start and End are YYYY-MM-DD dates; End is inclusive.
type InputConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
}

// Validate validates the input configuration.
func (c *InputConfig) Validate() error {
	if c.Pattern == "" {
		c.Pattern = ingest.DefaultPattern
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Start, validation.Date(time.DateOnly)),
		validation.Field(&c.End, validation.Date(time.DateOnly)),
	); err != nil {
		return err
	}
	w, _ := c.Window()
	if !w.Start.IsZero() && !w.End.IsZero() && !w.Start.Before(w.End) {
		return errors.New("input: start must be before end")
	}
	return nil
}

// Window converts Start and End into a builder window covering both days.
func (c *InputConfig) Window() (builder.Window, error) {
	var w builder.Window
	if c.Start != "" {
		t, err := time.Parse(time.DateOnly, c.Start)
		if err != nil {
			return w, fmt.Errorf("input: start: %w", err)
		}
		w.Start = t
	}
	if c.End != "" {
		t, err := time.Parse(time.DateOnly, c.End)
		if err != nil {
			return w, fmt.Errorf("input: end: %w", err)
		}
		w.End = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return w, nil
}

// SnapshotConfig holds the path of the SQLite snapshot.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the snapshot configuration.
func (c *SnapshotConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PropagationConfig tunes tag propagation. An empty TaggingFile disables
// propagation unless a tagging is passed explicitly.
type PropagationConfig struct {
	TaggingFile    string  `yaml:"tagging_file"`
	MaxRounds      int     `yaml:"max_rounds"`
	RatioThreshold float64 `yaml:"ratio_threshold"`
}

// Validate validates the propagation configuration.
func (c *PropagationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxRounds, validation.Required, validation.Min(1)),
		validation.Field(&c.RatioThreshold, validation.Required, validation.Min(0.0).Exclusive()),
	)
}

// WatchConfig controls the chunk directory watcher while serving.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Input: InputConfig{
			Dir:     "./chunks",
			Pattern: ingest.DefaultPattern,
		},
		Snapshot: SnapshotConfig{
			Path: "./twigraph.db",
		},
		Propagation: PropagationConfig{
			MaxRounds:      propagate.DefaultMaxRounds,
			RatioThreshold: graph.DefaultRatio,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: ingest.DefaultDebounce,
		},
	}
}
