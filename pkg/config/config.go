// Package config loads user preferences.
//
// Preferences live in a TOML file, by default
// $XDG_CONFIG_HOME/pencilgraph/config.toml (or ~/.config/pencilgraph/ when
// XDG_CONFIG_HOME is unset). A missing file yields [Default]. Loaded values
// are validated with struct tags; an invalid file is an error, never a
// silent fallback.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
)

const appName = "pencilgraph"

// Default values.
const (
	DefaultViewportTimeout  = 2.0
	DefaultPreviewCacheSize = 32
	DefaultServeAddr        = "127.0.0.1:8630"
)

var validate = validator.New()

// Preferences are the user settings.
type Preferences struct {
	// RenderAppPath is the external renderer program.
	RenderAppPath string `toml:"render_app_path" json:"render_app_path"`
	// AbortRenderingIfErrorOccur stops a batch at the first failed draw.
	AbortRenderingIfErrorOccur bool `toml:"abort_rendering_if_error_occur" json:"abort_rendering_if_error_occur"`
	// ViewportRenderTimeout is the long viewport timeout, in seconds.
	ViewportRenderTimeout float64 `toml:"viewport_render_timeout" json:"viewport_render_timeout" validate:"gte=0.5,lte=10"`

	// EngineVersion and EngineCommit pin the expected renderer build.
	EngineVersion string `toml:"engine_version" json:"engine_version,omitempty"`
	EngineCommit  string `toml:"engine_commit" json:"engine_commit,omitempty"`

	CacheDir         string `toml:"cache_dir" json:"cache_dir,omitempty"`
	RedisURL         string `toml:"redis_url" json:"redis_url,omitempty" validate:"omitempty,url"`
	PreviewCacheSize int    `toml:"preview_cache_size" json:"preview_cache_size" validate:"gte=1,lte=4096"`
	ServeAddr        string `toml:"serve_addr" json:"serve_addr" validate:"hostname_port"`
}

// Default returns the built-in preferences.
func Default() Preferences {
	return Preferences{
		ViewportRenderTimeout: DefaultViewportTimeout,
		PreviewCacheSize:      DefaultPreviewCacheSize,
		ServeAddr:             DefaultServeAddr,
	}
}

// ViewportTimeout returns the long viewport timeout as a duration.
func (p Preferences) ViewportTimeout() time.Duration {
	return time.Duration(p.ViewportRenderTimeout * float64(time.Second))
}

// Validate checks the preferences against their constraints.
func (p Preferences) Validate() error {
	if err := validate.Struct(p); err != nil {
		return pgerrors.Wrap(pgerrors.ErrCodeInvalidConfig, formatValidationError(err), "invalid preferences")
	}
	return nil
}

// Path returns the default preferences file path.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads preferences from path. An empty path uses [Path]. Keys absent
// from the file keep their defaults.
func Load(path string) (Preferences, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Preferences{}, pgerrors.Wrap(pgerrors.ErrCodeInvalidConfig, err, "open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes preferences from TOML.
func Read(r io.Reader) (Preferences, error) {
	p := Default()
	md, err := toml.NewDecoder(r).Decode(&p)
	if err != nil {
		return Preferences{}, pgerrors.Wrap(pgerrors.ErrCodeInvalidConfig, err, "decode preferences")
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return Preferences{}, pgerrors.New(pgerrors.ErrCodeInvalidConfig, "unknown preference %q", keys[0].String())
	}
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Save writes p to path as TOML, creating the directory.
func Save(path string, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func formatValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	e := errs[0]
	switch e.Tag() {
	case "gte":
		return fmt.Errorf("%s: must be at least %s", e.Field(), e.Param())
	case "lte":
		return fmt.Errorf("%s: must not exceed %s", e.Field(), e.Param())
	default:
		return fmt.Errorf("%s: validation failed (%s)", e.Field(), e.Tag())
	}
}
