package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/markdown"
)

const (
	// FileName is the configuration file expected at the root of a site.
	FileName = "config.toml"
	// DefaultTheme is used when config.toml does not name a theme.
	DefaultTheme = "default"
)

// SiteConfig represents the site configuration.
type SiteConfig struct {
	Title        string `toml:"title"`
	BaseURL      string `toml:"base_url"`
	Description  string `toml:"description,omitempty"`
	PostsPerPage int    `toml:"posts_per_page,omitempty"`
	Theme        string `toml:"theme,omitempty"`
	// HighlightStyle names the chroma style for fenced code blocks; empty
	// disables highlighting.
	HighlightStyle string         `toml:"highlight_style,omitempty"`
	Markdown       MarkdownConfig `toml:"markdown,omitempty"`
	Params         map[string]any `toml:"params,omitempty"`
}

// MarkdownConfig holds the [markdown] table.
type MarkdownConfig struct {
	// HardWraps renders single newlines inside a paragraph as <br>.
	HardWraps bool `toml:"hard_wraps,omitempty"`
	// Linkify turns bare URLs into links.
	Linkify bool `toml:"linkify,omitempty"`
}

// MarkdownOptions returns the renderer options selected by the configuration.
func (c *SiteConfig) MarkdownOptions() []markdown.Option {
	var opts []markdown.Option
	if c.Markdown.HardWraps {
		opts = append(opts, markdown.WithHardWraps())
	}
	if c.Markdown.Linkify {
		opts = append(opts, markdown.WithLinkify())
	}
	if c.HighlightStyle != "" {
		opts = append(opts, markdown.WithHighlighting(c.HighlightStyle))
	}
	return opts
}

// Load loads configuration from the specified file.
//
// A .env (or .env.local) file next to the configuration is loaded first so
// ${VAR} references in the TOML can be resolved.
func Load(configPath string) (*SiteConfig, error) {
	if err := loadEnvFile(filepath.Dir(configPath)); err != nil {
		slog.Warn("Failed to load .env file", logfields.Path(configPath), logfields.Error(err))
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		if c, ok := ferrors.AsClassified(err); ok {
			return nil, c.WithContext("path", configPath)
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes, normalizes and validates TOML configuration content.
func Parse(data []byte) (*SiteConfig, error) {
	// Expand environment variables in the TOML content
	expanded := os.ExpandEnv(string(data))

	var cfg SiteConfig
	md, err := toml.Decode(expanded, &cfg)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
			Fatal().
			Build()
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		slog.Warn("Ignoring unknown configuration keys", slog.Any("keys", keys))
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *SiteConfig) normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Theme = strings.TrimSpace(c.Theme)
	if c.Theme == "" {
		c.Theme = DefaultTheme
	}
	if c.Params == nil {
		c.Params = map[string]any{}
	}
}

var baseURLPattern = regexp.MustCompile(`^https?://\S+$`)

// Validate checks required fields and value ranges. The first failing field
// is reported.
func (c *SiteConfig) Validate() error {
	checks := []struct {
		field string
		value any
		rules []validation.Rule
	}{
		{"title", c.Title, []validation.Rule{validation.Required}},
		{"base_url", c.BaseURL, []validation.Rule{
			validation.Required,
			validation.Match(baseURLPattern).Error("must be an absolute http(s) URL"),
		}},
		{"posts_per_page", c.PostsPerPage, []validation.Rule{
			validation.Min(0).Error("must not be negative"),
		}},
		{"theme", c.Theme, []validation.Rule{validation.Required, validation.By(themeName)}},
		{"highlight_style", c.HighlightStyle, []validation.Rule{validation.By(highlightStyle)}},
	}

	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return ferrors.ConfigError(fmt.Sprintf("%s %s", check.field, err.Error())).
				WithContext("field", check.field).
				WithContext("value", check.value).
				Build()
		}
	}
	return nil
}

func themeName(value any) error {
	name, _ := value.(string)
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return validation.NewError("config.theme.invalid", "must be a directory name under themes/")
	}
	return nil
}

func highlightStyle(value any) error {
	name, _ := value.(string)
	if name != "" && !markdown.HasStyle(name) {
		return validation.NewError("config.highlight_style.unknown", "is not a known highlighting style")
	}
	return nil
}

// ThemeDir returns the template directory of the active theme.
func (c *SiteConfig) ThemeDir(inputDir string) string {
	return filepath.Join(inputDir, "themes", c.Theme)
}

// RootURL is the absolute URL of the site root, always ending in '/'.
func (c *SiteConfig) RootURL() string {
	return c.BaseURL + "/"
}

// PostURL is the absolute URL of a post page.
func (c *SiteConfig) PostURL(slug string) string {
	return c.BaseURL + "/posts/" + slug + "/"
}

// Write encodes cfg as TOML into path. Existing files are kept unless force is set.
func Write(path string, cfg *SiteConfig, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	f, err := os.Create(path)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create config file").
			WithContext("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
