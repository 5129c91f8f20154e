package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".specvalidate"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Timeouts groups the duration settings of the configuration file.
// Values use Go duration syntax, e.g. "30s" or "5m".
type Timeouts struct {
	Generate time.Duration `yaml:"generate,omitempty"`
	Links    time.Duration `yaml:"links,omitempty"`
	Process  time.Duration `yaml:"process,omitempty"`
}

// MarkupFile configures the markup validator.
type MarkupFile struct {
	ToolConfig `yaml:",inline"`

	// FilterPatterns are regular expressions for acceptable validator messages.
	FilterPatterns []string `yaml:"filterPatterns,omitempty"`
}

// LinksFile configures the link checker.
type LinksFile struct {
	ToolConfig `yaml:",inline"`

	// Exclude lists link paths or URLs that are never probed.
	Exclude []string `yaml:"exclude,omitempty"`

	// MaxRedirects overrides DefaultMaxRedirects when set.
	MaxRedirects *int `yaml:"maxRedirects,omitempty"`
}

// File represents the structure of the .specvalidate configuration file.
// Every field is optional; zero values keep the built-in defaults.
type File struct {
	Port      int        `yaml:"port,omitempty"`
	Manifest  string     `yaml:"manifest,omitempty"`
	Timeouts  Timeouts   `yaml:"timeouts,omitempty"`
	Generator ToolConfig `yaml:"generator,omitempty"`
	Markup    MarkupFile `yaml:"markup,omitempty"`
	Links     LinksFile  `yaml:"links,omitempty"`
}

// LoadConfigFile loads the configuration file at path.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .specvalidate in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// Apply copies the non-zero settings of the file onto c.
// It is called before CLI flags are applied, so explicit flags win.
func (cf *File) Apply(c *Config) {
	if cf.Port != 0 {
		c.Port = cf.Port
	}
	if cf.Manifest != "" {
		c.ManifestPath = cf.Manifest
	}

	if cf.Timeouts.Generate != 0 {
		c.GenerateTimeout = cf.Timeouts.Generate
	}
	if cf.Timeouts.Links != 0 {
		c.LinkTimeout = cf.Timeouts.Links
	}
	if cf.Timeouts.Process != 0 {
		c.ProcessTimeout = cf.Timeouts.Process
	}

	applyTool(&c.Generator, cf.Generator)
	applyTool(&c.Markup, cf.Markup.ToolConfig)
	applyTool(&c.LinkChecker, cf.Links.ToolConfig)

	if len(cf.Markup.FilterPatterns) > 0 {
		c.MarkupFilterPatterns = append([]string(nil), cf.Markup.FilterPatterns...)
	}
	if len(cf.Links.Exclude) > 0 {
		c.LinkExcludes = append([]string(nil), cf.Links.Exclude...)
	}
	if cf.Links.MaxRedirects != nil {
		c.MaxRedirects = *cf.Links.MaxRedirects
	}
}

// applyTool overrides the command and prefix arguments of a tool.
func applyTool(dst *ToolConfig, src ToolConfig) {
	if src.Command != "" {
		dst.Command = src.Command
	}
	if len(src.Args) > 0 {
		dst.Args = append([]string(nil), src.Args...)
	}
}
