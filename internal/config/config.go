package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/specvalidate/internal/model"
)

// Default configuration values.
// Timeouts and the redirect limit are tuning values, not invariants; the
// configuration file can override all of them.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "specvalidate"

	// DefaultDocument is validated when no document argument is given.
	DefaultDocument = "index.html"

	// DefaultPort is the port of the local file server.
	// The document processor and link checker reach the document through it.
	DefaultPort = 5000

	// DefaultGenerateTimeout is handed to the document processor as its own
	// generation timeout.
	DefaultGenerateTimeout = 30 * time.Second

	// DefaultLinkTimeout is the per-request timeout of the link checker.
	DefaultLinkTimeout = 30 * time.Second

	// DefaultMaxRedirects is the number of redirects the link checker follows
	// before reporting a link as broken.
	DefaultMaxRedirects = 3

	// DefaultProcessTimeout bounds the wall-clock time of any single external
	// process. The process is killed when it elapses.
	DefaultProcessTimeout = 5 * time.Minute

	// DefaultGeneratorCommand is the document processor executable.
	DefaultGeneratorCommand = "respec"

	// DefaultMarkupCommand is the HTML/CSS conformance validator executable.
	DefaultMarkupCommand = "vnu"

	// DefaultLinkCommand is the link checker executable.
	DefaultLinkCommand = "linkinator"
)

// ToolConfig describes how to start one external validator.
type ToolConfig struct {
	// Command is the executable name or path.
	Command string `yaml:"command,omitempty"`

	// Args are placed before the stage arguments, e.g. ["-jar", "vnu.jar"]
	// when Command is "java".
	Args []string `yaml:"args,omitempty"`
}

// Config holds all configuration options for one specvalidate invocation.
// It is populated from the config file and CLI flags and passed explicitly to
// the orchestrator; nothing here is global state.
type Config struct {
	// Document is the document path (relative to RootDir) or an http(s) URL.
	Document string

	// Status overrides the publication status of the document.
	Status string

	// Token is the authentication token passed to the document processor.
	Token string

	// User is the account associated with Token. Requires Token.
	User string

	// SkipMarkup disables the markup conformance stage.
	SkipMarkup bool

	// SkipLinks disables the link checking stage.
	SkipLinks bool

	// UseGet makes the link checker probe with GET instead of HEAD.
	UseGet bool

	// ManifestPath is the manifest file listing published documents whose
	// paths are excluded from link checking.
	ManifestPath string

	// RootDir is the directory served by the local file server.
	RootDir string

	// Port is the local file server port. Zero picks a free port.
	Port int

	// GenerateTimeout is the document processor's generation timeout.
	GenerateTimeout time.Duration

	// LinkTimeout is the link checker's per-request timeout.
	LinkTimeout time.Duration

	// MaxRedirects is the link checker's redirect limit.
	MaxRedirects int

	// ProcessTimeout bounds each external process.
	ProcessTimeout time.Duration

	// Generator, Markup and LinkChecker describe the external tools.
	Generator   ToolConfig
	Markup      ToolConfig
	LinkChecker ToolConfig

	// MarkupFilterPatterns are regular expressions for validator messages
	// that are known to be acceptable.
	MarkupFilterPatterns []string

	// LinkExcludes are extra link paths or URLs the link checker skips,
	// in addition to the manifest-derived ignore list.
	LinkExcludes []string

	// Verbose enables debug-level logging.
	Verbose bool

	// Debug is read from the environment. It implies Verbose and keeps the
	// generated artifact after the run.
	Debug bool

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string

	// JSONReport prints the summary as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the summary as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the summary to a file instead of stdout.
	ReportFile string

	// SaveHistory records the outcome in the run history database.
	SaveHistory bool

	// DBDir is the directory of the run history database.
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Document:        DefaultDocument,
		RootDir:         ".",
		Port:            DefaultPort,
		GenerateTimeout: DefaultGenerateTimeout,
		LinkTimeout:     DefaultLinkTimeout,
		MaxRedirects:    DefaultMaxRedirects,
		ProcessTimeout:  DefaultProcessTimeout,
		Generator:       ToolConfig{Command: DefaultGeneratorCommand},
		Markup:          ToolConfig{Command: DefaultMarkupCommand},
		LinkChecker:     ToolConfig{Command: DefaultLinkCommand},
		SaveHistory:     true,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for specvalidate.
// On Linux: ~/.local/share/specvalidate
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for specvalidate.
// On Linux: ~/.config/specvalidate
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// LinkMethod returns the HTTP method the link checker should use.
func (c *Config) LinkMethod() model.LinkMethod {
	if c.UseGet {
		return model.LinkMethodGet
	}
	return model.LinkMethodHead
}

// Request builds the immutable validation request from the configuration.
func (c *Config) Request() model.Request {
	return model.Request{
		Document:     c.Document,
		Status:       c.Status,
		Token:        c.Token,
		User:         c.User,
		SkipMarkup:   c.SkipMarkup,
		SkipLinks:    c.SkipLinks,
		LinkMethod:   c.LinkMethod(),
		ManifestPath: c.ManifestPath,
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found; it is called once after flag parsing,
// before the file server starts or any validator runs.
func (c *Config) Validate() error {
	if c.Document == "" {
		return ErrNoDocument
	}

	if c.User != "" && c.Token == "" {
		return ErrUserWithoutToken
	}

	if c.Port < 0 || c.Port > 65535 {
		return ErrInvalidPort
	}

	if c.GenerateTimeout <= 0 || c.LinkTimeout <= 0 || c.ProcessTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxRedirects < 0 {
		return ErrInvalidRedirectLimit
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	for _, tool := range []ToolConfig{c.Generator, c.Markup, c.LinkChecker} {
		if tool.Command == "" {
			return ErrEmptyToolCommand
		}
	}

	for _, pattern := range c.MarkupFilterPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidFilterPattern, pattern, err) //nolint:errorlint // only the sentinel is matched
		}
	}

	return nil
}
