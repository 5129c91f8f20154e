package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/specvalidate/internal/artifact"
	"github.com/nao1215/specvalidate/internal/config"
	"github.com/nao1215/specvalidate/internal/manifest"
	"github.com/nao1215/specvalidate/internal/model"
	"github.com/nao1215/specvalidate/internal/runner"
)

// GenerateStep runs the document processor against the served document
// and inspects the HTML it writes.
type GenerateStep struct {
	runner         runner.Runner
	tool           config.ToolConfig
	sourceURL      string
	outPath        string
	timeout        time.Duration
	processTimeout time.Duration
	logger         *slog.Logger
}

// GenerateStepOption configures a GenerateStep.
type GenerateStepOption func(*GenerateStep)

// WithGenerateTimeout sets the timeout handed to the document processor.
func WithGenerateTimeout(d time.Duration) GenerateStepOption {
	return func(s *GenerateStep) {
		s.timeout = d
	}
}

// WithGenerateProcessTimeout bounds the processor's wall-clock time.
func WithGenerateProcessTimeout(d time.Duration) GenerateStepOption {
	return func(s *GenerateStep) {
		s.processTimeout = d
	}
}

// WithGenerateLogger sets a custom logger for the generation step.
func WithGenerateLogger(logger *slog.Logger) GenerateStepOption {
	return func(s *GenerateStep) {
		s.logger = logger
	}
}

// NewGenerateStep creates a generation step that reads sourceURL and
// writes the artifact to outPath.
func NewGenerateStep(r runner.Runner, tool config.ToolConfig, sourceURL, outPath string, opts ...GenerateStepOption) *GenerateStep {
	s := &GenerateStep{
		runner:         r,
		tool:           tool,
		sourceURL:      sourceURL,
		outPath:        outPath,
		timeout:        config.DefaultGenerateTimeout,
		processTimeout: config.DefaultProcessTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage returns model.StageGenerate.
func (s *GenerateStep) Stage() model.Stage {
	return model.StageGenerate
}

// Command returns the processor invocation.
func (s *GenerateStep) Command() runner.Command {
	args := append(append([]string(nil), s.tool.Args...),
		"--src", s.sourceURL,
		"--out", s.outPath,
		"--haltonerror",
		"--haltonwarn",
		"--timeout", strconv.FormatInt(ceilUnits(s.timeout, time.Second), 10),
	)
	return runner.Command{
		Name:    s.tool.Command,
		Args:    args,
		Timeout: s.processTimeout,
	}
}

// Do runs the processor. On a zero exit the artifact must exist and parse
// as HTML; it is then attached to the outcome.
func (s *GenerateStep) Do(ctx context.Context, outcome *model.Outcome) (*runner.Result, error) {
	result, err := s.runner.Run(ctx, s.Command())
	if err != nil || !result.Success() {
		return result, err
	}

	a, err := artifact.Inspect(s.outPath)
	if err != nil {
		return result, err
	}
	if len(a.BrokenFragments) > 0 {
		s.logger.Warn("artifact has fragment links without a target",
			"count", len(a.BrokenFragments),
			"fragments", a.BrokenFragments,
		)
	}
	s.logger.Debug("artifact generated", "path", a.Path, "title", a.Title, "links", a.LinkCount)

	outcome.Artifact = a
	return result, nil
}

// MarkupStep runs the HTML/CSS conformance validator on the artifact.
type MarkupStep struct {
	runner         runner.Runner
	tool           config.ToolConfig
	filterPatterns []string
	processTimeout time.Duration
}

// MarkupStepOption configures a MarkupStep.
type MarkupStepOption func(*MarkupStep)

// WithMarkupFilterPatterns sets the regular expressions of accepted messages.
func WithMarkupFilterPatterns(patterns []string) MarkupStepOption {
	return func(s *MarkupStep) {
		s.filterPatterns = patterns
	}
}

// WithMarkupProcessTimeout bounds the validator's wall-clock time.
func WithMarkupProcessTimeout(d time.Duration) MarkupStepOption {
	return func(s *MarkupStep) {
		s.processTimeout = d
	}
}

// NewMarkupStep creates a markup conformance step.
func NewMarkupStep(r runner.Runner, tool config.ToolConfig, opts ...MarkupStepOption) *MarkupStep {
	s := &MarkupStep{
		runner:         r,
		tool:           tool,
		processTimeout: config.DefaultProcessTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage returns model.StageMarkup.
func (s *MarkupStep) Stage() model.Stage {
	return model.StageMarkup
}

// Command returns the validator invocation for the artifact at artifactPath.
func (s *MarkupStep) Command(artifactPath string) runner.Command {
	args := append(append([]string(nil), s.tool.Args...), "--also-check-css")
	if len(s.filterPatterns) > 0 {
		args = append(args, "--filterpattern", strings.Join(s.filterPatterns, "|"))
	}
	args = append(args, artifactPath)
	return runner.Command{
		Name:    s.tool.Command,
		Args:    args,
		Timeout: s.processTimeout,
	}
}

// Do validates the outcome's artifact.
func (s *MarkupStep) Do(ctx context.Context, outcome *model.Outcome) (*runner.Result, error) {
	if outcome.Artifact == nil {
		return nil, ErrNoArtifact
	}
	return s.runner.Run(ctx, s.Command(outcome.Artifact.Path))
}

// LinkStep runs the link checker on the directory holding the artifact.
type LinkStep struct {
	runner         runner.Runner
	tool           config.ToolConfig
	method         model.LinkMethod
	ignore         *manifest.IgnoreList
	excludes       []string
	timeout        time.Duration
	maxRedirects   int
	processTimeout time.Duration
}

// LinkStepOption configures a LinkStep.
type LinkStepOption func(*LinkStep)

// WithLinkMethod selects HEAD or GET probing.
func WithLinkMethod(method model.LinkMethod) LinkStepOption {
	return func(s *LinkStep) {
		s.method = method
	}
}

// WithIgnoreList sets the manifest-derived paths that are never probed.
func WithIgnoreList(ignore *manifest.IgnoreList) LinkStepOption {
	return func(s *LinkStep) {
		s.ignore = ignore
	}
}

// WithLinkExcludes adds static exclusions after the ignore list.
func WithLinkExcludes(excludes []string) LinkStepOption {
	return func(s *LinkStep) {
		s.excludes = excludes
	}
}

// WithLinkTimeout sets the link checker's per-request timeout.
func WithLinkTimeout(d time.Duration) LinkStepOption {
	return func(s *LinkStep) {
		s.timeout = d
	}
}

// WithMaxRedirects sets the link checker's redirect limit.
func WithMaxRedirects(n int) LinkStepOption {
	return func(s *LinkStep) {
		s.maxRedirects = n
	}
}

// WithLinkProcessTimeout bounds the link checker's wall-clock time.
func WithLinkProcessTimeout(d time.Duration) LinkStepOption {
	return func(s *LinkStep) {
		s.processTimeout = d
	}
}

// NewLinkStep creates a link checking step.
func NewLinkStep(r runner.Runner, tool config.ToolConfig, opts ...LinkStepOption) *LinkStep {
	s := &LinkStep{
		runner:         r,
		tool:           tool,
		method:         model.LinkMethodHead,
		ignore:         manifest.Empty(),
		timeout:        config.DefaultLinkTimeout,
		maxRedirects:   config.DefaultMaxRedirects,
		processTimeout: config.DefaultProcessTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage returns model.StageLinks.
func (s *LinkStep) Stage() model.Stage {
	return model.StageLinks
}

// Command returns the link checker invocation for dir.
func (s *LinkStep) Command(dir string) runner.Command {
	args := append(append([]string(nil), s.tool.Args...),
		dir,
		"--recurse",
		"--method", string(s.method),
		"--timeout", strconv.FormatInt(ceilUnits(s.timeout, time.Millisecond), 10),
		"--max-redirects", strconv.Itoa(s.maxRedirects),
	)
	for _, p := range s.ignore.Paths() {
		args = append(args, "--skip", p)
	}
	for _, p := range s.excludes {
		args = append(args, "--skip", p)
	}
	return runner.Command{
		Name:    s.tool.Command,
		Args:    args,
		Timeout: s.processTimeout,
	}
}

// Do checks the links of the outcome's artifact directory.
func (s *LinkStep) Do(ctx context.Context, outcome *model.Outcome) (*runner.Result, error) {
	if outcome.Artifact == nil {
		return nil, ErrNoArtifact
	}
	return s.runner.Run(ctx, s.Command(outcome.Artifact.Dir()))
}

// ceilUnits returns d in whole units, rounded up, so that a positive
// timeout never reaches a tool as zero.
func ceilUnits(d, unit time.Duration) int64 {
	n := int64(d / unit)
	if d%unit > 0 {
		n++
	}
	return n
}

// ArtifactName returns the file name the generated artifact gets for a
// document path or URL. Names without an extension get ".html".
func ArtifactName(document string) string {
	name := document
	if u, err := url.Parse(document); err == nil && u.Scheme != "" {
		name = u.Path
	}
	name = path.Base(filepath.ToSlash(name))
	if name == "." || name == "/" || name == "" {
		return config.DefaultDocument
	}
	if path.Ext(name) == "" {
		name += ".html"
	}
	return name
}

// DefaultPipeline creates the pipeline for a request: generation always,
// then markup and link checking unless the request skips them.
// sourceURL is the document's address on the local server and workDir
// the temporary directory that receives the artifact.
func DefaultPipeline(cfg *config.Config, r runner.Runner, sourceURL, workDir string, ignore *manifest.IgnoreList, pipelineOpts ...Option) *Pipeline {
	p := New(append([]Option{WithSecrets(cfg.Token)}, pipelineOpts...)...)
	req := cfg.Request()

	for _, stage := range req.Stages() {
		switch stage {
		case model.StageGenerate:
			p.AddStep(NewGenerateStep(r, cfg.Generator, sourceURL,
				filepath.Join(workDir, ArtifactName(req.Document)),
				WithGenerateTimeout(cfg.GenerateTimeout),
				WithGenerateProcessTimeout(cfg.ProcessTimeout),
				WithGenerateLogger(p.logger),
			))
		case model.StageMarkup:
			p.AddStep(NewMarkupStep(r, cfg.Markup,
				WithMarkupFilterPatterns(cfg.MarkupFilterPatterns),
				WithMarkupProcessTimeout(cfg.ProcessTimeout),
			))
		case model.StageLinks:
			p.AddStep(NewLinkStep(r, cfg.LinkChecker,
				WithLinkMethod(req.LinkMethod),
				WithIgnoreList(ignore),
				WithLinkExcludes(cfg.LinkExcludes),
				WithLinkTimeout(cfg.LinkTimeout),
				WithMaxRedirects(cfg.MaxRedirects),
				WithLinkProcessTimeout(cfg.ProcessTimeout),
			))
		}
	}

	return p
}
