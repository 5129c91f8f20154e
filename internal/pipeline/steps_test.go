package pipeline

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/specvalidate/internal/artifact"
	"github.com/nao1215/specvalidate/internal/config"
	"github.com/nao1215/specvalidate/internal/manifest"
	"github.com/nao1215/specvalidate/internal/model"
	"github.com/nao1215/specvalidate/internal/runner"
)

// fakeRunner stands in for the external validators. The generator writes
// an artifact to its --out argument; exit codes come from the exits map.
type fakeRunner struct {
	mu       sync.Mutex
	exits    map[string]int
	artifact string
	calls    []runner.Command
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		exits:    map[string]int{},
		artifact: `<html><head><title>Spec</title></head><body><a href="https://example.org/">x</a></body></html>`,
	}
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	code := f.exits[cmd.Name]
	f.mu.Unlock()

	if cmd.Name == config.DefaultGeneratorCommand && code == 0 {
		if i := slices.Index(cmd.Args, "--out"); i >= 0 && f.artifact != "" {
			if err := os.WriteFile(cmd.Args[i+1], []byte(f.artifact), 0600); err != nil {
				return nil, err
			}
		}
	}
	return &runner.Result{ExitCode: code, Output: cmd.Name + " output"}, nil
}

func (f *fakeRunner) invoked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.Name
	}
	return names
}

func (f *fakeRunner) call(name string) (runner.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Name == name {
			return c, true
		}
	}
	return runner.Command{}, false
}

// TestGenerateStepCommand tests the document processor invocation.
func TestGenerateStepCommand(t *testing.T) {
	t.Parallel()

	step := NewGenerateStep(nil,
		config.ToolConfig{Command: "npx", Args: []string{"respec"}},
		"http://localhost:5000/index.html?specStatus=WD",
		"/tmp/run/index.html",
		WithGenerateTimeout(45*time.Second),
		WithGenerateProcessTimeout(time.Minute),
	)

	cmd := step.Command()
	expected := []string{
		"respec",
		"--src", "http://localhost:5000/index.html?specStatus=WD",
		"--out", "/tmp/run/index.html",
		"--haltonerror", "--haltonwarn",
		"--timeout", "45",
	}
	if cmd.Name != "npx" || !slices.Equal(cmd.Args, expected) {
		t.Errorf("Command() = %s %v, expected npx %v", cmd.Name, cmd.Args, expected)
	}
	if cmd.Timeout != time.Minute {
		t.Errorf("Timeout = %s", cmd.Timeout)
	}
}

// TestStepTimeoutsRoundUp tests that sub-unit timeouts are not passed as zero.
func TestStepTimeoutsRoundUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		timeout  time.Duration
		expected string
	}{
		{"below one second", 500 * time.Millisecond, "1"},
		{"fraction above whole seconds", 1500 * time.Millisecond, "2"},
		{"whole seconds", 3 * time.Second, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			step := NewGenerateStep(nil, config.ToolConfig{Command: "respec"}, "http://localhost/x.html", "/tmp/x.html",
				WithGenerateTimeout(tt.timeout))
			args := step.Command().Args
			if got := args[slices.Index(args, "--timeout")+1]; got != tt.expected {
				t.Errorf("--timeout = %s, expected %s", got, tt.expected)
			}
		})
	}

	t.Run("link timeout below one millisecond", func(t *testing.T) {
		t.Parallel()
		step := NewLinkStep(nil, config.ToolConfig{Command: "linkinator"}, WithLinkTimeout(300*time.Microsecond))
		args := step.Command("/tmp/run").Args
		if got := args[slices.Index(args, "--timeout")+1]; got != "1" {
			t.Errorf("--timeout = %s, expected 1", got)
		}
	})
}

// TestMarkupStepCommand tests the validator invocation.
func TestMarkupStepCommand(t *testing.T) {
	t.Parallel()

	t.Run("without filter patterns", func(t *testing.T) {
		t.Parallel()

		step := NewMarkupStep(nil, config.ToolConfig{Command: "vnu"})
		cmd := step.Command("/tmp/run/index.html")
		if !slices.Equal(cmd.Args, []string{"--also-check-css", "/tmp/run/index.html"}) {
			t.Errorf("Args = %v", cmd.Args)
		}
	})

	t.Run("patterns are joined", func(t *testing.T) {
		t.Parallel()

		step := NewMarkupStep(nil,
			config.ToolConfig{Command: "java", Args: []string{"-jar", "vnu.jar"}},
			WithMarkupFilterPatterns([]string{".*Trailing slash.*", ".*unrecognized media.*"}),
		)
		cmd := step.Command("out.html")
		expected := []string{
			"-jar", "vnu.jar", "--also-check-css",
			"--filterpattern", ".*Trailing slash.*|.*unrecognized media.*",
			"out.html",
		}
		if !slices.Equal(cmd.Args, expected) {
			t.Errorf("Args = %v, expected %v", cmd.Args, expected)
		}
	})
}

// TestLinkStepCommand tests the link checker invocation.
func TestLinkStepCommand(t *testing.T) {
	t.Parallel()

	ignore, err := manifest.Parse(strings.NewReader("https://w3c.github.io/spec/old.html\n"), "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	step := NewLinkStep(nil, config.ToolConfig{Command: "linkinator"},
		WithLinkMethod(model.LinkMethodGet),
		WithIgnoreList(ignore),
		WithLinkExcludes([]string{"https://example.org/flaky"}),
		WithLinkTimeout(30*time.Second),
		WithMaxRedirects(3),
	)

	cmd := step.Command("/tmp/run")
	expected := []string{
		"/tmp/run", "--recurse",
		"--method", "GET",
		"--timeout", "30000",
		"--max-redirects", "3",
		"--skip", "spec/old.html",
		"--skip", "https://example.org/flaky",
	}
	if !slices.Equal(cmd.Args, expected) {
		t.Errorf("Args = %v, expected %v", cmd.Args, expected)
	}

	t.Run("defaults to HEAD without skips", func(t *testing.T) {
		t.Parallel()

		cmd := NewLinkStep(nil, config.ToolConfig{Command: "linkinator"}).Command("d")
		if !slices.Contains(cmd.Args, "HEAD") || slices.Contains(cmd.Args, "--skip") {
			t.Errorf("Args = %v", cmd.Args)
		}
	})
}

// TestCheckingStepsRequireArtifact tests that checks never run blind.
func TestCheckingStepsRequireArtifact(t *testing.T) {
	t.Parallel()

	fake := newFakeRunner()
	outcome := model.NewOutcome("r", "index.html")

	if _, err := NewMarkupStep(fake, config.ToolConfig{Command: "vnu"}).Do(context.Background(), outcome); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("expected ErrNoArtifact, got %v", err)
	}
	if _, err := NewLinkStep(fake, config.ToolConfig{Command: "linkinator"}).Do(context.Background(), outcome); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("expected ErrNoArtifact, got %v", err)
	}
	if len(fake.invoked()) != 0 {
		t.Errorf("expected no process, got %v", fake.invoked())
	}
}

// TestArtifactName tests output file naming.
func TestArtifactName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		document string
		expected string
	}{
		{"index.html", "index.html"},
		{"drafts/spec.html", "spec.html"},
		{"https://example.org/ns/widgets.html?x=1", "widgets.html"},
		{"https://example.org/", "index.html"},
		{"overview", "overview.html"},
	}

	for _, tt := range tests {
		t.Run(tt.document, func(t *testing.T) {
			t.Parallel()
			if got := ArtifactName(tt.document); got != tt.expected {
				t.Errorf("ArtifactName(%q) = %q, expected %q", tt.document, got, tt.expected)
			}
		})
	}
}

// runDefault builds and executes the default pipeline for cfg.
func runDefault(t *testing.T, cfg *config.Config, fake *fakeRunner) (*model.Outcome, error) {
	t.Helper()

	p := DefaultPipeline(cfg, fake, "http://localhost:5000/"+cfg.Document, t.TempDir(), manifest.Empty())
	outcome := model.NewOutcome("run", cfg.Document)
	err := p.Execute(context.Background(), outcome)
	return outcome, err
}

// TestDefaultPipeline tests stage selection and ordering end to end.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	all := []string{config.DefaultGeneratorCommand, config.DefaultMarkupCommand, config.DefaultLinkCommand}

	t.Run("all stages pass", func(t *testing.T) {
		t.Parallel()

		fake := newFakeRunner()
		outcome, err := runDefault(t, config.NewConfig(), fake)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := fake.invoked(); !slices.Equal(got, all) {
			t.Errorf("invoked %v, expected %v", got, all)
		}
		if outcome.ExitCode() != 0 {
			t.Errorf("expected exit code 0, got %d", outcome.ExitCode())
		}
		if outcome.Artifact == nil || outcome.Artifact.Title != "Spec" || outcome.Artifact.ExternalLinkCount != 1 {
			t.Errorf("unexpected artifact %+v", outcome.Artifact)
		}

		linkCmd, _ := fake.call(config.DefaultLinkCommand)
		if linkCmd.Args[0] != outcome.Artifact.Dir() {
			t.Errorf("link checker ran on %q, expected %q", linkCmd.Args[0], outcome.Artifact.Dir())
		}
	})

	t.Run("generation failure runs nothing else", func(t *testing.T) {
		t.Parallel()

		fake := newFakeRunner()
		fake.exits[config.DefaultGeneratorCommand] = 1

		outcome, err := runDefault(t, config.NewConfig(), fake)
		if !errors.Is(err, ErrStageFailed) {
			t.Fatalf("expected ErrStageFailed, got %v", err)
		}
		if got := fake.invoked(); !slices.Equal(got, []string{config.DefaultGeneratorCommand}) {
			t.Errorf("invoked %v", got)
		}
		if outcome.ExitCode() != 1 || outcome.Artifact != nil {
			t.Errorf("unexpected outcome %+v", outcome)
		}
	})

	t.Run("zero exit without artifact fails generation", func(t *testing.T) {
		t.Parallel()

		fake := newFakeRunner()
		fake.artifact = ""

		_, err := runDefault(t, config.NewConfig(), fake)
		if !errors.Is(err, artifact.ErrMissing) {
			t.Fatalf("expected artifact.ErrMissing, got %v", err)
		}
		if len(fake.invoked()) != 1 {
			t.Errorf("invoked %v", fake.invoked())
		}
	})

	t.Run("skip markup", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SkipMarkup = true

		fake := newFakeRunner()
		if _, err := runDefault(t, cfg, fake); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{config.DefaultGeneratorCommand, config.DefaultLinkCommand}
		if got := fake.invoked(); !slices.Equal(got, expected) {
			t.Errorf("invoked %v, expected %v", got, expected)
		}
	})

	t.Run("skip markup still aborts on generation failure", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SkipMarkup = true

		fake := newFakeRunner()
		fake.exits[config.DefaultGeneratorCommand] = 1
		if _, err := runDefault(t, cfg, fake); err == nil {
			t.Fatal("expected failure")
		}
		if got := fake.invoked(); !slices.Equal(got, []string{config.DefaultGeneratorCommand}) {
			t.Errorf("invoked %v", got)
		}
	})

	t.Run("skip links", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Document = "spec.html"
		cfg.SkipLinks = true

		fake := newFakeRunner()
		outcome, err := runDefault(t, cfg, fake)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{config.DefaultGeneratorCommand, config.DefaultMarkupCommand}
		if got := fake.invoked(); !slices.Equal(got, expected) {
			t.Errorf("invoked %v, expected %v", got, expected)
		}
		if !strings.HasSuffix(outcome.Artifact.Path, "spec.html") {
			t.Errorf("artifact path = %q", outcome.Artifact.Path)
		}
	})

	t.Run("use get and config tools", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.UseGet = true
		cfg.SkipMarkup = true
		cfg.LinkExcludes = []string{"https://example.org/flaky"}

		fake := newFakeRunner()
		if _, err := runDefault(t, cfg, fake); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cmd, ok := fake.call(config.DefaultLinkCommand)
		if !ok {
			t.Fatal("link checker not invoked")
		}
		if !slices.Contains(cmd.Args, "GET") || !slices.Contains(cmd.Args, "https://example.org/flaky") {
			t.Errorf("Args = %v", cmd.Args)
		}
	})
}
