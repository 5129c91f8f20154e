package model

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

// TestArtifactDir tests that the link checker scope is the artifact's directory.
func TestArtifactDir(t *testing.T) {
	t.Parallel()

	a := &Artifact{Path: filepath.Join("/tmp", "specvalidate-123", "index.html")}
	if a.Dir() != filepath.Join("/tmp", "specvalidate-123") {
		t.Errorf("unexpected dir %q", a.Dir())
	}
}

// TestOutcomePassedStages tests collection of passed stages.
func TestOutcomePassedStages(t *testing.T) {
	t.Parallel()

	o := NewOutcome("run", "index.html")
	o.Record(StageResult{Stage: StageGenerate, Passed: true})
	o.Record(StageResult{Stage: StageMarkup, Passed: false, ExitCode: 1})

	passed := o.PassedStages()
	if len(passed) != 1 || passed[0] != StageGenerate {
		t.Errorf("expected only generation to pass, got %v", passed)
	}
}

// TestOutcomeDuration tests that duration is only known once finished.
func TestOutcomeDuration(t *testing.T) {
	t.Parallel()

	o := NewOutcome("run", "index.html")
	if o.Duration() != 0 {
		t.Errorf("expected zero duration before finish, got %v", o.Duration())
	}

	_ = o.Transition(StateGenerating)
	_ = o.Transition(StateSuccess)
	if o.Duration() < 0 {
		t.Errorf("expected non-negative duration, got %v", o.Duration())
	}
}

// TestOutcomeJSON tests that states serialize by name and decode back.
func TestOutcomeJSON(t *testing.T) {
	t.Parallel()

	o := NewOutcome("run-json", "spec.html")
	_ = o.Transition(StateGenerating)
	o.Fail(StageGenerate, "generator crashed")
	_ = o.Transition(StateFailed)

	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"state":"failed"`) {
		t.Errorf("expected state encoded by name, got %s", data)
	}

	var decoded Outcome
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.State != StateFailed {
		t.Errorf("expected StateFailed, got %s", decoded.State)
	}
	if decoded.FailedStage != StageGenerate {
		t.Errorf("expected failed stage %q, got %q", StageGenerate, decoded.FailedStage)
	}
	if len(decoded.Transitions) != 3 {
		t.Errorf("expected 3 transitions, got %d", len(decoded.Transitions))
	}
}
