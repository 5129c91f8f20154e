package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestRequestIsRemote tests detection of absolute document URLs.
func TestRequestIsRemote(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		document string
		expected bool
	}{
		{"index.html", false},
		{"docs/spec.html", false},
		{"http://example.com/spec.html", true},
		{"HTTPS://example.com/spec.html", true},
		{"httpfoo.html", false},
	}

	for _, tc := range testCases {
		t.Run(tc.document, func(t *testing.T) {
			t.Parallel()
			r := Request{Document: tc.document}
			if r.IsRemote() != tc.expected {
				t.Errorf("IsRemote() = %v, expected %v", r.IsRemote(), tc.expected)
			}
		})
	}
}

// TestRequestOverrides tests query parameter generation.
func TestRequestOverrides(t *testing.T) {
	t.Parallel()

	t.Run("empty request has no overrides", func(t *testing.T) {
		t.Parallel()
		r := Request{Document: "index.html"}
		if len(r.Overrides()) != 0 {
			t.Errorf("expected no overrides, got %v", r.Overrides())
		}
	})

	t.Run("all overrides are set", func(t *testing.T) {
		t.Parallel()
		r := Request{Document: "index.html", Status: "WD", Token: "abc", User: "octocat"}
		values := r.Overrides()
		if values.Get(QuerySpecStatus) != "WD" {
			t.Errorf("expected specStatus WD, got %q", values.Get(QuerySpecStatus))
		}
		if values.Get(QueryGitHubToken) != "abc" {
			t.Errorf("expected githubToken abc, got %q", values.Get(QueryGitHubToken))
		}
		if values.Get(QueryGitHubUser) != "octocat" {
			t.Errorf("expected githubUser octocat, got %q", values.Get(QueryGitHubUser))
		}
	})
}

// TestRequestStages tests stage selection from skip flags.
func TestRequestStages(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		skipMarkup bool
		skipLinks  bool
		expected   []Stage
	}{
		{"all stages", false, false, []Stage{StageGenerate, StageMarkup, StageLinks}},
		{"skip markup", true, false, []Stage{StageGenerate, StageLinks}},
		{"skip links", false, true, []Stage{StageGenerate, StageMarkup}},
		{"generation only", true, true, []Stage{StageGenerate}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := Request{SkipMarkup: tc.skipMarkup, SkipLinks: tc.skipLinks}
			got := r.Stages()
			if len(got) != len(tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("stage %d: got %q, expected %q", i, got[i], tc.expected[i])
				}
			}
		})
	}
}

// TestRequestJSONOmitsToken verifies the token never reaches reports or history.
func TestRequestJSONOmitsToken(t *testing.T) {
	t.Parallel()

	r := Request{Document: "index.html", Token: "very-secret", User: "octocat"}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "very-secret") {
		t.Errorf("token leaked into JSON: %s", data)
	}
}
