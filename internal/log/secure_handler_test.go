package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// TestSecureHandler_SanitizesSensitiveKeys tests that sensitive keys are sanitized.
func TestSecureHandler_SanitizesSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{
			name:     "token key is sanitized",
			key:      "token",
			value:    "plain-token-value",
			wantMask: true,
		},
		{
			name:     "githubToken key (mixed case) is sanitized",
			key:      "githubToken",
			value:    "abc123",
			wantMask: true,
		},
		{
			name:     "authorization key is sanitized",
			key:      "authorization",
			value:    "Bearer token123",
			wantMask: true,
		},
		{
			name:     "password key is sanitized",
			key:      "password",
			value:    "secretpassword",
			wantMask: true,
		},
		{
			name:     "key containing secret is sanitized",
			key:      "client_secret_value",
			value:    "shh",
			wantMask: true,
		},
		{
			name:     "document key is NOT sanitized",
			key:      "document",
			value:    "index.html",
			wantMask: false,
		},
		{
			name:     "user key is NOT sanitized",
			key:      "user",
			value:    "octocat",
			wantMask: false,
		},
		{
			name:     "port key is NOT sanitized",
			key:      "port",
			value:    "5000",
			wantMask: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)

			logger.Info("test message", tt.key, tt.value)

			output := buf.String()
			if tt.wantMask {
				if strings.Contains(output, tt.value) {
					t.Errorf("expected value %q to be masked, but found in output: %s", tt.value, output)
				}
				if !strings.Contains(output, MaskValue) {
					t.Errorf("expected mask value %q in output, but not found: %s", MaskValue, output)
				}
			} else if !strings.Contains(output, tt.value) {
				t.Errorf("expected value %q to be present in output, but not found: %s", tt.value, output)
			}
		})
	}
}

// TestSecureHandler_SanitizesSensitiveValues tests value pattern matching.
func TestSecureHandler_SanitizesSensitiveValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{"classic github token", "ghp_" + strings.Repeat("a", 36)},
		{"oauth github token", "gho_" + strings.Repeat("B", 36)},
		{"fine-grained github token", "github_pat_" + strings.Repeat("x1", 20)},
		{"bearer token", "Bearer abc.def.ghi"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)
			logger.Info("test", "value", tt.value)

			if strings.Contains(buf.String(), tt.value) {
				t.Errorf("expected %q to be masked: %s", tt.value, buf.String())
			}
		})
	}
}

// TestRedactURL tests masking of token query parameters.
func TestRedactURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "url without token is unchanged",
			input:    "http://localhost:5000/index.html?specStatus=WD",
			expected: "http://localhost:5000/index.html?specStatus=WD",
		},
		{
			name:     "githubToken value is masked",
			input:    "http://localhost:5000/index.html?githubToken=abc123&githubUser=octocat",
			expected: "http://localhost:5000/index.html?githubToken=" + MaskValue + "&githubUser=octocat",
		},
		{
			name:     "token inside free text is masked",
			input:    `failed to load "http://localhost:5000/x.html?githubToken=s3cr3t": timeout`,
			expected: `failed to load "http://localhost:5000/x.html?githubToken=` + MaskValue + `": timeout`,
		},
		{
			name:     "plain text is unchanged",
			input:    "generation passed",
			expected: "generation passed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RedactURL(tt.input); got != tt.expected {
				t.Errorf("RedactURL() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

// TestRedactArgs tests that process argument lists never leak the token.
func TestRedactArgs(t *testing.T) {
	t.Parallel()

	args := []string{"--src", "http://localhost:5000/index.html?githubToken=abc123", "--out", "/tmp/x.html"}
	redacted := RedactArgs(args)

	if strings.Contains(strings.Join(redacted, " "), "abc123") {
		t.Errorf("token leaked: %v", redacted)
	}
	if args[1] != "http://localhost:5000/index.html?githubToken=abc123" {
		t.Error("RedactArgs must not modify its input")
	}
	if redacted[3] != "/tmp/x.html" {
		t.Errorf("unrelated argument changed: %q", redacted[3])
	}
}

// TestSecureHandler_ArgsAttribute tests the []string attribute path.
func TestSecureHandler_ArgsAttribute(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true)
	logger.Debug("starting process", "args", []string{"--src", "http://h/i.html?githubToken=zzz999"})

	if strings.Contains(buf.String(), "zzz999") {
		t.Errorf("token leaked through args attribute: %s", buf.String())
	}
}

// TestSecureHandler_Groups tests that grouped attributes are sanitized.
func TestSecureHandler_Groups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureJSONLogger(&buf, true)
	logger.Info("request", slog.Group("auth", slog.String("token", "abc"), slog.String("user", "octocat")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	group, ok := entry["auth"].(map[string]any)
	if !ok {
		t.Fatalf("expected auth group, got %v", entry)
	}
	if group["token"] != MaskValue {
		t.Errorf("expected masked token, got %v", group["token"])
	}
	if group["user"] != "octocat" {
		t.Errorf("expected user to be kept, got %v", group["user"])
	}
}

// TestSecureHandler_WithAttrs tests sanitization of logger-scoped attributes.
func TestSecureHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true).With("token", "scoped-secret")
	logger.Info("hello")

	if strings.Contains(buf.String(), "scoped-secret") {
		t.Errorf("scoped token leaked: %s", buf.String())
	}
}

// TestNewSecureLogger_Levels tests verbose and quiet levels.
func TestNewSecureLogger_Levels(t *testing.T) {
	t.Parallel()

	t.Run("quiet logger drops debug and info", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, false)
		logger.Debug("debug")
		logger.Info("info")
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
		logger.Warn("warn")
		if !strings.Contains(buf.String(), "warn") {
			t.Errorf("expected warn output, got %q", buf.String())
		}
	})

	t.Run("verbose logger keeps debug", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, true)
		logger.Debug("debug-message")
		if !strings.Contains(buf.String(), "debug-message") {
			t.Errorf("expected debug output, got %q", buf.String())
		}
	})
}
