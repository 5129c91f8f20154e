package model

import (
	"net/url"
	"strings"
)

// LinkMethod is the HTTP method the link checker uses to probe URLs.
type LinkMethod string

const (
	// LinkMethodHead probes links with HEAD requests (default).
	LinkMethodHead LinkMethod = "HEAD"

	// LinkMethodGet probes links with GET requests, for servers that
	// reject or mishandle HEAD.
	LinkMethodGet LinkMethod = "GET"
)

// Query parameter names understood by the document processor.
// They override the document's own configuration for one generation.
const (
	QuerySpecStatus  = "specStatus"
	QueryGitHubToken = "githubToken"
	QueryGitHubUser  = "githubUser"
)

// Request describes one validation invocation.
// It is built once from the parsed configuration and passed by value,
// so stages cannot change it.
type Request struct {
	// Document is the document path relative to the served directory,
	// or an absolute http(s) URL.
	Document string `json:"document"`

	// Status overrides the document's publication status when non-empty.
	Status string `json:"status,omitempty"`

	// Token is the authentication token handed to the document processor.
	Token string `json:"-"`

	// User is the account associated with Token.
	User string `json:"user,omitempty"`

	// SkipMarkup disables the markup conformance stage.
	SkipMarkup bool `json:"skip_markup"`

	// SkipLinks disables the link checking stage.
	SkipLinks bool `json:"skip_links"`

	// LinkMethod selects HEAD or GET probing for the link checker.
	LinkMethod LinkMethod `json:"link_method"`

	// ManifestPath is the optional manifest file used to build the ignore list.
	ManifestPath string `json:"manifest_path,omitempty"`
}

// IsRemote reports whether Document is an absolute http(s) URL rather than
// a path served by the local file server.
func (r Request) IsRemote() bool {
	lower := strings.ToLower(r.Document)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Overrides returns the query parameters that carry the optional
// status, token and user overrides. Empty values are omitted.
func (r Request) Overrides() url.Values {
	values := url.Values{}
	if r.Status != "" {
		values.Set(QuerySpecStatus, r.Status)
	}
	if r.Token != "" {
		values.Set(QueryGitHubToken, r.Token)
	}
	if r.User != "" {
		values.Set(QueryGitHubUser, r.User)
	}
	return values
}

// Stages returns the stages this request runs, in execution order.
// Generation always runs.
func (r Request) Stages() []Stage {
	stages := []Stage{StageGenerate}
	if !r.SkipMarkup {
		stages = append(stages, StageMarkup)
	}
	if !r.SkipLinks {
		stages = append(stages, StageLinks)
	}
	return stages
}
