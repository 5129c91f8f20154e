// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The document processor receives the authentication token as a query
// parameter of the document URL, and that URL also appears in the argument
// list of the external process. The SecureHandler keeps the token out of the
// log output:
//   - attributes with sensitive keys (token, authorization, password, ...) are masked
//   - values that look like GitHub or bearer tokens are masked
//   - URLs and argument lists have the githubToken query value masked
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("starting generator", "url", "http://localhost:5000/index.html?githubToken=abc")
//	// url=http://localhost:5000/index.html?githubToken=***REDACTED***
//	slog.SetDefault(logger)
package log
