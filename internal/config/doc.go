// Package config provides configuration structures and utilities for specvalidate.
// It defines the validation request options, the external tool commands and their
// tuning defaults, and the optional YAML configuration file.
package config
