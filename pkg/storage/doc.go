// Package storage defines the configuration and sentinel errors shared by
// the concrete storage backends. The backends themselves live in the
// postgres, sqlite, and redis subpackages.
package storage
