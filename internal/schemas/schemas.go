// Package schemas holds the data schemas shipped with flock.
package schemas

import _ "embed"

//go:embed church.flock
var church string

// Church returns the DSL of the church-management schema
func Church() string {
	return church
}
