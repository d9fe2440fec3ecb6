// Package ids provides the identifier generators used for templates and
// fields.
package ids

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/maruel/ksid"
)

// Generator returns a new globally unique identifier on each call.
type Generator func() string

// KSID returns a time-sortable ksid encoded as a string.
func KSID() string {
	return ksid.NewID().String()
}

// UUID returns a random version 4 UUID.
func UUID() string {
	return uuid.NewString()
}

// ByName returns the generator for a scheme name ("ksid" or "uuid").
func ByName(scheme string) (Generator, error) {
	switch scheme {
	case "", "ksid":
		return KSID, nil
	case "uuid":
		return UUID, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", scheme)
	}
}
