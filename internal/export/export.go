// Package export writes template collections in interchange formats.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/maruel/formdb/internal/forms"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	// JSON is the persisted layout, indented.
	JSON Format = "json"
	// YAML is a human-editable rendition.
	YAML Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported Format.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat returns the Format named s, case-insensitively. "yml" is an
// alias of YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
	}
}

// Write encodes templates to w. A nil slice is written as an empty list.
func Write(w io.Writer, templates []forms.Template, format Format) error {
	if templates == nil {
		templates = []forms.Template{}
	}
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(templates)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(templates); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}
