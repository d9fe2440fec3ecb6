// Package fill collects and checks answers for a form template.
package fill

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/maruel/formdb/internal/forms"
)

// Answer is the response to one field. Text is used by free-text types and
// by dropdown and radio, Selected by checkbox.
type Answer struct {
	Text     string   `json:"text,omitempty" yaml:"text,omitempty"`
	Selected []string `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// IsEmpty reports whether nothing was entered.
func (a Answer) IsEmpty() bool {
	return strings.TrimSpace(a.Text) == "" && len(a.Selected) == 0
}

// Answers maps field names to answers.
type Answers map[string]Answer

var (
	ErrRequired       = errors.New("required")
	ErrNotNumber      = errors.New("not a number")
	ErrTooSmall       = errors.New("below minimum")
	ErrTooLarge       = errors.New("above maximum")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrPatternInvalid = errors.New("invalid pattern")
	ErrNoMatch        = errors.New("does not match pattern")
	ErrNotAnOption    = errors.New("not one of the options")
)

// CheckAnswer verifies a against the type and validation rules of f. An empty
// answer to an optional field is always accepted.
func CheckAnswer(f forms.Field, a Answer) error {
	if a.IsEmpty() {
		if f.Required {
			return ErrRequired
		}
		return nil
	}
	v := f.Validation
	if v == nil {
		v = &forms.Validation{}
	}
	switch f.Type {
	case forms.FieldTypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(a.Text), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrNotNumber, a.Text)
		}
		if err := checkBounds(n, v, "value"); err != nil {
			return err
		}
	case forms.FieldTypeText, forms.FieldTypeEmail, forms.FieldTypePassword:
		if err := checkBounds(float64(utf8.RuneCountInString(a.Text)), v, "length"); err != nil {
			return err
		}
		if f.Type == forms.FieldTypeEmail {
			if _, err := mail.ParseAddress(a.Text); err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidEmail, a.Text)
			}
		}
	case forms.FieldTypeDropdown, forms.FieldTypeRadio:
		if !slices.Contains(f.Options, a.Text) {
			return fmt.Errorf("%w: %q", ErrNotAnOption, a.Text)
		}
	case forms.FieldTypeCheckbox:
		for _, s := range a.Selected {
			if !slices.Contains(f.Options, s) {
				return fmt.Errorf("%w: %q", ErrNotAnOption, s)
			}
		}
		if err := checkBounds(float64(len(a.Selected)), v, "selection count"); err != nil {
			return err
		}
		return nil
	}
	if v.Regex != "" {
		re, err := regexp.Compile(v.Regex)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrPatternInvalid, v.Regex, err)
		}
		if !re.MatchString(a.Text) {
			return fmt.Errorf("%w %s", ErrNoMatch, v.Regex)
		}
	}
	return nil
}

func checkBounds(n float64, v *forms.Validation, what string) error {
	if v.Min != nil && n < *v.Min {
		return fmt.Errorf("%s %w %g", what, ErrTooSmall, *v.Min)
	}
	if v.Max != nil && n > *v.Max {
		return fmt.Errorf("%s %w %g", what, ErrTooLarge, *v.Max)
	}
	return nil
}

// Validate checks every field of t and returns a message per failing field
// name. Missing answers are treated as empty.
func Validate(t forms.Template, answers Answers) map[string]string {
	out := map[string]string{}
	for _, f := range t.Fields {
		if err := CheckAnswer(f, answers[f.Name]); err != nil {
			out[f.Name] = err.Error()
		}
	}
	return out
}
