package fill

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/maruel/formdb/internal/forms"
)

// SkipOption is offered first for optional dropdown and radio fields and
// yields an empty answer. It is wrapped in more parentheses when a real
// option already uses the text.
const SkipOption = "(none)"

func skipLabel(options []string) string {
	label := SkipOption
	for slices.Contains(options, label) {
		label = "(" + label + ")"
	}
	return label
}

// Run prompts for every field of t in order. An answer failing CheckAnswer is
// reported through Info and asked again.
func Run(ctx context.Context, d PromptDriver, t forms.Template) (Answers, error) {
	answers := make(Answers, len(t.Fields))
	for _, f := range t.Fields {
		for {
			a, err := ask(ctx, d, f)
			if err != nil {
				return nil, err
			}
			if err := CheckAnswer(f, a); err != nil {
				if err := d.Info(ctx, fmt.Sprintf("Invalid %s: %v", f.Label, err)); err != nil {
					return nil, err
				}
				continue
			}
			answers[f.Name] = a
			break
		}
	}
	return answers, nil
}

func ask(ctx context.Context, d PromptDriver, f forms.Field) (Answer, error) {
	msg := f.Label
	if f.Required {
		msg += " *"
	}
	help := helpText(f)
	switch f.Type {
	case forms.FieldTypePassword:
		s, err := d.Password(ctx, InputConfig{Message: msg, Help: help})
		return Answer{Text: s}, err
	case forms.FieldTypeDropdown, forms.FieldTypeRadio:
		opts := f.Options
		if !f.Required {
			opts = append([]string{skipLabel(f.Options)}, f.Options...)
		}
		i, err := d.Select(ctx, SelectConfig{Message: msg, Options: opts, Help: help})
		if err != nil || i < 0 || i >= len(opts) || (!f.Required && i == 0) {
			return Answer{}, err
		}
		return Answer{Text: opts[i]}, nil
	case forms.FieldTypeCheckbox:
		idx, err := d.MultiSelect(ctx, SelectConfig{Message: msg, Options: f.Options, Help: help})
		if err != nil {
			return Answer{}, err
		}
		var sel []string
		for _, i := range idx {
			if i >= 0 && i < len(f.Options) {
				sel = append(sel, f.Options[i])
			}
		}
		return Answer{Selected: sel}, nil
	default:
		s, err := d.Input(ctx, InputConfig{Message: msg, Default: f.Value, Help: help})
		return Answer{Text: s}, err
	}
}

func helpText(f forms.Field) string {
	var parts []string
	if f.Placeholder != "" {
		parts = append(parts, f.Placeholder)
	}
	if v := f.Validation; v != nil {
		if v.Min != nil {
			parts = append(parts, "min "+strconv.FormatFloat(*v.Min, 'g', -1, 64))
		}
		if v.Max != nil {
			parts = append(parts, "max "+strconv.FormatFloat(*v.Max, 'g', -1, 64))
		}
		if v.Regex != "" {
			parts = append(parts, "pattern "+v.Regex)
		}
	}
	return strings.Join(parts, "; ")
}
