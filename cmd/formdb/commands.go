package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/maruel/formdb/internal/config"
	"github.com/maruel/formdb/internal/export"
	"github.com/maruel/formdb/internal/fill"
	"github.com/maruel/formdb/internal/forms"
	"github.com/maruel/formdb/internal/journal"
	"github.com/maruel/formdb/internal/storage"
	"github.com/maruel/formdb/internal/templatestore"
)

// errNotSaved is returned when a command changed the store but the backend
// rejected the write.
var errNotSaved = errors.New("changes were not saved")

// app is the state shared by all commands of one invocation.
type app struct {
	cfg         *config.Config
	backend     storage.Backend
	store       *templatestore.Store
	out         io.Writer
	prompt      fill.PromptDriver
	journal     *journal.Journal // nil when disabled
	unsubscribe func()
	persistErrs []error
}

func (a *app) onEvent(ev templatestore.Event) {
	if ev.PersistErr != nil {
		a.persistErrs = append(a.persistErrs, ev.PersistErr)
	}
	slog.Debug("Store event", "kind", ev.Kind, "template", ev.TemplateID, "field", ev.FieldID, "err", ev.PersistErr)
	if a.journal == nil || ev.Kind == templatestore.EventLoaded || ev.Kind == templatestore.EventTemplateSelected {
		return
	}
	e := journal.Entry{Time: time.Now().UTC(), Kind: string(ev.Kind), Template: ev.TemplateID, Field: ev.FieldID}
	if ev.PersistErr != nil {
		e.Error = ev.PersistErr.Error()
	}
	if err := a.journal.Append(e); err != nil {
		slog.Warn("Failed to append to journal", "path", a.journal.Path(), "err", err)
	}
}

// saved returns errNotSaved when any write failed since the app was opened.
func (a *app) saved() error {
	if len(a.persistErrs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", errNotSaved, errors.Join(a.persistErrs...))
}

func (a *app) close() error {
	a.unsubscribe()
	return storage.Close(a.backend)
}

// selectTemplate makes the template with the given id current.
func (a *app) selectTemplate(id string) (forms.Template, error) {
	if id == "" {
		return forms.Template{}, errors.New("-t is required")
	}
	if !a.store.SelectTemplate(id) {
		return forms.Template{}, fmt.Errorf("template %q not found", id)
	}
	t, _ := a.store.Current()
	return t, nil
}

type command struct {
	help string
	run  func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"list":         {"List templates", cmdList},
	"create":       {"Create a template", cmdCreate},
	"show":         {"Print one template", cmdShow},
	"add-field":    {"Append a field to a template", cmdAddField},
	"update-field": {"Change a field in place", cmdUpdateField},
	"remove-field": {"Delete a field", cmdRemoveField},
	"move-field":   {"Move a field to another position", cmdMoveField},
	"delete":       {"Delete a template", cmdDelete},
	"fill":         {"Fill a template interactively and print the answers", cmdFill},
	"export":       {"Print all templates as json or yaml", cmdExport},
	"schema":       {"Print the JSON Schema of the stored collection", cmdSchema},
	"watch":        {"Print the template list whenever it changes on disk", cmdWatch},
	"history":      {"List or read past versions (file backend with -history)", cmdHistory},
	"log":          {"Print the most recent changes from the journal", cmdLog},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("formdb "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unknown arguments: %v", fs.Args())
	}
	return nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	if err := parseFlags(newFlagSet("list"), args); err != nil {
		return err
	}
	return printList(a.out, a.store.Templates())
}

func printList(w io.Writer, templates []forms.Template) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFIELDS\tCREATED")
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.ID, t.Title, len(t.Fields), t.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func cmdCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create")
	title := fs.String("title", "", "Template title (default \"Form <unix ms>\")")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		explicit = explicit || f.Name == "title"
	})
	if explicit {
		if err := forms.ValidateTitle(*title); err != nil {
			return err
		}
	} else {
		*title = fmt.Sprintf("Form %d", time.Now().UnixMilli())
	}
	t := a.store.CreateTemplate(*title)
	fmt.Fprintln(a.out, t.ID)
	return a.saved()
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("show")
	id := fs.String("t", "", "Template ID")
	format := fs.String("format", "json", "Output format (json, yaml)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	t, ok := a.store.Template(*id)
	if !ok {
		return fmt.Errorf("template %q not found", *id)
	}
	return export.Write(a.out, []forms.Template{t}, f)
}

// fieldFlags binds the flags describing a field definition.
type fieldFlags struct {
	fs          *flag.FlagSet
	name        string
	typ         string
	required    bool
	placeholder string
	options     string
	min         string
	max         string
	regex       string
}

func newFieldFlags(fs *flag.FlagSet) *fieldFlags {
	ff := &fieldFlags{fs: fs}
	types := make([]string, len(forms.FieldTypes))
	for i, t := range forms.FieldTypes {
		types[i] = string(t)
	}
	fs.StringVar(&ff.name, "name", "", "Field name, unique case-insensitively within the template")
	fs.StringVar(&ff.typ, "type", string(forms.FieldTypeText), "Field type ("+strings.Join(types, ", ")+")")
	fs.BoolVar(&ff.required, "required", false, "Answer is mandatory")
	fs.StringVar(&ff.placeholder, "placeholder", "", "Hint shown in empty text inputs")
	fs.StringVar(&ff.options, "options", "", "Comma separated options of dropdown, radio and checkbox fields")
	fs.StringVar(&ff.min, "min", "", "Lower bound of the value, length or selection count")
	fs.StringVar(&ff.max, "max", "", "Upper bound of the value, length or selection count")
	fs.StringVar(&ff.regex, "regex", "", "Pattern the answer must match")
	return ff
}

// apply overwrites in with the flags that were set on the command line.
func (ff *fieldFlags) apply(in *forms.FieldInput) error {
	var errs []error
	ff.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			in.Name = ff.name
		case "type":
			in.Type = forms.FieldType(ff.typ)
		case "required":
			in.Required = ff.required
		case "placeholder":
			in.Placeholder = ff.placeholder
		case "options":
			in.Options = splitOptions(ff.options)
		case "min", "max", "regex":
			if in.Validation == nil {
				in.Validation = &forms.Validation{}
			}
			if err := ff.applyValidation(f.Name, in.Validation); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (ff *fieldFlags) applyValidation(name string, v *forms.Validation) error {
	if name == "regex" {
		v.Regex = ff.regex
		return nil
	}
	s := ff.min
	dst := &v.Min
	if name == "max" {
		s = ff.max
		dst = &v.Max
	}
	if strings.TrimSpace(s) == "" {
		*dst = nil
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid -%s %q: %w", name, s, err)
	}
	*dst = &n
	return nil
}

func splitOptions(s string) []string {
	out := []string{}
	for o := range strings.SplitSeq(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func cmdAddField(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("add-field")
	id := fs.String("t", "", "Template ID")
	ff := newFieldFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.selectTemplate(*id); err != nil {
		return err
	}
	in := forms.FieldInput{Type: forms.FieldTypeText}
	if err := ff.apply(&in); err != nil {
		return err
	}
	e := templatestore.NewFieldEditor(a.store)
	e.BeginCreate()
	f, err := e.Submit(in)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, f.ID)
	return a.saved()
}

func cmdUpdateField(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("update-field")
	id := fs.String("t", "", "Template ID")
	fieldID := fs.String("f", "", "Field ID")
	ff := newFieldFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.selectTemplate(*id); err != nil {
		return err
	}
	e := templatestore.NewFieldEditor(a.store)
	in, ok := e.BeginEdit(*fieldID)
	if !ok {
		return fmt.Errorf("field %q not found", *fieldID)
	}
	if err := ff.apply(&in); err != nil {
		return err
	}
	if _, err := e.Submit(in); err != nil {
		return err
	}
	return a.saved()
}

func cmdRemoveField(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("remove-field")
	id := fs.String("t", "", "Template ID")
	fieldID := fs.String("f", "", "Field ID")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.selectTemplate(*id); err != nil {
		return err
	}
	if !a.store.RemoveField(*fieldID) {
		return fmt.Errorf("field %q not found", *fieldID)
	}
	return a.saved()
}

func cmdMoveField(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("move-field")
	id := fs.String("t", "", "Template ID")
	from := fs.Int("from", 0, "Current position, 0 based")
	to := fs.Int("to", 0, "New position, 0 based")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.selectTemplate(*id); err != nil {
		return err
	}
	if err := a.store.ReorderFields(*from, *to); err != nil {
		return err
	}
	return a.saved()
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("delete")
	id := fs.String("t", "", "Template ID")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !a.store.DeleteTemplate(*id) {
		return fmt.Errorf("template %q not found", *id)
	}
	return a.saved()
}

func cmdFill(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("fill")
	id := fs.String("t", "", "Template ID")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	t, err := a.selectTemplate(*id)
	if err != nil {
		return err
	}
	if err := a.prompt.Info(ctx, t.Title); err != nil {
		return err
	}
	answers, err := fill.Run(ctx, a.prompt, t)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(answers)
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export")
	format := fs.String("format", "json", "Output format (json, yaml)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	return export.Write(a.out, a.store.Templates(), f)
}

func cmdSchema(ctx context.Context, a *app, args []string) error {
	if err := parseFlags(newFlagSet("schema"), args); err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(forms.Schema())
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	if err := parseFlags(newFlagSet("watch"), args); err != nil {
		return err
	}
	fb, ok := a.backend.(*storage.FileBackend)
	if !ok {
		return fmt.Errorf("watch requires the file backend, not %s", a.cfg.Backend)
	}
	if err := printList(a.out, a.store.Templates()); err != nil {
		return err
	}
	changed := make(chan struct{}, 1)
	err := fb.Watch(ctx, a.cfg.Key, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
			a.store.LoadAll()
			fmt.Fprintln(a.out)
			if err := printList(a.out, a.store.Templates()); err != nil {
				return err
			}
		}
	}
}

func cmdHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("history")
	n := fs.Int("n", 20, "Maximum number of versions to list")
	at := fs.String("at", "", "Print the collection as of this commit hash")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	fb, ok := a.backend.(*storage.FileBackend)
	if !ok || fb.History() == nil {
		return errors.New("history requires the file backend with -history")
	}
	name, err := fb.FileName(a.cfg.Key)
	if err != nil {
		return err
	}
	h := fb.History()
	if *at != "" {
		content, err := h.ReadAt(*at, name)
		if err != nil {
			return err
		}
		_, err = io.WriteString(a.out, content)
		return err
	}
	versions, err := h.Versions(name, *n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMIT\tDATE\tAUTHOR\tMESSAGE")
	for _, v := range versions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Hash[:min(len(v.Hash), 12)], v.When.Local().Format(time.DateTime), v.Author, v.Message)
	}
	return tw.Flush()
}

func cmdLog(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("log")
	n := fs.Int("n", 20, "Number of entries, 0 for all")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if a.journal == nil {
		return errors.New("journal is disabled")
	}
	entries, err := a.journal.Tail(*n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCHANGE\tTEMPLATE\tFIELD\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Time.Local().Format(time.DateTime), e.Kind, e.Template, e.Field, e.Error)
	}
	return tw.Flush()
}
