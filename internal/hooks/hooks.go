// Package hooks declares the extension points the pipeline delegates to at
// well-defined points: a user-supplied text rewriter invoked during
// response-body and header rewriting, and periodic cron tasks
// (spec.md §1, §4.E, §6). Neither has a built-in implementation — a
// deployment registers one at startup.
package hooks

import "time"

// TextRewriter is the custom body/header rewriter the operator may plug
// in. It receives the already-decoded text and the upstream MIME type (or
// the synthetic "mwm/headers-location" MIME when invoked for a Location
// header), and may return SkipBuiltin=true to suppress the built-in
// regex-based rewriter for this value.
type TextRewriter interface {
	Rewrite(mime, text string) (rewritten string, skipBuiltin bool)
}

// TextRewriterFunc adapts a plain function to TextRewriter.
type TextRewriterFunc func(mime, text string) (string, bool)

// Rewrite implements TextRewriter.
func (f TextRewriterFunc) Rewrite(mime, text string) (string, bool) { return f(mime, text) }

// CronTask is a periodic, registered background job. Name must match the
// `target` named in the corresponding config.CronTaskSpec.
type CronTask interface {
	Name() string
	Run() error
}

// Registry holds the rewriter and cron tasks wired in at startup.
// It is built once and never mutated afterward.
type Registry struct {
	rewriter  TextRewriter
	cronTasks map[string]CronTask
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{cronTasks: make(map[string]CronTask)}
}

// SetTextRewriter registers the custom text rewriter. Passing nil disables
// custom rewriting; custom_text_rewriter_enable in config still gates
// whether it is consulted at all.
func (r *Registry) SetTextRewriter(rw TextRewriter) { r.rewriter = rw }

// TextRewriter returns the registered rewriter, or nil if none was set.
func (r *Registry) TextRewriter() TextRewriter { return r.rewriter }

// RegisterCronTask adds t to the registry under its own Name().
func (r *Registry) RegisterCronTask(t CronTask) { r.cronTasks[t.Name()] = t }

// CronTask looks up a registered task by name.
func (r *Registry) CronTask(name string) (CronTask, bool) {
	t, ok := r.cronTasks[name]
	return t, ok
}

// MinCronInterval mirrors config.MinCronInterval so callers that only need
// the scheduling floor don't have to import the config package.
const MinCronInterval = 180 * time.Second
