// Package jsontransform implements a declarative JSON-to-JSON transformation
// engine: a template describes, field by field, how to derive an output
// document from a source document using path lookups, conditions,
// aggregations, math, string concatenation, and per-item nested templates.
package jsontransform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Result is the outcome of a successful Transform call.
type Result struct {
	Output JsonValue
	RunID  string
	Trace  []TraceEvent
}

// AsyncResult is delivered on the channel returned by TransformAsync.
type AsyncResult struct {
	Result Result
	Err    error
}

// JsonTransformer runs Transform calls against a fixed, pre-compiled
// Template and TransformSettings, reusing the compiled expression trees
// across many source documents (spec §5).
type JsonTransformer struct {
	template *Template
	logger   zerolog.Logger
}

// NewJsonTransformer builds a transformer from an already-compiled Template.
func NewJsonTransformer(template *Template) *JsonTransformer {
	return &JsonTransformer{
		template: template,
		logger:   zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
}

// Transform runs jt's template against sourceJSON, returning the derived
// output document (spec §5 synchronous entry point).
func (jt *JsonTransformer) Transform(ctx context.Context, sourceJSON []byte) (Result, error) {
	if ctx == nil {
		return Result{}, &Error{Code: ErrInvalidInput, Message: "context must not be nil"}
	}
	if jt.template == nil {
		return Result{}, &Error{Code: ErrInvalidInput, Message: "transformer has no compiled template"}
	}

	runID := uuid.NewString()
	root, err := ParseJSON(sourceJSON)
	if err != nil {
		return Result{}, attachRunID(err, runID)
	}

	select {
	case <-ctx.Done():
		return Result{}, attachRunID(&Error{Code: ErrInvalidInput, Message: "context canceled before transform started", Cause: ctx.Err()}, runID)
	default:
	}

	trace := newTraceCollector(jt.template.Settings.EnableTracing, runID, jt.logger)
	output := NewObject()
	if err := ExecuteMapping(root, jt.template.Mappings, &output, jt.template.Settings, nil, 0, trace); err != nil {
		return Result{}, attachRunID(err, runID)
	}

	return Result{Output: output, RunID: runID, Trace: trace.drain()}, nil
}

// TransformAsync runs Transform on a single goroutine and delivers the
// result on the returned channel. It offers no additional parallelism over
// Transform; it exists purely so callers with a deferred-completion style
// don't block their own goroutine (spec §5).
func (jt *JsonTransformer) TransformAsync(ctx context.Context, sourceJSON []byte) <-chan AsyncResult {
	out := make(chan AsyncResult, 1)
	go func() {
		res, err := jt.Transform(ctx, sourceJSON)
		out <- AsyncResult{Result: res, Err: err}
		close(out)
	}()
	return out
}

func attachRunID(err error, runID string) error {
	if e, ok := err.(*Error); ok {
		e.RunID = runID
		return e
	}
	return err
}

// TransformBytes is the []byte-based primitive other package-level
// entry points build on (spec §6/§8): it parses templateJSON once and runs
// it against sourceJSON a single time.
func TransformBytes(ctx context.Context, sourceJSON, templateJSON []byte) (Result, error) {
	tmpl, err := ParseTemplate(templateJSON)
	if err != nil {
		return Result{}, err
	}
	return NewJsonTransformer(tmpl).Transform(ctx, sourceJSON)
}

// Transform is the primary entry point (spec §6): `transform(source,
// template) -> result`. It accepts and returns UTF-8 JSON text and uses
// context.Background() internally; use TransformContext to pass a caller
// context.
func Transform(source, template string) (string, error) {
	return TransformContext(context.Background(), source, template)
}

// TransformContext is Transform with an explicit context for cancellation.
func TransformContext(ctx context.Context, source, template string) (string, error) {
	res, err := TransformBytes(ctx, []byte(source), []byte(template))
	if err != nil {
		return "", err
	}
	out, err := res.Output.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ValidateTemplate reports every structural problem found in templateJSON,
// without stopping at the first one (spec §4.H "no short-circuit"). A
// non-nil error means the document could not be validated at all (e.g.
// malformed JSON); otherwise the returned slice lists every mapping-level
// validation failure found (empty when the template is valid).
func ValidateTemplate(templateJSON []byte) ([]ValidationError, error) {
	var raw rawTemplate
	if err := json.Unmarshal(templateJSON, &raw); err != nil {
		return nil, &Error{Code: ErrTemplateError, Message: "template is not valid JSON", Cause: err}
	}

	var errs []ValidationError
	if len(raw.Mappings) == 0 {
		errs = append(errs, ValidationError{Path: "$.mappings", Message: "template must declare at least one mapping"})
	}
	if raw.Settings != nil && raw.Settings.MaxDepth < 0 {
		errs = append(errs, ValidationError{Path: "$.settings.maxDepth", Message: "maxDepth must be >= 1"})
	}
	for i, rm := range raw.Mappings {
		if _, err := compileMapping(rm, fmt.Sprintf("$.mappings[%d]", i)); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				errs = append(errs, *ve)
			} else {
				errs = append(errs, ValidationError{Path: fmt.Sprintf("$.mappings[%d]", i), Message: err.Error()})
			}
		}
	}
	return errs, nil
}

// MustTransform is like TransformBytes but panics on error; intended for
// tests and startup-time fixed templates, not for handling untrusted input.
func MustTransform(ctx context.Context, sourceJSON, templateJSON []byte) Result {
	res, err := TransformBytes(ctx, sourceJSON, templateJSON)
	if err != nil {
		panic(err)
	}
	return res
}

// MustValidateTemplate is like ValidateTemplate but panics if the template
// fails to parse or carries any validation error.
func MustValidateTemplate(templateJSON []byte) {
	errs, err := ValidateTemplate(templateJSON)
	if err != nil {
		panic(err)
	}
	if len(errs) > 0 {
		panic(errs[0])
	}
}

// CompiledTemplate is a template compiled once and reused across many
// Apply calls, avoiding re-parsing the template document per call.
type CompiledTemplate struct {
	jt *JsonTransformer
}

// Compile parses and compiles templateJSON into a reusable CompiledTemplate.
func Compile(templateJSON []byte) (*CompiledTemplate, error) {
	tmpl, err := ParseTemplate(templateJSON)
	if err != nil {
		return nil, err
	}
	return &CompiledTemplate{jt: NewJsonTransformer(tmpl)}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(templateJSON []byte) *CompiledTemplate {
	ct, err := Compile(templateJSON)
	if err != nil {
		panic(err)
	}
	return ct
}

// Apply runs the compiled template against sourceJSON.
func (ct *CompiledTemplate) Apply(sourceJSON []byte) (Result, error) {
	return ct.jt.Transform(context.Background(), sourceJSON)
}

// ApplyContext is Apply with an explicit context for cancellation.
func (ct *CompiledTemplate) ApplyContext(ctx context.Context, sourceJSON []byte) (Result, error) {
	return ct.jt.Transform(ctx, sourceJSON)
}
