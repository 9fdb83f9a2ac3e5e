package jsontransform

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TransformSettings controls the ambient behavior of a Transform run
// (spec §5, §7).
type TransformSettings struct {
	// StrictMode causes any producer error to abort the run immediately.
	// When false, a failed mapping is skipped (preserveNulls decides
	// whether the target field is written as null or omitted).
	StrictMode bool `json:"strictMode"`
	// MaxDepth bounds nested-template recursion; condition elseif chains
	// are not counted against it.
	// A DepthExceededError is always fatal regardless of StrictMode.
	MaxDepth int `json:"maxDepth"`
	// PreserveNulls writes an explicit null for a mapping that resolved
	// to "missing" instead of omitting the target field entirely.
	PreserveNulls bool `json:"preserveNulls"`
	// CreatePaths allows write paths to create intermediate objects/arrays.
	CreatePaths bool `json:"createPaths"`
	// EnableTracing turns on structured diagnostic tracing (Result.Trace).
	EnableTracing bool `json:"enableTracing"`
}

// DefaultSettings returns the documented defaults (spec §3 settings table).
func DefaultSettings() TransformSettings {
	return TransformSettings{
		StrictMode:    false,
		MaxDepth:      10,
		PreserveNulls: true,
		CreatePaths:   true,
		EnableTracing: false,
	}
}

// Template is a fully parsed, compiled mapping template: every condition
// and expression string has already been lexed/parsed into an Expr tree
// at load time, so Transform never re-parses an expression per document
// (spec §9 "compile once").
type Template struct {
	Settings TransformSettings
	Mappings []Mapping
}

// Mapping is one top-level output field (spec §4.G): a write path plus a
// producer, dispatched in precedence order conditions -> template ->
// aggregate -> math -> concat -> value -> from.
type Mapping struct {
	To        string
	Conditions []Condition
	Nested    *NestedTemplate
	Aggregate *AggregationSpec
	Math      *MathOp
	Concat    *string
	Value     *JsonValue
	From      string
}

// NestedTemplate produces an array of objects, one per element of Source,
// each built from Fields with "$.item" bound to the current element
// (spec §4.G per-item evaluation context).
type NestedTemplate struct {
	Source string
	Fields []Mapping
}

// ValidationError describes one structural problem found while parsing a
// template (spec §4.H).
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("template error at %s: %s", e.Path, e.Message)
}

// --- raw (wire) shapes, decoded with encoding/json then compiled into the
// Expr/Path-resolved Template above ---

type rawTemplate struct {
	Settings *TransformSettings `json:"settings"`
	Mappings []rawMapping       `json:"mappings"`
}

type rawMapping struct {
	To        string             `json:"to"`
	Conditions []rawCondition    `json:"conditions,omitempty"`
	Template   *rawNestedTemplate `json:"template,omitempty"`
	Aggregate  *rawAggregate      `json:"aggregate,omitempty"`
	Math       *rawMathOp         `json:"math,omitempty"`
	Concat     *string            `json:"concat,omitempty"`
	Value      json.RawMessage    `json:"value,omitempty"`
	From       string             `json:"from,omitempty"`
}

type rawNestedTemplate struct {
	Source string       `json:"source"`
	Fields []rawMapping `json:"fields"`
}

type rawAggregate struct {
	Source string `json:"source"`
	Op     string `json:"op"`
	Field  string `json:"field,omitempty"`
	Filter string `json:"filter,omitempty"`
	Sep    string `json:"separator,omitempty"`
}

type rawMathOp struct {
	Op        string          `json:"op"`
	Operands  []rawMathOperand `json:"operands"`
	Precision *int            `json:"precision,omitempty"`
}

type rawMathOperand struct {
	Path  string          `json:"path,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// rawCondition mirrors spec §3/§6's Condition grammar: { if?, then, elseif?,
// else? }, where "then"/"else" are "any" — a bare literal, a path string, or
// a recursively nested condition object — and "else" may additionally be the
// literal JSON boolean true, marking an unconditional catch-all.
type rawCondition struct {
	If     string          `json:"if,omitempty"`
	Then   json.RawMessage `json:"then"`
	ElseIf []rawCondition  `json:"elseif,omitempty"`
	Else   json.RawMessage `json:"else,omitempty"`
}

// ParseTemplate parses and compiles a template document (spec §4.H).
func ParseTemplate(data []byte) (*Template, error) {
	var raw rawTemplate
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Code: ErrTemplateError, Message: "template is not valid JSON", Cause: err}
	}

	settings := DefaultSettings()
	if raw.Settings != nil {
		settings = *raw.Settings
		if settings.MaxDepth <= 0 {
			settings.MaxDepth = DefaultSettings().MaxDepth
		}
	}

	if len(raw.Mappings) == 0 {
		return nil, &ValidationError{Path: "$.mappings", Message: "template must declare at least one mapping"}
	}

	mappings := make([]Mapping, 0, len(raw.Mappings))
	for i, rm := range raw.Mappings {
		m, err := compileMapping(rm, fmt.Sprintf("$.mappings[%d]", i))
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	return &Template{Settings: settings, Mappings: mappings}, nil
}

func compileMapping(rm rawMapping, ctxPath string) (Mapping, error) {
	if rm.To == "" {
		return Mapping{}, &ValidationError{Path: ctxPath, Message: "mapping must declare a non-empty 'to' write path"}
	}
	if _, err := ParseWritePath(rm.To); err != nil {
		return Mapping{}, &ValidationError{Path: ctxPath + ".to", Message: err.Error()}
	}

	m := Mapping{To: rm.To, From: rm.From}

	producerCount := 0
	if len(rm.Conditions) > 0 {
		producerCount++
		conds, err := compileConditions(rm.Conditions, ctxPath+".conditions")
		if err != nil {
			return Mapping{}, err
		}
		m.Conditions = conds
	}
	if rm.Template != nil {
		producerCount++
		nt, err := compileNestedTemplate(rm.Template, ctxPath+".template")
		if err != nil {
			return Mapping{}, err
		}
		m.Nested = nt
	}
	if rm.Aggregate != nil {
		producerCount++
		agg, err := compileAggregate(rm.Aggregate, ctxPath+".aggregate")
		if err != nil {
			return Mapping{}, err
		}
		m.Aggregate = agg
	}
	if rm.Math != nil {
		producerCount++
		mo, err := compileMathOp(rm.Math, ctxPath+".math")
		if err != nil {
			return Mapping{}, err
		}
		m.Math = mo
	}
	if rm.Concat != nil {
		producerCount++
		tpl, err := compileConcat(*rm.Concat, ctxPath+".concat")
		if err != nil {
			return Mapping{}, err
		}
		m.Concat = &tpl
	}
	if len(rm.Value) > 0 {
		producerCount++
		v, err := ParseJSON(rm.Value)
		if err != nil {
			return Mapping{}, &ValidationError{Path: ctxPath + ".value", Message: err.Error()}
		}
		m.Value = &v
	}
	if rm.From != "" {
		producerCount++
		if _, err := ParsePath(rm.From); err != nil {
			return Mapping{}, &ValidationError{Path: ctxPath + ".from", Message: err.Error()}
		}
	}

	if producerCount == 0 {
		return Mapping{}, &ValidationError{Path: ctxPath, Message: "mapping must declare exactly one producer (conditions, template, aggregate, math, concat, value, or from)"}
	}
	return m, nil
}

func compileConditions(raw []rawCondition, ctxPath string) ([]Condition, error) {
	out := make([]Condition, 0, len(raw))
	for i, rc := range raw {
		c, err := compileCondition(rc, fmt.Sprintf("%s[%d]", ctxPath, i))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// compileCondition compiles one Condition per spec §4.F/§6's grammar:
// { if?, then, elseif?: Condition[], else?: any | {if,then,else} | true }.
func compileCondition(rc rawCondition, ctxPath string) (Condition, error) {
	var cond Condition
	if rc.If != "" {
		e, err := ParseExpression(rc.If)
		if err != nil {
			return Condition{}, &ValidationError{Path: ctxPath + ".if", Message: err.Error()}
		}
		cond.If = e
	}

	if len(rc.Then) == 0 {
		return Condition{}, &ValidationError{Path: ctxPath + ".then", Message: "condition must declare a 'then' value"}
	}
	then, err := compileBranch(rc.Then, ctxPath+".then")
	if err != nil {
		return Condition{}, err
	}
	cond.Then = then

	for j, rei := range rc.ElseIf {
		ei, err := compileCondition(rei, fmt.Sprintf("%s.elseif[%d]", ctxPath, j))
		if err != nil {
			return Condition{}, err
		}
		cond.ElseIfs = append(cond.ElseIfs, ei)
	}

	if len(rc.Else) > 0 {
		if strings.TrimSpace(string(rc.Else)) == "true" {
			cond.CatchAll = true
		} else {
			elseBranch, err := compileBranch(rc.Else, ctxPath+".else")
			if err != nil {
				return Condition{}, err
			}
			cond.Else = &elseBranch
		}
	}

	return cond, nil
}

// compileBranch compiles a "then"/"else" value: a bare literal, a path
// reference (a string beginning with "$"), or a recursively nested
// condition object carrying its own "then" (spec §4.F item 2).
func compileBranch(raw json.RawMessage, ctxPath string) (Branch, error) {
	var probe struct {
		Then json.RawMessage `json:"then"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && len(probe.Then) > 0 {
		var rc rawCondition
		if err := json.Unmarshal(raw, &rc); err != nil {
			return Branch{}, &ValidationError{Path: ctxPath, Message: err.Error()}
		}
		nested, err := compileCondition(rc, ctxPath)
		if err != nil {
			return Branch{}, err
		}
		return Branch{Nested: &nested}, nil
	}

	v, err := ParseJSON(raw)
	if err != nil {
		return Branch{}, &ValidationError{Path: ctxPath, Message: err.Error()}
	}
	if v.Kind == KindString && len(v.Str) > 0 && v.Str[0] == '$' {
		if _, err := ParsePath(v.Str); err == nil {
			return Branch{Path: v.Str}, nil
		}
	}
	return Branch{Value: &v}, nil
}

func compileNestedTemplate(raw *rawNestedTemplate, ctxPath string) (*NestedTemplate, error) {
	if raw.Source == "" {
		return nil, &ValidationError{Path: ctxPath + ".source", Message: "nested template must declare a source array path"}
	}
	if _, err := ParsePath(raw.Source); err != nil {
		return nil, &ValidationError{Path: ctxPath + ".source", Message: err.Error()}
	}
	fields := make([]Mapping, 0, len(raw.Fields))
	for i, rf := range raw.Fields {
		m, err := compileMapping(rf, fmt.Sprintf("%s.fields[%d]", ctxPath, i))
		if err != nil {
			return nil, err
		}
		fields = append(fields, m)
	}
	return &NestedTemplate{Source: raw.Source, Fields: fields}, nil
}

func compileAggregate(raw *rawAggregate, ctxPath string) (*AggregationSpec, error) {
	if raw.Source == "" {
		return nil, &ValidationError{Path: ctxPath + ".source", Message: "aggregate must declare a source array path"}
	}
	if raw.Op == "" {
		return nil, &ValidationError{Path: ctxPath + ".op", Message: "aggregate must declare an operation"}
	}
	switch raw.Op {
	case "sum", "avg", "min", "max", "count", "first", "last", "join":
	default:
		return nil, &ValidationError{Path: ctxPath + ".op", Message: "unknown aggregation operation: " + raw.Op}
	}
	spec := &AggregationSpec{Source: raw.Source, Op: raw.Op, Field: raw.Field, Sep: raw.Sep}
	if raw.Filter != "" {
		e, err := ParseExpression(raw.Filter)
		if err != nil {
			return nil, &ValidationError{Path: ctxPath + ".filter", Message: err.Error()}
		}
		spec.Filter = e
	}
	return spec, nil
}

func compileMathOp(raw *rawMathOp, ctxPath string) (*MathOp, error) {
	if raw.Op == "" {
		return nil, &ValidationError{Path: ctxPath + ".op", Message: "math must declare an operation"}
	}
	if len(raw.Operands) == 0 {
		return nil, &ValidationError{Path: ctxPath + ".operands", Message: "math must declare at least one operand"}
	}
	mo := &MathOp{Op: raw.Op, Precision: raw.Precision}
	for i, ro := range raw.Operands {
		opPath := fmt.Sprintf("%s.operands[%d]", ctxPath, i)
		if ro.Path != "" {
			if _, err := ParsePath(ro.Path); err != nil {
				return nil, &ValidationError{Path: opPath, Message: err.Error()}
			}
			mo.Operands = append(mo.Operands, MathOperand{Path: ro.Path, IsPath: true})
			continue
		}
		if len(ro.Value) == 0 {
			return nil, &ValidationError{Path: opPath, Message: "operand must declare 'path' or 'value'"}
		}
		v, err := ParseJSON(ro.Value)
		if err != nil {
			return nil, &ValidationError{Path: opPath, Message: err.Error()}
		}
		mo.Operands = append(mo.Operands, MathOperand{Literal: v})
	}
	return mo, nil
}

// compileConcat validates a "concat" template string against the String
// Templater grammar (spec §4.E) at load time, so a malformed placeholder or
// bad path reference is reported as a template error rather than discovered
// per source document.
func compileConcat(raw string, ctxPath string) (string, error) {
	if err := validateTemplateString(raw); err != nil {
		return "", &ValidationError{Path: ctxPath, Message: err.Error()}
	}
	return raw, nil
}
