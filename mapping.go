package jsontransform

// ExecuteMapping runs mappings against root, writing results into *output
// (spec §4.G). frames carries any active "$.item" bindings (non-nil only
// when executing a NestedTemplate's per-item fields); depth tracks nested-
// template recursion against settings.MaxDepth.
func ExecuteMapping(root JsonValue, mappings []Mapping, output *JsonValue, settings TransformSettings, frames map[string]JsonValue, depth int, trace *traceCollector) error {
	if depth > settings.MaxDepth {
		return &Error{Code: ErrDepthExceededError, Message: "maximum nesting depth exceeded"}
	}

	ctx := &evalCtx{root: root, frames: frames, strict: settings.StrictMode}

	for _, m := range mappings {
		v, wrote, err := evalProducer(m, ctx, settings, depth, trace)
		if err != nil {
			if trace != nil {
				trace.record(TraceEvent{Kind: "mapping_error", Path: m.To, Message: err.Error()})
			}
			if settings.StrictMode || alwaysFatal(err) {
				return err
			}
			wrote = false
		}

		if !wrote {
			if !settings.PreserveNulls {
				continue
			}
			v = NewNull()
		}

		writePath, err := ParseWritePath(m.To)
		if err != nil {
			return err
		}
		if err := WriteValue(output, writePath, v, settings.CreatePaths); err != nil {
			if settings.StrictMode {
				return err
			}
			continue
		}
		if trace != nil {
			trace.record(TraceEvent{Kind: "mapping_write", Path: m.To})
		}
	}
	return nil
}

// evalProducer dispatches a single mapping's producer in spec precedence
// order: conditions -> template -> aggregate -> math -> concat -> value ->
// from. wrote is false when the producer resolved to "missing" (e.g. an
// unmatched condition list or a from-path with zero matches).
func evalProducer(m Mapping, ctx *evalCtx, settings TransformSettings, depth int, trace *traceCollector) (JsonValue, bool, error) {
	switch {
	case len(m.Conditions) > 0:
		v, matched, err := evalConditionList(m.Conditions, ctx)
		if err != nil {
			return JsonValue{}, false, err
		}
		return v, matched, nil

	case m.Nested != nil:
		v, err := evalNestedTemplate(m.Nested, ctx, settings, depth, trace)
		if err != nil {
			return JsonValue{}, false, err
		}
		return v, true, nil

	case m.Aggregate != nil:
		v, err := Aggregate(ctx, *m.Aggregate)
		if err != nil {
			return JsonValue{}, false, err
		}
		return v, true, nil

	case m.Math != nil:
		v, err := EvalMath(ctx, *m.Math)
		if err != nil {
			return JsonValue{}, false, err
		}
		return v, true, nil

	case m.Concat != nil:
		v, err := RenderTemplate(*m.Concat, ctx.root, ctx.frames, ctx.strict)
		if err != nil {
			return JsonValue{}, false, err
		}
		return NewString(v), true, nil

	case m.Value != nil:
		return resolveValueProducer(*m.Value), true, nil

	case m.From != "":
		v, ok, err := resolveFrom(m.From, ctx)
		if err != nil {
			return JsonValue{}, false, err
		}
		return v, ok, nil

	default:
		return JsonValue{}, false, nil
	}
}

// resolveValueProducer returns v verbatim, except the reserved "now" token
// (spec §6 "Reserved tokens"), which resolves to the current UTC timestamp.
func resolveValueProducer(v JsonValue) JsonValue {
	if v.Kind == KindString && v.Str == "now" {
		return NewString(nowPlaceholder())
	}
	return v
}

func resolveFrom(rawPath string, ctx *evalCtx) (JsonValue, bool, error) {
	p, err := ParsePath(rawPath)
	if err != nil {
		return JsonValue{}, false, err
	}
	matches, err := ctx.resolvePath(p)
	if err != nil {
		return JsonValue{}, false, err
	}
	v, ok := ResolveSingle(matches)
	return v, ok, nil
}

// evalNestedTemplate builds an array of objects, one per element of
// nt.Source (resolved relative to ctx, so a nested template can itself be
// nested inside another "$.item" scope), each produced by running
// nt.Fields with "$.item" rebound to the element (spec §4.G).
func evalNestedTemplate(nt *NestedTemplate, ctx *evalCtx, settings TransformSettings, depth int, trace *traceCollector) (JsonValue, error) {
	srcPath, err := ParsePath(nt.Source)
	if err != nil {
		return JsonValue{}, err
	}
	matches, err := ctx.resolvePath(srcPath)
	if err != nil {
		return JsonValue{}, err
	}
	source, ok := ResolveSingle(matches)
	if !ok || source.Kind != KindArray {
		return NewArray(nil), nil
	}

	results := make([]JsonValue, 0, len(source.Arr))
	for _, item := range source.Arr {
		itemOut := NewObject()
		if err := ExecuteMapping(ctx.root, nt.Fields, &itemOut, settings, map[string]JsonValue{"item": item}, depth+1, trace); err != nil {
			return JsonValue{}, err
		}
		results = append(results, itemOut)
	}
	return NewArray(results), nil
}
