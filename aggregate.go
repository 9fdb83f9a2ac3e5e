package jsontransform

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AggregationSpec describes one aggregation producer (spec §4.C).
type AggregationSpec struct {
	Source string // read path to the array being aggregated
	Op     string // sum|avg|min|max|count|first|last|join
	Field  string // optional field to extract from each item before folding
	Filter *Expr  // optional predicate, evaluated with $.item bound
	Sep    string // join separator, default ","
}

// Aggregate evaluates spec against ctx's document (honoring any active
// "$.item" frame, so an aggregation nested inside a per-item template can
// still read a path relative to the enclosing item) and returns the folded
// JsonValue.
func Aggregate(ctx *evalCtx, spec AggregationSpec) (JsonValue, error) {
	strict := ctx.strict
	srcPath, err := ParsePath(spec.Source)
	if err != nil {
		return JsonValue{}, err
	}
	matches, err := ctx.resolvePath(srcPath)
	if err != nil {
		return JsonValue{}, err
	}
	source, ok := ResolveSingle(matches)
	if !ok || source.Kind != KindArray {
		if strict {
			return JsonValue{}, &Error{Code: ErrAggregationError, Message: "aggregation source is not an array", Path: spec.Source, Operation: spec.Op}
		}
		return aggregateEmpty(spec.Op)
	}

	items := source.Arr
	if spec.Filter != nil {
		items, err = filterItems(ctx, items, spec.Filter)
		if err != nil {
			return JsonValue{}, err
		}
	}

	if spec.Op == "count" {
		return NewInt(int64(len(items))), nil
	}
	if len(items) == 0 {
		return aggregateEmpty(spec.Op)
	}

	if spec.Field != "" {
		extracted := make([]JsonValue, 0, len(items))
		fieldPath, err := ParsePath("$." + spec.Field)
		if err != nil {
			return JsonValue{}, err
		}
		for _, item := range items {
			m, err := Resolve(item, Path{Raw: fieldPath.Raw, Segments: fieldPath.Segments})
			if err != nil {
				return JsonValue{}, err
			}
			v, ok := ResolveSingle(m)
			if !ok {
				v = NewNull()
			}
			extracted = append(extracted, v)
		}
		items = extracted
	}

	switch spec.Op {
	case "sum":
		return aggregateSum(items, strict, spec.Op)
	case "avg":
		return aggregateAvg(items, strict, spec.Op)
	case "min":
		return aggregateMinMax(items, true, strict, spec.Op)
	case "max":
		return aggregateMinMax(items, false, strict, spec.Op)
	case "first":
		return items[0], nil
	case "last":
		return items[len(items)-1], nil
	case "join":
		return aggregateJoin(items, spec.Sep), nil
	default:
		return JsonValue{}, &Error{Code: ErrAggregationError, Message: "unknown aggregation operation: " + spec.Op, Operation: spec.Op}
	}
}

func aggregateEmpty(op string) (JsonValue, error) {
	switch op {
	case "sum":
		return NewInt(0), nil
	case "avg":
		return NewNull(), nil
	case "min", "max", "first", "last":
		return NewNull(), nil
	case "count":
		return NewInt(0), nil
	case "join":
		return NewString(""), nil
	default:
		return JsonValue{}, &Error{Code: ErrAggregationError, Message: "unknown aggregation operation: " + op, Operation: op}
	}
}

func filterItems(ctx *evalCtx, items []JsonValue, filter *Expr) ([]JsonValue, error) {
	var out []JsonValue
	for _, item := range items {
		itemCtx := ctx.withFrame("item", item)
		v, err := filter.Eval(itemCtx)
		if err != nil {
			if ctx.strict {
				return nil, err
			}
			continue
		}
		if v.IsTruthy() {
			out = append(out, item)
		}
	}
	return out, nil
}

// decimalOf coerces a JsonValue to a decimal.Decimal, using shopspring/decimal
// to avoid float64 rounding drift across sum/avg folds (spec §4.D precision
// note applies equally here).
func decimalOf(v JsonValue) (decimal.Decimal, bool) {
	if v.Kind != KindNumber {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v.Num), true
}

func aggregateSum(items []JsonValue, strict bool, op string) (JsonValue, error) {
	total := decimal.Zero
	for _, item := range items {
		d, ok := decimalOf(item)
		if !ok {
			if strict {
				return JsonValue{}, &Error{Code: ErrAggregationError, Message: "non-numeric value in sum aggregation", Operation: op}
			}
			continue
		}
		total = total.Add(d)
	}
	f, _ := total.Float64()
	return NewNumberAuto(f), nil
}

func aggregateAvg(items []JsonValue, strict bool, op string) (JsonValue, error) {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		d, ok := decimalOf(item)
		if !ok {
			if strict {
				return JsonValue{}, &Error{Code: ErrAggregationError, Message: "non-numeric value in avg aggregation", Operation: op}
			}
			continue
		}
		total = total.Add(d)
		count++
	}
	if count == 0 {
		return NewNull(), nil
	}
	avg := total.Div(decimal.NewFromInt(int64(count)))
	f, _ := avg.Float64()
	return NewNumberAuto(f), nil
}

// aggregateMinMax folds to the numeric or lexicographic extreme (spec §4.C
// "min, max — numeric or lexicographic on strings"). Items of a type other
// than the first surviving item's are skipped (or, in strict mode, fail),
// since comparing a number to a string is not defined by the spec.
func aggregateMinMax(items []JsonValue, wantMin bool, strict bool, op string) (JsonValue, error) {
	var best JsonValue
	found := false
	for _, item := range items {
		if item.Kind != KindNumber && item.Kind != KindString {
			if strict {
				return JsonValue{}, &Error{Code: ErrAggregationError, Message: "min/max aggregation requires numeric or string values", Operation: op}
			}
			continue
		}
		if found && item.Kind != best.Kind {
			if strict {
				return JsonValue{}, &Error{Code: ErrAggregationError, Message: "min/max aggregation requires values of a single type", Operation: op}
			}
			continue
		}
		if !found {
			best = item
			found = true
			continue
		}
		switch item.Kind {
		case KindNumber:
			if wantMin && item.Num < best.Num {
				best = item
			}
			if !wantMin && item.Num > best.Num {
				best = item
			}
		case KindString:
			if wantMin && item.Str < best.Str {
				best = item
			}
			if !wantMin && item.Str > best.Str {
				best = item
			}
		}
	}
	if !found {
		return NewNull(), nil
	}
	return best, nil
}

func aggregateJoin(items []JsonValue, sep string) JsonValue {
	if sep == "" {
		sep = ","
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Stringify(item)
	}
	return NewString(strings.Join(parts, sep))
}
