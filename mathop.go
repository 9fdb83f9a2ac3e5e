package jsontransform

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// errMathResultNull signals that a math operation should yield JSON null
// rather than a numeric result — e.g. non-strict division/modulo by zero
// (spec §4.D "Division by zero -> MathOperationError in strict mode, else
// null").
var errMathResultNull = errors.New("math operation yields null")

// MathOperand is one operand of a MathOp: either a literal number or a path
// reference resolved against the source document (spec §4.D).
type MathOperand struct {
	Path    string
	Literal JsonValue
	IsPath  bool
}

// MathOp describes a math producer (spec §4.D).
type MathOp struct {
	Op        string // add|subtract|multiply|divide|power|sqrt|abs|round|min|max|mod
	Operands  []MathOperand
	Precision *int // optional rounding precision for the final result
}

func (o MathOperand) resolve(ctx *evalCtx) (JsonValue, error) {
	if !o.IsPath {
		return o.Literal, nil
	}
	p, err := ParsePath(o.Path)
	if err != nil {
		return JsonValue{}, err
	}
	matches, err := ctx.resolvePath(p)
	if err != nil {
		return JsonValue{}, err
	}
	v, ok := ResolveSingle(matches)
	if !ok {
		return JsonValue{Kind: KindNull}, nil
	}
	return v, nil
}

// EvalMath evaluates op against ctx's document (honoring any active "$.item"
// frame), returning a decimal-backed numeric result rounded to Precision
// when set (spec §4.D precision control).
func EvalMath(ctx *evalCtx, op MathOp) (JsonValue, error) {
	strict := ctx.strict
	operands := make([]decimal.Decimal, 0, len(op.Operands))
	for _, raw := range op.Operands {
		v, err := raw.resolve(ctx)
		if err != nil {
			return JsonValue{}, err
		}
		if v.Kind != KindNumber {
			if strict {
				return JsonValue{}, &Error{Code: ErrMathOperationError, Message: "non-numeric operand", Operation: op.Op}
			}
			return JsonValue{Kind: KindNull}, nil
		}
		operands = append(operands, decimal.NewFromFloat(v.Num))
	}

	result, err := applyMathOp(op.Op, operands, strict)
	if err != nil {
		if errors.Is(err, errMathResultNull) {
			return NewNull(), nil
		}
		return JsonValue{}, err
	}

	if op.Precision != nil {
		result = result.Round(int32(*op.Precision))
	}
	f, _ := result.Float64()
	return NewNumberAuto(f), nil
}

func applyMathOp(op string, ops []decimal.Decimal, strict bool) (decimal.Decimal, error) {
	needAtLeast := func(n int) error {
		if len(ops) < n {
			return &Error{Code: ErrMathOperationError, Message: "insufficient operands", Operation: op}
		}
		return nil
	}

	switch op {
	case "add":
		if err := needAtLeast(1); err != nil {
			return decimal.Zero, err
		}
		total := ops[0]
		for _, v := range ops[1:] {
			total = total.Add(v)
		}
		return total, nil
	case "subtract":
		if err := needAtLeast(1); err != nil {
			return decimal.Zero, err
		}
		total := ops[0]
		for _, v := range ops[1:] {
			total = total.Sub(v)
		}
		return total, nil
	case "multiply":
		if err := needAtLeast(1); err != nil {
			return decimal.Zero, err
		}
		total := ops[0]
		for _, v := range ops[1:] {
			total = total.Mul(v)
		}
		return total, nil
	case "divide":
		if err := needAtLeast(2); err != nil {
			return decimal.Zero, err
		}
		total := ops[0]
		for _, v := range ops[1:] {
			if v.IsZero() {
				if strict {
					return decimal.Zero, &Error{Code: ErrMathOperationError, Message: "division by zero", Operation: op}
				}
				return decimal.Zero, errMathResultNull
			}
			total = total.Div(v)
		}
		return total, nil
	case "mod":
		if err := needAtLeast(2); err != nil {
			return decimal.Zero, err
		}
		if ops[1].IsZero() {
			if strict {
				return decimal.Zero, &Error{Code: ErrMathOperationError, Message: "modulo by zero", Operation: op}
			}
			return decimal.Zero, errMathResultNull
		}
		return ops[0].Mod(ops[1]), nil
	case "power":
		if err := needAtLeast(2); err != nil {
			return decimal.Zero, err
		}
		base, _ := ops[0].Float64()
		exp, _ := ops[1].Float64()
		return decimal.NewFromFloat(math.Pow(base, exp)), nil
	case "sqrt":
		if err := needAtLeast(1); err != nil {
			return decimal.Zero, err
		}
		v, _ := ops[0].Float64()
		if v < 0 {
			if strict {
				return decimal.Zero, &Error{Code: ErrMathOperationError, Message: "sqrt of negative number", Operation: op}
			}
			return decimal.Zero, nil
		}
		return decimal.NewFromFloat(math.Sqrt(v)), nil
	case "abs":
		if err := needAtLeast(1); err != nil {
			return decimal.Zero, err
		}
		return ops[0].Abs(), nil
	case "round":
		if err := needAtLeast(1); err != nil {
			return decimal.Zero, err
		}
		return ops[0].Round(0), nil
	case "min":
		if err := needAtLeast(1); err != nil {
			return decimal.Zero, err
		}
		best := ops[0]
		for _, v := range ops[1:] {
			if v.LessThan(best) {
				best = v
			}
		}
		return best, nil
	case "max":
		if err := needAtLeast(1); err != nil {
			return decimal.Zero, err
		}
		best := ops[0]
		for _, v := range ops[1:] {
			if v.GreaterThan(best) {
				best = v
			}
		}
		return best, nil
	default:
		return decimal.Zero, &Error{Code: ErrMathOperationError, Message: "unknown math operation: " + op, Operation: op}
	}
}
