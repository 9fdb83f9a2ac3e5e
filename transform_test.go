package jsontransform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformSimplePassthroughAndConcat(t *testing.T) {
	tpl := []byte(`{
		"mappings": [
			{"to": "$.id", "from": "$.orderId"},
			{"to": "$.label", "concat": "Order #{$.orderId}"}
		]
	}`)
	src := []byte(`{"orderId": 42}`)

	res, err := TransformBytes(context.Background(), src, tpl)
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	v, ok := res.Output.Get("id")
	require.True(t, ok)
	f, _ := v.AsFloat64()
	assert.Equal(t, 42.0, f)

	label, ok := res.Output.Get("label")
	require.True(t, ok)
	assert.Equal(t, "Order #42", label.Str)
}

func TestTransformConditionBracket(t *testing.T) {
	tpl := []byte(`{
		"mappings": [
			{
				"to": "$.bracket",
				"conditions": [
					{
						"if": "$.age >= 65",
						"then": "Senior",
						"elseif": [
							{"if": "$.age >= 18", "then": "Adult"}
						],
						"else": "Minor"
					}
				]
			}
		]
	}`)

	res, err := TransformBytes(context.Background(), []byte(`{"age": 17}`), tpl)
	require.NoError(t, err)
	v, _ := res.Output.Get("bracket")
	assert.Equal(t, "Minor", v.Str)

	res, err = TransformBytes(context.Background(), []byte(`{"age": 40}`), tpl)
	require.NoError(t, err)
	v, _ = res.Output.Get("bracket")
	assert.Equal(t, "Adult", v.Str)

	res, err = TransformBytes(context.Background(), []byte(`{"age": 70}`), tpl)
	require.NoError(t, err)
	v, _ = res.Output.Get("bracket")
	assert.Equal(t, "Senior", v.Str)
}

func TestTransformConditionNestedElseAndCatchAll(t *testing.T) {
	tpl := []byte(`{
		"mappings": [
			{
				"to": "$.category",
				"conditions": [
					{
						"if": "$.age >= 65",
						"then": "Senior",
						"else": {
							"if": "$.age >= 18",
							"then": "Adult",
							"else": {"if": "$.age >= 0", "then": "Minor", "else": true}
						}
					}
				]
			}
		]
	}`)

	res, err := TransformBytes(context.Background(), []byte(`{"age": 10}`), tpl)
	require.NoError(t, err)
	v, _ := res.Output.Get("category")
	assert.Equal(t, "Minor", v.Str)
}

func TestTransformAggregateAndMath(t *testing.T) {
	tpl := []byte(`{
		"mappings": [
			{"to": "$.total", "aggregate": {"source": "$.items", "op": "sum", "field": "price"}},
			{"to": "$.totalWithTax", "math": {"op": "multiply", "operands": [{"path": "$.total"}, {"value": 1.1}], "precision": 2}}
		]
	}`)
	src := []byte(`{"items": [{"price": 10}, {"price": 20}]}`)

	res, err := TransformBytes(context.Background(), src, tpl)
	require.NoError(t, err)
	total, _ := res.Output.Get("total")
	f, _ := total.AsFloat64()
	assert.Equal(t, 30.0, f)
}

func TestTransformMathDivideByZeroYieldsNullWhenNotStrict(t *testing.T) {
	tpl := []byte(`{
		"mappings": [
			{"to": "$.ratio", "math": {"op": "divide", "operands": [{"value": 10}, {"value": 0}]}}
		]
	}`)

	res, err := TransformBytes(context.Background(), []byte(`{}`), tpl)
	require.NoError(t, err)
	v, _ := res.Output.Get("ratio")
	assert.True(t, v.IsNull())
}

func TestTransformValueNowReservedToken(t *testing.T) {
	tpl := []byte(`{"mappings":[{"to":"$.stamp","value":"now"}]}`)
	res, err := TransformBytes(context.Background(), []byte(`{}`), tpl)
	require.NoError(t, err)
	v, _ := res.Output.Get("stamp")
	assert.NotEqual(t, "now", v.Str)
	assert.NotEmpty(t, v.Str)
}

func TestTransformNestedTemplatePerItem(t *testing.T) {
	tpl := []byte(`{
		"mappings": [
			{
				"to": "$.lines",
				"template": {
					"source": "$.items",
					"fields": [
						{"to": "$.sku", "from": "$.item.sku"},
						{"to": "$.subtotal", "math": {"op": "multiply", "operands": [{"path": "$.item.price"}, {"path": "$.item.qty"}]}}
					]
				}
			}
		]
	}`)
	src := []byte(`{"items": [{"sku":"A","price":10,"qty":2},{"sku":"B","price":5,"qty":3}]}`)

	res, err := TransformBytes(context.Background(), src, tpl)
	require.NoError(t, err)
	lines, ok := res.Output.Get("lines")
	require.True(t, ok)
	require.Equal(t, KindArray, lines.Kind)
	require.Len(t, lines.Arr, 2)

	first := lines.Arr[0]
	sku, _ := first.Get("sku")
	assert.Equal(t, "A", sku.Str)
	subtotal, _ := first.Get("subtotal")
	f, _ := subtotal.AsFloat64()
	assert.Equal(t, 20.0, f)
}

func TestTransformStrictModeAbortsOnError(t *testing.T) {
	tpl := []byte(`{
		"settings": {"strictMode": true},
		"mappings": [
			{"to": "$.total", "aggregate": {"source": "$.items", "op": "sum", "field": "price"}}
		]
	}`)
	_, err := TransformBytes(context.Background(), []byte(`{"items": 5}`), tpl)
	require.Error(t, err)
	assert.True(t, IsAggregationError(err))
}

func TestTransformPreserveNullsWritesNullForMissingFrom(t *testing.T) {
	tpl := []byte(`{
		"settings": {"preserveNulls": true},
		"mappings": [
			{"to": "$.missing", "from": "$.doesNotExist"}
		]
	}`)
	res, err := TransformBytes(context.Background(), []byte(`{}`), tpl)
	require.NoError(t, err)
	v, ok := res.Output.Get("missing")
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestTransformOmitsFieldWhenNotPreservingNulls(t *testing.T) {
	tpl := []byte(`{
		"settings": {"preserveNulls": false},
		"mappings": [
			{"to": "$.missing", "from": "$.doesNotExist"}
		]
	}`)
	res, err := TransformBytes(context.Background(), []byte(`{}`), tpl)
	require.NoError(t, err)
	_, ok := res.Output.Get("missing")
	assert.False(t, ok)
}

func TestCompiledTemplateReuse(t *testing.T) {
	ct, err := Compile([]byte(`{"mappings":[{"to":"$.x","from":"$.a"}]}`))
	require.NoError(t, err)

	res1, err := ct.Apply([]byte(`{"a":1}`))
	require.NoError(t, err)
	res2, err := ct.Apply([]byte(`{"a":2}`))
	require.NoError(t, err)

	v1, _ := res1.Output.Get("x")
	v2, _ := res2.Output.Get("x")
	f1, _ := v1.AsFloat64()
	f2, _ := v2.AsFloat64()
	assert.Equal(t, 1.0, f1)
	assert.Equal(t, 2.0, f2)
	assert.NotEqual(t, res1.RunID, res2.RunID)
}

func TestTransformAsyncDeliversResult(t *testing.T) {
	tpl := []byte(`{"mappings":[{"to":"$.x","from":"$.a"}]}`)
	jt := NewJsonTransformer(MustCompileForTest(t, tpl))
	ch := jt.TransformAsync(context.Background(), []byte(`{"a":9}`))
	ar := <-ch
	require.NoError(t, ar.Err)
	v, _ := ar.Result.Output.Get("x")
	f, _ := v.AsFloat64()
	assert.Equal(t, 9.0, f)
}

func MustCompileForTest(t *testing.T, tplJSON []byte) *Template {
	t.Helper()
	tmpl, err := ParseTemplate(tplJSON)
	require.NoError(t, err)
	return tmpl
}

func TestValidateTemplateCatchesSyntaxError(t *testing.T) {
	_, err := ValidateTemplate([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, IsTemplateError(err))
}

func TestValidateTemplateCollectsEveryMappingError(t *testing.T) {
	tpl := []byte(`{
		"mappings": [
			{"to": "$.a"},
			{"to": "$.b", "from": "not a valid path"}
		]
	}`)
	errs, err := ValidateTemplate(tpl)
	require.NoError(t, err)
	require.Len(t, errs, 2)
}

func TestTransformStringEntryPoint(t *testing.T) {
	out, err := Transform(`{"a": 1}`, `{"mappings":[{"to":"$.x","from":"$.a"}]}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, out)
}
