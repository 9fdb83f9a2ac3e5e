package jsontransform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSumAndAvg(t *testing.T) {
	root := mustParseJSON(t, `{"items":[{"price":10},{"price":20},{"price":30}]}`)
	ctx := newEvalCtx(root, false)

	sum, err := Aggregate(ctx, AggregationSpec{Source: "$.items", Op: "sum", Field: "price"})
	require.NoError(t, err)
	f, _ := sum.AsFloat64()
	assert.Equal(t, 60.0, f)

	avg, err := Aggregate(ctx, AggregationSpec{Source: "$.items", Op: "avg", Field: "price"})
	require.NoError(t, err)
	f, _ = avg.AsFloat64()
	assert.Equal(t, 20.0, f)
}

func TestAggregateCountIgnoresField(t *testing.T) {
	root := mustParseJSON(t, `{"items":[1,2,3,4]}`)
	v, err := Aggregate(newEvalCtx(root, false), AggregationSpec{Source: "$.items", Op: "count", Field: "price"})
	require.NoError(t, err)
	f, _ := v.AsFloat64()
	assert.Equal(t, 4.0, f)
}

func TestAggregateMinMax(t *testing.T) {
	root := mustParseJSON(t, `{"items":[{"n":5},{"n":1},{"n":9}]}`)
	ctx := newEvalCtx(root, false)
	min, err := Aggregate(ctx, AggregationSpec{Source: "$.items", Op: "min", Field: "n"})
	require.NoError(t, err)
	f, _ := min.AsFloat64()
	assert.Equal(t, 1.0, f)

	max, err := Aggregate(ctx, AggregationSpec{Source: "$.items", Op: "max", Field: "n"})
	require.NoError(t, err)
	f, _ = max.AsFloat64()
	assert.Equal(t, 9.0, f)
}

func TestAggregateMinMaxLexicographicOnStrings(t *testing.T) {
	root := mustParseJSON(t, `{"names":["Charlie","Alice","Bob"]}`)
	ctx := newEvalCtx(root, false)
	min, err := Aggregate(ctx, AggregationSpec{Source: "$.names", Op: "min"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", min.Str)

	max, err := Aggregate(ctx, AggregationSpec{Source: "$.names", Op: "max"})
	require.NoError(t, err)
	assert.Equal(t, "Charlie", max.Str)
}

func TestAggregateJoin(t *testing.T) {
	root := mustParseJSON(t, `{"tags":["a","b","c"]}`)
	v, err := Aggregate(newEvalCtx(root, false), AggregationSpec{Source: "$.tags", Op: "join", Sep: "-"})
	require.NoError(t, err)
	assert.Equal(t, "a-b-c", v.Str)
}

func TestAggregateFilterUsesItemFrame(t *testing.T) {
	root := mustParseJSON(t, `{"items":[{"price":10,"active":true},{"price":20,"active":false},{"price":30,"active":true}]}`)
	filter, err := ParseExpression("$.item.active == true")
	require.NoError(t, err)
	v, err := Aggregate(newEvalCtx(root, false), AggregationSpec{Source: "$.items", Op: "sum", Field: "price", Filter: filter})
	require.NoError(t, err)
	f, _ := v.AsFloat64()
	assert.Equal(t, 40.0, f)
}

func TestAggregateEmptySourceNonStrict(t *testing.T) {
	root := mustParseJSON(t, `{"items":[]}`)
	ctx := newEvalCtx(root, false)
	v, err := Aggregate(ctx, AggregationSpec{Source: "$.items", Op: "sum"})
	require.NoError(t, err)
	f, _ := v.AsFloat64()
	assert.Equal(t, 0.0, f)

	v, err = Aggregate(ctx, AggregationSpec{Source: "$.items", Op: "avg"})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestAggregateUnknownOperation(t *testing.T) {
	root := mustParseJSON(t, `{"items":[1,2]}`)
	_, err := Aggregate(newEvalCtx(root, false), AggregationSpec{Source: "$.items", Op: "bogus"})
	require.Error(t, err)
	assert.True(t, IsAggregationError(err))
}

func TestAggregateNonArraySourceStrict(t *testing.T) {
	root := mustParseJSON(t, `{"items":5}`)
	_, err := Aggregate(newEvalCtx(root, true), AggregationSpec{Source: "$.items", Op: "sum"})
	require.Error(t, err)
	assert.True(t, IsAggregationError(err))
}
