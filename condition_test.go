package jsontransform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustExpr(t *testing.T, s string) *Expr {
	t.Helper()
	e, err := ParseExpression(s)
	require.NoError(t, err)
	return e
}

func strVal(s string) *JsonValue {
	v := NewString(s)
	return &v
}

// TestConditionAgeMinorAdult mirrors the age-bracket classification scenario:
// age 17 should classify as "Minor".
func TestConditionAgeMinorAdult(t *testing.T) {
	root := mustParseJSON(t, `{"age":17}`)
	conds := []Condition{
		{
			If:   mustExpr(t, "$.age >= 65"),
			Then: Branch{Value: strVal("Senior")},
			ElseIfs: []Condition{
				{If: mustExpr(t, "$.age >= 18"), Then: Branch{Value: strVal("Adult")}},
			},
			Else: &Branch{Value: strVal("Minor")},
		},
	}
	ctx := newEvalCtx(root, false)
	v, matched, err := evalConditionList(conds, ctx)
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, "Minor", v.Str)
}

func TestConditionElseIfTriedBeforeElse(t *testing.T) {
	root := mustParseJSON(t, `{"age":40}`)
	conds := []Condition{
		{
			If:   mustExpr(t, "$.age >= 65"),
			Then: Branch{Value: strVal("Senior")},
			ElseIfs: []Condition{
				{If: mustExpr(t, "$.age >= 18"), Then: Branch{Value: strVal("Adult")}},
			},
			Else: &Branch{Value: strVal("Minor")},
		},
	}
	v, matched, err := evalConditionList(conds, newEvalCtx(root, false))
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, "Adult", v.Str)
}

func TestConditionCatchAllAlwaysMatches(t *testing.T) {
	conds := []Condition{
		{CatchAll: true, Then: Branch{Value: strVal("always")}},
	}
	v, matched, err := evalConditionList(conds, newEvalCtx(mustParseJSON(t, `{}`), false))
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, "always", v.Str)
}

func TestConditionListFallsThroughWhenNoneMatch(t *testing.T) {
	conds := []Condition{
		{If: mustExpr(t, "$.x == 1"), Then: Branch{Value: strVal("one")}},
	}
	_, matched, err := evalConditionList(conds, newEvalCtx(mustParseJSON(t, `{"x":2}`), false))
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestConditionSecondListEntryTriedAfterFirstMisses(t *testing.T) {
	conds := []Condition{
		{If: mustExpr(t, "$.x == 1"), Then: Branch{Value: strVal("one")}},
		{If: mustExpr(t, "$.x == 2"), Then: Branch{Value: strVal("two")}},
	}
	v, matched, err := evalConditionList(conds, newEvalCtx(mustParseJSON(t, `{"x":2}`), false))
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, "two", v.Str)
}

// TestConditionElseRecursesIntoNestedCondition exercises spec §4.F's
// recursive else form: {if, then, else: {if, then, else}}.
func TestConditionElseRecursesIntoNestedCondition(t *testing.T) {
	nested := Condition{
		If:   mustExpr(t, "$.age >= 18"),
		Then: Branch{Value: strVal("Adult")},
		Else: &Branch{Value: strVal("Minor")},
	}
	conds := []Condition{
		{
			If:   mustExpr(t, "$.age >= 65"),
			Then: Branch{Value: strVal("Senior")},
			Else: &Branch{Nested: &nested},
		},
	}
	v, matched, err := evalConditionList(conds, newEvalCtx(mustParseJSON(t, `{"age":10}`), false))
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, "Minor", v.Str)
}

// TestConditionThenResolvesPathReference exercises a bare path-string
// "then" branch (spec §4.F item 2).
func TestConditionThenResolvesPathReference(t *testing.T) {
	conds := []Condition{
		{CatchAll: true, Then: Branch{Path: "$.name"}},
	}
	v, matched, err := evalConditionList(conds, newEvalCtx(mustParseJSON(t, `{"name":"Ada"}`), false))
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, "Ada", v.Str)
}
