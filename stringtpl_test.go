package jsontransform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplateSubstitutesPaths(t *testing.T) {
	root := mustParseJSON(t, `{"first":"Ada","last":"Lovelace"}`)
	out, err := RenderTemplate("{$.first} {$.last}", root, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", out)
}

func TestRenderTemplateEscapesDoubleBraces(t *testing.T) {
	root := mustParseJSON(t, `{}`)
	out, err := RenderTemplate("{{literal}}", root, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "{literal}", out)
}

func TestRenderTemplateMissingPathNonStrict(t *testing.T) {
	root := mustParseJSON(t, `{}`)
	out, err := RenderTemplate("value: {$.missing}", root, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "value: ", out)
}

func TestRenderTemplateNowPlaceholder(t *testing.T) {
	root := mustParseJSON(t, `{}`)
	out, err := RenderTemplate("{now}", root, nil, false)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "T"), "expected an RFC3339-ish timestamp, got %q", out)
}

func TestRenderTemplateItemFrame(t *testing.T) {
	item := mustParseJSON(t, `{"sku":"ABC123"}`)
	frames := map[string]JsonValue{"item": item}
	out, err := RenderTemplate("sku={$.item.sku}", mustParseJSON(t, `{}`), frames, false)
	require.NoError(t, err)
	assert.Equal(t, "sku=ABC123", out)
}

func TestRenderTemplateUnterminatedBraceIsError(t *testing.T) {
	_, err := RenderTemplate("{$.a", mustParseJSON(t, `{"a":1}`), nil, false)
	require.Error(t, err)
	assert.True(t, IsTemplateError(err))
}
