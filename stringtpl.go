package jsontransform

import (
	"strings"
	"time"
)

// RenderTemplate expands a "{path}"/"{{literal}}" template string against
// root per spec §4.E: "{{" and "}}" escape to literal braces, "{now}" is the
// current UTC timestamp, and anything else inside a single pair of braces is
// parsed as a path and stringified.
func RenderTemplate(tpl string, root JsonValue, frames map[string]JsonValue, strict bool) (string, error) {
	var out strings.Builder
	i := 0
	n := len(tpl)
	for i < n {
		c := tpl[i]
		switch {
		case c == '{' && i+1 < n && tpl[i+1] == '{':
			out.WriteByte('{')
			i += 2
		case c == '}' && i+1 < n && tpl[i+1] == '}':
			out.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(tpl[i:], '}')
			if end < 0 {
				return "", &Error{Code: ErrTemplateError, Message: "unterminated '{' in template string"}
			}
			expr := strings.TrimSpace(tpl[i+1 : i+end])
			val, err := renderPlaceholder(expr, root, frames, strict)
			if err != nil {
				if strict {
					return "", err
				}
				val = ""
			}
			out.WriteString(val)
			i += end + 1
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

func renderPlaceholder(expr string, root JsonValue, frames map[string]JsonValue, strict bool) (string, error) {
	if expr == "now" {
		return nowPlaceholder(), nil
	}
	p, err := ParsePath(expr)
	if err != nil {
		return "", err
	}
	ctx := &evalCtx{root: root, frames: frames, strict: strict}
	matches, err := ctx.resolvePath(p)
	if err != nil {
		return "", err
	}
	v, ok := ResolveSingle(matches)
	if !ok {
		return "", nil
	}
	return Stringify(v), nil
}

// nowPlaceholder renders the reserved "now" token (spec §6 "Reserved
// tokens") as an ISO-8601 UTC timestamp with millisecond precision.
func nowPlaceholder() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// validateTemplateString checks a concat template string's syntax and every
// path placeholder it contains, without evaluating it against any document
// (spec §4.H "all ... strings parse successfully" extended to concat
// templates). The "now" placeholder is accepted without a path lookup.
func validateTemplateString(tpl string) error {
	i := 0
	n := len(tpl)
	for i < n {
		c := tpl[i]
		switch {
		case c == '{' && i+1 < n && tpl[i+1] == '{':
			i += 2
		case c == '}' && i+1 < n && tpl[i+1] == '}':
			i += 2
		case c == '{':
			end := strings.IndexByte(tpl[i:], '}')
			if end < 0 {
				return &Error{Code: ErrTemplateError, Message: "unterminated '{' in template string"}
			}
			expr := strings.TrimSpace(tpl[i+1 : i+end])
			if expr != "now" {
				if _, err := ParsePath(expr); err != nil {
					return err
				}
			}
			i += end + 1
		default:
			i++
		}
	}
	return nil
}
