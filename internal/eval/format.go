package eval

import (
	"strconv"
	"strings"

	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/value"
)

// evalFString evaluates an f-string's literal and expression parts in
// order and concatenates the results. Grounded on spec.md's f-string
// section; the conversion (!s/!r/!a) and format-spec mini-language are
// the same two knobs CPython's f-strings expose, scaled down to the
// subset this sandbox needs. Because every `{...}` segment was already
// parsed into a full sub-expression by internal/lang/parser.go (dotted
// attribute access, subscripts, and calls included), there's no separate
// "reject dangerous field references" pass to run here: the only call
// surface reachable through an expression is the same
// whitelisted-methods-only surface every other expression in the
// language goes through (see callBuiltinMethod), so a field reference
// can't do anything a plain statement couldn't already do.
func (ev *Evaluator) evalFString(e *lang.FStringExpr) (value.Value, error) {
	var sb strings.Builder
	for _, part := range e.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Literal)
			continue
		}
		v, err := ev.eval(part.Expr)
		if err != nil {
			return nil, err
		}
		rendered, err := formatValue(v, part.Conv, part.Spec)
		if err != nil {
			return nil, err
		}
		sb.WriteString(rendered)
	}
	return value.Str(sb.String()), nil
}

// formatValue applies an f-string's !conversion then :spec to a value.
func formatValue(v value.Value, conv byte, spec string) (string, error) {
	var s string
	switch conv {
	case 'r':
		s = repr(v)
	case 's':
		s = displayStr(v)
	case 'a':
		s = repr(v)
	default:
		s = displayStr(v)
	}
	if spec == "" {
		return s, nil
	}
	return applyFormatSpec(v, s, spec)
}

// applyFormatSpec implements the portion of Python's format mini-language
// in practical use for sandboxed scripts: fill/align, sign, width,
// precision (for floats) and a trailing type char (d/f/%/s).
func applyFormatSpec(v value.Value, plain string, spec string) (string, error) {
	fill := byte(' ')
	align := byte(0)
	rest := spec

	if len(rest) >= 2 && isAlignChar(rest[1]) {
		fill = rest[0]
		align = rest[1]
		rest = rest[2:]
	} else if len(rest) >= 1 && isAlignChar(rest[0]) {
		align = rest[0]
		rest = rest[1:]
	}

	sign := byte(0)
	if len(rest) > 0 && (rest[0] == '+' || rest[0] == '-' || rest[0] == ' ') {
		sign = rest[0]
		rest = rest[1:]
	}

	width := 0
	for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		width = width*10 + int(rest[0]-'0')
		rest = rest[1:]
	}

	precision := -1
	if len(rest) > 0 && rest[0] == '.' {
		rest = rest[1:]
		precision = 0
		for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
			precision = precision*10 + int(rest[0]-'0')
			rest = rest[1:]
		}
	}

	typ := byte(0)
	if len(rest) > 0 {
		typ = rest[0]
	}

	body := plain
	switch typ {
	case 'f':
		f, ok := asNumber(v)
		if !ok {
			return "", ticValueError("unknown format code 'f' for non-numeric value")
		}
		p := precision
		if p < 0 {
			p = 6
		}
		body = strconv.FormatFloat(f, 'f', p, 64)
	case '%':
		f, ok := asNumber(v)
		if !ok {
			return "", ticValueError("unknown format code '%%' for non-numeric value")
		}
		p := precision
		if p < 0 {
			p = 6
		}
		body = strconv.FormatFloat(f*100, 'f', p, 64) + "%"
	case 'd':
		i, ok := v.(value.Int)
		if !ok {
			return "", ticValueError("unknown format code 'd' for non-int value")
		}
		body = strconv.FormatInt(int64(i), 10)
	case 's', 0:
		body = plain
		if precision >= 0 && precision < len(body) {
			body = body[:precision]
		}
	}

	if sign == '+' {
		if f, ok := asNumber(v); ok && f >= 0 {
			body = "+" + body
		}
	}

	if width > len(body) {
		pad := width - len(body)
		switch align {
		case '<':
			return body + strings.Repeat(string(fill), pad), nil
		case '^':
			left := pad / 2
			right := pad - left
			return strings.Repeat(string(fill), left) + body + strings.Repeat(string(fill), right), nil
		case '>', '=':
			return strings.Repeat(string(fill), pad) + body, nil
		default:
			if isNumericType(v) {
				return strings.Repeat(string(fill), pad) + body, nil
			}
			return body + strings.Repeat(string(fill), pad), nil
		}
	}
	return body, nil
}

// evalStrFormat implements str.format(), grounded on spec.md's string-
// formatting section and hardened against the sandbox-escape vector
// original_source/tests/tic/eval/test_string_format_security.py exercises:
// unlike f-strings (whose `{...}` segments are parsed into full,
// whitelist-gated sub-expressions by internal/lang/parser.go), a
// .format() template is plain data the user can shape at will, so its
// field references get their own minimal grammar — name, then an optional
// `!conv`, then an optional `:spec` — with no attribute access, indexing,
// or calls permitted in the name. Any of `.`, `[`, `]`, `(`, `)` in a
// field name is rejected with a non-catchable EvalError before the field
// is ever resolved, closing off `'{0.__subclasses__}'.format(int)` and
// similar dunder-reaching payloads entirely rather than trying to
// blacklist specific dunder names.
func evalStrFormat(s value.Str, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	str := string(s)
	var sb strings.Builder
	autoIndex := 0
	i := 0
	for i < len(str) {
		c := str[i]
		switch {
		case c == '{' && i+1 < len(str) && str[i+1] == '{':
			sb.WriteByte('{')
			i += 2
		case c == '{':
			end := strings.IndexByte(str[i+1:], '}')
			if end < 0 {
				return nil, ticValueError("Single '{' encountered in format string")
			}
			field := str[i+1 : i+1+end]
			i = i + 1 + end + 1
			rendered, err := renderFormatField(field, args, kwargs, &autoIndex)
			if err != nil {
				return nil, err
			}
			sb.WriteString(rendered)
		case c == '}' && i+1 < len(str) && str[i+1] == '}':
			sb.WriteByte('}')
			i += 2
		case c == '}':
			return nil, ticValueError("Single '}' encountered in format string")
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return value.Str(sb.String()), nil
}

// renderFormatField resolves and renders one `{...}` field of a .format()
// template. The field-name segment is validated before any lookup happens,
// so a disallowed reference never gets as far as touching a real value.
func renderFormatField(field string, args []value.Value, kwargs map[string]value.Value, autoIndex *int) (string, error) {
	name := field
	var conv byte
	var spec string
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		spec = name[idx+1:]
		name = name[:idx]
	}
	if idx := strings.IndexByte(name, '!'); idx >= 0 {
		if idx+1 < len(name) {
			conv = name[idx+1]
		}
		name = name[:idx]
	}

	if strings.ContainsAny(name, ".[]()") {
		return "", newEvalErrorNoPos("Format string attribute access (%q) is not allowed", field)
	}

	var v value.Value
	switch {
	case name == "":
		if *autoIndex >= len(args) {
			return "", ticIndexError("Replacement index %d out of range for positional args tuple", *autoIndex)
		}
		v = args[*autoIndex]
		*autoIndex++
	case isAllDigits(name):
		idx, _ := strconv.Atoi(name)
		if idx < 0 || idx >= len(args) {
			return "", ticIndexError("Replacement index %d out of range for positional args tuple", idx)
		}
		v = args[idx]
	default:
		kv, ok := kwargs[name]
		if !ok {
			return "", ticKeyError("%q", name)
		}
		v = kv
	}

	return formatValue(v, conv, spec)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlignChar(b byte) bool { return b == '<' || b == '>' || b == '^' || b == '=' }

func isNumericType(v value.Value) bool {
	switch v.(type) {
	case value.Int, value.Float:
		return true
	default:
		return false
	}
}
