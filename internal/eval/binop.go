package eval

import (
	"math"

	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/value"
)

// evalBinOp dispatches a BinOp node's operator against a pair of already
// evaluated operands. Grounded on original_source/tic/eval/binop.py's
// OPERATOR_MAP; the grammar only ever produces the operator tokens below
// (no floor-division or bit-shift operators are lexed, matching the
// original's OPERATOR_MAP which never maps them either).
func evalBinOp(node *lang.BinOpExpr, left, right value.Value) (value.Value, error) {
	switch node.Op {
	case lang.TokPlus:
		return opAdd(left, right)
	case lang.TokMinus:
		return opSub(left, right)
	case lang.TokStar:
		return opMul(left, right)
	case lang.TokSlash:
		return opTrueDiv(left, right)
	case lang.TokPercent:
		return opMod(left, right)
	case lang.TokDoubleStar:
		return opPow(left, right)
	case lang.TokAmp:
		return opBitAnd(left, right)
	case lang.TokPipe:
		return opBitOr(left, right)
	case lang.TokCaret:
		return opBitXor(left, right)
	default:
		return nil, ticTypeError("unsupported operator")
	}
}

func numOperands(op string, left, right value.Value) (float64, float64, bool, error) {
	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if !lok || !rok {
		return 0, 0, false, ticTypeError("unsupported operand type(s) for %s: '%s' and '%s'", op, left.Type(), right.Type())
	}
	_, lInt := left.(value.Int)
	_, lBool := left.(value.Bool)
	_, rInt := right.(value.Int)
	_, rBool := right.(value.Bool)
	bothInt := (lInt || lBool) && (rInt || rBool)
	return lf, rf, bothInt, nil
}

func asNumber(v value.Value) (float64, bool) {
	switch t := v.(type) {
	case value.Int:
		return float64(t), true
	case value.Float:
		return float64(t), true
	case value.Bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func opAdd(left, right value.Value) (value.Value, error) {
	if ls, ok := left.(value.Str); ok {
		if rs, ok := right.(value.Str); ok {
			return ls + rs, nil
		}
		return nil, ticTypeError("can only concatenate str (not %q) to str", right.Type())
	}
	if ll, ok := left.(*value.List); ok {
		if rl, ok := right.(*value.List); ok {
			combined := append(append([]value.Value{}, ll.Elems...), rl.Elems...)
			return &value.List{Elems: combined}, nil
		}
		return nil, ticTypeError(`can only concatenate list (not "%s") to list`, right.Type())
	}
	if lt, ok := left.(value.Tuple); ok {
		if rt, ok := right.(value.Tuple); ok {
			combined := append(append([]value.Value{}, lt.Elems...), rt.Elems...)
			return value.Tuple{Elems: combined}, nil
		}
		return nil, ticTypeError("can only concatenate tuple (not %q) to tuple", right.Type())
	}
	lf, rf, bothInt, err := numOperands("+", left, right)
	if err != nil {
		return nil, err
	}
	if bothInt {
		return value.Int(int64(lf) + int64(rf)), nil
	}
	return value.Float(lf + rf), nil
}

func opSub(left, right value.Value) (value.Value, error) {
	if ls, ok := left.(*value.Set); ok {
		if rs, ok := right.(*value.Set); ok {
			return ls.Difference(rs), nil
		}
	}
	lf, rf, bothInt, err := numOperands("-", left, right)
	if err != nil {
		return nil, err
	}
	if bothInt {
		return value.Int(int64(lf) - int64(rf)), nil
	}
	return value.Float(lf - rf), nil
}

func opMul(left, right value.Value) (value.Value, error) {
	if ls, ok := left.(value.Str); ok {
		if ri, ok := right.(value.Int); ok {
			return value.Str(repeatStr(string(ls), int(ri))), nil
		}
	}
	if ri, ok := left.(value.Int); ok {
		if rs, ok := right.(value.Str); ok {
			return value.Str(repeatStr(string(rs), int(ri))), nil
		}
	}
	if ll, ok := left.(*value.List); ok {
		if ri, ok := right.(value.Int); ok {
			return &value.List{Elems: repeatSlice(ll.Elems, int(ri))}, nil
		}
	}
	if ri, ok := left.(value.Int); ok {
		if rl, ok := right.(*value.List); ok {
			return &value.List{Elems: repeatSlice(rl.Elems, int(ri))}, nil
		}
	}
	lf, rf, bothInt, err := numOperands("*", left, right)
	if err != nil {
		return nil, err
	}
	if bothInt {
		return value.Int(int64(lf) * int64(rf)), nil
	}
	return value.Float(lf * rf), nil
}

func repeatStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func repeatSlice(elems []value.Value, n int) []value.Value {
	if n <= 0 {
		return nil
	}
	out := make([]value.Value, 0, len(elems)*n)
	for i := 0; i < n; i++ {
		out = append(out, elems...)
	}
	return out
}

func opTrueDiv(left, right value.Value) (value.Value, error) {
	lf, rf, _, err := numOperands("/", left, right)
	if err != nil {
		return nil, err
	}
	if rf == 0 {
		return nil, ticValueError("division by zero")
	}
	return value.Float(lf / rf), nil
}

func opMod(left, right value.Value) (value.Value, error) {
	lf, rf, bothInt, err := numOperands("%", left, right)
	if err != nil {
		return nil, err
	}
	if rf == 0 {
		return nil, ticValueError("modulo by zero")
	}
	m := math.Mod(lf, rf)
	if m != 0 && (m < 0) != (rf < 0) {
		m += rf
	}
	if bothInt {
		return value.Int(int64(m)), nil
	}
	return value.Float(m), nil
}

func opPow(left, right value.Value) (value.Value, error) {
	lf, rf, bothInt, err := numOperands("**", left, right)
	if err != nil {
		return nil, err
	}
	result := math.Pow(lf, rf)
	if bothInt && rf >= 0 {
		return value.Int(int64(result)), nil
	}
	return value.Float(result), nil
}

func asIntOperands(op string, left, right value.Value) (int64, int64, error) {
	li, lok := left.(value.Int)
	lb, lbok := left.(value.Bool)
	ri, rok := right.(value.Int)
	rb, rbok := right.(value.Bool)
	var lv, rv int64
	if lok {
		lv = int64(li)
	} else if lbok {
		if lb {
			lv = 1
		}
	} else {
		return 0, 0, ticTypeError("unsupported operand type(s) for %s: '%s' and '%s'", op, left.Type(), right.Type())
	}
	if rok {
		rv = int64(ri)
	} else if rbok {
		if rb {
			rv = 1
		}
	} else {
		return 0, 0, ticTypeError("unsupported operand type(s) for %s: '%s' and '%s'", op, left.Type(), right.Type())
	}
	return lv, rv, nil
}

func opBitAnd(left, right value.Value) (value.Value, error) {
	if ls, ok := left.(*value.Set); ok {
		if rs, ok := right.(*value.Set); ok {
			return ls.Intersection(rs), nil
		}
	}
	l, r, err := asIntOperands("&", left, right)
	if err != nil {
		return nil, err
	}
	return value.Int(l & r), nil
}

func opBitOr(left, right value.Value) (value.Value, error) {
	if ls, ok := left.(*value.Set); ok {
		if rs, ok := right.(*value.Set); ok {
			return ls.Union(rs), nil
		}
	}
	l, r, err := asIntOperands("|", left, right)
	if err != nil {
		return nil, err
	}
	return value.Int(l | r), nil
}

func opBitXor(left, right value.Value) (value.Value, error) {
	if ls, ok := left.(*value.Set); ok {
		if rs, ok := right.(*value.Set); ok {
			return ls.SymmetricDifference(rs), nil
		}
	}
	l, r, err := asIntOperands("^", left, right)
	if err != nil {
		return nil, err
	}
	return value.Int(l ^ r), nil
}

// evalUnaryOp dispatches a UnaryOp node. Grounded on binop.py's
// UNARY_OPERATOR_MAP.
func evalUnaryOp(node *lang.UnaryOpExpr, operand value.Value) (value.Value, error) {
	switch node.Op {
	case lang.TokMinus:
		switch t := operand.(type) {
		case value.Int:
			return -t, nil
		case value.Float:
			return -t, nil
		case value.Bool:
			if t {
				return value.Int(-1), nil
			}
			return value.Int(0), nil
		default:
			return nil, ticTypeError("bad operand type for unary -: '%s'", operand.Type())
		}
	case lang.TokPlus:
		switch t := operand.(type) {
		case value.Int:
			return t, nil
		case value.Float:
			return t, nil
		case value.Bool:
			if t {
				return value.Int(1), nil
			}
			return value.Int(0), nil
		default:
			return nil, ticTypeError("bad operand type for unary +: '%s'", operand.Type())
		}
	case lang.TokNot:
		return value.Bool(!value.Truthy(operand)), nil
	case lang.TokTilde:
		i, ok := operand.(value.Int)
		if !ok {
			if b, ok := operand.(value.Bool); ok {
				if b {
					i = 1
				} else {
					i = 0
				}
			} else {
				return nil, ticTypeError("bad operand type for unary ~: '%s'", operand.Type())
			}
		}
		return value.Int(^int64(i)), nil
	default:
		return nil, ticTypeError("unsupported unary operator")
	}
}

// evalCompareOp dispatches a single (non-chained) comparison; CompareExpr
// only ever carries one operator/right-hand side, so chained comparisons
// like `1 < x < 10` are rejected structurally at parse time (matching the
// original's explicit len(node.ops) != 1 check in visit_Compare).
func evalCompareOp(op lang.TokenKind, left, right value.Value) (value.Value, error) {
	switch op {
	case lang.TokEq:
		return value.Bool(value.Equal(left, right)), nil
	case lang.TokNotEq:
		return value.Bool(!value.Equal(left, right)), nil
	case lang.TokLt, lang.TokLtE, lang.TokGt, lang.TokGtE:
		return compareOrdered(op, left, right)
	case lang.TokIn:
		return containsValue(right, left)
	case lang.TokNotIn:
		b, err := containsValue(right, left)
		if err != nil {
			return nil, err
		}
		return value.Bool(!bool(b.(value.Bool))), nil
	case lang.TokIs:
		return value.Bool(sameIdentity(left, right)), nil
	case lang.TokIsNot:
		return value.Bool(!sameIdentity(left, right)), nil
	default:
		return nil, ticTypeError("unsupported comparison operator")
	}
}

func compareOrdered(op lang.TokenKind, left, right value.Value) (value.Value, error) {
	opName := opSymbol(op)
	if ls, ok := left.(value.Str); ok {
		if rs, ok := right.(value.Str); ok {
			return value.Bool(compareStrs(op, string(ls), string(rs))), nil
		}
		return nil, ticTypeError("'%s' not supported between instances of 'str' and '%s'", opName, right.Type())
	}
	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if !lok || !rok {
		return nil, ticTypeError("'%s' not supported between instances of '%s' and '%s'", opName, left.Type(), right.Type())
	}
	switch op {
	case lang.TokLt:
		return value.Bool(lf < rf), nil
	case lang.TokLtE:
		return value.Bool(lf <= rf), nil
	case lang.TokGt:
		return value.Bool(lf > rf), nil
	case lang.TokGtE:
		return value.Bool(lf >= rf), nil
	}
	return nil, ticTypeError("unsupported comparison operator")
}

func opSymbol(op lang.TokenKind) string {
	switch op {
	case lang.TokLt:
		return "<"
	case lang.TokLtE:
		return "<="
	case lang.TokGt:
		return ">"
	case lang.TokGtE:
		return ">="
	default:
		return "?"
	}
}

func compareStrs(op lang.TokenKind, l, r string) bool {
	switch op {
	case lang.TokLt:
		return l < r
	case lang.TokLtE:
		return l <= r
	case lang.TokGt:
		return l > r
	case lang.TokGtE:
		return l >= r
	}
	return false
}

func containsValue(container, item value.Value) (value.Value, error) {
	switch c := container.(type) {
	case value.Str:
		if s, ok := item.(value.Str); ok {
			return value.Bool(contains(string(c), string(s))), nil
		}
		return nil, ticTypeError("'in <string>' requires string as left operand, not %s", item.Type())
	case *value.List:
		for _, v := range c.Elems {
			if value.Equal(v, item) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case value.Tuple:
		for _, v := range c.Elems {
			if value.Equal(v, item) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case *value.Set:
		return value.Bool(c.Contains(item)), nil
	case *value.Map:
		_, ok := c.Get(item)
		return value.Bool(ok), nil
	default:
		return nil, ticTypeError("argument of type '%s' is not iterable", container.Type())
	}
}

func contains(s, sub string) bool {
	if len(sub) == 0 {
		return true
	}
	if len(s) < len(sub) {
		return false
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// sameIdentity mirrors Python `is` for the sandbox's value model: atoms
// (None/bool/int/float/str) compare by value since the sandbox never
// exposes object identity for them, while reference types compare by
// pointer.
func sameIdentity(left, right value.Value) bool {
	switch l := left.(type) {
	case value.Null:
		_, ok := right.(value.Null)
		return ok
	case value.Bool:
		r, ok := right.(value.Bool)
		return ok && l == r
	case value.Int:
		r, ok := right.(value.Int)
		return ok && l == r
	case value.Float:
		r, ok := right.(value.Float)
		return ok && l == r
	case value.Str:
		r, ok := right.(value.Str)
		return ok && l == r
	case *value.List:
		r, ok := right.(*value.List)
		return ok && l == r
	case *value.Set:
		r, ok := right.(*value.Set)
		return ok && l == r
	case *value.Map:
		r, ok := right.(*value.Map)
		return ok && l == r
	default:
		return left == right
	}
}
