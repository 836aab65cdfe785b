package state

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/ashenfad/tic-go/internal/value"
)

// wire is the durable, interface-free representation a value.Value is
// converted to before being gob-encoded for long-term storage (encoding/gob
// is the serialization nakama itself reaches for around its storage layer,
// e.g. core_storage.go's "encoding/gob" import for jsonpatch values). Using
// a concrete struct tree instead of encoding value.Value directly sidesteps
// gob's interface-registration ceremony entirely.
type wire struct {
	Kind string

	I int64
	F float64
	B bool
	S string

	Elems []wire // List, Tuple, PrintTuple, Set

	Keys []wire // Map
	Vals []wire
}

func toWire(v value.Value) wire {
	switch t := v.(type) {
	case value.Int:
		return wire{Kind: "int", I: int64(t)}
	case value.Float:
		return wire{Kind: "float", F: float64(t)}
	case value.Bool:
		return wire{Kind: "bool", B: bool(t)}
	case value.Str:
		return wire{Kind: "str", S: string(t)}
	case value.Null:
		return wire{Kind: "null"}
	case *value.List:
		return wire{Kind: "list", Elems: toWireSlice(t.Elems)}
	case value.Tuple:
		return wire{Kind: "tuple", Elems: toWireSlice(t.Elems)}
	case value.PrintTuple:
		return wire{Kind: "printtuple", Elems: toWireSlice(t.Elems)}
	case *value.Set:
		elems := make([]wire, 0, t.Len())
		for _, e := range t.Elems {
			elems = append(elems, toWire(e))
		}
		return wire{Kind: "set", Elems: elems}
	case *value.Map:
		items := t.Items()
		keys := make([]wire, len(items))
		vals := make([]wire, len(items))
		for i, it := range items {
			keys[i] = toWire(it.Key)
			vals[i] = toWire(it.Val)
		}
		return wire{Kind: "map", Keys: keys, Vals: vals}
	default:
		panic(fmt.Sprintf("state: %T is not serializable to long-term storage; the freeze hook should have run first", v))
	}
}

func toWireSlice(vs []value.Value) []wire {
	out := make([]wire, len(vs))
	for i, v := range vs {
		out[i] = toWire(v)
	}
	return out
}

func fromWire(w wire) value.Value {
	switch w.Kind {
	case "int":
		return value.Int(w.I)
	case "float":
		return value.Float(w.F)
	case "bool":
		return value.Bool(w.B)
	case "str":
		return value.Str(w.S)
	case "null":
		return value.None
	case "list":
		return &value.List{Elems: fromWireSlice(w.Elems)}
	case "tuple":
		return value.Tuple{Elems: fromWireSlice(w.Elems)}
	case "printtuple":
		return value.PrintTuple{Tuple: value.Tuple{Elems: fromWireSlice(w.Elems)}}
	case "set":
		s := value.NewSet()
		for _, e := range w.Elems {
			s.Add(fromWire(e))
		}
		return s
	case "map":
		m := value.NewMap()
		for i := range w.Keys {
			m.Set(fromWire(w.Keys[i]), fromWire(w.Vals[i]))
		}
		return m
	default:
		panic("state: corrupt wire value, unknown kind " + w.Kind)
	}
}

func fromWireSlice(ws []wire) []value.Value {
	out := make([]value.Value, len(ws))
	for i, w := range ws {
		out[i] = fromWire(w)
	}
	return out
}

func encodeValue(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toWire(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(data []byte) (value.Value, error) {
	var w wire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, err
	}
	return fromWire(w), nil
}

// encodeStrMap/decodeStrMap persist the string->string commit-key mapping
// using the same gob codec; encodeStr/decodeStr store a plain string (the
// parent-commit pointer) as its raw bytes.
func encodeStrMap(m map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeStrMap(data []byte) (map[string]string, error) {
	var m map[string]string
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeStr(s string) []byte { return []byte(s) }
func decodeStr(b []byte) string { return string(b) }
