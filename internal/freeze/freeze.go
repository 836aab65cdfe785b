// Package freeze converts the evaluator's live, unserializable objects
// (UserFunction, UserClass, UserInstance, DataObject, ModuleStub) into a
// storage-safe value.Value representation and back, so internal/state's
// versioned store never has to import internal/eval directly. Grounded on
// original_source/tic/eval/freezing.py's ObjectFreezer, adapted from its
// registry-of-handlers pattern (needed in Python because every frozen type
// lives in one dynamically-dispatched module) to a plain Go type switch,
// since Go's static typing makes the handler registry unnecessary.
package freeze

import (
	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/eval"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
)

// Tag keys used to mark a frozen eval object inside a plain value.Map, so
// Rehydrate can tell a frozen UserFunction apart from a user dict that
// merely happens to have a "name" key.
const (
	tagKey        = "__tic_frozen_type__"
	tagFunction   = "function"
	tagClass      = "class"
	tagInstance   = "instance"
	tagDataClass  = "dataclass"
	tagDataObject = "dataobject"
	tagModule     = "module"
)

// Freeze recursively converts v into a form codec.go's gob-friendly wire
// tree can represent, resolving live closures to static snapshots and
// dropping agent references. Matches state.Freezer's signature so it can
// be installed via state.Versioned.SetCodec. Grounded on freezing.py's
// ObjectFreezer.freeze, including its circular-reference guard (the
// original keys on Python object id(); here on pointer identity via a
// map keyed by the value itself for reference types).
func Freeze(v value.Value) value.Value {
	return freezeRecursive(v, map[any]bool{})
}

func freezeRecursive(v value.Value, visited map[any]bool) value.Value {
	if v == nil {
		return value.None
	}

	switch t := v.(type) {
	case *value.List:
		if visited[t] {
			return circularPlaceholder("list")
		}
		visited[t] = true
		defer delete(visited, t)
		out := make([]value.Value, len(t.Elems))
		for i, e := range t.Elems {
			out[i] = freezeRecursive(e, visited)
		}
		return &value.List{Elems: out}

	case value.Tuple:
		out := make([]value.Value, len(t.Elems))
		for i, e := range t.Elems {
			out[i] = freezeRecursive(e, visited)
		}
		return value.Tuple{Elems: out}

	case *value.Set:
		if visited[t] {
			return circularPlaceholder("set")
		}
		visited[t] = true
		defer delete(visited, t)
		out := value.NewSet()
		for _, e := range t.Elems {
			out.Add(freezeRecursive(e, visited))
		}
		return out

	case *value.Map:
		if visited[t] {
			return circularPlaceholder("dict")
		}
		visited[t] = true
		defer delete(visited, t)
		out := value.NewMap()
		for _, item := range t.Items() {
			out.Set(freezeRecursive(item.Key, visited), freezeRecursive(item.Val, visited))
		}
		return out

	case *eval.UserFunction:
		if visited[t] {
			return circularPlaceholder(tagFunction)
		}
		visited[t] = true
		defer delete(visited, t)
		return freezeUserFunction(t, visited)

	case *eval.UserClass:
		if visited[t] {
			return circularPlaceholder(tagClass)
		}
		visited[t] = true
		defer delete(visited, t)
		return freezeUserClass(t, visited)

	case *eval.UserInstance:
		if visited[t] {
			return circularPlaceholder(tagInstance)
		}
		visited[t] = true
		defer delete(visited, t)
		return freezeUserInstance(t, visited)

	case *eval.DataClass:
		return freezeDataClass(t)

	case *eval.DataObject:
		if visited[t] {
			return circularPlaceholder(tagDataObject)
		}
		visited[t] = true
		defer delete(visited, t)
		return freezeDataObject(t, visited)

	case *eval.ModuleStub:
		m := value.NewMap()
		m.Set(value.Str(tagKey), value.Str(tagModule))
		m.Set(value.Str("name"), value.Str(t.Name))
		return m

	default:
		return v
	}
}

func circularPlaceholder(kind string) value.Value {
	m := value.NewMap()
	m.Set(value.Str("__circular_ref__"), value.Bool(true))
	m.Set(value.Str("__obj_type__"), value.Str(kind))
	return m
}

func freezeUserFunction(fn *eval.UserFunction, visited map[any]bool) value.Value {
	closureSnapshot := value.NewMap()
	for _, item := range fn.ClosureState.Items() {
		closureSnapshot.Set(value.Str(item.Key), freezeRecursive(item.Val, visited))
	}
	m := value.NewMap()
	m.Set(value.Str(tagKey), value.Str(tagFunction))
	m.Set(value.Str("name"), value.Str(fn.Name))
	m.Set(value.Str("source"), eval.EncodeFunctionBody(fn))
	m.Set(value.Str("closure"), closureSnapshot)
	return m
}

func freezeUserClass(cls *eval.UserClass, visited map[any]bool) value.Value {
	methods := value.NewMap()
	for name, fn := range cls.Methods {
		methods.Set(value.Str(name), freezeUserFunction(fn, visited))
	}
	m := value.NewMap()
	m.Set(value.Str(tagKey), value.Str(tagClass))
	m.Set(value.Str("name"), value.Str(cls.Name))
	m.Set(value.Str("methods"), methods)
	return m
}

func freezeUserInstance(inst *eval.UserInstance, visited map[any]bool) value.Value {
	attrs := value.NewMap()
	for k, v := range inst.Attrs {
		attrs.Set(value.Str(k), freezeRecursive(v, visited))
	}
	m := value.NewMap()
	m.Set(value.Str(tagKey), value.Str(tagInstance))
	m.Set(value.Str("class"), freezeUserClass(inst.Cls, visited))
	m.Set(value.Str("attrs"), attrs)
	return m
}

func freezeDataClass(cls *eval.DataClass) value.Value {
	fields := make([]value.Value, len(cls.Fields))
	for i, f := range cls.Fields {
		fields[i] = value.Str(f)
	}
	m := value.NewMap()
	m.Set(value.Str(tagKey), value.Str(tagDataClass))
	m.Set(value.Str("name"), value.Str(cls.Name))
	m.Set(value.Str("fields"), &value.List{Elems: fields})
	return m
}

func freezeDataObject(obj *eval.DataObject, visited map[any]bool) value.Value {
	attrs := value.NewMap()
	for k, v := range obj.Attrs {
		attrs.Set(value.Str(k), freezeRecursive(v, visited))
	}
	m := value.NewMap()
	m.Set(value.Str(tagKey), value.Str(tagDataObject))
	m.Set(value.Str("class"), freezeDataClass(obj.Cls))
	m.Set(value.Str("attrs"), attrs)
	return m
}

// Rehydrate reverses Freeze, restoring live closures bound to the given
// Agent and reattaching whatever fingerprint that Agent carries. Matches
// state.Rehydrator's signature. Grounded on freezing.py's
// ObjectFreezer.rehydrate.
func Rehydrate(v value.Value, agentHandle any) value.Value {
	ag, _ := agentHandle.(*agent.Agent)
	return rehydrateRecursive(v, ag)
}

func rehydrateRecursive(v value.Value, ag *agent.Agent) value.Value {
	switch t := v.(type) {
	case *value.List:
		out := make([]value.Value, len(t.Elems))
		for i, e := range t.Elems {
			out[i] = rehydrateRecursive(e, ag)
		}
		return &value.List{Elems: out}
	case value.Tuple:
		out := make([]value.Value, len(t.Elems))
		for i, e := range t.Elems {
			out[i] = rehydrateRecursive(e, ag)
		}
		return value.Tuple{Elems: out}
	case *value.Set:
		out := value.NewSet()
		for _, e := range t.Elems {
			out.Add(rehydrateRecursive(e, ag))
		}
		return out
	case *value.Map:
		tag, _ := t.Get(value.Str(tagKey))
		tagStr, isTagged := tag.(value.Str)
		if !isTagged {
			if _, circular := t.Get(value.Str("__circular_ref__")); circular {
				return value.None
			}
			out := value.NewMap()
			for _, item := range t.Items() {
				out.Set(rehydrateRecursive(item.Key, ag), rehydrateRecursive(item.Val, ag))
			}
			return out
		}
		return rehydrateTagged(string(tagStr), t, ag)
	default:
		return v
	}
}

func rehydrateTagged(tag string, m *value.Map, ag *agent.Agent) value.Value {
	switch tag {
	case tagFunction:
		return rehydrateUserFunction(m, ag)
	case tagClass:
		return rehydrateUserClass(m, ag)
	case tagInstance:
		return rehydrateUserInstance(m, ag)
	case tagDataClass:
		return rehydrateDataClass(m)
	case tagDataObject:
		return rehydrateDataObject(m, ag)
	case tagModule:
		name, _ := m.Get(value.Str("name"))
		return &eval.ModuleStub{Name: string(name.(value.Str))}
	default:
		return m
	}
}

func rehydrateUserFunction(m *value.Map, ag *agent.Agent) value.Value {
	name, _ := m.Get(value.Str("name"))
	src, _ := m.Get(value.Str("source"))
	closureVal, _ := m.Get(value.Str("closure"))
	closureMap, _ := closureVal.(*value.Map)

	closure := state.NewEphemeral()
	if closureMap != nil {
		for _, item := range closureMap.Items() {
			key, ok := item.Key.(value.Str)
			if !ok {
				continue
			}
			closure.Set(string(key), rehydrateRecursive(item.Val, ag))
		}
	}

	fn, err := eval.DecodeFunctionBody(src, string(name.(value.Str)), closure)
	if err != nil {
		return m
	}
	if ag != nil {
		fn.AgentFingerprint = ag.Fingerprint
	}
	return fn
}

func rehydrateUserClass(m *value.Map, ag *agent.Agent) *eval.UserClass {
	name, _ := m.Get(value.Str("name"))
	methodsVal, _ := m.Get(value.Str("methods"))
	methodsMap, _ := methodsVal.(*value.Map)

	cls := &eval.UserClass{Name: string(name.(value.Str)), Methods: map[string]*eval.UserFunction{}}
	if methodsMap != nil {
		for _, item := range methodsMap.Items() {
			key, ok := item.Key.(value.Str)
			if !ok {
				continue
			}
			if fnMap, ok := item.Val.(*value.Map); ok {
				if fn, ok := rehydrateUserFunction(fnMap, ag).(*eval.UserFunction); ok {
					cls.Methods[string(key)] = fn
				}
			}
		}
	}
	return cls
}

func rehydrateUserInstance(m *value.Map, ag *agent.Agent) value.Value {
	clsVal, _ := m.Get(value.Str("class"))
	clsMap, ok := clsVal.(*value.Map)
	if !ok {
		return m
	}
	cls := rehydrateUserClass(clsMap, ag)

	attrsVal, _ := m.Get(value.Str("attrs"))
	attrsMap, _ := attrsVal.(*value.Map)
	attrs := map[string]value.Value{}
	if attrsMap != nil {
		for _, item := range attrsMap.Items() {
			if key, ok := item.Key.(value.Str); ok {
				attrs[string(key)] = rehydrateRecursive(item.Val, ag)
			}
		}
	}
	return &eval.UserInstance{Cls: cls, Attrs: attrs}
}

func rehydrateDataClass(m *value.Map) *eval.DataClass {
	name, _ := m.Get(value.Str("name"))
	fieldsVal, _ := m.Get(value.Str("fields"))
	fieldsList, _ := fieldsVal.(*value.List)
	var fields []string
	if fieldsList != nil {
		for _, f := range fieldsList.Elems {
			if s, ok := f.(value.Str); ok {
				fields = append(fields, string(s))
			}
		}
	}
	return &eval.DataClass{Name: string(name.(value.Str)), Fields: fields}
}

func rehydrateDataObject(m *value.Map, ag *agent.Agent) value.Value {
	clsVal, _ := m.Get(value.Str("class"))
	clsMap, ok := clsVal.(*value.Map)
	if !ok {
		return m
	}
	cls := rehydrateDataClass(clsMap)

	attrsVal, _ := m.Get(value.Str("attrs"))
	attrsMap, _ := attrsVal.(*value.Map)
	attrs := map[string]value.Value{}
	if attrsMap != nil {
		for _, item := range attrsMap.Items() {
			if key, ok := item.Key.(value.Str); ok {
				attrs[string(key)] = rehydrateRecursive(item.Val, ag)
			}
		}
	}
	return &eval.DataObject{Cls: cls, Attrs: attrs}
}
