// Package analysis walks function and lambda bodies to find free variables:
// names read but never bound as a parameter or local assignment. The
// evaluator uses this at closure-creation time to decide which names from
// the defining scope must be captured rather than re-resolved against
// whatever scope the closure is later called from.
package analysis

import "github.com/ashenfad/tic-go/internal/lang"

// Free returns the set of free variable names referenced by a function
// body or lambda body, given its parameter list.
func Free(args lang.Arguments, body []lang.Stmt) map[string]bool {
	a := newAnalyzer()
	a.bindArgs(args)
	for _, s := range body {
		a.visitStmt(s)
	}
	return a.free()
}

// FreeExpr is the lambda-body variant: lambdas have a single expression
// body rather than a statement list.
func FreeExpr(args lang.Arguments, body lang.Expr) map[string]bool {
	a := newAnalyzer()
	a.bindArgs(args)
	a.visitExpr(body)
	return a.free()
}

type analyzer struct {
	bound   map[string]bool
	loaded  map[string]bool
	globals map[string]bool
}

func newAnalyzer() *analyzer {
	return &analyzer{
		bound:   map[string]bool{},
		loaded:  map[string]bool{},
		globals: map[string]bool{},
	}
}

func (a *analyzer) bindArgs(args lang.Arguments) {
	for _, n := range args.Args {
		a.bound[n] = true
	}
	for _, n := range args.KwOnlyArgs {
		a.bound[n] = true
	}
	if args.Vararg != "" {
		a.bound[args.Vararg] = true
	}
	if args.Kwarg != "" {
		a.bound[args.Kwarg] = true
	}
}

// free mirrors the Python analyzer's `free` property: loaded - bound - globals.
func (a *analyzer) free() map[string]bool {
	out := map[string]bool{}
	for n := range a.loaded {
		if a.bound[n] || a.globals[n] {
			continue
		}
		out[n] = true
	}
	return out
}

func (a *analyzer) load(name string) {
	if a.globals[name] {
		return
	}
	if !a.bound[name] {
		a.loaded[name] = true
	}
}

func (a *analyzer) store(name string) {
	a.bound[name] = true
}

func (a *analyzer) visitStmts(ss []lang.Stmt) {
	for _, s := range ss {
		a.visitStmt(s)
	}
}

func (a *analyzer) visitStmt(s lang.Stmt) {
	switch n := s.(type) {
	case *lang.ExprStmt:
		a.visitExpr(n.Value)
	case *lang.Assign:
		a.visitExpr(n.Value)
		for _, t := range n.Targets {
			a.visitTarget(t)
		}
	case *lang.AugAssign:
		// An augmented target is both read and written. The parser gives
		// the target Store context, so both visits below bind a Name
		// target rather than load it; since free() drops every bound
		// name, `x += 1` never makes x free (Python likewise treats x as
		// local there).
		a.visitExpr(n.Value)
		a.visitExpr(n.Target)
		a.visitTarget(n.Target)
	case *lang.Pass, *lang.Break, *lang.Continue:
		// no-op
	case *lang.Del:
		for _, t := range n.Targets {
			a.visitExpr(t)
		}
	case *lang.Return:
		if n.Value != nil {
			a.visitExpr(n.Value)
		}
	case *lang.Global:
		for _, name := range n.Names {
			a.globals[name] = true
		}
	case *lang.Nonlocal:
		// Nonlocal behaves like global for this analysis: not a free variable.
		for _, name := range n.Names {
			a.globals[name] = true
		}
	case *lang.If:
		a.visitExpr(n.Test)
		a.visitStmts(n.Body)
		a.visitStmts(n.Orelse)
	case *lang.While:
		a.visitExpr(n.Test)
		a.visitStmts(n.Body)
		a.visitStmts(n.Orelse)
	case *lang.For:
		a.visitExpr(n.Iter)
		a.visitTarget(n.Target)
		a.visitStmts(n.Body)
		a.visitStmts(n.Orelse)
	case *lang.FunctionDef:
		// Bind the function's own name in the current scope, then fold in
		// whatever remains free in the nested function.
		a.store(n.Name)
		nested := Free(n.Args, n.Body)
		for name := range nested {
			if !a.bound[name] {
				a.loaded[name] = true
			}
		}
	case *lang.ClassDef:
		a.store(n.Name)
		for _, base := range n.Bases {
			a.visitExpr(base)
		}
		for _, m := range n.Methods {
			nested := Free(m.Args, m.Body)
			for name := range nested {
				if !a.bound[name] {
					a.loaded[name] = true
				}
			}
		}
	case *lang.TryStmt:
		a.visitStmts(n.Body)
		for _, h := range n.Handlers {
			if h.Type != nil {
				a.visitExpr(h.Type)
			}
			if h.Name != "" {
				a.store(h.Name)
			}
			a.visitStmts(h.Body)
		}
		a.visitStmts(n.Orelse)
		a.visitStmts(n.Finally)
	case *lang.Raise:
		if n.Exc != nil {
			a.visitExpr(n.Exc)
		}
	case *lang.Import:
		for _, al := range n.Names {
			name := al.AsName
			if name == "" {
				name = al.Name
			}
			a.store(name)
		}
	case *lang.ImportFrom:
		for _, al := range n.Names {
			name := al.AsName
			if name == "" {
				name = al.Name
			}
			a.store(name)
		}
	}
}

func (a *analyzer) visitTarget(e lang.Expr) {
	switch n := e.(type) {
	case *lang.NameExpr:
		a.store(n.Id)
	case *lang.TupleExpr:
		for _, el := range n.Elts {
			a.visitTarget(el)
		}
	case *lang.ListExpr:
		for _, el := range n.Elts {
			a.visitTarget(el)
		}
	case *lang.AttributeExpr:
		a.visitExpr(n.Value)
	case *lang.SubscriptExpr:
		a.visitExpr(n.Value)
		a.visitExpr(n.Slice)
	}
}

func (a *analyzer) visitExpr(e lang.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *lang.NameExpr:
		switch n.Ctx {
		case lang.Store:
			a.store(n.Id)
		default:
			a.load(n.Id)
		}
	case *lang.ConstExpr:
		// no-op
	case *lang.FStringExpr:
		for _, part := range n.Parts {
			if part.Expr != nil {
				a.visitExpr(part.Expr)
			}
		}
	case *lang.ListExpr:
		for _, el := range n.Elts {
			a.visitExpr(el)
		}
	case *lang.TupleExpr:
		for _, el := range n.Elts {
			a.visitExpr(el)
		}
	case *lang.SetExpr:
		for _, el := range n.Elts {
			a.visitExpr(el)
		}
	case *lang.DictExpr:
		for _, k := range n.Keys {
			a.visitExpr(k)
		}
		for _, v := range n.Values {
			a.visitExpr(v)
		}
	case *lang.ListComp:
		a.visitComprehension(n.Elt, nil, n.Gens)
	case *lang.SetComp:
		a.visitComprehension(n.Elt, nil, n.Gens)
	case *lang.DictComp:
		a.visitComprehension(n.Key, n.Value, n.Gens)
	case *lang.BoolOpExpr:
		for _, v := range n.Values {
			a.visitExpr(v)
		}
	case *lang.BinOpExpr:
		a.visitExpr(n.Left)
		a.visitExpr(n.Right)
	case *lang.UnaryOpExpr:
		a.visitExpr(n.Operand)
	case *lang.CompareExpr:
		a.visitExpr(n.Left)
		a.visitExpr(n.Right)
	case *lang.IfExp:
		a.visitExpr(n.Test)
		a.visitExpr(n.Body)
		a.visitExpr(n.Orelse)
	case *lang.CallExpr:
		a.visitExpr(n.Func)
		for _, arg := range n.Args {
			a.visitExpr(arg)
		}
		for _, kw := range n.Keywords {
			a.visitExpr(kw.Value)
		}
	case *lang.AttributeExpr:
		a.visitExpr(n.Value)
	case *lang.SubscriptExpr:
		a.visitExpr(n.Value)
		a.visitExpr(n.Slice)
	case *lang.SliceExpr:
		if n.Lower != nil {
			a.visitExpr(n.Lower)
		}
		if n.Upper != nil {
			a.visitExpr(n.Upper)
		}
		if n.Step != nil {
			a.visitExpr(n.Step)
		}
	case *lang.LambdaExpr:
		nested := FreeExpr(n.Args, n.Body)
		for name := range nested {
			if !a.bound[name] {
				a.loaded[name] = true
			}
		}
	}
}

// visitComprehension handles the scoping quirk comprehensions introduce:
// the loop target(s) are bound only within the comprehension, but the first
// clause's iterable is evaluated in the enclosing scope. We approximate
// this (adequately for free-variable capture purposes) by visiting the
// first iterator before binding any target, then binding targets and
// visiting subsequent clauses and the element expression(s) in order.
func (a *analyzer) visitComprehension(elt, val lang.Expr, gens []lang.Comprehension) {
	for i, g := range gens {
		if i == 0 {
			a.visitExpr(g.Iter)
		} else {
			a.visitExpr(g.Iter)
		}
		a.visitTarget(g.Target)
		for _, cond := range g.Ifs {
			a.visitExpr(cond)
		}
	}
	a.visitExpr(elt)
	if val != nil {
		a.visitExpr(val)
	}
}
