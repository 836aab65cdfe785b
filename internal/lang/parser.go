package lang

import (
	"fmt"
	"strconv"
)

// Parser is a recursive-descent parser producing a Module AST from a token
// stream. Precedence climbing handles binary operators; everything else
// follows the shape of Python's grammar closely enough for the restricted
// subset the evaluator supports.
type Parser struct {
	toks []Token
	pos  int
}

func Parse(src string) (*Module, error) {
	lx := NewLexer(src)
	toks, err := lx.LexAll()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	mod, err := p.parseModule()
	if err != nil {
		return nil, err
	}
	return mod, nil
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) at(k TokenKind) bool { return p.cur().Kind == k }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	if !p.at(k) {
		return Token{}, p.errf("expected token %v, got %v %q", k, p.cur().Kind, p.cur().Lit)
	}
	return p.advance(), nil
}

func (p *Parser) errf(format string, args ...any) error {
	t := p.cur()
	return fmt.Errorf("syntax error at line %d, col %d: %s", t.Line, t.Col, fmt.Sprintf(format, args...))
}

func (p *Parser) skipNewlines() {
	for p.at(TokNewline) || p.at(TokSemicolon) {
		p.advance()
	}
}

func (p *Parser) parseModule() (*Module, error) {
	m := &Module{}
	p.skipNewlines()
	for !p.at(TokEOF) {
		stmts, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		m.Body = append(m.Body, stmts...)
		p.skipNewlines()
	}
	return m, nil
}

// parseBlock parses an indented block: NEWLINE INDENT stmt+ DEDENT.
func (p *Parser) parseBlock() ([]Stmt, error) {
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	if p.at(TokNewline) {
		p.skipNewlines()
		if _, err := p.expect(TokIndent); err != nil {
			return nil, err
		}
		var body []Stmt
		for !p.at(TokDedent) && !p.at(TokEOF) {
			stmts, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			body = append(body, stmts...)
			p.skipNewlines()
		}
		if p.at(TokDedent) {
			p.advance()
		}
		return body, nil
	}
	// Simple single-line body: `if x: y = 1`
	stmts, err := p.parseSimpleStatementLine()
	if err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseStatement parses one logical line, which may contain several
// semicolon-separated simple statements, or one compound statement.
func (p *Parser) parseStatement() ([]Stmt, error) {
	switch p.cur().Kind {
	case TokIf:
		s, err := p.parseIf()
		return []Stmt{s}, err
	case TokWhile:
		s, err := p.parseWhile()
		return []Stmt{s}, err
	case TokFor:
		s, err := p.parseFor()
		return []Stmt{s}, err
	case TokDef:
		s, err := p.parseFunctionDef()
		return []Stmt{s}, err
	case TokClass:
		s, err := p.parseClassDef(nil)
		return []Stmt{s}, err
	case TokTry:
		s, err := p.parseTry()
		return []Stmt{s}, err
	case TokAt:
		return p.parseDecorated()
	default:
		return p.parseSimpleStatementLine()
	}
}

func (p *Parser) parseDecorated() ([]Stmt, error) {
	var decorators []Expr
	for p.at(TokAt) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, e)
		p.skipNewlines()
	}
	if !p.at(TokClass) {
		return nil, p.errf("decorators are only supported on class definitions")
	}
	s, err := p.parseClassDef(decorators)
	return []Stmt{s}, err
}

// parseSimpleStatementLine parses one or more semicolon-separated simple
// statements terminated by a newline (or EOF/DEDENT for a single-line
// compound-statement body).
func (p *Parser) parseSimpleStatementLine() ([]Stmt, error) {
	var out []Stmt
	for {
		s, err := p.parseSimpleStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if p.at(TokSemicolon) {
			p.advance()
			if p.at(TokNewline) || p.at(TokEOF) || p.at(TokDedent) {
				break
			}
			continue
		}
		break
	}
	if p.at(TokNewline) {
		p.advance()
	}
	return out, nil
}

func (p *Parser) parseSimpleStatement() (Stmt, error) {
	t := p.cur()
	switch t.Kind {
	case TokPass:
		p.advance()
		return &Pass{baseStmt{pos{t.Line, t.Col}}}, nil
	case TokBreak:
		p.advance()
		return &Break{baseStmt{pos{t.Line, t.Col}}}, nil
	case TokContinue:
		p.advance()
		return &Continue{baseStmt{pos{t.Line, t.Col}}}, nil
	case TokReturn:
		p.advance()
		if p.at(TokNewline) || p.at(TokSemicolon) || p.at(TokEOF) || p.at(TokDedent) {
			return &Return{baseStmt: baseStmt{pos{t.Line, t.Col}}}, nil
		}
		v, err := p.parseExprListAsTupleOrSingle()
		if err != nil {
			return nil, err
		}
		return &Return{baseStmt{pos{t.Line, t.Col}}, v}, nil
	case TokDel:
		p.advance()
		var targets []Expr
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			targets = append(targets, e)
			if p.at(TokComma) {
				p.advance()
				continue
			}
			break
		}
		return &Del{baseStmt{pos{t.Line, t.Col}}, targets}, nil
	case TokRaise:
		p.advance()
		if p.at(TokNewline) || p.at(TokSemicolon) || p.at(TokEOF) {
			return &Raise{baseStmt: baseStmt{pos{t.Line, t.Col}}}, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Raise{baseStmt{pos{t.Line, t.Col}}, e}, nil
	case TokImport:
		return p.parseImport()
	case TokFrom:
		return p.parseImportFrom()
	case TokGlobal:
		p.advance()
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		return &Global{baseStmt{pos{t.Line, t.Col}}, names}, nil
	case TokNonlocal:
		p.advance()
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		return &Nonlocal{baseStmt{pos{t.Line, t.Col}}, names}, nil
	default:
		return p.parseExprOrAssignStatement()
	}
}

func (p *Parser) parseNameList() ([]string, error) {
	var names []string
	for {
		n, err := p.expect(TokName)
		if err != nil {
			return nil, err
		}
		names = append(names, n.Lit)
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	return names, nil
}

func (p *Parser) parseImport() (Stmt, error) {
	t := p.advance() // 'import'
	var aliases []ImportAlias
	for {
		name, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		alias := ImportAlias{Name: name}
		if p.at(TokAs) {
			p.advance()
			as, err := p.expect(TokName)
			if err != nil {
				return nil, err
			}
			alias.AsName = as.Lit
		}
		aliases = append(aliases, alias)
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	return &Import{baseStmt{pos{t.Line, t.Col}}, aliases}, nil
}

func (p *Parser) parseDottedName() (string, error) {
	n, err := p.expect(TokName)
	if err != nil {
		return "", err
	}
	name := n.Lit
	for p.at(TokDot) {
		p.advance()
		n2, err := p.expect(TokName)
		if err != nil {
			return "", err
		}
		name += "." + n2.Lit
	}
	return name, nil
}

func (p *Parser) parseImportFrom() (Stmt, error) {
	t := p.advance() // 'from'
	module, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokImport); err != nil {
		return nil, err
	}
	var aliases []ImportAlias
	paren := false
	if p.at(TokLParen) {
		paren = true
		p.advance()
	}
	if p.at(TokStar) {
		p.advance()
		aliases = append(aliases, ImportAlias{Name: "*"})
	} else {
		for {
			n, err := p.expect(TokName)
			if err != nil {
				return nil, err
			}
			alias := ImportAlias{Name: n.Lit}
			if p.at(TokAs) {
				p.advance()
				as, err := p.expect(TokName)
				if err != nil {
					return nil, err
				}
				alias.AsName = as.Lit
			}
			aliases = append(aliases, alias)
			if p.at(TokComma) {
				p.advance()
				continue
			}
			break
		}
	}
	if paren {
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
	}
	return &ImportFrom{baseStmt{pos{t.Line, t.Col}}, module, aliases}, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	t := p.advance() // 'if'
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := &If{baseStmt{pos{t.Line, t.Col}}, test, body, nil}
	if p.at(TokElif) {
		et := p.cur()
		p.advance()
		elifTest, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elifBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		// Recurse to consume any further elif/else as the nested if's orelse.
		nested := &If{baseStmt{pos{et.Line, et.Col}}, elifTest, elifBody, nil}
		if err := p.parseElifElseInto(nested); err != nil {
			return nil, err
		}
		node.Orelse = []Stmt{nested}
		return node, nil
	}
	if p.at(TokElse) {
		p.advance()
		elseBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		node.Orelse = elseBody
	}
	return node, nil
}

func (p *Parser) parseElifElseInto(node *If) error {
	if p.at(TokElif) {
		et := p.cur()
		p.advance()
		test, err := p.parseExpr()
		if err != nil {
			return err
		}
		body, err := p.parseBlock()
		if err != nil {
			return err
		}
		nested := &If{baseStmt{pos{et.Line, et.Col}}, test, body, nil}
		if err := p.parseElifElseInto(nested); err != nil {
			return err
		}
		node.Orelse = []Stmt{nested}
		return nil
	}
	if p.at(TokElse) {
		p.advance()
		body, err := p.parseBlock()
		if err != nil {
			return err
		}
		node.Orelse = body
	}
	return nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	t := p.advance()
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var orelse []Stmt
	if p.at(TokElse) {
		p.advance()
		orelse, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return &While{baseStmt{pos{t.Line, t.Col}}, test, body, orelse}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	t := p.advance()
	target, err := p.parseTargetList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokIn); err != nil {
		return nil, err
	}
	iter, err := p.parseExprListAsTupleOrSingle()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var orelse []Stmt
	if p.at(TokElse) {
		p.advance()
		orelse, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return &For{baseStmt{pos{t.Line, t.Col}}, target, iter, body, orelse}, nil
}

// parseTargetList parses a `for` loop target: a name, or a (possibly nested)
// tuple of names, e.g. `for k, v in ...` or `for (a, b), c in ...`.
func (p *Parser) parseTargetList() (Expr, error) {
	first, err := p.parseTargetAtom()
	if err != nil {
		return nil, err
	}
	if !p.at(TokComma) {
		return first, nil
	}
	elts := []Expr{first}
	for p.at(TokComma) {
		p.advance()
		if p.at(TokIn) {
			break
		}
		e, err := p.parseTargetAtom()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	ln, col := first.Pos()
	return &TupleExpr{baseExpr{pos{ln, col}}, elts}, nil
}

func (p *Parser) parseTargetAtom() (Expr, error) {
	if p.at(TokLParen) {
		p.advance()
		inner, err := p.parseTargetList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}
	t, err := p.expect(TokName)
	if err != nil {
		return nil, err
	}
	return &NameExpr{baseExpr{pos{t.Line, t.Col}}, t.Lit, Store}, nil
}

func (p *Parser) parseFunctionDef() (Stmt, error) {
	t := p.advance() // 'def'
	name, err := p.expect(TokName)
	if err != nil {
		return nil, err
	}
	args, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if p.at(TokArrow) {
		p.advance()
		if _, err := p.parseExpr(); err != nil { // return annotation, discarded
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FunctionDef{baseStmt{pos{t.Line, t.Col}}, name.Lit, args, body}, nil
}

func (p *Parser) parseParamList() (Arguments, error) {
	var args Arguments
	if _, err := p.expect(TokLParen); err != nil {
		return args, err
	}
	seenStar := false
	for !p.at(TokRParen) {
		if p.at(TokDoubleStar) {
			p.advance()
			n, err := p.expect(TokName)
			if err != nil {
				return args, err
			}
			args.Kwarg = n.Lit
		} else if p.at(TokStar) {
			p.advance()
			seenStar = true
			if p.at(TokName) {
				n := p.advance()
				args.Vararg = n.Lit
			}
		} else {
			n, err := p.expect(TokName)
			if err != nil {
				return args, err
			}
			if p.at(TokColon) { // type annotation, discarded
				p.advance()
				if _, err := p.parseOrTest(); err != nil {
					return args, err
				}
			}
			var def Expr
			if p.at(TokAssign) {
				p.advance()
				e, err := p.parseExpr()
				if err != nil {
					return args, err
				}
				def = e
			}
			if seenStar {
				args.KwOnlyArgs = append(args.KwOnlyArgs, n.Lit)
				args.KwDefaults = append(args.KwDefaults, def)
			} else {
				args.Args = append(args.Args, n.Lit)
				if def != nil {
					args.Defaults = append(args.Defaults, def)
				}
			}
		}
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokRParen); err != nil {
		return args, err
	}
	return args, nil
}

func (p *Parser) parseClassDef(decorators []Expr) (Stmt, error) {
	t := p.advance() // 'class'
	name, err := p.expect(TokName)
	if err != nil {
		return nil, err
	}
	var bases []Expr
	if p.at(TokLParen) {
		p.advance()
		for !p.at(TokRParen) {
			b, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			bases = append(bases, b)
			if p.at(TokComma) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
	}

	isDataclass := false
	for _, d := range decorators {
		if n, ok := d.(*NameExpr); ok && n.Id == "dataclass" {
			isDataclass = true
		}
	}

	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(TokIndent); err != nil {
		return nil, err
	}

	cd := &ClassDef{baseStmt: baseStmt{pos{t.Line, t.Col}}, Name: name.Lit, Decorators: decorators, Bases: bases, IsDataclass: isDataclass}

	for !p.at(TokDedent) && !p.at(TokEOF) {
		switch {
		case p.at(TokDef):
			fn, err := p.parseFunctionDef()
			if err != nil {
				return nil, err
			}
			cd.Methods = append(cd.Methods, fn.(*FunctionDef))
		case p.at(TokName):
			// AnnAssign field: `x: int` (dataclass field declaration).
			n := p.advance()
			if _, err := p.expect(TokColon); err != nil {
				return nil, err
			}
			if _, err := p.parseOrTest(); err != nil { // type annotation, discarded
				return nil, err
			}
			if p.at(TokAssign) { // default value, discarded (not modeled in spec)
				p.advance()
				if _, err := p.parseExpr(); err != nil {
					return nil, err
				}
			}
			cd.Fields = append(cd.Fields, FieldDef{Name: n.Lit})
			p.skipNewlines()
		case p.at(TokPass):
			p.advance()
			p.skipNewlines()
		default:
			return nil, p.errf("unsupported statement in class body")
		}
	}
	if p.at(TokDedent) {
		p.advance()
	}
	return cd, nil
}

func (p *Parser) parseTry() (Stmt, error) {
	t := p.advance() // 'try'
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	ts := &TryStmt{baseStmt: baseStmt{pos{t.Line, t.Col}}, Body: body}
	for p.at(TokExcept) {
		p.advance()
		var h ExceptHandler
		if !p.at(TokColon) {
			typ, err := p.parseOrTest()
			if err != nil {
				return nil, err
			}
			h.Type = typ
			if p.at(TokAs) {
				p.advance()
				n, err := p.expect(TokName)
				if err != nil {
					return nil, err
				}
				h.Name = n.Lit
			}
		}
		hbody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		h.Body = hbody
		ts.Handlers = append(ts.Handlers, h)
	}
	if p.at(TokElse) {
		p.advance()
		orelse, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		ts.Orelse = orelse
	}
	if p.at(TokFinally) {
		p.advance()
		fin, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		ts.Finally = fin
	}
	return ts, nil
}

// parseExprOrAssignStatement handles plain expression statements, simple and
// chained assignments, augmented assignment, and tuple-destructuring
// assignment.
func (p *Parser) parseExprOrAssignStatement() (Stmt, error) {
	startLine, startCol := p.cur().Line, p.cur().Col
	first, err := p.parseExprListAsTupleOrSingle()
	if err != nil {
		return nil, err
	}

	if augOp, ok := augAssignOp(p.cur().Kind); ok {
		p.advance()
		rhs, err := p.parseExprListAsTupleOrSingle()
		if err != nil {
			return nil, err
		}
		return &AugAssign{baseStmt{pos{startLine, startCol}}, toStoreCtx(first), augOp, rhs}, nil
	}

	if p.at(TokAssign) {
		targets := []Expr{toStoreCtx(first)}
		var value Expr
		for p.at(TokAssign) {
			p.advance()
			v, err := p.parseExprListAsTupleOrSingle()
			if err != nil {
				return nil, err
			}
			value = v
			if p.at(TokAssign) {
				targets = append(targets, toStoreCtx(value))
			}
		}
		return &Assign{baseStmt{pos{startLine, startCol}}, targets, value}, nil
	}

	return &ExprStmt{baseStmt{pos{startLine, startCol}}, first}, nil
}

func augAssignOp(k TokenKind) (TokenKind, bool) {
	switch k {
	case TokPlusEq:
		return TokPlus, true
	case TokMinusEq:
		return TokMinus, true
	case TokStarEq:
		return TokStar, true
	case TokSlashEq:
		return TokSlash, true
	case TokPercentEq:
		return TokPercent, true
	}
	return 0, false
}

// toStoreCtx rewrites a Name/Tuple/Attribute/Subscript expression's Ctx to
// Store, for use as an assignment target.
func toStoreCtx(e Expr) Expr {
	switch t := e.(type) {
	case *NameExpr:
		t.Ctx = Store
		return t
	case *TupleExpr:
		for i, el := range t.Elts {
			t.Elts[i] = toStoreCtx(el)
		}
		return t
	case *ListExpr:
		for i, el := range t.Elts {
			t.Elts[i] = toStoreCtx(el)
		}
		return &TupleExpr{t.baseExpr, t.Elts}
	case *AttributeExpr:
		t.Ctx = Store
		return t
	case *SubscriptExpr:
		t.Ctx = Store
		return t
	default:
		return e
	}
}

// parseExprListAsTupleOrSingle parses a comma-separated expression list and
// returns a single Expr, or a TupleExpr if more than one was found (used for
// bare-tuple assignment / return / for-iter contexts).
func (p *Parser) parseExprListAsTupleOrSingle() (Expr, error) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.at(TokComma) {
		return first, nil
	}
	elts := []Expr{first}
	for p.at(TokComma) {
		p.advance()
		if p.at(TokAssign) || p.at(TokNewline) || p.at(TokEOF) || p.at(TokColon) {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	ln, col := first.Pos()
	return &TupleExpr{baseExpr{pos{ln, col}}, elts}, nil
}

// ---- Expression grammar (precedence climbing) ----

func (p *Parser) parseExpr() (Expr, error) {
	if p.at(TokLambda) {
		return p.parseLambda()
	}
	return p.parseTernary()
}

func (p *Parser) parseLambda() (Expr, error) {
	t := p.advance()
	var args Arguments
	for !p.at(TokColon) {
		n, err := p.expect(TokName)
		if err != nil {
			return nil, err
		}
		var def Expr
		if p.at(TokAssign) {
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			def = e
		}
		args.Args = append(args.Args, n.Lit)
		if def != nil {
			args.Defaults = append(args.Defaults, def)
		}
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &LambdaExpr{baseExpr{pos{t.Line, t.Col}}, args, body}, nil
}

func (p *Parser) parseTernary() (Expr, error) {
	body, err := p.parseOrTest()
	if err != nil {
		return nil, err
	}
	if p.at(TokIf) {
		p.advance()
		test, err := p.parseOrTest()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokElse); err != nil {
			return nil, err
		}
		orelse, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ln, col := body.Pos()
		return &IfExp{baseExpr{pos{ln, col}}, test, body, orelse}, nil
	}
	return body, nil
}

func (p *Parser) parseOrTest() (Expr, error) {
	left, err := p.parseAndTest()
	if err != nil {
		return nil, err
	}
	if !p.at(TokOr) {
		return left, nil
	}
	ln, col := left.Pos()
	values := []Expr{left}
	for p.at(TokOr) {
		p.advance()
		v, err := p.parseAndTest()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &BoolOpExpr{baseExpr{pos{ln, col}}, TokOr, values}, nil
}

func (p *Parser) parseAndTest() (Expr, error) {
	left, err := p.parseNotTest()
	if err != nil {
		return nil, err
	}
	if !p.at(TokAnd) {
		return left, nil
	}
	ln, col := left.Pos()
	values := []Expr{left}
	for p.at(TokAnd) {
		p.advance()
		v, err := p.parseNotTest()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &BoolOpExpr{baseExpr{pos{ln, col}}, TokAnd, values}, nil
}

func (p *Parser) parseNotTest() (Expr, error) {
	if p.at(TokNot) {
		t := p.advance()
		operand, err := p.parseNotTest()
		if err != nil {
			return nil, err
		}
		return &UnaryOpExpr{baseExpr{pos{t.Line, t.Col}}, TokNot, operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	op, ok, err := p.maybeCompareOp()
	if err != nil {
		return nil, err
	}
	if !ok {
		return left, nil
	}
	right, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	ln, col := left.Pos()
	node := &CompareExpr{baseExpr{pos{ln, col}}, left, op, right}
	// A second comparison operator here would be a chained comparison,
	// which the sandbox explicitly refuses (spec 4.3: "chained comparison
	// is refused (single op only)").
	if _, ok2, _ := p.maybeCompareOp(); ok2 {
		return nil, p.errf("chained comparisons are not supported")
	}
	return node, nil
}

func (p *Parser) maybeCompareOp() (TokenKind, bool, error) {
	switch p.cur().Kind {
	case TokEq, TokNotEq, TokLt, TokLtE, TokGt, TokGtE:
		return p.advance().Kind, true, nil
	case TokIn:
		p.advance()
		return TokIn, true, nil
	case TokNot:
		// `not in`
		save := p.pos
		p.advance()
		if p.at(TokIn) {
			p.advance()
			return TokNotIn, true, nil
		}
		p.pos = save
		return 0, false, nil
	case TokIs:
		p.advance()
		if p.at(TokNot) {
			p.advance()
			return TokIsNot, true, nil
		}
		return TokIs, true, nil
	}
	return 0, false, nil
}

func (p *Parser) parseBitOr() (Expr, error) {
	left, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for p.at(TokPipe) {
		t := p.advance()
		right, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		left = &BinOpExpr{baseExpr{pos{t.Line, t.Col}}, left, TokPipe, right}
	}
	return left, nil
}

func (p *Parser) parseBitXor() (Expr, error) {
	left, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.at(TokCaret) {
		t := p.advance()
		right, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		left = &BinOpExpr{baseExpr{pos{t.Line, t.Col}}, left, TokCaret, right}
	}
	return left, nil
}

func (p *Parser) parseBitAnd() (Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for p.at(TokAmp) {
		t := p.advance()
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		left = &BinOpExpr{baseExpr{pos{t.Line, t.Col}}, left, TokAmp, right}
	}
	return left, nil
}

func (p *Parser) parseAddSub() (Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.at(TokPlus) || p.at(TokMinus) {
		t := p.advance()
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = &BinOpExpr{baseExpr{pos{t.Line, t.Col}}, left, t.Kind, right}
	}
	return left, nil
}

func (p *Parser) parseMulDiv() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(TokStar) || p.at(TokSlash) || p.at(TokPercent) {
		t := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinOpExpr{baseExpr{pos{t.Line, t.Col}}, left, t.Kind, right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.at(TokMinus) || p.at(TokPlus) || p.at(TokTilde) {
		t := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := map[TokenKind]TokenKind{TokMinus: TokMinus, TokPlus: TokPlus, TokTilde: TokTilde}[t.Kind]
		return &UnaryOpExpr{baseExpr{pos{t.Line, t.Col}}, op, operand}, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.at(TokDoubleStar) {
		t := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinOpExpr{baseExpr{pos{t.Line, t.Col}}, left, TokDoubleStar, right}, nil
	}
	return left, nil
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(TokDot):
			t := p.advance()
			n, err := p.expect(TokName)
			if err != nil {
				return nil, err
			}
			expr = &AttributeExpr{baseExpr{pos{t.Line, t.Col}}, expr, n.Lit, Load}
		case p.at(TokLParen):
			t := p.advance()
			args, kwargs, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{baseExpr{pos{t.Line, t.Col}}, expr, args, kwargs}
		case p.at(TokLBracket):
			t := p.advance()
			sub, err := p.parseSubscriptBody()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
			expr = &SubscriptExpr{baseExpr{pos{t.Line, t.Col}}, expr, sub, Load}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCallArgs() ([]Expr, []Keyword, error) {
	var args []Expr
	var kwargs []Keyword
	for !p.at(TokRParen) {
		if p.at(TokName) && p.peekIsAssignAfterName() {
			n := p.advance()
			p.advance() // '='
			v, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, Keyword{Name: n.Lit, Value: v})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, e)
		}
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, nil, err
	}
	return args, kwargs, nil
}

func (p *Parser) peekIsAssignAfterName() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+1].Kind == TokAssign
}

func (p *Parser) parseSubscriptBody() (Expr, error) {
	var lower, upper, step Expr
	var err error
	isSlice := false

	if !p.at(TokColon) {
		lower, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if p.at(TokColon) {
		isSlice = true
		p.advance()
		if !p.at(TokColon) && !p.at(TokRBracket) {
			upper, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if p.at(TokColon) {
			p.advance()
			if !p.at(TokRBracket) {
				step, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
			}
		}
	}
	if isSlice {
		ln, col := 0, 0
		if lower != nil {
			ln, col = lower.Pos()
		}
		return &SliceExpr{baseExpr{pos{ln, col}}, lower, upper, step}, nil
	}
	return lower, nil
}

func (p *Parser) parseAtom() (Expr, error) {
	t := p.cur()
	switch t.Kind {
	case TokInt:
		p.advance()
		v, _ := strconv.ParseInt(t.Lit, 10, 64)
		return &ConstExpr{baseExpr{pos{t.Line, t.Col}}, TokInt, v, 0, ""}, nil
	case TokFloat:
		p.advance()
		v, _ := strconv.ParseFloat(t.Lit, 64)
		return &ConstExpr{baseExpr{pos{t.Line, t.Col}}, TokFloat, 0, v, ""}, nil
	case TokString:
		p.advance()
		lit := t.Lit
		for p.at(TokString) { // implicit adjacent string concatenation
			lit += p.advance().Lit
		}
		return &ConstExpr{baseExpr{pos{t.Line, t.Col}}, TokString, 0, 0, lit}, nil
	case TokFString:
		p.advance()
		return p.parseFStringContent(t)
	case TokTrue:
		p.advance()
		return &ConstExpr{baseExpr{pos{t.Line, t.Col}}, TokTrue, 0, 0, ""}, nil
	case TokFalse:
		p.advance()
		return &ConstExpr{baseExpr{pos{t.Line, t.Col}}, TokFalse, 0, 0, ""}, nil
	case TokNone:
		p.advance()
		return &ConstExpr{baseExpr{pos{t.Line, t.Col}}, TokNone, 0, 0, ""}, nil
	case TokName:
		p.advance()
		return &NameExpr{baseExpr{pos{t.Line, t.Col}}, t.Lit, Load}, nil
	case TokLParen:
		return p.parseParenOrTuple()
	case TokLBracket:
		return p.parseListOrListComp()
	case TokLBrace:
		return p.parseSetOrDictOrComp()
	}
	return nil, p.errf("unexpected token %v %q", t.Kind, t.Lit)
}

func (p *Parser) parseParenOrTuple() (Expr, error) {
	t := p.advance() // '('
	if p.at(TokRParen) {
		p.advance()
		return &TupleExpr{baseExpr{pos{t.Line, t.Col}}, nil}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(TokFor) {
		gens, err := p.parseComprehensionClauses()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		// Generator expressions are evaluated eagerly into a list, which is
		// sufficient for this sandbox's iteration semantics.
		return &ListComp{baseExpr{pos{t.Line, t.Col}}, first, gens}, nil
	}
	if p.at(TokComma) {
		elts := []Expr{first}
		for p.at(TokComma) {
			p.advance()
			if p.at(TokRParen) {
				break
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elts = append(elts, e)
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return &TupleExpr{baseExpr{pos{t.Line, t.Col}}, elts}, nil
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return first, nil
}

func (p *Parser) parseListOrListComp() (Expr, error) {
	t := p.advance() // '['
	if p.at(TokRBracket) {
		p.advance()
		return &ListExpr{baseExpr{pos{t.Line, t.Col}}, nil}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(TokFor) {
		gens, err := p.parseComprehensionClauses()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return nil, err
		}
		return &ListComp{baseExpr{pos{t.Line, t.Col}}, first, gens}, nil
	}
	elts := []Expr{first}
	for p.at(TokComma) {
		p.advance()
		if p.at(TokRBracket) {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	return &ListExpr{baseExpr{pos{t.Line, t.Col}}, elts}, nil
}

func (p *Parser) parseSetOrDictOrComp() (Expr, error) {
	t := p.advance() // '{'
	if p.at(TokRBrace) {
		p.advance()
		return &DictExpr{baseExpr{pos{t.Line, t.Col}}, nil, nil}, nil
	}
	firstKey, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(TokColon) {
		p.advance()
		firstVal, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.at(TokFor) {
			gens, err := p.parseComprehensionClauses()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBrace); err != nil {
				return nil, err
			}
			return &DictComp{baseExpr{pos{t.Line, t.Col}}, firstKey, firstVal, gens}, nil
		}
		keys := []Expr{firstKey}
		vals := []Expr{firstVal}
		for p.at(TokComma) {
			p.advance()
			if p.at(TokRBrace) {
				break
			}
			k, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokColon); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			vals = append(vals, v)
		}
		if _, err := p.expect(TokRBrace); err != nil {
			return nil, err
		}
		return &DictExpr{baseExpr{pos{t.Line, t.Col}}, keys, vals}, nil
	}

	if p.at(TokFor) {
		gens, err := p.parseComprehensionClauses()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRBrace); err != nil {
			return nil, err
		}
		return &SetComp{baseExpr{pos{t.Line, t.Col}}, firstKey, gens}, nil
	}

	elts := []Expr{firstKey}
	for p.at(TokComma) {
		p.advance()
		if p.at(TokRBrace) {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &SetExpr{baseExpr{pos{t.Line, t.Col}}, elts}, nil
}

func (p *Parser) parseComprehensionClauses() ([]Comprehension, error) {
	var gens []Comprehension
	for p.at(TokFor) {
		p.advance()
		target, err := p.parseTargetList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokIn); err != nil {
			return nil, err
		}
		iter, err := p.parseOrTest()
		if err != nil {
			return nil, err
		}
		comp := Comprehension{Target: target, Iter: iter}
		for p.at(TokIf) {
			p.advance()
			cond, err := p.parseOrTest()
			if err != nil {
				return nil, err
			}
			comp.Ifs = append(comp.Ifs, cond)
		}
		gens = append(gens, comp)
	}
	return gens, nil
}

// parseFStringContent re-lexes an f-string's raw text for {expr[!conv][:spec]}
// segments, recursively parsing each expression with a fresh Parser.
func (p *Parser) parseFStringContent(t Token) (Expr, error) {
	raw := []rune(t.Lit)
	var parts []FStringPart
	var lit []rune
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '{' {
			if i+1 < len(raw) && raw[i+1] == '{' {
				lit = append(lit, '{')
				i += 2
				continue
			}
			if len(lit) > 0 {
				parts = append(parts, FStringPart{Literal: string(lit)})
				lit = nil
			}
			depth := 1
			j := i + 1
			for j < len(raw) && depth > 0 {
				if raw[j] == '{' {
					depth++
				} else if raw[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			if depth != 0 {
				return nil, p.errf("unterminated f-string expression")
			}
			segment := string(raw[i+1 : j])
			part, err := parseFStringSegment(segment)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
			i = j + 1
			continue
		}
		if c == '}' && i+1 < len(raw) && raw[i+1] == '}' {
			lit = append(lit, '}')
			i += 2
			continue
		}
		lit = append(lit, c)
		i++
	}
	if len(lit) > 0 {
		parts = append(parts, FStringPart{Literal: string(lit)})
	}
	return &FStringExpr{baseExpr{pos{t.Line, t.Col}}, parts}, nil
}

// parseFStringSegment splits `expr[!conv][:spec]` and parses expr with a
// fresh sub-parser. The security pass (format.go) runs later over the
// resulting Expr, for both f-strings and `.format()` templates.
func parseFStringSegment(segment string) (FStringPart, error) {
	exprText := segment
	spec := ""
	conv := byte(0)

	// Split off a format spec at a top-level ':' (not inside brackets).
	depth := 0
	specIdx := -1
	for i, c := range segment {
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				specIdx = i
			}
		}
		if specIdx != -1 {
			break
		}
	}
	if specIdx != -1 {
		exprText = segment[:specIdx]
		spec = segment[specIdx+1:]
	}

	if n := len(exprText); n >= 2 && exprText[n-2] == '!' {
		conv = exprText[n-1]
		exprText = exprText[:n-2]
	}

	sub := &Parser{}
	lx := NewLexer(exprText)
	toks, err := lx.LexAll()
	if err != nil {
		return FStringPart{}, err
	}
	sub.toks = toks
	e, err := sub.parseExpr()
	if err != nil {
		return FStringPart{}, err
	}
	return FStringPart{Expr: e, Spec: spec, Conv: conv}, nil
}

// Pos2 exposes pos for use outside the package boundary tricks above.
func (e baseExpr) Pos2() pos { return e.pos }
