package parser

import (
	"strconv"

	"github.com/sambeau/sage/pkg/sage/ast"
	"github.com/sambeau/sage/pkg/sage/lexer"
)

// compareOps maps comparison token types to Compare operand names
var compareOps = map[lexer.TokenType]string{
	lexer.EQ:   "eq",
	lexer.NE:   "ne",
	lexer.LT:   "lt",
	lexer.LTEQ: "lteq",
	lexer.GT:   "gt",
	lexer.GTEQ: "gteq",
	lexer.IN:   "in",
}

// ParseExpression parses a full expression including conditional
// expressions. This is the entry point extensions call.
func (p *Parser) ParseExpression() ast.Expression {
	return p.parseCondExpr()
}

// ParseTuple parses a comma-separated expression list with the full
// grammar, returning a lone expression unwrapped. Exported for
// extensions parsing their tag arguments.
func (p *Parser) ParseTuple() ast.Expression {
	return p.parseTuple(false, false)
}

// parseExpressionNoCond parses an expression with conditional
// expressions disabled, for positions where a trailing 'if' belongs to
// the enclosing statement.
func (p *Parser) parseExpressionNoCond() ast.Expression {
	return p.parseOr()
}

// parseCondExpr parses 'a if cond else b'. Chains are
// right-associative through the recursion on the false branch.
func (p *Parser) parseCondExpr() ast.Expression {
	tok := p.stream.Current()
	expr1 := p.parseOr()
	for p.stream.Test(lexer.IF) {
		p.stream.Next()
		expr2 := p.parseOr()
		p.expect(lexer.ELSE)
		expr3 := p.parseCondExpr()
		expr1 = &ast.CondExpr{Token: tok, Test: expr2, True: expr1, False: expr3}
		tok = p.stream.Current()
	}
	return expr1
}

func (p *Parser) parseOr() ast.Expression {
	tok := p.stream.Current()
	left := p.parseAnd()
	for p.stream.Test(lexer.OR) {
		p.stream.Next()
		right := p.parseAnd()
		left = &ast.Or{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	tok := p.stream.Current()
	left := p.parseCompare()
	for p.stream.Test(lexer.AND) {
		p.stream.Next()
		right := p.parseCompare()
		left = &ast.And{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

// parseCompare greedily collects comparison pairs so that a chained
// comparison like 'a < b <= c' becomes one Compare node holding the
// ordered operand list.
func (p *Parser) parseCompare() ast.Expression {
	tok := p.stream.Current()
	expr := p.parseAdd()
	var ops []ast.Operand
	for {
		current := p.stream.Current()
		if op, ok := compareOps[current.Type]; ok {
			p.stream.Next()
			ops = append(ops, ast.Operand{Op: op, Expr: p.parseAdd()})
		} else if current.Type == lexer.NOT && p.stream.Peek().Type == lexer.IN {
			p.stream.Skip(2)
			ops = append(ops, ast.Operand{Op: "notin", Expr: p.parseAdd()})
		} else {
			break
		}
	}
	if len(ops) == 0 {
		return expr
	}
	return &ast.Compare{Token: tok, Expr: expr, Ops: ops}
}

func (p *Parser) parseAdd() ast.Expression {
	tok := p.stream.Current()
	left := p.parseSub()
	for p.stream.Test(lexer.ADD) {
		p.stream.Next()
		right := p.parseSub()
		left = &ast.Add{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

func (p *Parser) parseSub() ast.Expression {
	tok := p.stream.Current()
	left := p.parseConcat()
	for p.stream.Test(lexer.SUB) {
		p.stream.Next()
		right := p.parseConcat()
		left = &ast.Sub{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

// parseConcat keeps a '~' chain flat as one n-ary Concat node
func (p *Parser) parseConcat() ast.Expression {
	tok := p.stream.Current()
	args := []ast.Expression{p.parseMul()}
	for p.stream.Test(lexer.TILDE) {
		p.stream.Next()
		args = append(args, p.parseMul())
	}
	if len(args) == 1 {
		return args[0]
	}
	return &ast.Concat{Token: tok, Nodes: args}
}

func (p *Parser) parseMul() ast.Expression {
	tok := p.stream.Current()
	left := p.parseDiv()
	for p.stream.Test(lexer.MUL) {
		p.stream.Next()
		right := p.parseDiv()
		left = &ast.Mul{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

func (p *Parser) parseDiv() ast.Expression {
	tok := p.stream.Current()
	left := p.parseFloorDiv()
	for p.stream.Test(lexer.DIV) {
		p.stream.Next()
		right := p.parseFloorDiv()
		left = &ast.Div{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

func (p *Parser) parseFloorDiv() ast.Expression {
	tok := p.stream.Current()
	left := p.parseMod()
	for p.stream.Test(lexer.FLOORDIV) {
		p.stream.Next()
		right := p.parseMod()
		left = &ast.FloorDiv{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

func (p *Parser) parseMod() ast.Expression {
	tok := p.stream.Current()
	left := p.parsePow()
	for p.stream.Test(lexer.MOD) {
		p.stream.Next()
		right := p.parsePow()
		left = &ast.Mod{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

// parsePow builds a left-leaning chain: 2 ** 3 ** 2 is (2 ** 3) ** 2
func (p *Parser) parsePow() ast.Expression {
	tok := p.stream.Current()
	left := p.parseUnary()
	for p.stream.Test(lexer.POW) {
		p.stream.Next()
		right := p.parseUnary()
		left = &ast.Pow{Token: tok, Left: left, Right: right}
		tok = p.stream.Current()
	}
	return left
}

// parseUnary recurses into itself so prefixes stack: 'not not x'
func (p *Parser) parseUnary() ast.Expression {
	tok := p.stream.Current()
	switch tok.Type {
	case lexer.NOT:
		p.stream.Next()
		return &ast.Not{Token: tok, Expr: p.parseUnary()}
	case lexer.SUB:
		p.stream.Next()
		return &ast.Neg{Token: tok, Expr: p.parseUnary()}
	case lexer.ADD:
		p.stream.Next()
		return &ast.Pos{Token: tok, Expr: p.parseUnary()}
	}
	return p.parsePrimary(true)
}

// parsePrimary parses a literal, name, or bracketed form, then the
// postfix chain unless suppressed.
func (p *Parser) parsePrimary(withPostfix bool) ast.Expression {
	tok := p.stream.Current()
	var node ast.Expression

	switch tok.Type {
	case lexer.NAME:
		switch tok.Literal {
		case "true":
			node = &ast.Const{Token: tok, Value: true}
		case "false":
			node = &ast.Const{Token: tok, Value: false}
		case "none":
			node = &ast.Const{Token: tok, Value: nil}
		default:
			node = &ast.Name{Token: tok, Value: tok.Literal, Ctx: ast.Load}
		}
		p.stream.Next()
	case lexer.INTEGER:
		value, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf(tok.Line, "invalid integer literal '%s'", tok.Literal)
		}
		p.stream.Next()
		node = &ast.Const{Token: tok, Value: value}
	case lexer.FLOAT:
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf(tok.Line, "invalid float literal '%s'", tok.Literal)
		}
		p.stream.Next()
		node = &ast.Const{Token: tok, Value: value}
	case lexer.STRING:
		p.stream.Next()
		node = &ast.Const{Token: tok, Value: tok.Literal}
	case lexer.LPAREN:
		p.stream.Next()
		node = p.parseTuple(false, false)
		p.expect(lexer.RPAREN)
	case lexer.LBRACKET:
		node = p.parseList()
	case lexer.LBRACE:
		node = p.parseDict()
	default:
		p.errorf(tok.Line, "unexpected token '%s'", tok.Describe())
	}

	if withPostfix {
		node = p.parsePostfix(node)
	}
	return node
}

// parseTuple parses one or more comma-separated expressions. A lone
// expression without any comma is returned unwrapped; a comma anywhere,
// even trailing, makes the result a genuine Tuple. An immediate edge
// token yields an empty Tuple (used for empty signatures).
//
// With simplified set, elements parse with the primary-only grammar
// (for loop targets); with noCondExpr set, conditional expressions are
// disabled in the elements.
func (p *Parser) parseTuple(simplified, noCondExpr bool) ast.Expression {
	tok := p.stream.Current()

	parse := p.ParseExpression
	if simplified {
		parse = func() ast.Expression { return p.parsePrimary(true) }
	} else if noCondExpr {
		parse = p.parseExpressionNoCond
	}

	var args []ast.Expression
	isTuple := false
	for {
		if len(args) > 0 {
			p.expect(lexer.COMMA)
		}
		if p.atTupleEnd() {
			break
		}
		args = append(args, parse())
		if p.stream.Test(lexer.COMMA) {
			isTuple = true
		} else {
			break
		}
	}

	if !isTuple && len(args) > 0 {
		return args[0]
	}
	return &ast.Tuple{Token: tok, Items: args, Ctx: ast.Load}
}

// atTupleEnd reports whether the current token terminates a tuple
// expression
func (p *Parser) atTupleEnd() bool {
	return p.stream.Test(lexer.RPAREN) || p.atStatementEnd()
}

// parseList parses a [a, b, c] literal with trailing-comma tolerance
func (p *Parser) parseList() ast.Expression {
	tok := p.expect(lexer.LBRACKET)
	var items []ast.Expression
	for !p.stream.Test(lexer.RBRACKET) {
		if len(items) > 0 {
			p.expect(lexer.COMMA)
		}
		if p.stream.Test(lexer.RBRACKET) {
			break
		}
		items = append(items, p.ParseExpression())
	}
	p.expect(lexer.RBRACKET)
	return &ast.List{Token: tok, Items: items}
}

// parseDict parses a {k: v} literal with trailing-comma tolerance
func (p *Parser) parseDict() ast.Expression {
	tok := p.expect(lexer.LBRACE)
	var items []ast.Pair
	for !p.stream.Test(lexer.RBRACE) {
		if len(items) > 0 {
			p.expect(lexer.COMMA)
		}
		if p.stream.Test(lexer.RBRACE) {
			break
		}
		key := p.ParseExpression()
		p.expect(lexer.COLON)
		value := p.ParseExpression()
		items = append(items, ast.Pair{Key: key, Value: value})
	}
	p.expect(lexer.RBRACE)
	return &ast.Dict{Token: tok, Items: items}
}

// parsePostfix applies attribute/subscript access, calls, filters, and
// tests until the current token starts none of them
func (p *Parser) parsePostfix(node ast.Expression) ast.Expression {
	for {
		switch p.stream.Current().Type {
		case lexer.DOT, lexer.LBRACKET:
			node = p.parseSubscript(node)
		case lexer.LPAREN:
			node = p.parseCall(node)
		case lexer.PIPE:
			node = p.parseFilter(node, false)
		case lexer.IS:
			node = p.parseTest(node)
		default:
			return node
		}
	}
}

// parseSubscript parses '.name', '.123', or a bracketed subscript that
// may contain slices and tuple indexes
func (p *Parser) parseSubscript(node ast.Expression) ast.Expression {
	tok := p.stream.Next() // '.' or '['

	if tok.Type == lexer.DOT {
		attr := p.stream.Current()
		var arg ast.Expression
		switch attr.Type {
		case lexer.NAME:
			arg = &ast.Const{Token: attr, Value: attr.Literal}
		case lexer.INTEGER:
			value, err := strconv.ParseInt(attr.Literal, 10, 64)
			if err != nil {
				p.errorf(attr.Line, "invalid integer literal '%s'", attr.Literal)
			}
			arg = &ast.Const{Token: attr, Value: value}
		default:
			p.errorf(attr.Line, "expected name or number")
		}
		p.stream.Next()
		return &ast.Subscript{Token: tok, Node: node, Arg: arg, Ctx: ast.Load}
	}

	// bracketed subscript: one or more comma-separated subscript
	// expressions, a single one collapsing to the bare index
	var args []ast.Expression
	for !p.stream.Test(lexer.RBRACKET) {
		if len(args) > 0 {
			p.expect(lexer.COMMA)
		}
		args = append(args, p.parseSubscribed())
	}
	p.expect(lexer.RBRACKET)

	var arg ast.Expression
	if len(args) == 1 {
		arg = args[0]
	} else {
		arg = &ast.Tuple{Token: tok, Items: args, Ctx: ast.Load}
	}
	return &ast.Subscript{Token: tok, Node: node, Arg: arg, Ctx: ast.Load}
}

// parseSubscribed parses one subscript element, detecting slices by
// the presence of a colon. Any of start/stop/step may be omitted.
func (p *Parser) parseSubscribed() ast.Expression {
	tok := p.stream.Current()
	slice := &ast.Slice{Token: tok}

	if p.stream.Test(lexer.COLON) {
		p.stream.Next()
	} else {
		node := p.ParseExpression()
		if !p.stream.Test(lexer.COLON) {
			return node
		}
		p.stream.Next()
		slice.Start = node
	}

	if !p.stream.Test(lexer.COLON) && !p.stream.TestAny(lexer.RBRACKET, lexer.COMMA) {
		slice.Stop = p.ParseExpression()
	}

	if p.stream.Test(lexer.COLON) {
		p.stream.Next()
		if !p.stream.TestAny(lexer.RBRACKET, lexer.COMMA) {
			slice.Step = p.ParseExpression()
		}
	}

	return slice
}

// parseCallArgs parses the argument list of a call, shared by call
// expressions, filters, and tests. Ordering rules: positional
// arguments first, then keywords, then at most one *args and one
// **kwargs; violations fail at the opening parenthesis.
func (p *Parser) parseCallArgs() (token lexer.Token, args []ast.Expression, kwargs []ast.Keyword, dynArgs, dynKwargs ast.Expression) {
	token = p.expect(lexer.LPAREN)

	ensure := func(ok bool) {
		if !ok {
			p.errorf(token.Line, "invalid syntax for function call expression")
		}
	}

	requireComma := false
	for !p.stream.Test(lexer.RPAREN) {
		if requireComma {
			p.expect(lexer.COMMA)
			// support for trailing comma
			if p.stream.Test(lexer.RPAREN) {
				break
			}
		}
		switch {
		case p.stream.Test(lexer.MUL):
			ensure(dynArgs == nil && dynKwargs == nil)
			p.stream.Next()
			dynArgs = p.ParseExpression()
		case p.stream.Test(lexer.POW):
			ensure(dynKwargs == nil)
			p.stream.Next()
			dynKwargs = p.ParseExpression()
		default:
			ensure(dynArgs == nil && dynKwargs == nil)
			if p.stream.Test(lexer.NAME) && p.stream.Peek().Type == lexer.ASSIGN {
				key := p.stream.Current().Literal
				p.stream.Skip(2)
				kwargs = append(kwargs, ast.Keyword{Key: key, Value: p.ParseExpression()})
			} else {
				ensure(len(kwargs) == 0)
				args = append(args, p.ParseExpression())
			}
		}
		requireComma = true
	}
	p.expect(lexer.RPAREN)

	return token, args, kwargs, dynArgs, dynKwargs
}

// parseCall parses a call expression applied to an already parsed node
func (p *Parser) parseCall(node ast.Expression) ast.Expression {
	token, args, kwargs, dynArgs, dynKwargs := p.parseCallArgs()
	return &ast.Call{
		Token:     token,
		Node:      node,
		Args:      args,
		Kwargs:    kwargs,
		DynArgs:   dynArgs,
		DynKwargs: dynKwargs,
	}
}

// parseFilter parses a filter chain, threading the previous result as
// each new filter's input. With startInline the first filter needs no
// leading pipe; a filter block uses this with a nil input node.
func (p *Parser) parseFilter(node ast.Expression, startInline bool) ast.Expression {
	for p.stream.Test(lexer.PIPE) || startInline {
		if !startInline {
			p.stream.Next()
		}
		tok := p.expect(lexer.NAME)
		var args []ast.Expression
		var kwargs []ast.Keyword
		var dynArgs, dynKwargs ast.Expression
		if p.stream.Test(lexer.LPAREN) {
			_, args, kwargs, dynArgs, dynKwargs = p.parseCallArgs()
		}
		node = &ast.Filter{
			Token:     tok,
			Node:      node,
			Name:      tok.Literal,
			Args:      args,
			Kwargs:    kwargs,
			DynArgs:   dynArgs,
			DynKwargs: dynKwargs,
		}
		startInline = false
	}
	return node
}

// parseTest parses 'is [not] name [argument]'. A negated test wraps
// the Test node in a Not.
func (p *Parser) parseTest(node ast.Expression) ast.Expression {
	tok := p.expect(lexer.IS)
	negated := false
	if p.stream.Test(lexer.NOT) {
		p.stream.Next()
		negated = true
	}
	name := p.expect(lexer.NAME)

	var args []ast.Expression
	var kwargs []ast.Keyword
	var dynArgs, dynKwargs ast.Expression
	if p.stream.Test(lexer.LPAREN) {
		_, args, kwargs, dynArgs, dynKwargs = p.parseCallArgs()
	} else if p.stream.TestAny(lexer.NAME, lexer.STRING, lexer.INTEGER, lexer.FLOAT,
		lexer.LBRACKET, lexer.LBRACE) {
		args = []ast.Expression{p.ParseExpression()}
	}

	var result ast.Expression = &ast.Test{
		Token:     tok,
		Node:      node,
		Name:      name.Literal,
		Args:      args,
		Kwargs:    kwargs,
		DynArgs:   dynArgs,
		DynKwargs: dynKwargs,
	}
	if negated {
		result = &ast.Not{Token: tok, Expr: result}
	}
	return result
}
