// Package parser implements the Sage template parser: a single-pass
// recursive-descent parser that transforms a token stream into an AST.
// It never evaluates, never rewinds, and aborts on the first error.
package parser

import (
	"fmt"
	"strings"

	"github.com/sambeau/sage/pkg/sage/ast"
	serrors "github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/lexer"
)

// statementEndTokens are the token types that terminate an expression
// list inside a tag.
var statementEndTokens = []lexer.TokenType{
	lexer.VARIABLE_END,
	lexer.BLOCK_END,
	lexer.IN,
}

// Extension contributes host-defined statement tags. When the parser
// sees a bare name matching one of Tags() at the start of a block
// statement, it hands control to Parse, which may call back into any
// of the parser's exported entry points and returns the statement
// node(s) to splice into the enclosing body.
type Extension interface {
	Tags() []string
	Parse(p *Parser) ([]ast.Statement, error)
}

// Parser represents the template parser. It holds exclusive access to
// one token stream per parse; the extension table is built once in New
// and read-only afterwards, so independent parsers may run
// concurrently.
type Parser struct {
	stream     *lexer.Stream
	filename   string
	extensions map[string]Extension
}

// New creates a new parser instance over a token stream
func New(stream *lexer.Stream, extensions ...Extension) *Parser {
	p := &Parser{
		stream:     stream,
		filename:   stream.Filename(),
		extensions: make(map[string]Extension),
	}
	for _, ext := range extensions {
		for _, tag := range ext.Tags() {
			p.extensions[tag] = ext
		}
	}
	return p
}

// Parse lexes and parses a whole template in one call
func Parse(source, filename string, extensions ...Extension) (*ast.Template, error) {
	stream, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, err
	}
	return New(stream, extensions...).Parse()
}

// Stream returns the parser's token stream. Extensions use it to
// inspect and consume tokens directly.
func (p *Parser) Stream() *lexer.Stream {
	return p.stream
}

// Parse parses the whole template into a Template root node
func (p *Parser) Parse() (tpl *ast.Template, err error) {
	defer p.recoverParse(&err)
	body := p.subparse(nil)
	tpl = &ast.Template{
		Token:    lexer.Token{Type: lexer.DATA, Line: 1},
		Body:     body,
		Filename: p.filename,
	}
	return tpl, nil
}

// recoverParse converts the parser's internal panic into the single
// error the caller receives. Anything that is not a TemplateError is a
// genuine programming error and keeps propagating.
func (p *Parser) recoverParse(errp *error) {
	if r := recover(); r != nil {
		te, ok := r.(*serrors.TemplateError)
		if !ok {
			panic(r)
		}
		*errp = te
	}
}

// errorf aborts the parse with a syntax error at the given line
func (p *Parser) errorf(line int, format string, args ...any) {
	panic(serrors.NewSyntaxError(fmt.Sprintf(format, args...), line).WithFile(p.filename))
}

// assertf aborts the parse with an assertion error at the given line
func (p *Parser) assertf(line int, format string, args ...any) {
	panic(serrors.NewAssertionError(fmt.Sprintf(format, args...), line).WithFile(p.filename))
}

// internalf aborts the parse reporting a lexer/parser contract
// violation. Never caused by template authors.
func (p *Parser) internalf(line int, format string, args ...any) {
	panic(serrors.NewInternalError(fmt.Sprintf(format, args...), line).WithFile(p.filename))
}

// expect consumes and returns the current token, aborting with a
// syntax error if its type does not match
func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	tok, err := p.stream.Expect(t)
	if err != nil {
		panic(err)
	}
	return tok
}

// expectName consumes a NAME token with the given value ('as')
func (p *Parser) expectName(value string) lexer.Token {
	tok, err := p.stream.ExpectName(value)
	if err != nil {
		panic(err)
	}
	return tok
}

// atStatementEnd reports whether the current token ends an expression
// list inside a tag
func (p *Parser) atStatementEnd() bool {
	return p.stream.TestAny(statementEndTokens...)
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

// parseStatement parses a single statement. Extensions may produce
// several nodes, so the result is a slice.
func (p *Parser) parseStatement() []ast.Statement {
	tok := p.stream.Current()
	switch tok.Type {
	case lexer.FOR:
		return one(p.parseFor())
	case lexer.IF:
		return one(p.parseIf())
	case lexer.BLOCK:
		return one(p.parseBlock())
	case lexer.EXTENDS:
		return one(p.parseExtends())
	case lexer.INCLUDE:
		return one(p.parseInclude())
	case lexer.IMPORT:
		return one(p.parseImport())
	case lexer.FROM:
		return one(p.parseFromImport())
	case lexer.MACRO:
		return one(p.parseMacro())
	case lexer.CALL:
		return one(p.parseCallBlock())
	case lexer.FILTER:
		return one(p.parseFilterBlock())
	case lexer.PRINT:
		return one(p.parsePrint())
	case lexer.NAME:
		if ext, ok := p.extensions[tok.Literal]; ok {
			return p.parseExtension(ext)
		}
	}

	// Not a statement keyword or extension tag: a bare expression,
	// possibly the left side of an assignment.
	expr := p.parseTuple(false, false)
	if p.stream.Test(lexer.ASSIGN) {
		return one(p.parseAssign(expr))
	}
	return one(&ast.ExprStmt{Token: tok, Expr: expr})
}

func one(stmt ast.Statement) []ast.Statement {
	return []ast.Statement{stmt}
}

// parseExtension hands control to a registered extension tag
func (p *Parser) parseExtension(ext Extension) []ast.Statement {
	stmts, err := ext.Parse(p)
	if err != nil {
		if te, ok := err.(*serrors.TemplateError); ok {
			panic(te.WithFile(p.filename))
		}
		p.errorf(p.stream.Current().Line, "%s", err.Error())
	}
	return stmts
}

// parseAssign turns an already parsed expression into an assignment
// once the '=' marker has been seen
func (p *Parser) parseAssign(target ast.Expression) ast.Statement {
	tok := p.expect(lexer.ASSIGN)
	if !ast.CanAssign(target) {
		p.errorf(target.Line(), "can't assign to '%s'", ast.Kind(target))
	}
	value := p.parseTuple(false, false)
	ast.SetCtx(target, ast.Store)
	return &ast.Assign{Token: tok, Target: target, Value: value}
}

// ParseStatements parses a statement body up to (but not consuming)
// one of the end keywords. The leading colon allowance and the
// BLOCK_END of the opening tag are handled here. If dropNeedle is set
// the terminating keyword itself is consumed too. Exported for
// extensions parsing their own block bodies.
func (p *Parser) ParseStatements(endTokens []lexer.TokenType, dropNeedle bool) []ast.Statement {
	// the first token may be a colon for python compatibility
	if p.stream.Test(lexer.COLON) {
		p.stream.Next()
	}
	p.expect(lexer.BLOCK_END)
	result := p.subparse(endTokens)
	if dropNeedle {
		p.stream.Next()
	}
	return result
}

// parseFor parses a for loop
func (p *Parser) parseFor() ast.Statement {
	forTok := p.expect(lexer.FOR)

	// targets parse with the primary-only grammar so that the 'in'
	// cannot be swallowed by a larger expression
	target := p.parseTuple(true, false)
	if !ast.CanAssign(target) {
		p.errorf(target.Line(), "can't assign to '%s'", ast.Kind(target))
	}
	ast.SetCtx(target, ast.Store)

	p.expect(lexer.IN)

	// conditional expressions are disabled here so a trailing 'if' is
	// unambiguously the loop filter
	iter := p.parseTuple(false, true)

	var test ast.Expression
	if p.stream.Test(lexer.IF) {
		p.stream.Next()
		test = p.ParseExpression()
	}

	body := p.ParseStatements([]lexer.TokenType{lexer.ENDFOR, lexer.ELSE}, false)
	var elseBody []ast.Statement
	if p.stream.Next().Type == lexer.ELSE {
		elseBody = p.ParseStatements([]lexer.TokenType{lexer.ENDFOR}, true)
	}

	return &ast.For{
		Token:  forTok,
		Target: target,
		Iter:   iter,
		Body:   body,
		Else:   elseBody,
		Test:   test,
	}
}

// parseIf parses an if construct. Branches are collected first and
// folded into nested If nodes from the innermost else outwards, so no
// node is ever observed partially built.
func (p *Parser) parseIf() ast.Statement {
	type branch struct {
		tok  lexer.Token
		test ast.Expression
		body []ast.Statement
	}

	tok := p.expect(lexer.IF)
	var branches []branch
	var elseBody []ast.Statement
	for {
		// conditional expressions are disabled in the test so that a
		// ternary cannot appear bare as a branch condition
		test := p.parseTuple(false, true)
		body := p.ParseStatements([]lexer.TokenType{lexer.ELIF, lexer.ELSE, lexer.ENDIF}, false)
		branches = append(branches, branch{tok: tok, test: test, body: body})

		needle := p.stream.Next()
		if needle.Type == lexer.ELIF {
			tok = needle
			continue
		}
		if needle.Type == lexer.ELSE {
			elseBody = p.ParseStatements([]lexer.TokenType{lexer.ENDIF}, true)
		}
		break
	}

	last := branches[len(branches)-1]
	node := &ast.If{Token: last.tok, Test: last.test, Body: last.body, Else: elseBody}
	for i := len(branches) - 2; i >= 0; i-- {
		b := branches[i]
		node = &ast.If{Token: b.tok, Test: b.test, Body: b.body, Else: []ast.Statement{node}}
	}
	return node
}

// parseBlock parses a named inheritance block
func (p *Parser) parseBlock() ast.Statement {
	tok := p.expect(lexer.BLOCK)
	name := p.expect(lexer.NAME)
	body := p.ParseStatements([]lexer.TokenType{lexer.ENDBLOCK}, true)
	return &ast.Block{Token: tok, Name: name.Literal, Body: body}
}

// parseExtends parses an extends directive
func (p *Parser) parseExtends() ast.Statement {
	tok := p.expect(lexer.EXTENDS)
	return &ast.Extends{Token: tok, Template: p.ParseExpression()}
}

// parseInclude parses an include directive
func (p *Parser) parseInclude() ast.Statement {
	tok := p.expect(lexer.INCLUDE)
	return &ast.Include{Token: tok, Template: p.ParseExpression()}
}

// parseImport parses 'import <template expr> as <name>'
func (p *Parser) parseImport() ast.Statement {
	tok := p.expect(lexer.IMPORT)
	template := p.ParseExpression()
	p.expectName("as")
	name := p.expect(lexer.NAME)
	target := &ast.Name{Token: name, Value: name.Literal, Ctx: ast.Store}
	if !ast.CanAssign(target) {
		p.errorf(name.Line, "can't assign imported template to '%s'", name.Literal)
	}
	return &ast.Import{Token: tok, Template: template, Target: name.Literal}
}

// parseFromImport parses 'from <template expr> import a, b as c'
func (p *Parser) parseFromImport() ast.Statement {
	tok := p.expect(lexer.FROM)
	template := p.ParseExpression()
	p.expect(lexer.IMPORT)

	var names []ast.ImportName
	for {
		if len(names) > 0 {
			p.expect(lexer.COMMA)
		}
		if !p.stream.Test(lexer.NAME) {
			break
		}
		name := p.stream.Current()
		target := &ast.Name{Token: name, Value: name.Literal, Ctx: ast.Store}
		if !ast.CanAssign(target) {
			p.errorf(name.Line, "can't import object named '%s'", name.Literal)
		}
		if strings.HasPrefix(name.Literal, "__") {
			p.assertf(name.Line, "names starting with two underscores can not be imported")
		}
		p.stream.Next()

		entry := ast.ImportName{Name: name.Literal}
		if p.stream.TestName("as") {
			p.stream.Next()
			alias := p.expect(lexer.NAME)
			if !ast.CanAssign(&ast.Name{Token: alias, Value: alias.Literal, Ctx: ast.Store}) {
				p.errorf(alias.Line, "can't name imported object '%s'", alias.Literal)
			}
			entry.Alias = alias.Literal
		}
		names = append(names, entry)

		if !p.stream.Test(lexer.COMMA) {
			break
		}
	}

	return &ast.FromImport{Token: tok, Template: template, Names: names}
}

// parseSignature parses a parenthesized parameter list with optional
// defaults. Defaults are collected positionally and correspond to the
// trailing parameters; a defaultless parameter after a defaulted one
// is accepted here, matching the rest of the grammar's tolerance.
func (p *Parser) parseSignature() ([]*ast.Name, []ast.Expression) {
	var args []*ast.Name
	var defaults []ast.Expression

	p.expect(lexer.LPAREN)
	for !p.stream.Test(lexer.RPAREN) {
		if len(args) > 0 {
			p.expect(lexer.COMMA)
		}
		tok := p.expect(lexer.NAME)
		arg := &ast.Name{Token: tok, Value: tok.Literal, Ctx: ast.Param}
		if !ast.CanAssign(arg) {
			p.errorf(tok.Line, "can't assign to '%s'", tok.Literal)
		}
		if p.stream.Test(lexer.ASSIGN) {
			p.stream.Next()
			defaults = append(defaults, p.ParseExpression())
		}
		args = append(args, arg)
	}
	p.expect(lexer.RPAREN)

	return args, defaults
}

// parseMacro parses a macro definition
func (p *Parser) parseMacro() ast.Statement {
	tok := p.expect(lexer.MACRO)
	name := p.expect(lexer.NAME)
	if !ast.CanAssign(&ast.Name{Token: name, Value: name.Literal, Ctx: ast.Store}) {
		p.errorf(name.Line, "can't assign macro to '%s'", name.Literal)
	}
	args, defaults := p.parseSignature()
	body := p.ParseStatements([]lexer.TokenType{lexer.ENDMACRO}, true)
	return &ast.Macro{
		Token:    tok,
		Name:     name.Literal,
		Args:     args,
		Defaults: defaults,
		Body:     body,
	}
}

// parseCallBlock parses '{% call [signature] expr(...) %}body{% endcall %}'
func (p *Parser) parseCallBlock() ast.Statement {
	tok := p.expect(lexer.CALL)

	var args []*ast.Name
	var defaults []ast.Expression
	if p.stream.Test(lexer.LPAREN) {
		args, defaults = p.parseSignature()
	}

	expr := p.ParseExpression()
	call, ok := expr.(*ast.Call)
	if !ok {
		p.errorf(tok.Line, "expected call")
	}
	body := p.ParseStatements([]lexer.TokenType{lexer.ENDCALL}, true)

	return &ast.CallBlock{
		Token:    tok,
		Args:     args,
		Defaults: defaults,
		Call:     call,
		Body:     body,
	}
}

// parseFilterBlock parses '{% filter name|name(...) %}body{% endfilter %}'
func (p *Parser) parseFilterBlock() ast.Statement {
	tok := p.expect(lexer.FILTER)
	filter := p.parseFilter(nil, true).(*ast.Filter)
	body := p.ParseStatements([]lexer.TokenType{lexer.ENDFILTER}, true)
	return &ast.FilterBlock{Token: tok, Filter: filter, Body: body}
}

// parsePrint parses a print statement: expressions until the tag ends
func (p *Parser) parsePrint() ast.Statement {
	tok := p.expect(lexer.PRINT)
	var nodes []ast.Expression
	for !p.atStatementEnd() {
		if len(nodes) > 0 {
			p.expect(lexer.COMMA)
		}
		nodes = append(nodes, p.ParseExpression())
	}
	return &ast.Output{Token: tok, Nodes: nodes}
}

// ---------------------------------------------------------------------
// Template driver
// ---------------------------------------------------------------------

// subparse is the outer loop alternating between literal data,
// interpolation, and statement blocks. With endTokens given, the loop
// stops (without consuming the keyword) when a statement block opens
// directly with one of them; the ParseStatements caller consumes it.
func (p *Parser) subparse(endTokens []lexer.TokenType) []ast.Statement {
	var body []ast.Statement
	var buffer []ast.Expression

	flush := func() {
		if len(buffer) > 0 {
			body = append(body, &ast.Output{
				Token: lexer.Token{Type: lexer.DATA, Line: buffer[0].Line()},
				Nodes: buffer,
			})
			buffer = nil
		}
	}

	for p.stream.HasMore() {
		token := p.stream.Current()
		switch token.Type {
		case lexer.DATA:
			if token.Literal != "" {
				buffer = append(buffer, &ast.Const{Token: token, Value: token.Literal})
			}
			p.stream.Next()
		case lexer.VARIABLE_BEGIN:
			p.stream.Next()
			buffer = append(buffer, p.parseTuple(false, false))
			p.expect(lexer.VARIABLE_END)
		case lexer.BLOCK_BEGIN:
			flush()
			p.stream.Next()
			if endTokens != nil && p.stream.TestAny(endTokens...) {
				return body
			}
			body = append(body, p.parseStatement()...)
			p.expect(lexer.BLOCK_END)
		default:
			// the lexer is contracted to only hand the driver data,
			// variable, and block tokens
			p.internalf(token.Line, "internal parsing error: unexpected token %s", token.Type)
		}
	}

	flush()
	return body
}
