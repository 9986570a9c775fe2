// Package ast defines the node vocabulary produced by the Sage
// template parser: statement nodes for template structure and
// expression nodes for the full operator hierarchy.
//
// Nodes form a tree with exclusive ownership, produced in a single
// parse pass. Once the parser returns a node it is never mutated.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/sambeau/sage/pkg/sage/lexer"
)

// Node represents any node in the AST
type Node interface {
	Line() int
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Ctx tags how an assignable expression is used: read, write target,
// or macro/call-block parameter. Only Name, Tuple, and Subscript carry
// a context; the parser validates with CanAssign before setting
// Store or Param.
type Ctx string

const (
	Load  Ctx = "load"
	Store Ctx = "store"
	Param Ctx = "param"
)

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

// Template is the root node of every parsed template
type Template struct {
	Token    lexer.Token // synthetic token at line 1
	Body     []Statement
	Filename string // the parse's declared source identifier
}

func (t *Template) statementNode() {}
func (t *Template) Line() int      { return t.Token.Line }
func (t *Template) String() string {
	var out bytes.Buffer
	for _, s := range t.Body {
		out.WriteString(s.String())
	}
	return out.String()
}

// Output holds a run of template data and interpolated expressions.
// Literal fragments are Const nodes holding their text.
type Output struct {
	Token lexer.Token
	Nodes []Expression
}

func (o *Output) statementNode() {}
func (o *Output) Line() int      { return o.Token.Line }
func (o *Output) String() string {
	var out bytes.Buffer
	for _, n := range o.Nodes {
		if c, ok := n.(*Const); ok {
			if s, ok := c.Value.(string); ok {
				out.WriteString(s)
				continue
			}
		}
		out.WriteString("{{ ")
		out.WriteString(n.String())
		out.WriteString(" }}")
	}
	return out.String()
}

// Assign represents '{% set-style assignments %}': target = value
type Assign struct {
	Token  lexer.Token // the '=' token
	Target Expression
	Value  Expression
}

func (a *Assign) statementNode() {}
func (a *Assign) Line() int      { return a.Token.Line }
func (a *Assign) String() string {
	return "{% " + a.Target.String() + " = " + a.Value.String() + " %}"
}

// For represents a for loop with optional filter test and else body
type For struct {
	Token  lexer.Token // the 'for' token
	Target Expression
	Iter   Expression
	Body   []Statement
	Else   []Statement
	Test   Expression // optional loop filter, nil if absent
}

func (f *For) statementNode() {}
func (f *For) Line() int      { return f.Token.Line }
func (f *For) String() string {
	var out bytes.Buffer
	out.WriteString("{% for ")
	out.WriteString(f.Target.String())
	out.WriteString(" in ")
	out.WriteString(f.Iter.String())
	if f.Test != nil {
		out.WriteString(" if ")
		out.WriteString(f.Test.String())
	}
	out.WriteString(" %}")
	writeBody(&out, f.Body)
	if len(f.Else) > 0 {
		out.WriteString("{% else %}")
		writeBody(&out, f.Else)
	}
	out.WriteString("{% endfor %}")
	return out.String()
}

// If represents a conditional. An elif chain is encoded as a nested If
// that is the sole statement of the outer node's Else body.
type If struct {
	Token lexer.Token // the 'if' or 'elif' token
	Test  Expression
	Body  []Statement
	Else  []Statement
}

func (i *If) statementNode() {}
func (i *If) Line() int      { return i.Token.Line }
func (i *If) String() string {
	var out bytes.Buffer
	out.WriteString("{% if ")
	out.WriteString(i.Test.String())
	out.WriteString(" %}")
	writeBody(&out, i.Body)
	if len(i.Else) > 0 {
		out.WriteString("{% else %}")
		writeBody(&out, i.Else)
	}
	out.WriteString("{% endif %}")
	return out.String()
}

// Block represents a named template-inheritance block
type Block struct {
	Token lexer.Token // the 'block' token
	Name  string
	Body  []Statement
}

func (b *Block) statementNode() {}
func (b *Block) Line() int      { return b.Token.Line }
func (b *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{% block ")
	out.WriteString(b.Name)
	out.WriteString(" %}")
	writeBody(&out, b.Body)
	out.WriteString("{% endblock %}")
	return out.String()
}

// Extends declares the parent template
type Extends struct {
	Token    lexer.Token // the 'extends' token
	Template Expression
}

func (e *Extends) statementNode() {}
func (e *Extends) Line() int      { return e.Token.Line }
func (e *Extends) String() string {
	return "{% extends " + e.Template.String() + " %}"
}

// Include renders another template in place
type Include struct {
	Token    lexer.Token // the 'include' token
	Template Expression
}

func (i *Include) statementNode() {}
func (i *Include) Line() int      { return i.Token.Line }
func (i *Include) String() string {
	return "{% include " + i.Template.String() + " %}"
}

// Import binds another template's exports to a name
type Import struct {
	Token    lexer.Token // the 'import' token
	Template Expression
	Target   string
}

func (i *Import) statementNode() {}
func (i *Import) Line() int      { return i.Token.Line }
func (i *Import) String() string {
	return "{% import " + i.Template.String() + " as " + i.Target + " %}"
}

// ImportName is one imported name with an optional alias
type ImportName struct {
	Name  string
	Alias string // empty if the name is not aliased
}

func (n ImportName) String() string {
	if n.Alias != "" {
		return n.Name + " as " + n.Alias
	}
	return n.Name
}

// FromImport binds selected names from another template
type FromImport struct {
	Token    lexer.Token // the 'from' token
	Template Expression
	Names    []ImportName
}

func (f *FromImport) statementNode() {}
func (f *FromImport) Line() int      { return f.Token.Line }
func (f *FromImport) String() string {
	var out bytes.Buffer
	out.WriteString("{% from ")
	out.WriteString(f.Template.String())
	out.WriteString(" import ")
	for i, n := range f.Names {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(n.String())
	}
	out.WriteString(" %}")
	return out.String()
}

// Macro represents a macro definition. Defaults align positionally
// with the trailing parameters: the last default belongs to the last
// parameter, and so on backwards.
type Macro struct {
	Token    lexer.Token // the 'macro' token
	Name     string
	Args     []*Name // each carries Param context
	Defaults []Expression
	Body     []Statement
}

func (m *Macro) statementNode() {}
func (m *Macro) Line() int      { return m.Token.Line }
func (m *Macro) String() string {
	var out bytes.Buffer
	out.WriteString("{% macro ")
	out.WriteString(m.Name)
	writeSignature(&out, m.Args, m.Defaults)
	out.WriteString(" %}")
	writeBody(&out, m.Body)
	out.WriteString("{% endmacro %}")
	return out.String()
}

// CallBlock invokes a macro passing the block body as its caller
type CallBlock struct {
	Token    lexer.Token // the 'call' token
	Args     []*Name
	Defaults []Expression
	Call     *Call
	Body     []Statement
}

func (c *CallBlock) statementNode() {}
func (c *CallBlock) Line() int      { return c.Token.Line }
func (c *CallBlock) String() string {
	var out bytes.Buffer
	out.WriteString("{% call")
	if len(c.Args) > 0 {
		writeSignature(&out, c.Args, c.Defaults)
	}
	out.WriteString(" ")
	out.WriteString(c.Call.String())
	out.WriteString(" %}")
	writeBody(&out, c.Body)
	out.WriteString("{% endcall %}")
	return out.String()
}

// FilterBlock applies a filter chain to its rendered body
type FilterBlock struct {
	Token  lexer.Token // the 'filter' token
	Filter *Filter
	Body   []Statement
}

func (f *FilterBlock) statementNode() {}
func (f *FilterBlock) Line() int      { return f.Token.Line }
func (f *FilterBlock) String() string {
	var out bytes.Buffer
	out.WriteString("{% filter ")
	out.WriteString(f.Filter.String())
	out.WriteString(" %}")
	writeBody(&out, f.Body)
	out.WriteString("{% endfilter %}")
	return out.String()
}

// ExprStmt wraps a bare expression used in statement position
type ExprStmt struct {
	Token lexer.Token
	Expr  Expression
}

func (e *ExprStmt) statementNode() {}
func (e *ExprStmt) Line() int      { return e.Token.Line }
func (e *ExprStmt) String() string {
	return "{% " + e.Expr.String() + " %}"
}

// Output/Print statements reuse the Output node; the 'print' keyword
// form collects its expressions into one Output like interpolation.

func writeBody(out *bytes.Buffer, body []Statement) {
	for _, s := range body {
		out.WriteString(s.String())
	}
}

func writeSignature(out *bytes.Buffer, args []*Name, defaults []Expression) {
	out.WriteString("(")
	offset := len(args) - len(defaults)
	for i, arg := range args {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(arg.String())
		if i >= offset {
			out.WriteString("=")
			out.WriteString(defaults[i-offset].String())
		}
	}
	out.WriteString(")")
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

// Const represents a literal value: string, int64, float64, bool, nil
type Const struct {
	Token lexer.Token
	Value any
}

func (c *Const) expressionNode() {}
func (c *Const) Line() int       { return c.Token.Line }
func (c *Const) String() string {
	switch v := c.Value.(type) {
	case string:
		return strconv.Quote(v)
	case nil:
		return "none"
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Name represents an identifier reference
type Name struct {
	Token lexer.Token
	Value string
	Ctx   Ctx
}

func (n *Name) expressionNode() {}
func (n *Name) Line() int       { return n.Token.Line }
func (n *Name) String() string  { return n.Value }

// Tuple represents a comma-separated group that saw at least one comma
type Tuple struct {
	Token lexer.Token
	Items []Expression
	Ctx   Ctx
}

func (t *Tuple) expressionNode() {}
func (t *Tuple) Line() int       { return t.Token.Line }
func (t *Tuple) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	for i, item := range t.Items {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(item.String())
	}
	if len(t.Items) == 1 {
		out.WriteString(",")
	}
	out.WriteString(")")
	return out.String()
}

// List represents a [a, b, c] literal
type List struct {
	Token lexer.Token // the '[' token
	Items []Expression
}

func (l *List) expressionNode() {}
func (l *List) Line() int       { return l.Token.Line }
func (l *List) String() string {
	var out bytes.Buffer
	out.WriteString("[")
	for i, item := range l.Items {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(item.String())
	}
	out.WriteString("]")
	return out.String()
}

// Pair is one key/value entry of a Dict
type Pair struct {
	Key   Expression
	Value Expression
}

func (p Pair) String() string {
	return p.Key.String() + ": " + p.Value.String()
}

// Dict represents a {k: v} literal
type Dict struct {
	Token lexer.Token // the '{' token
	Items []Pair
}

func (d *Dict) expressionNode() {}
func (d *Dict) Line() int       { return d.Token.Line }
func (d *Dict) String() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, item := range d.Items {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(item.String())
	}
	out.WriteString("}")
	return out.String()
}

// Or represents short-circuit logical or
type Or struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (o *Or) expressionNode() {}
func (o *Or) Line() int       { return o.Token.Line }
func (o *Or) String() string  { return binaryString(o.Left, "or", o.Right) }

// And represents short-circuit logical and
type And struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (a *And) expressionNode() {}
func (a *And) Line() int       { return a.Token.Line }
func (a *And) String() string  { return binaryString(a.Left, "and", a.Right) }

// Not represents logical negation
type Not struct {
	Token lexer.Token
	Expr  Expression
}

func (n *Not) expressionNode() {}
func (n *Not) Line() int       { return n.Token.Line }
func (n *Not) String() string  { return "(not " + n.Expr.String() + ")" }

// Operand is one (operator, operand) pair of a comparison chain. Op is
// one of: eq, ne, lt, lteq, gt, gteq, in, notin.
type Operand struct {
	Op   string
	Expr Expression
}

var compareSymbols = map[string]string{
	"eq":    "==",
	"ne":    "!=",
	"lt":    "<",
	"lteq":  "<=",
	"gt":    ">",
	"gteq":  ">=",
	"in":    "in",
	"notin": "not in",
}

// Compare represents a chained comparison like a < b <= c as one node
// holding the ordered operand list, not nested binary nodes.
type Compare struct {
	Token lexer.Token
	Expr  Expression
	Ops   []Operand
}

func (c *Compare) expressionNode() {}
func (c *Compare) Line() int       { return c.Token.Line }
func (c *Compare) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(c.Expr.String())
	for _, op := range c.Ops {
		out.WriteString(" ")
		out.WriteString(compareSymbols[op.Op])
		out.WriteString(" ")
		out.WriteString(op.Expr.String())
	}
	out.WriteString(")")
	return out.String()
}

// Add represents numeric addition
type Add struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (a *Add) expressionNode() {}
func (a *Add) Line() int       { return a.Token.Line }
func (a *Add) String() string  { return binaryString(a.Left, "+", a.Right) }

// Sub represents subtraction
type Sub struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (s *Sub) expressionNode() {}
func (s *Sub) Line() int       { return s.Token.Line }
func (s *Sub) String() string  { return binaryString(s.Left, "-", s.Right) }

// Concat represents the string-join operator '~' applied to two or
// more operands; the chain is kept flat as one n-ary node.
type Concat struct {
	Token lexer.Token
	Nodes []Expression
}

func (c *Concat) expressionNode() {}
func (c *Concat) Line() int       { return c.Token.Line }
func (c *Concat) String() string {
	parts := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		parts[i] = n.String()
	}
	return "(" + strings.Join(parts, " ~ ") + ")"
}

// Mul represents multiplication
type Mul struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (m *Mul) expressionNode() {}
func (m *Mul) Line() int       { return m.Token.Line }
func (m *Mul) String() string  { return binaryString(m.Left, "*", m.Right) }

// Div represents true division
type Div struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (d *Div) expressionNode() {}
func (d *Div) Line() int       { return d.Token.Line }
func (d *Div) String() string  { return binaryString(d.Left, "/", d.Right) }

// FloorDiv represents integer division
type FloorDiv struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (f *FloorDiv) expressionNode() {}
func (f *FloorDiv) Line() int       { return f.Token.Line }
func (f *FloorDiv) String() string  { return binaryString(f.Left, "//", f.Right) }

// Mod represents the modulo operator
type Mod struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (m *Mod) expressionNode() {}
func (m *Mod) Line() int       { return m.Token.Line }
func (m *Mod) String() string  { return binaryString(m.Left, "%", m.Right) }

// Pow represents exponentiation. Chains are left-associative:
// 2 ** 3 ** 2 parses as (2 ** 3) ** 2.
type Pow struct {
	Token lexer.Token
	Left  Expression
	Right Expression
}

func (p *Pow) expressionNode() {}
func (p *Pow) Line() int       { return p.Token.Line }
func (p *Pow) String() string  { return binaryString(p.Left, "**", p.Right) }

// Neg represents unary minus
type Neg struct {
	Token lexer.Token
	Expr  Expression
}

func (n *Neg) expressionNode() {}
func (n *Neg) Line() int       { return n.Token.Line }
func (n *Neg) String() string  { return "(-" + n.Expr.String() + ")" }

// Pos represents unary plus
type Pos struct {
	Token lexer.Token
	Expr  Expression
}

func (p *Pos) expressionNode() {}
func (p *Pos) Line() int       { return p.Token.Line }
func (p *Pos) String() string  { return "(+" + p.Expr.String() + ")" }

// CondExpr represents 'a if cond else b'
type CondExpr struct {
	Token lexer.Token
	Test  Expression
	True  Expression
	False Expression
}

func (c *CondExpr) expressionNode() {}
func (c *CondExpr) Line() int       { return c.Token.Line }
func (c *CondExpr) String() string {
	return "(" + c.True.String() + " if " + c.Test.String() + " else " + c.False.String() + ")"
}

// Subscript represents attribute access and indexing: a.b, a[b]
type Subscript struct {
	Token lexer.Token // the '.' or '[' token
	Node  Expression
	Arg   Expression
	Ctx   Ctx
}

func (s *Subscript) expressionNode() {}
func (s *Subscript) Line() int       { return s.Token.Line }
func (s *Subscript) String() string {
	return s.Node.String() + "[" + s.Arg.String() + "]"
}

// Slice represents start:stop:step inside a subscript; any part may be
// nil when omitted.
type Slice struct {
	Token lexer.Token
	Start Expression
	Stop  Expression
	Step  Expression
}

func (s *Slice) expressionNode() {}
func (s *Slice) Line() int       { return s.Token.Line }
func (s *Slice) String() string {
	var out bytes.Buffer
	if s.Start != nil {
		out.WriteString(s.Start.String())
	}
	out.WriteString(":")
	if s.Stop != nil {
		out.WriteString(s.Stop.String())
	}
	if s.Step != nil {
		out.WriteString(":")
		out.WriteString(s.Step.String())
	}
	return out.String()
}

// Keyword is one 'name=value' argument of a call
type Keyword struct {
	Key   string
	Value Expression
}

func (k Keyword) String() string {
	return k.Key + "=" + k.Value.String()
}

// Call represents a call expression with positional, keyword, and
// dynamic spread arguments.
type Call struct {
	Token     lexer.Token // the '(' token
	Node      Expression
	Args      []Expression
	Kwargs    []Keyword
	DynArgs   Expression // *expr, nil if absent
	DynKwargs Expression // **expr, nil if absent
}

func (c *Call) expressionNode() {}
func (c *Call) Line() int       { return c.Token.Line }
func (c *Call) String() string {
	var out bytes.Buffer
	out.WriteString(c.Node.String())
	out.WriteString("(")
	writeArgs(&out, c.Args, c.Kwargs, c.DynArgs, c.DynKwargs)
	out.WriteString(")")
	return out.String()
}

// Filter represents one '| name(...)' application. Node is nil for the
// inline chain of a filter block.
type Filter struct {
	Token     lexer.Token // the filter name token
	Node      Expression
	Name      string
	Args      []Expression
	Kwargs    []Keyword
	DynArgs   Expression
	DynKwargs Expression
}

func (f *Filter) expressionNode() {}
func (f *Filter) Line() int       { return f.Token.Line }
func (f *Filter) String() string {
	var out bytes.Buffer
	if f.Node != nil {
		out.WriteString(f.Node.String())
		out.WriteString("|")
	}
	out.WriteString(f.Name)
	if len(f.Args) > 0 || len(f.Kwargs) > 0 || f.DynArgs != nil || f.DynKwargs != nil {
		out.WriteString("(")
		writeArgs(&out, f.Args, f.Kwargs, f.DynArgs, f.DynKwargs)
		out.WriteString(")")
	}
	return out.String()
}

// Test represents an 'is name' predicate application
type Test struct {
	Token     lexer.Token // the 'is' token
	Node      Expression
	Name      string
	Args      []Expression
	Kwargs    []Keyword
	DynArgs   Expression
	DynKwargs Expression
}

func (t *Test) expressionNode() {}
func (t *Test) Line() int       { return t.Token.Line }
func (t *Test) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(t.Node.String())
	out.WriteString(" is ")
	out.WriteString(t.Name)
	if len(t.Args) > 0 || len(t.Kwargs) > 0 || t.DynArgs != nil || t.DynKwargs != nil {
		out.WriteString("(")
		writeArgs(&out, t.Args, t.Kwargs, t.DynArgs, t.DynKwargs)
		out.WriteString(")")
	}
	out.WriteString(")")
	return out.String()
}

func binaryString(left Expression, op string, right Expression) string {
	return "(" + left.String() + " " + op + " " + right.String() + ")"
}

func writeArgs(out *bytes.Buffer, args []Expression, kwargs []Keyword, dynArgs, dynKwargs Expression) {
	first := true
	sep := func() {
		if !first {
			out.WriteString(", ")
		}
		first = false
	}
	for _, a := range args {
		sep()
		out.WriteString(a.String())
	}
	for _, k := range kwargs {
		sep()
		out.WriteString(k.String())
	}
	if dynArgs != nil {
		sep()
		out.WriteString("*")
		out.WriteString(dynArgs.String())
	}
	if dynKwargs != nil {
		sep()
		out.WriteString("**")
		out.WriteString(dynKwargs.String())
	}
}
