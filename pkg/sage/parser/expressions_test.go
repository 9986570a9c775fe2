package parser_test

import (
	"testing"

	"github.com/sambeau/sage/pkg/sage/ast"
	"github.com/sambeau/sage/pkg/sage/parser"
)

// parseExpr parses a single interpolated expression and returns it
func parseExpr(t *testing.T, src string) ast.Expression {
	t.Helper()
	tpl, err := parser.Parse("{{ "+src+" }}", "<test>")
	if err != nil {
		t.Fatalf("parse %q failed: %s", src, err)
	}
	if len(tpl.Body) != 1 {
		t.Fatalf("parse %q: expected 1 statement, got %d", src, len(tpl.Body))
	}
	out, ok := tpl.Body[0].(*ast.Output)
	if !ok {
		t.Fatalf("parse %q: expected Output, got %T", src, tpl.Body[0])
	}
	if len(out.Nodes) != 1 {
		t.Fatalf("parse %q: expected 1 expression, got %d", src, len(out.Nodes))
	}
	return out.Nodes[0]
}

// exprString is a shorthand for checking tree shape via the canonical
// parenthesized form
func exprString(t *testing.T, src string) string {
	t.Helper()
	return parseExpr(t, src).String()
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		src   string
		value any
	}{
		{"42", int64(42)},
		{"3.14", 3.14},
		{`"hello"`, "hello"},
		{"'hello'", "hello"},
		{"true", true},
		{"false", false},
		{"none", nil},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			c, ok := parseExpr(t, tt.src).(*ast.Const)
			if !ok {
				t.Fatalf("expected Const, got %T", parseExpr(t, tt.src))
			}
			if c.Value != tt.value {
				t.Errorf("value = %#v, want %#v", c.Value, tt.value)
			}
		})
	}
}

func TestNameLoadContext(t *testing.T) {
	n, ok := parseExpr(t, "user").(*ast.Name)
	if !ok {
		t.Fatalf("expected Name")
	}
	if n.Value != "user" || n.Ctx != ast.Load {
		t.Errorf("got %q/%s, want user/load", n.Value, n.Ctx)
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	tests := []struct {
		src      string
		expected string
	}{
		{"2 + 3 * 4", "(2 + (3 * 4))"},
		{"2 * 3 + 4", "((2 * 3) + 4)"},
		{"10 - 2 - 3", "((10 - 2) - 3)"},
		{"a + b ~ c", "(a + (b ~ c))"},
		{"a ~ b ~ c", "(a ~ b ~ c)"},
		{"a // b", "(a // b)"},
		{"a % b", "(a % b)"},
		{"-a + b", "((-a) + b)"},
		{"not a and b", "((not a) and b)"},
		{"a and b or c", "((a and b) or c)"},
		{"a or b and c", "(a or (b and c))"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := exprString(t, tt.src); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestPowIsLeftAssociative(t *testing.T) {
	pow, ok := parseExpr(t, "2 ** 3 ** 2").(*ast.Pow)
	if !ok {
		t.Fatalf("expected Pow")
	}
	if _, ok := pow.Left.(*ast.Pow); !ok {
		t.Errorf("left operand should be the nested Pow, got %T", pow.Left)
	}
	if got := pow.String(); got != "((2 ** 3) ** 2)" {
		t.Errorf("got %s", got)
	}
}

func TestUnaryStacking(t *testing.T) {
	neg, ok := parseExpr(t, "--a").(*ast.Neg)
	if !ok {
		t.Fatalf("expected Neg")
	}
	if _, ok := neg.Expr.(*ast.Neg); !ok {
		t.Errorf("expected nested Neg, got %T", neg.Expr)
	}

	not, ok := parseExpr(t, "not not a").(*ast.Not)
	if !ok {
		t.Fatalf("expected Not")
	}
	if _, ok := not.Expr.(*ast.Not); !ok {
		t.Errorf("expected nested Not, got %T", not.Expr)
	}
}

func TestCompareChain(t *testing.T) {
	cmp, ok := parseExpr(t, "a < b <= c").(*ast.Compare)
	if !ok {
		t.Fatalf("expected Compare")
	}
	if len(cmp.Ops) != 2 {
		t.Fatalf("expected 2 operands, got %d", len(cmp.Ops))
	}
	if cmp.Ops[0].Op != "lt" || cmp.Ops[1].Op != "lteq" {
		t.Errorf("ops = %s/%s, want lt/lteq", cmp.Ops[0].Op, cmp.Ops[1].Op)
	}
}

func TestMembership(t *testing.T) {
	in, ok := parseExpr(t, "a in b").(*ast.Compare)
	if !ok || in.Ops[0].Op != "in" {
		t.Fatalf("expected Compare with in")
	}

	notin, ok := parseExpr(t, "a not in b").(*ast.Compare)
	if !ok {
		t.Fatalf("expected Compare")
	}
	if len(notin.Ops) != 1 || notin.Ops[0].Op != "notin" {
		t.Errorf("expected one notin operand, got %+v", notin.Ops)
	}
}

func TestConditionalExpression(t *testing.T) {
	cond, ok := parseExpr(t, "a if b else c").(*ast.CondExpr)
	if !ok {
		t.Fatalf("expected CondExpr")
	}
	if cond.Test.(*ast.Name).Value != "b" {
		t.Errorf("test should be b")
	}
	if cond.True.(*ast.Name).Value != "a" || cond.False.(*ast.Name).Value != "c" {
		t.Errorf("branches wrong: %s / %s", cond.True, cond.False)
	}

	// chains nest through the false branch
	chained := parseExpr(t, "a if b else c if d else e").(*ast.CondExpr)
	if _, ok := chained.False.(*ast.CondExpr); !ok {
		t.Errorf("expected nested CondExpr in false branch, got %T", chained.False)
	}
}

func TestTupleDisambiguation(t *testing.T) {
	tests := []struct {
		src   string
		tuple bool
		items int
	}{
		{"(a)", false, 0},
		{"(a,)", true, 1},
		{"(a, b)", true, 2},
		{"()", true, 0},
		{"(a, b,)", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr := parseExpr(t, tt.src)
			tup, ok := expr.(*ast.Tuple)
			if ok != tt.tuple {
				t.Fatalf("tuple = %v (%T), want %v", ok, expr, tt.tuple)
			}
			if ok && len(tup.Items) != tt.items {
				t.Errorf("items = %d, want %d", len(tup.Items), tt.items)
			}
		})
	}
}

func TestBareTupleInOutput(t *testing.T) {
	tup, ok := parseExpr(t, "a, b").(*ast.Tuple)
	if !ok {
		t.Fatalf("expected Tuple")
	}
	if len(tup.Items) != 2 {
		t.Errorf("items = %d, want 2", len(tup.Items))
	}
}

func TestListAndDict(t *testing.T) {
	list, ok := parseExpr(t, "[1, 2, 3,]").(*ast.List)
	if !ok {
		t.Fatalf("expected List")
	}
	if len(list.Items) != 3 {
		t.Errorf("items = %d, want 3", len(list.Items))
	}

	dict, ok := parseExpr(t, "{'a': 1, 'b': [2]}").(*ast.Dict)
	if !ok {
		t.Fatalf("expected Dict")
	}
	if len(dict.Items) != 2 {
		t.Errorf("pairs = %d, want 2", len(dict.Items))
	}
	if _, ok := dict.Items[1].Value.(*ast.List); !ok {
		t.Errorf("nested list lost: %T", dict.Items[1].Value)
	}
}

func TestAttributeAccess(t *testing.T) {
	sub, ok := parseExpr(t, "user.name").(*ast.Subscript)
	if !ok {
		t.Fatalf("expected Subscript")
	}
	if c, ok := sub.Arg.(*ast.Const); !ok || c.Value != "name" {
		t.Errorf("arg = %v, want const \"name\"", sub.Arg)
	}

	// numeric attribute access
	idx := parseExpr(t, "pair.0").(*ast.Subscript)
	if c, ok := idx.Arg.(*ast.Const); !ok || c.Value != int64(0) {
		t.Errorf("arg = %v, want const 0", idx.Arg)
	}
}

func TestSubscripts(t *testing.T) {
	sub := parseExpr(t, "items[0]").(*ast.Subscript)
	if c, ok := sub.Arg.(*ast.Const); !ok || c.Value != int64(0) {
		t.Errorf("arg = %v, want const 0", sub.Arg)
	}

	// a comma makes the index a tuple
	multi := parseExpr(t, "m[a, b]").(*ast.Subscript)
	if _, ok := multi.Arg.(*ast.Tuple); !ok {
		t.Errorf("expected Tuple index, got %T", multi.Arg)
	}
}

func TestSlices(t *testing.T) {
	tests := []struct {
		src                     string
		hasStart, hasStop, hasStep bool
	}{
		{"x[1:2]", true, true, false},
		{"x[:2]", false, true, false},
		{"x[1:]", true, false, false},
		{"x[:]", false, false, false},
		{"x[::2]", false, false, true},
		{"x[1:2:3]", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			sub := parseExpr(t, tt.src).(*ast.Subscript)
			slice, ok := sub.Arg.(*ast.Slice)
			if !ok {
				t.Fatalf("expected Slice, got %T", sub.Arg)
			}
			if (slice.Start != nil) != tt.hasStart {
				t.Errorf("start presence = %v, want %v", slice.Start != nil, tt.hasStart)
			}
			if (slice.Stop != nil) != tt.hasStop {
				t.Errorf("stop presence = %v, want %v", slice.Stop != nil, tt.hasStop)
			}
			if (slice.Step != nil) != tt.hasStep {
				t.Errorf("step presence = %v, want %v", slice.Step != nil, tt.hasStep)
			}
		})
	}
}

func TestPostfixChaining(t *testing.T) {
	f, ok := parseExpr(t, "items[0].name | upper").(*ast.Filter)
	if !ok {
		t.Fatalf("expected Filter at the top")
	}
	if f.Name != "upper" {
		t.Errorf("filter = %q, want upper", f.Name)
	}
	attr, ok := f.Node.(*ast.Subscript)
	if !ok {
		t.Fatalf("expected Subscript under the filter, got %T", f.Node)
	}
	if _, ok := attr.Node.(*ast.Subscript); !ok {
		t.Errorf("expected nested Subscript, got %T", attr.Node)
	}
}

func TestCallArguments(t *testing.T) {
	call, ok := parseExpr(t, "f(1, 2, a=3, *rest, **kw)").(*ast.Call)
	if !ok {
		t.Fatalf("expected Call")
	}
	if len(call.Args) != 2 {
		t.Errorf("args = %d, want 2", len(call.Args))
	}
	if len(call.Kwargs) != 1 || call.Kwargs[0].Key != "a" {
		t.Errorf("kwargs = %+v, want one a=3", call.Kwargs)
	}
	if call.DynArgs == nil || call.DynKwargs == nil {
		t.Errorf("dynamic arguments lost")
	}
}

func TestCallTrailingComma(t *testing.T) {
	call := parseExpr(t, "f(1, 2,)").(*ast.Call)
	if len(call.Args) != 2 {
		t.Errorf("args = %d, want 2", len(call.Args))
	}
}

func TestInvalidCallArguments(t *testing.T) {
	tests := []string{
		"f(a=1, 2)",
		"f(*a, *b)",
		"f(**a, **b)",
		"f(*a, 1)",
		"f(**a, b=1)",
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := parser.Parse("{{ "+src+" }}", "<test>")
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got := err.Error(); got != "<test>: line 1: invalid syntax for function call expression" {
				t.Errorf("unexpected message: %s", got)
			}
		})
	}
}

func TestFilterChain(t *testing.T) {
	f := parseExpr(t, "x | a | b(1)").(*ast.Filter)
	if f.Name != "b" || len(f.Args) != 1 {
		t.Fatalf("outer filter = %q with %d args", f.Name, len(f.Args))
	}
	inner, ok := f.Node.(*ast.Filter)
	if !ok || inner.Name != "a" {
		t.Fatalf("expected inner filter a, got %T", f.Node)
	}
	if _, ok := inner.Node.(*ast.Name); !ok {
		t.Errorf("expected Name at chain root, got %T", inner.Node)
	}
}

func TestTests(t *testing.T) {
	tst, ok := parseExpr(t, "x is defined").(*ast.Test)
	if !ok {
		t.Fatalf("expected Test")
	}
	if tst.Name != "defined" {
		t.Errorf("name = %q, want defined", tst.Name)
	}

	// negated tests wrap in Not
	not, ok := parseExpr(t, "x is not defined").(*ast.Not)
	if !ok {
		t.Fatalf("expected Not around negated test")
	}
	if _, ok := not.Expr.(*ast.Test); !ok {
		t.Errorf("expected Test inside Not, got %T", not.Expr)
	}

	// single-token argument without parentheses
	div := parseExpr(t, "x is divisibleby 3").(*ast.Test)
	if len(div.Args) != 1 {
		t.Errorf("args = %d, want 1", len(div.Args))
	}

	// a keyword after the test name belongs to the enclosing expression
	and, ok := parseExpr(t, "x is defined and y").(*ast.And)
	if !ok {
		t.Fatalf("expected And at the top, got %T", parseExpr(t, "x is defined and y"))
	}
	if _, ok := and.Left.(*ast.Test); !ok {
		t.Errorf("expected Test on the left, got %T", and.Left)
	}
}

func TestUnexpectedToken(t *testing.T) {
	_, err := parser.Parse("a\nb\n{{ + }}", "page.html")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got := err.Error(); got != "page.html: line 3: unexpected token '}}'" {
		t.Errorf("unexpected message: %s", got)
	}
}
