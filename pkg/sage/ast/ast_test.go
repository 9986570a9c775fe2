package ast

import (
	"testing"

	"github.com/sambeau/sage/pkg/sage/lexer"
)

func name(v string) *Name {
	return &Name{Token: lexer.Token{Type: lexer.NAME, Literal: v, Line: 1}, Value: v, Ctx: Load}
}

func intConst(v int64) *Const {
	return &Const{Token: lexer.Token{Type: lexer.INTEGER, Line: 1}, Value: v}
}

func TestCanAssign(t *testing.T) {
	tests := []struct {
		desc string
		expr Expression
		ok   bool
	}{
		{"plain name", name("x"), true},
		{"reserved true", name("true"), false},
		{"reserved false", name("false"), false},
		{"reserved none", name("none"), false},
		{"tuple of names", &Tuple{Items: []Expression{name("a"), name("b")}}, true},
		{"tuple with const", &Tuple{Items: []Expression{name("a"), intConst(1)}}, false},
		{"nested tuple", &Tuple{Items: []Expression{name("a"), &Tuple{Items: []Expression{name("b"), name("c")}}}}, true},
		{"empty tuple", &Tuple{}, true},
		{"const", intConst(1), false},
		{"subscript", &Subscript{Node: name("a"), Arg: intConst(0)}, false},
		{"call", &Call{Node: name("f")}, false},
		{"add", &Add{Left: name("a"), Right: name("b")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := CanAssign(tt.expr); got != tt.ok {
				t.Errorf("CanAssign = %v, want %v", got, tt.ok)
			}
		})
	}
}

func TestSetCtx(t *testing.T) {
	a, b := name("a"), name("b")
	tup := &Tuple{Items: []Expression{a, b}}

	SetCtx(tup, Store)

	if tup.Ctx != Store {
		t.Errorf("tuple ctx = %s, want store", tup.Ctx)
	}
	if a.Ctx != Store || b.Ctx != Store {
		t.Errorf("element ctx = %s/%s, want store/store", a.Ctx, b.Ctx)
	}

	sub := &Subscript{Node: name("x"), Arg: intConst(0)}
	SetCtx(sub, Param)
	if sub.Ctx != Param {
		t.Errorf("subscript ctx = %s, want param", sub.Ctx)
	}

	// non-assignable nodes are left alone, no panic
	SetCtx(intConst(1), Store)
}

func TestKind(t *testing.T) {
	tests := []struct {
		expr Expression
		kind string
	}{
		{intConst(1), "const"},
		{name("x"), "name"},
		{&Tuple{}, "tuple"},
		{&Subscript{}, "subscript"},
		{&CondExpr{}, "condexpr"},
		{&Filter{}, "filter"},
	}
	for _, tt := range tests {
		if got := Kind(tt.expr); got != tt.kind {
			t.Errorf("Kind(%T) = %q, want %q", tt.expr, got, tt.kind)
		}
	}
}

func TestConstString(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{"hello", `"hello"`},
		{int64(42), "42"},
		{3.14, "3.14"},
		{true, "true"},
		{false, "false"},
		{nil, "none"},
	}
	for _, tt := range tests {
		c := &Const{Value: tt.value}
		if got := c.String(); got != tt.expected {
			t.Errorf("Const(%v).String() = %q, want %q", tt.value, got, tt.expected)
		}
	}
}

func TestTupleString(t *testing.T) {
	tests := []struct {
		desc     string
		tup      *Tuple
		expected string
	}{
		{"empty", &Tuple{}, "()"},
		{"one element keeps trailing comma", &Tuple{Items: []Expression{name("a")}}, "(a,)"},
		{"two elements", &Tuple{Items: []Expression{name("a"), name("b")}}, "(a, b)"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := tt.tup.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCompareString(t *testing.T) {
	cmp := &Compare{
		Expr: name("a"),
		Ops: []Operand{
			{Op: "lt", Expr: name("b")},
			{Op: "lteq", Expr: name("c")},
			{Op: "notin", Expr: name("d")},
		},
	}
	expected := "(a < b <= c not in d)"
	if got := cmp.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestSliceString(t *testing.T) {
	tests := []struct {
		desc     string
		slice    *Slice
		expected string
	}{
		{"full", &Slice{Start: intConst(1), Stop: intConst(5), Step: intConst(2)}, "1:5:2"},
		{"stop only", &Slice{Stop: intConst(5)}, ":5"},
		{"start only", &Slice{Start: intConst(1)}, "1:"},
		{"bare colon", &Slice{}, ":"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := tt.slice.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFilterString(t *testing.T) {
	f := &Filter{
		Node: name("x"),
		Name: "join",
		Args: []Expression{&Const{Value: ", "}},
	}
	if got := f.String(); got != `x|join(", ")` {
		t.Errorf("got %q", got)
	}

	bare := &Filter{Node: name("x"), Name: "upper"}
	if got := bare.String(); got != "x|upper" {
		t.Errorf("got %q", got)
	}

	inline := &Filter{Name: "trim"}
	if got := inline.String(); got != "trim" {
		t.Errorf("got %q", got)
	}
}

func TestCallStringArgOrder(t *testing.T) {
	c := &Call{
		Node:      name("f"),
		Args:      []Expression{intConst(1), intConst(2)},
		Kwargs:    []Keyword{{Key: "a", Value: intConst(3)}},
		DynArgs:   name("rest"),
		DynKwargs: name("kw"),
	}
	expected := "f(1, 2, a=3, *rest, **kw)"
	if got := c.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestMacroStringDefaults(t *testing.T) {
	m := &Macro{
		Name:     "greet",
		Args:     []*Name{name("who"), name("mark")},
		Defaults: []Expression{&Const{Value: "!"}},
		Body:     []Statement{&Output{Nodes: []Expression{&Const{Value: "hi"}}}},
	}
	expected := `{% macro greet(who, mark="!") %}hi{% endmacro %}`
	if got := m.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestOutputString(t *testing.T) {
	o := &Output{Nodes: []Expression{
		&Const{Value: "Hello "},
		name("user"),
		&Const{Value: "!"},
	}}
	expected := "Hello {{ user }}!"
	if got := o.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestIfElseString(t *testing.T) {
	stmt := &If{
		Test: name("a"),
		Body: []Statement{&Output{Nodes: []Expression{&Const{Value: "1"}}}},
		Else: []Statement{&If{
			Test: name("b"),
			Body: []Statement{&Output{Nodes: []Expression{&Const{Value: "2"}}}},
		}},
	}
	expected := "{% if a %}1{% else %}{% if b %}2{% endif %}{% endif %}"
	if got := stmt.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}
