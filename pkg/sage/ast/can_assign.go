package ast

// reservedNames are literal spellings the lexer hands over as NAME
// tokens but which always denote constants. They can never be
// assignment targets, and the parser refuses to import them.
var reservedNames = map[string]bool{
	"true":  true,
	"false": true,
	"none":  true,
}

// IsReservedName reports whether an identifier spelling denotes one of
// the literal constants true/false/none.
func IsReservedName(name string) bool {
	return reservedNames[name]
}

// CanAssign reports whether an expression is a legal assignment
// target: a plain name, or a tuple whose elements are all themselves
// assignable. Everything else, subscripts included, refuses
// assignment. The check is a single exhaustive match over the node
// kinds rather than per-node dispatch, so adding a node type forces a
// decision here.
func CanAssign(expr Expression) bool {
	switch e := expr.(type) {
	case *Name:
		return !IsReservedName(e.Value)
	case *Tuple:
		for _, item := range e.Items {
			if !CanAssign(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// SetCtx recursively tags an assignable expression tree with the given
// context. Callers must have validated the tree with CanAssign first;
// nodes without a context slot are left untouched.
func SetCtx(expr Expression, ctx Ctx) {
	switch e := expr.(type) {
	case *Name:
		e.Ctx = ctx
	case *Tuple:
		e.Ctx = ctx
		for _, item := range e.Items {
			SetCtx(item, ctx)
		}
	case *Subscript:
		e.Ctx = ctx
	}
}

// Kind returns the lowercase node-kind name used in error messages
// like "can't assign to 'const'".
func Kind(expr Expression) string {
	switch expr.(type) {
	case *Const:
		return "const"
	case *Name:
		return "name"
	case *Tuple:
		return "tuple"
	case *List:
		return "list"
	case *Dict:
		return "dict"
	case *Or:
		return "or"
	case *And:
		return "and"
	case *Not:
		return "not"
	case *Compare:
		return "compare"
	case *Add:
		return "add"
	case *Sub:
		return "sub"
	case *Concat:
		return "concat"
	case *Mul:
		return "mul"
	case *Div:
		return "div"
	case *FloorDiv:
		return "floordiv"
	case *Mod:
		return "mod"
	case *Pow:
		return "pow"
	case *Neg:
		return "neg"
	case *Pos:
		return "pos"
	case *CondExpr:
		return "condexpr"
	case *Subscript:
		return "subscript"
	case *Slice:
		return "slice"
	case *Call:
		return "call"
	case *Filter:
		return "filter"
	case *Test:
		return "test"
	default:
		return "expression"
	}
}
