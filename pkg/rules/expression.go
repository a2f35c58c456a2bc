package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Expression is a compiled function body. Identifiers resolve against the
// function input object; Eval never fails, arithmetic on values that are
// not numbers yields NaN.
//
// Supported operators, loosest first:
//   - a || b, a && b (yield an operand, like their JavaScript counterparts)
//   - a == b, a != b
//   - a < b, a <= b, a > b, a >= b
//   - a + b, a - b
//   - a * b, a / b
//   - !a, -a
type Expression struct {
	src  string
	root *orExpr
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
	{Name: "String", Pattern: `("(\\"|[^"])*")|('(\\'|[^'])*')`},
	{Name: "Operator", Pattern: `\|\||&&|==|!=|<=|>=|[-+*/<>!()]`},
	{Name: "Ident", Pattern: `[a-zA-Z_][\w.]*`},
	{Name: "Whitespace", Pattern: `[ \r\n\t]+`},
})

var exprParser = participle.MustBuild[orExpr](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// CompileExpression parses src.
func CompileExpression(src string) (*Expression, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, fmt.Errorf("rules: empty expression")
	}
	root, err := exprParser.ParseString("", trimmed)
	if err != nil {
		return nil, fmt.Errorf("rules: compile expression %q: %w", trimmed, err)
	}
	return &Expression{src: trimmed, root: root}, nil
}

// MustCompileExpression is CompileExpression for package-level expressions.
func MustCompileExpression(src string) *Expression {
	expr, err := CompileExpression(src)
	if err != nil {
		panic(err)
	}
	return expr
}

// String returns the source text.
func (e *Expression) String() string { return e.src }

// Eval evaluates the expression against input.
func (e *Expression) Eval(input map[string]any) any {
	if e == nil || e.root == nil {
		return nil
	}
	return e.root.eval(input)
}

type orExpr struct {
	Left  *andExpr   `parser:"@@"`
	Right []*andExpr `parser:"( '||' @@ )*"`
}

type andExpr struct {
	Left  *eqExpr   `parser:"@@"`
	Right []*eqExpr `parser:"( '&&' @@ )*"`
}

type eqExpr struct {
	Left  *cmpExpr  `parser:"@@"`
	Right []*eqTerm `parser:"@@*"`
}

type eqTerm struct {
	Op  string   `parser:"@( '==' | '!=' )"`
	Arg *cmpExpr `parser:"@@"`
}

type cmpExpr struct {
	Left  *addExpr   `parser:"@@"`
	Right []*cmpTerm `parser:"@@*"`
}

type cmpTerm struct {
	Op  string   `parser:"@( '<=' | '>=' | '<' | '>' )"`
	Arg *addExpr `parser:"@@"`
}

type addExpr struct {
	Left  *mulExpr   `parser:"@@"`
	Right []*addTerm `parser:"@@*"`
}

type addTerm struct {
	Op  string   `parser:"@( '+' | '-' )"`
	Arg *mulExpr `parser:"@@"`
}

type mulExpr struct {
	Left  *unaryExpr `parser:"@@"`
	Right []*mulTerm `parser:"@@*"`
}

type mulTerm struct {
	Op  string     `parser:"@( '*' | '/' )"`
	Arg *unaryExpr `parser:"@@"`
}

type unaryExpr struct {
	Ops     []string     `parser:"@( '!' | '-' )*"`
	Operand *primaryExpr `parser:"@@"`
}

type primaryExpr struct {
	Number *float64 `parser:"  @Number"`
	Str    *string  `parser:"| @String"`
	Bool   *string  `parser:"| @( 'true' | 'false' )"`
	Null   bool     `parser:"| @'null'"`
	Ident  *string  `parser:"| @Ident"`
	Sub    *orExpr  `parser:"| '(' @@ ')'"`
}

func (x *orExpr) eval(input map[string]any) any {
	value := x.Left.eval(input)
	for _, right := range x.Right {
		if Truthy(value) {
			return value
		}
		value = right.eval(input)
	}
	return value
}

func (x *andExpr) eval(input map[string]any) any {
	value := x.Left.eval(input)
	for _, right := range x.Right {
		if !Truthy(value) {
			return value
		}
		value = right.eval(input)
	}
	return value
}

func (x *eqExpr) eval(input map[string]any) any {
	value := x.Left.eval(input)
	for _, term := range x.Right {
		equal := looseEqual(value, term.Arg.eval(input))
		if term.Op == "!=" {
			equal = !equal
		}
		value = equal
	}
	return value
}

func (x *cmpExpr) eval(input map[string]any) any {
	value := x.Left.eval(input)
	for _, term := range x.Right {
		value = compare(term.Op, value, term.Arg.eval(input))
	}
	return value
}

func (x *addExpr) eval(input map[string]any) any {
	value := x.Left.eval(input)
	if len(x.Right) == 0 {
		return value
	}
	sum := toNumber(value)
	for _, term := range x.Right {
		arg := toNumber(term.Arg.eval(input))
		if term.Op == "+" {
			sum += arg
		} else {
			sum -= arg
		}
	}
	return sum
}

func (x *mulExpr) eval(input map[string]any) any {
	value := x.Left.eval(input)
	if len(x.Right) == 0 {
		return value
	}
	product := toNumber(value)
	for _, term := range x.Right {
		arg := toNumber(term.Arg.eval(input))
		if term.Op == "*" {
			product *= arg
		} else {
			product /= arg
		}
	}
	return product
}

func (x *unaryExpr) eval(input map[string]any) any {
	value := x.Operand.eval(input)
	for i := len(x.Ops) - 1; i >= 0; i-- {
		if x.Ops[i] == "!" {
			value = !Truthy(value)
		} else {
			value = -toNumber(value)
		}
	}
	return value
}

func (x *primaryExpr) eval(input map[string]any) any {
	switch {
	case x.Number != nil:
		return *x.Number
	case x.Str != nil:
		return *x.Str
	case x.Bool != nil:
		return *x.Bool == "true"
	case x.Null:
		return nil
	case x.Ident != nil:
		return input[*x.Ident]
	case x.Sub != nil:
		return x.Sub.eval(input)
	}
	return nil
}

// Truthy reports whether value counts as true in a condition: nil, false,
// zero, NaN and the empty string do not.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case float32:
		return v != 0 && !math.IsNaN(float64(v))
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

func toNumber(value any) float64 {
	switch v := value.(type) {
	case nil:
		return math.NaN()
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return math.NaN()
	}
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as == bs
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	return toNumber(a) == toNumber(b)
}

func compare(op string, a, b any) bool {
	as, aString := a.(string)
	bs, bString := b.(string)
	if aString && bString {
		switch op {
		case "<":
			return as < bs
		case "<=":
			return as <= bs
		case ">":
			return as > bs
		default:
			return as >= bs
		}
	}
	x, y := toNumber(a), toNumber(b)
	switch op {
	case "<":
		return x < y
	case "<=":
		return x <= y
	case ">":
		return x > y
	default:
		return x >= y
	}
}
