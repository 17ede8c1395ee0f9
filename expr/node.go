// Package expr implements a restricted arithmetic expression evaluator.
//
// Input is untrusted chat text. The grammar admits numeric literals, the
// binary operators + - * / % ** //, unary minus, and parentheses; nothing
// else can be represented, so evaluation can never invoke anything outside
// the fixed operator table.
package expr

// BinaryOp is a binary operator tag.
type BinaryOp string

const (
	OpAdd      BinaryOp = "+"
	OpSub      BinaryOp = "-"
	OpMul      BinaryOp = "*"
	OpDiv      BinaryOp = "/"
	OpMod      BinaryOp = "%"
	OpPow      BinaryOp = "**"
	OpFloorDiv BinaryOp = "//"
)

// UnaryOp is a unary operator tag.
type UnaryOp string

// OpNeg is the only unary operator.
const OpNeg UnaryOp = "-"

// Node is the interface implemented by the three permitted syntax shapes.
// The sealed marker keeps any other shape unconstructible outside this
// package.
type Node interface {
	node() // sealed marker
}

// Literal is a numeric literal.
type Literal struct {
	Value Value
}

// Binary applies a whitelisted binary operator to two subtrees.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

// Unary applies arithmetic negation to its operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (*Literal) node() {}
func (*Binary) node()  {}
func (*Unary) node()   {}
