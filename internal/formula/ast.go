package formula

import (
	"strconv"
)

// Node is one vertex of a parsed formula. Nodes are immutable after Parse.
type Node interface {
	// Pos returns the rune offset of the token that produced the node.
	Pos() int
	// String renders the node back to formula text. Parsing the output
	// yields a tree that evaluates identically.
	String() string

	precedence() int
}

// Operator is one of the four binary arithmetic operators.
type Operator rune

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
)

func (o Operator) String() string { return string(rune(o)) }

const (
	precAdditive = iota + 1
	precMultiplicative
	precUnary
	precAtom
)

func (o Operator) precedence() int {
	if o == OpMul || o == OpDiv {
		return precMultiplicative
	}
	return precAdditive
}

// Number is a numeric literal.
type Number struct {
	Value    float64
	Position int
}

func (n *Number) Pos() int        { return n.Position }
func (n *Number) precedence() int { return precAtom }

func (n *Number) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// FieldRef is a `{key}` reference to another field's value.
type FieldRef struct {
	Key      string
	Position int
}

func (n *FieldRef) Pos() int        { return n.Position }
func (n *FieldRef) precedence() int { return precAtom }
func (n *FieldRef) String() string  { return "{" + n.Key + "}" }

// BinaryOp applies Op to the values of Left and Right.
type BinaryOp struct {
	Op       Operator
	Left     Node
	Right    Node
	Position int
}

func (n *BinaryOp) Pos() int        { return n.Position }
func (n *BinaryOp) precedence() int { return n.Op.precedence() }

func (n *BinaryOp) String() string {
	prec := n.precedence()
	left := n.Left.String()
	if n.Left.precedence() < prec {
		left = "(" + left + ")"
	}
	// Operators are left-associative, so an equal-precedence right operand
	// keeps its parentheses to preserve evaluation order.
	right := n.Right.String()
	if n.Right.precedence() <= prec {
		right = "(" + right + ")"
	}
	return left + " " + n.Op.String() + " " + right
}

// UnaryMinus negates Operand.
type UnaryMinus struct {
	Operand  Node
	Position int
}

func (n *UnaryMinus) Pos() int        { return n.Position }
func (n *UnaryMinus) precedence() int { return precUnary }

func (n *UnaryMinus) String() string {
	operand := n.Operand.String()
	if n.Operand.precedence() < precUnary {
		operand = "(" + operand + ")"
	}
	return "-" + operand
}
