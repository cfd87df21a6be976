// Package ast defines the pre-analysis abstract syntax tree and the tag
// parser that builds it from pkg/sexpr values, expanding derived forms
// via source-to-source macros along the way.
//
// The node set is a flat tagged sum: one Kind byte dispatches every later
// pass, rather than an interface with one implementation per variant.
package ast

import "github.com/its-hmny/schemec/pkg/sexpr"

// Kind tags the variant held by a Node.
type Kind uint8

const (
	KindConst Kind = iota
	KindVarGet
	KindVarSet
	KindVarDef
	KindIf
	KindSeq
	KindOr
	KindLambda
	KindApplic

	// The remaining three kinds never come out of the tag parser; pkg/analyzer's
	// automatic-boxing pass introduces them in place of a
	// VarGet/VarSet on a parameter it decides to box, plus a Box node wherever
	// a fresh box needs to be allocated.
	KindBox
	KindBoxGet
	KindBoxSet
)

func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindVarGet:
		return "var-get"
	case KindVarSet:
		return "var-set"
	case KindVarDef:
		return "var-def"
	case KindIf:
		return "if"
	case KindSeq:
		return "seq"
	case KindOr:
		return "or"
	case KindLambda:
		return "lambda"
	case KindApplic:
		return "applic"
	case KindBox:
		return "box"
	case KindBoxGet:
		return "box-get"
	case KindBoxSet:
		return "box-set"
	default:
		return "unknown"
	}
}

// AddressKind tags how pkg/analyzer's lexical-addressing pass resolved a
// variable reference.
type AddressKind uint8

const (
	// AddrFree means the name resolves to no enclosing parameter list;
	// it is looked up in the runtime's global/free-variable table.
	AddrFree AddressKind = iota
	// AddrParam means the name is the Param-th parameter of the nearest
	// enclosing lambda (0-based).
	AddrParam
	// AddrBound means the name is the Minor-th parameter of the rib
	// Major levels up the enclosing chain of lambdas (both 0-based).
	AddrBound
)

// Address is the resolved lexical address attached to every KindVarGet,
// KindVarSet, KindVarDef, KindBox, KindBoxGet and KindBoxSet node once
// pkg/analyzer's first pass has run over the tree.
type Address struct {
	Kind  AddressKind
	Param int // AddrParam
	Major int // AddrBound
	Minor int // AddrBound
}

// TailKind marks whether a KindApplic node sits in tail position, as
// decided by pkg/analyzer's second pass.
type TailKind uint8

const (
	NonTail TailKind = iota
	Tail
)

// LambdaKind distinguishes a fixed-arity lambda from one with a rest
// parameter).
type LambdaKind uint8

const (
	LambdaSimple LambdaKind = iota
	LambdaOpt
)

// Node is the single tagged-union AST type. Only the fields relevant to
// Kind are meaningful; pkg/analyzer enriches a Node in place, attaching
// an Address and a Tail once its three passes have run.
type Node struct {
	Kind Kind

	// KindConst
	Literal sexpr.Value

	// KindVarGet / KindVarSet / KindVarDef
	Name  string
	Value *Node // set/def right-hand side

	// KindIf
	Test, Then, Else *Node

	// KindSeq / KindOr
	Exprs []*Node

	// KindLambda
	Params     []string
	LambdaKind LambdaKind
	RestName   string // LambdaOpt only
	Body       *Node  // always a single node; multi-form bodies are wrapped in Seq

	// KindApplic
	Proc *Node
	Args []*Node
	Tail TailKind // set by pkg/analyzer's pass 2; zero value NonTail until then

	// KindVarGet / KindVarSet / KindVarDef / KindBox / KindBoxGet / KindBoxSet
	// Address is set by pkg/analyzer's pass 1; zero value is AddrFree, which
	// happens to be correct for every node no pass has visited yet.
	Address Address
}

// Const builds a literal node.
func Const(v sexpr.Value) *Node { return &Node{Kind: KindConst, Literal: v} }

// VarGet builds a lexical reference node.
func VarGet(name string) *Node { return &Node{Kind: KindVarGet, Name: name} }

// VarSet builds a mutation node.
func VarSet(name string, value *Node) *Node { return &Node{Kind: KindVarSet, Name: name, Value: value} }

// VarDef builds a global-definition node.
func VarDef(name string, value *Node) *Node { return &Node{Kind: KindVarDef, Name: name, Value: value} }

// If builds a three-way conditional node.
func If(test, then, els *Node) *Node { return &Node{Kind: KindIf, Test: test, Then: then, Else: els} }

// Seq builds a sequential-evaluation node; value is that of the last expr.
func Seq(exprs []*Node) *Node { return &Node{Kind: KindSeq, Exprs: exprs} }

// Or builds a short-circuiting disjunction node.
func Or(exprs []*Node) *Node { return &Node{Kind: KindOr, Exprs: exprs} }

// Lambda builds a procedure literal.
func Lambda(params []string, kind LambdaKind, rest string, body *Node) *Node {
	return &Node{Kind: KindLambda, Params: params, LambdaKind: kind, RestName: rest, Body: body}
}

// Applic builds a procedure application node.
func Applic(proc *Node, args []*Node) *Node { return &Node{Kind: KindApplic, Proc: proc, Args: args} }

// Box builds a node that, at the addressed parameter slot, reads the
// current raw value and allocates a fresh heap cell holding it.
func Box(name string, addr Address) *Node { return &Node{Kind: KindBox, Name: name, Address: addr} }

// BoxGet builds a dereferencing read of an already-boxed variable.
func BoxGet(name string, addr Address) *Node {
	return &Node{Kind: KindBoxGet, Name: name, Address: addr}
}

// BoxSet builds a store through an already-boxed variable's cell.
func BoxSet(name string, addr Address, value *Node) *Node {
	return &Node{Kind: KindBoxSet, Name: name, Address: addr, Value: value}
}
