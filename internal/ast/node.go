// Package ast implements the arena-addressed abstract syntax tree spec.md
// section 3 mandates: a single Node struct, a closed Kind enum dispatched
// by switch, and every edge between nodes expressed as an integer NodeID
// index into the owning Tree rather than a pointer. This departs from the
// teacher's Node-interface-per-type hierarchy deliberately; see DESIGN.md.
package ast

// NodeID addresses a Node within a Tree. The zero value addresses the
// first node added; use NONE to mean "no node".
type NodeID int

// NONE is the sentinel NodeID meaning "absent" — an unset child slot, an
// empty list, an unresolved scope link.
const NONE NodeID = -1

// Kind is the closed enumeration of AST node kinds.
type Kind int

const (
	KindInvalid Kind = iota

	KindProgram
	KindFunctionDef
	KindBlock

	// Statements
	KindAssign
	KindMultiAssign
	KindExprStmt
	KindIf
	KindElseIfClause
	KindWhile
	KindFor
	KindParfor
	KindSpmd
	KindSwitch
	KindCase
	KindOtherwise
	KindBreak
	KindContinue
	KindReturn
	KindTry
	KindOSCallStmt

	// Expressions
	KindIdent
	KindNumberLit
	KindStringLit
	KindColonAll     // bare ':' used as a whole-dimension index
	KindRange        // start:stop or start:step:stop
	KindBinaryExpr
	KindUnaryExpr
	KindPostfixTranspose
	KindGroup        // parenthesized expression
	KindCall         // generic call-or-index, reclassified by internal/scope
	KindFunctionCall
	KindMatrixAccess
	KindMatrixLit    // rows of elements
	KindMatrixRow
	KindCellLit
	KindCellRow
	KindEmptyMatrix
	KindFunctionHandleRef // @name
	KindAnonFunctionHandle // @(params) expr
	KindEndExpr      // context-sensitive `end` inside an index expression
	KindIgnoredOutput // ~

	// Auxiliary list/argument holders
	KindArgList
	KindOutputList
	KindParamList

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:            "Invalid",
	KindProgram:            "Program",
	KindFunctionDef:        "FunctionDef",
	KindBlock:              "Block",
	KindAssign:             "Assign",
	KindMultiAssign:        "MultiAssign",
	KindExprStmt:           "ExprStmt",
	KindIf:                 "If",
	KindElseIfClause:       "ElseIfClause",
	KindWhile:              "While",
	KindFor:                "For",
	KindParfor:             "Parfor",
	KindSpmd:               "Spmd",
	KindSwitch:             "Switch",
	KindCase:               "Case",
	KindOtherwise:          "Otherwise",
	KindBreak:              "Break",
	KindContinue:           "Continue",
	KindReturn:             "Return",
	KindTry:                "Try",
	KindOSCallStmt:         "OSCallStmt",
	KindIdent:              "Ident",
	KindNumberLit:          "NumberLit",
	KindStringLit:          "StringLit",
	KindColonAll:           "ColonAll",
	KindRange:              "Range",
	KindBinaryExpr:         "BinaryExpr",
	KindUnaryExpr:          "UnaryExpr",
	KindPostfixTranspose:   "PostfixTranspose",
	KindGroup:              "Group",
	KindCall:               "Call",
	KindFunctionCall:       "FunctionCall",
	KindMatrixAccess:       "MatrixAccess",
	KindMatrixLit:          "MatrixLit",
	KindMatrixRow:          "MatrixRow",
	KindCellLit:            "CellLit",
	KindCellRow:            "CellRow",
	KindEmptyMatrix:        "EmptyMatrix",
	KindFunctionHandleRef:  "FunctionHandleRef",
	KindAnonFunctionHandle: "AnonFunctionHandle",
	KindEndExpr:            "EndExpr",
	KindIgnoredOutput:      "IgnoredOutput",
	KindArgList:            "ArgList",
	KindOutputList:         "OutputList",
	KindParamList:          "ParamList",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// DataType is the closed element-type set the Type Inferrer (internal/typeinfer)
// assigns to every expression node (spec.md section 4.6).
type DataType int

const (
	TypeUnknown DataType = iota
	TypeDynamic
	TypeBoolean
	TypeChar
	TypeInteger
	TypeReal
	TypeString
	TypeCell
	TypeFunction
	TypeNA
)

func (t DataType) String() string {
	switch t {
	case TypeDynamic:
		return "dynamic"
	case TypeBoolean:
		return "logical"
	case TypeChar:
		return "char"
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeString:
		return "string"
	case TypeCell:
		return "cell"
	case TypeFunction:
		return "function_handle"
	case TypeNA:
		return "n/a"
	default:
		return "unknown"
	}
}

// Unknown is the sentinel for an unresolved (rows, cols) shape slot.
const Unknown = -1

// Op identifies the operator carried by a BinaryExpr/UnaryExpr/PostfixTranspose
// node. Kept separate from token.Kind so shapeinfer/typeinfer don't need to
// import the lexer's token package.
type Op int

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpLeftDiv
	OpPow
	OpElemMul
	OpElemDiv
	OpElemLeftDiv
	OpElemPow
	OpTranspose
	OpConjTranspose
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpEqual
	OpNotEqual
	OpAnd
	OpOr
	OpShortAnd
	OpShortOr
	OpNot
	OpUnaryPlus
	OpUnaryMinus
	OpColon
)

// Node is the single struct representing every tree element. Interpretation
// of the Child slots, DataType, Rows/Cols, and the scope-linkage fields
// depends on Kind; the parser decides what each slot holds.
type Node struct {
	Kind Kind
	Line int

	// ListLink threads this node into a sibling list (statements in a
	// block, elements in an argument list, rows in a matrix literal).
	// NONE terminates the list.
	ListLink NodeID

	// Child holds up to five operand/sub-node references; meaning is
	// Kind-dependent (see the internal/parser functions that fill them).
	Child [5]NodeID

	// Op carries the operator for BinaryExpr/UnaryExpr/PostfixTranspose
	// nodes.
	Op Op

	// DataType is set by internal/typeinfer. Zero value is TypeUnknown
	// until inference runs.
	DataType DataType

	// Rows, Cols hold the inferred matrix shape; Unknown until
	// internal/shapeinfer assigns them.
	Rows, Cols int

	// CastType/ImplicitCast record a type coercion the emitter must make
	// explicit (or may leave implicit) when lowering this expression to
	// C++.
	CastType     DataType
	ImplicitCast bool

	// ScopeParent is the enclosing FunctionDef (or Program) node for a
	// FunctionDef or Ident node, set by internal/scope. shapeinfer and
	// typeinfer key their per-variable shape/type tables on (ScopeParent,
	// Text) rather than threading a symbol list through the arena, since
	// every reference to the same variable is a distinct Ident node.
	ScopeParent NodeID

	// FirstSymbol and SymbolLink are per-scope symbol-list links (a
	// scope's first symbol, and the next symbol in the same scope).
	// NewNode sets both to NONE; no pass fills them in, since variables
	// are looked up by (ScopeParent, Text) as described above.
	FirstSymbol, SymbolLink NodeID

	// Text holds the literal payload for leaf nodes (Ident name, NumberLit
	// digits, StringLit contents after escape processing) since the arena
	// no longer has a source string attached once parsing completes.
	Text string

	// Verbose marks a statement whose result should be echoed to stdout
	// (no trailing semicolon in the source), spec.md section 4.2.
	Verbose bool
}

// Tree owns the flat Node storage for one translation unit.
type Tree struct {
	Nodes  []Node
	Source string
}

// NewTree creates an empty Tree over the given source text (kept so later
// passes can re-slice identifier/string text if ever needed for
// diagnostics).
func NewTree(source string) *Tree {
	return &Tree{Source: source}
}

// Add appends n to the tree and returns its NodeID.
func (t *Tree) Add(n Node) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, n)
	return id
}

// Get returns a pointer to the node addressed by id, allowing in-place
// mutation (shape/type inference write their results directly into the
// arena).
func (t *Tree) Get(id NodeID) *Node {
	if id == NONE {
		return nil
	}
	return &t.Nodes[id]
}

// NewNode is a convenience constructor that appends and returns the ID.
func (t *Tree) NewNode(kind Kind, line int) NodeID {
	n := Node{Kind: kind, Line: line, ListLink: NONE, ScopeParent: NONE, FirstSymbol: NONE, SymbolLink: NONE, Rows: Unknown, Cols: Unknown}
	for i := range n.Child {
		n.Child[i] = NONE
	}
	return t.Add(n)
}

// ListItems walks a ListLink-threaded chain starting at head and returns
// the NodeIDs in order.
func (t *Tree) ListItems(head NodeID) []NodeID {
	var items []NodeID
	for id := head; id != NONE; id = t.Get(id).ListLink {
		items = append(items, id)
	}
	return items
}

// AppendList links tail onto the end of the list starting at head,
// returning the (possibly new) head.
func (t *Tree) AppendList(head, item NodeID) NodeID {
	if head == NONE {
		return item
	}
	cur := head
	for t.Get(cur).ListLink != NONE {
		cur = t.Get(cur).ListLink
	}
	t.Get(cur).ListLink = item
	return head
}
