package lang

import (
	"errors"
	"fmt"

	"candlereactor/candleerr"
)

// NodeKind tags the variant a Node carries.
type NodeKind int

const (
	NodeCall NodeKind = iota
	NodeDeclare
	NodeFnArguments
	NodeBlock
	NodeCallArguments
	NodeLiteral
	NodeIdent
	NodeClosure
	NodeAssignation
	NodePipe
	NodeComma
)

func (k NodeKind) String() string {
	switch k {
	case NodeCall:
		return "Call"
	case NodeDeclare:
		return "Declare"
	case NodeFnArguments:
		return "FnArgs"
	case NodeBlock:
		return "Block"
	case NodeCallArguments:
		return "CallArgs"
	case NodeLiteral:
		return "Literal"
	case NodeIdent:
		return "Ident"
	case NodeClosure:
		return "Closure"
	case NodeAssignation:
		return "Assign"
	case NodePipe:
		return "Pipe"
	case NodeComma:
		return "Comma"
	default:
		return "?"
	}
}

// ScopeID identifies a lexical scope created by the aggregator.
type ScopeID int

// NodeContext is the metadata the aggregator attaches to every node: the
// scope it lives in, and — for Ident nodes used as references — the
// scope that owns the binding.
type NodeContext struct {
	Scope       ScopeID
	ReferenceTo *ScopeID
}

// Node is the AST's binary-tree cell. Left/Right hold whatever the
// variant needs (argument lists, call targets, closure bodies); see the
// constructors below for the shape each NodeKind expects.
type Node struct {
	Meta NodeContext

	Kind NodeKind

	// Literal holds the source token kind and raw text for NodeLiteral.
	LiteralToken TokenKind
	LiteralValue string

	// IdentSpan holds the identifier text for NodeIdent.
	IdentSpan string

	Left  *Node
	Right *Node
}

func nodeOrphan(kind NodeKind) *Node { return &Node{Kind: kind} }

func nodeDeclare(ident *Node) *Node {
	return &Node{Kind: NodeDeclare, Left: ident}
}

func nodeLiteral(tok Token, value string) *Node {
	return &Node{Kind: NodeLiteral, LiteralToken: tok.Kind, LiteralValue: value}
}

func nodeIdent(span string) *Node {
	return &Node{Kind: NodeIdent, IdentSpan: span}
}

func nodeClosure(args, body *Node) *Node {
	return &Node{Kind: NodeClosure, Left: args, Right: body}
}

func nodePipe(left, right *Node) *Node {
	return &Node{Kind: NodePipe, Left: left, Right: right}
}

func nodeBlock(body *Node) *Node {
	return &Node{Kind: NodeBlock, Left: body}
}

func nodeComma(left, right *Node) *Node {
	return &Node{Kind: NodeComma, Left: left, Right: right}
}

// nodeAssignation wraps prev = right, requiring prev to be either a
// Declare or a bare Call{right=Ident, left=nil} (a pure reference with no
// call arguments).
func nodeAssignation(left, right *Node) (*Node, error) {
	switch {
	case left.Kind == NodeDeclare:
		return &Node{Kind: NodeAssignation, Left: left, Right: right}, nil
	case left.Kind == NodeCall && left.Left == nil && left.Right != nil && left.Right.Kind == NodeIdent:
		return &Node{Kind: NodeAssignation, Left: left.Right, Right: right}, nil
	default:
		return nil, candleerr.Parsing(fmt.Sprintf("expected expression after assignation, found `%s`", left.Kind), 0, 0)
	}
}

func (n *Node) appendLeft(add *Node) {
	if n.Left != nil {
		n.Left.appendLeft(add)
	} else {
		n.Left = add
	}
}

func (n *Node) appendRight(add *Node) {
	if n.Right != nil {
		n.Right.appendRight(add)
	} else {
		n.Right = add
	}
}

// errNoData signals "parse_one yielded nothing" internally; it is caught
// by parseClosure (an empty body is legal) and converted to a proper
// parse error at the top-level Parse entrypoint otherwise.
var errNoData = errors.New("no data")

// Parse tokenizes and parses a full program, returning its root node.
func Parse(src string) (*Node, error) {
	lexer := NewLexer(src)
	root, err := parseScope(lexer, false)
	if err != nil {
		if errors.Is(err, errNoData) {
			return nil, candleerr.Parsing("empty program", 0, 0)
		}
		return nil, err
	}
	return root, nil
}

func parseScope(lexer *Lexer, scoped bool) (*Node, error) {
	root, rest, err := parseOne(lexer)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errNoData
	}
	return innerParse(lexer, root, rest, scoped)
}

func innerParse(lexer *Lexer, prev *Node, prevToken *Token, scoped bool) (*Node, error) {
	var tok Token
	var ok bool
	if prevToken != nil {
		tok, ok = *prevToken, true
	} else {
		tok, ok = lexer.Next()
	}
	if !ok {
		return prev, nil
	}

	switch tok.Kind {
	case TokenPipe:
		right, rest, err := parseOne(lexer)
		if err != nil {
			return nil, err
		}
		if right == nil {
			return nil, candleerr.Parsing("expected token after pipe", tok.Start, tok.End)
		}
		return innerParse(lexer, nodePipe(prev, right), rest, scoped)

	case TokenAssign:
		right, rest, err := parseOne(lexer)
		if err != nil {
			return nil, err
		}
		if right != nil {
			assigned, err := nodeAssignation(prev, right)
			if err != nil {
				return nil, err
			}
			return innerParse(lexer, assigned, rest, scoped)
		}
		if rest != nil && rest.Kind.IsLiteral() {
			lit := nodeLiteral(*rest, rest.Text)
			assigned, err := nodeAssignation(prev, lit)
			if err != nil {
				return nil, err
			}
			return innerParse(lexer, assigned, nil, scoped)
		}
		found := "nothing"
		if rest != nil {
			found = rest.Kind.String()
		}
		return nil, candleerr.Parsing(fmt.Sprintf("expected expression after assignation, found `%s`", found), tok.Start, tok.End)

	case TokenComma:
		right, err := parseScope(lexer, scoped)
		if err != nil {
			return nil, err
		}
		return innerParse(lexer, nodeComma(prev, right), nil, scoped)

	case TokenBraceClose:
		if scoped {
			return prev, nil
		}
		return nil, candleerr.Parsing(fmt.Sprintf("unexpected token %s = `%s`", tok.Kind, tok.Text), tok.Start, tok.End)

	default:
		return nil, candleerr.Parsing(fmt.Sprintf("unexpected token %s = `%s`", tok.Kind, tok.Text), tok.Start, tok.End)
	}
}

func parseOne(lexer *Lexer) (*Node, *Token, error) {
	tok, ok := lexer.Next()
	if !ok {
		return nil, nil, nil
	}
	if tok.Kind.IsLiteral() {
		return nodeLiteral(tok, tok.Text), nil, nil
	}

	switch tok.Kind {
	case TokenGroupOpen:
		return parseClosure(lexer)

	case TokenBraceOpen:
		node, err := parseScope(lexer, true)
		if err != nil {
			return nil, nil, err
		}
		return node, nil, nil

	case TokenKeyword:
		if tok.Text != "let" {
			return nil, nil, candleerr.Parsing(fmt.Sprintf("unexpected identifier `%s`", tok.Text), tok.Start, tok.End)
		}
		idTok, idOk := lexer.Next()
		if !idOk || !idTok.Kind.IsIdent() {
			var found *Token
			if idOk {
				found = &idTok
			}
			return nil, nil, expectedToken("identifier", "let keyword", found)
		}
		identNode, rest, err := parseIdent(lexer, idTok)
		if err != nil {
			return nil, nil, err
		}
		var tk Token
		var tkOk bool
		if rest != nil {
			tk, tkOk = *rest, true
		} else {
			tk, tkOk = lexer.Next()
		}
		if tkOk && (tk.Kind.IsAssign() || tk.Kind.IsComma()) {
			return nodeDeclare(identNode), &tk, nil
		}
		var found *Token
		if tkOk {
			found = &tk
		}
		return nil, nil, expectedToken("`=` or `;`", "let keyword", found)

	case TokenIdent:
		identNode, rest, err := parseIdent(lexer, tok)
		if err != nil {
			return nil, nil, err
		}
		node := nodeOrphan(NodeCall)
		node.Right = identNode
		var tk Token
		var tkOk bool
		if rest != nil {
			tk, tkOk = *rest, true
		} else {
			tk, tkOk = lexer.Next()
		}
		if tkOk && tk.Kind == TokenGroupOpen {
			args, rest2, err := parseArguments(lexer, nil, NodeCallArguments)
			if err != nil {
				return nil, nil, err
			}
			if rest2 == nil || rest2.Kind != TokenGroupClose {
				return nil, nil, expectedToken("`)`", "call", rest2)
			}
			node.Left = args
			return node, nil, nil
		}
		if tkOk {
			return node, &tk, nil
		}
		return node, nil, nil

	default:
		return nil, &tok, nil
	}
}

func parseClosure(lexer *Lexer) (*Node, *Token, error) {
	args, rest, err := parseArguments(lexer, nil, NodeFnArguments)
	if err != nil {
		return nil, nil, err
	}
	if rest == nil || rest.Kind != TokenGroupClose {
		return nil, nil, expectedToken("`)`", "closure arguments list", rest)
	}

	t1, ok1 := lexer.Next()
	t2, ok2 := lexer.Next()
	if !(ok1 && t1.Kind == TokenFn && ok2 && t2.Kind == TokenBraceOpen) {
		return nil, nil, candleerr.Parsing("expected `=>`", t1.Start, t1.End)
	}

	body, err := parseScope(lexer, true)
	if err != nil {
		if errors.Is(err, errNoData) {
			body = nil
		} else {
			return nil, nil, err
		}
	}
	return nodeClosure(args, nodeBlock(body)), nil, nil
}

func parseArguments(lexer *Lexer, rest *Token, kind NodeKind) (*Node, *Token, error) {
	root := nodeOrphan(kind)
	for {
		taken := rest
		rest = nil
		arg, r, err := parseOneArgument(lexer, taken)
		if err != nil {
			return nil, nil, err
		}
		if arg == nil {
			rest = r
			break
		}
		root.appendRight(arg)
		if r != nil {
			rest = r
		} else if t, ok := lexer.Next(); ok {
			rest = &t
		}
		if rest != nil && rest.Kind == TokenSeparator {
			rest = nil
			continue
		}
		break
	}
	return root, rest, nil
}

func parseOneArgument(lexer *Lexer, rest *Token) (*Node, *Token, error) {
	var tok Token
	var ok bool
	if rest != nil {
		tok, ok = *rest, true
	} else {
		tok, ok = lexer.Next()
	}
	if !ok {
		return nil, nil, nil
	}

	switch {
	case tok.Kind == TokenIdent:
		return parseIdent(lexer, tok)
	case tok.Kind == TokenGroupOpen:
		return parseClosure(lexer)
	case tok.Kind.IsLiteral():
		return nodeLiteral(tok, tok.Text), nil, nil
	default:
		return nil, &tok, nil
	}
}

// parseIdent reads a dotted identifier chain `ident (Deref ident)*`. Each
// subsequent segment is threaded through appendLeft, building a left
// spine under the first segment. Scope resolution and the runtime look up
// only the first segment's name; the later segments are kept in the tree
// but not evaluated.
func parseIdent(lexer *Lexer, first Token) (*Node, *Token, error) {
	main := nodeIdent(first.Text)
	var rest *Token
	expectIdent := false
	for {
		tok, ok := lexer.Next()
		if !ok {
			break
		}
		switch {
		case tok.Kind == TokenDeref:
			expectIdent = true
		case tok.Kind == TokenIdent && expectIdent:
			main.appendLeft(nodeIdent(tok.Text))
			expectIdent = false
		case tok.Kind == TokenIdent:
			return nil, nil, candleerr.Parsing("unexpected identifier", tok.Start, tok.End)
		default:
			rest = &tok
			goto done
		}
	}
done:
	return main, rest, nil
}

// Arguments walks the CallArguments/FnArguments chain rooted at the
// receiver, returning each argument node in source order. A Closure
// argument's own Right field holds its Block body, so the chain continues
// one level deeper through the Block's Right rather than the Closure's own.
func (n *Node) Arguments() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for cur := n.Right; cur != nil; cur = argChainNext(cur) {
		out = append(out, cur)
	}
	return out
}

func argChainNext(n *Node) *Node {
	if n.Kind == NodeClosure {
		if n.Right == nil {
			return nil
		}
		return n.Right.Right
	}
	return n.Right
}

// LiteralText returns a literal node's value the way a builtin expects to
// consume it: string literals unescaped and unquoted, numeric literals as
// their raw source text.
func (n *Node) LiteralText() string {
	if n.LiteralToken == TokenLiteralString {
		return unquoteString(n.LiteralValue)
	}
	return n.LiteralValue
}

func expectedToken(what, after string, found *Token) error {
	if found != nil {
		return candleerr.Parsing(fmt.Sprintf("expected %s after %s, found `%s`", what, after, found.Text), found.Start, found.End)
	}
	return candleerr.Parsing(fmt.Sprintf("expected %s after %s", what, after), 0, 0)
}
