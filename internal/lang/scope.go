package lang

import (
	"sync"

	"candlereactor/candleerr"
)

// Reference addresses a memory cell holding a RuntimeValue.
type Reference int

type nodeScope struct {
	parent          *ScopeID
	children        map[ScopeID]struct{}
	ownedReferences map[string]Reference
}

func newNodeScope(parent *ScopeID) *nodeScope {
	return &nodeScope{parent: parent, children: map[ScopeID]struct{}{}, ownedReferences: map[string]Reference{}}
}

// AstContext holds the scope tree and memory cells produced by
// aggregating a parsed program, plus whatever builtins were registered
// into it. It is shared read-write across every task of one running
// program, so all access goes through its mutex.
type AstContext struct {
	mu sync.RWMutex

	scopeCounter ScopeID
	declCounter  Reference
	memory       map[Reference]RuntimeValue
	scopes       map[ScopeID]*nodeScope
}

// NewAstContext runs the two-pass aggregation described for scope
// resolution: pass 1 assigns scopes (Block nodes open a child scope),
// registerBuiltins runs in between (binding native procedures into the
// main scope, conventionally scope 1), then pass 2 resolves every
// identifier reference against the scope chain.
func NewAstContext(root *Node, registerBuiltins func(*AstContext)) (*AstContext, error) {
	ctx := &AstContext{
		memory: map[Reference]RuntimeValue{},
		scopes: map[ScopeID]*nodeScope{},
	}
	main := ctx.createScope(nil)
	if err := ctx.aggregateScope(root, main); err != nil {
		return nil, err
	}
	if registerBuiltins != nil {
		registerBuiltins(ctx)
	}
	if err := ctx.aggregateDeps(root); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (c *AstContext) createScope(parent *ScopeID) ScopeID {
	c.scopeCounter++
	id := c.scopeCounter
	c.scopes[id] = newNodeScope(parent)
	if parent != nil {
		c.scopes[*parent].children[id] = struct{}{}
	}
	return id
}

func (c *AstContext) newRef() Reference {
	c.declCounter++
	return c.declCounter
}

// ScopeSet allocates (or reuses, if label is already owned in scope) a
// reference, binds label to it within scope, and writes value into
// memory. Used both by Declare/Assignation evaluation and by builtin
// registration.
func (c *AstContext) ScopeSet(scope ScopeID, label string, value RuntimeValue) (Reference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.scopes[scope]
	if !ok {
		return 0, candleerr.ScopeNotFound(int(scope))
	}
	ref, exists := s.ownedReferences[label]
	if !exists {
		ref = c.newRef()
		s.ownedReferences[label] = ref
	}
	c.memory[ref] = value
	return ref, nil
}

// ScopeGet looks up label within scope only — no chain walk. Chain
// walking is the AST's job, resolved once at aggregation time via
// Meta.ReferenceTo.
func (c *AstContext) ScopeGet(scope ScopeID, label string) (RuntimeValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scopes[scope]
	if !ok {
		return RuntimeValue{}, false
	}
	ref, ok := s.ownedReferences[label]
	if !ok {
		return RuntimeValue{}, false
	}
	v, ok := c.memory[ref]
	return v, ok
}

func (c *AstContext) MemorySet(ref Reference, value RuntimeValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory[ref] = value
}

func (c *AstContext) MemoryGet(ref Reference) (RuntimeValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.memory[ref]
	return v, ok
}

func (c *AstContext) aggregateScope(node *Node, parentScope ScopeID) error {
	if node == nil {
		return nil
	}
	if node.Kind == NodeBlock {
		child := c.createScope(&parentScope)
		node.Meta.Scope = child
		if err := c.aggregateScope(node.Left, child); err != nil {
			return err
		}
		return c.aggregateScope(node.Right, child)
	}
	node.Meta.Scope = parentScope
	if err := c.aggregateScope(node.Left, parentScope); err != nil {
		return err
	}
	return c.aggregateScope(node.Right, parentScope)
}

func (c *AstContext) aggregateDeps(node *Node) error {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case NodeCall:
		if err := c.aggregateDeps(node.Left); err != nil {
			return err
		}
		if node.Right != nil && node.Right.Kind == NodeIdent {
			return c.aggregateReference(node.Right)
		}
		return c.aggregateDeps(node.Right)

	case NodeAssignation:
		var err error
		if node.Left != nil && node.Left.Kind == NodeIdent {
			err = c.aggregateReference(node.Left)
		} else {
			err = c.aggregateDeps(node.Left)
		}
		if err != nil {
			return err
		}
		return c.aggregateDeps(node.Right)

	case NodeDeclare:
		ref := c.newRef()
		left := node.Left
		scope := scopeIDPtr(node.Meta.Scope)
		left.Meta.ReferenceTo = scope
		c.scopes[node.Meta.Scope].ownedReferences[left.IdentSpan] = ref
		return c.aggregateDeps(node.Right)

	case NodeCallArguments:
		// Each argument is a value, not a binding site: a bare identifier
		// resolves against the scope chain exactly like a call target does;
		// a closure argument declares its own parameters (see
		// bindClosureParams) before its body is walked for nested calls.
		for _, arg := range node.Arguments() {
			switch arg.Kind {
			case NodeIdent:
				if err := c.aggregateReference(arg); err != nil {
					return err
				}
			case NodeClosure:
				if err := c.bindClosureParams(arg); err != nil {
					return err
				}
			}
		}
		return nil

	case NodeClosure:
		return c.bindClosureParams(node)

	case NodeFnArguments:
		// Reached only for a closure's own params node when walked outside
		// bindClosureParams (shouldn't happen in practice); parameters are
		// bound by the owning NodeClosure case, so there is nothing to do
		// here standalone.
		return nil

	default:
		if err := c.aggregateDeps(node.Left); err != nil {
			return err
		}
		return c.aggregateDeps(node.Right)
	}
}

// bindClosureParams declares each of a closure's own FnArguments as owned
// references in its body's block scope — the same standing a `let`
// declaration gives a name — so a reference to a parameter from inside the
// body resolves at aggregation time. runtime.evalProcedure reuses these
// same references (ScopeSet is a no-op allocation when one already exists)
// to bind the call site's actual argument values at each invocation.
func (c *AstContext) bindClosureParams(closure *Node) error {
	if closure.Right == nil {
		return nil
	}
	blockScope := closure.Right.Meta.Scope
	for _, param := range closure.Left.Arguments() {
		if param.Kind != NodeIdent {
			continue
		}
		ref := c.newRef()
		c.scopes[blockScope].ownedReferences[param.IdentSpan] = ref
		param.Meta.ReferenceTo = scopeIDPtr(blockScope)
	}
	return c.aggregateDeps(closure.Right)
}

func (c *AstContext) aggregateReference(node *Node) error {
	scope := node.Meta.Scope
	span := node.IdentSpan
	for {
		s, ok := c.scopes[scope]
		if !ok {
			return candleerr.ScopeNotFound(int(scope))
		}
		if _, ok := s.ownedReferences[span]; ok {
			node.Meta.ReferenceTo = scopeIDPtr(scope)
			return nil
		}
		if s.parent == nil {
			return candleerr.ReferenceNotFound(span)
		}
		scope = *s.parent
	}
}

func scopeIDPtr(id ScopeID) *ScopeID { return &id }
