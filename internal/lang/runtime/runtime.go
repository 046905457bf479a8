// Package runtime is the async program evaluator: it walks a parsed and
// scope-resolved AST and drives it to completion as a tree of goroutines
// connected by bounded channels. A Pipe's left side and an Assignation's
// right-hand side each run on a goroutine of their own; Call and Comma
// nodes run on the goroutine that evaluates them.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"candlereactor/internal/lang"

	"github.com/zeromicro/go-zero/core/threading"
)

// Channel capacities. PipelineSize bounds the Pipe/Assignation-RHS internal
// channel; MainSize bounds a program's own root stdout, read only by the
// reactor's supervisor task.
const (
	PipelineSize = 512
	MainSize     = 2048
)

// ProgramRuntime is a spawned program: its id and the receiver end of its
// root stdout stream.
type ProgramRuntime struct {
	ID     uint64
	Stdout <-chan lang.ProgramOutput
}

// Spawn starts root running against actx and reactor, returning immediately
// with a handle whose Stdout channel closes once the program's root node
// finishes.
func Spawn(ctx context.Context, id uint64, root *lang.Node, actx *lang.AstContext, reactor lang.ReactorHandle) *ProgramRuntime {
	out := make(chan lang.ProgramOutput, MainSize)
	threading.GoSafe(func() {
		defer close(out)
		innerSpawn(ctx, root, actx, reactor, nil, out)
	})
	return &ProgramRuntime{ID: id, Stdout: out}
}

func innerSpawn(ctx context.Context, node *lang.Node, actx *lang.AstContext, reactor lang.ReactorHandle, stdin <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) {
	if node == nil {
		return
	}
	switch node.Kind {
	case lang.NodeCall:
		evalCall(ctx, node, actx, reactor, stdin, stdout)
	case lang.NodeAssignation:
		evalAssignation(ctx, node, actx, reactor, stdin, stdout)
	case lang.NodeComma:
		evalComma(ctx, node, actx, reactor, stdin, stdout)
	case lang.NodePipe:
		evalPipe(ctx, node, actx, reactor, stdin, stdout)
	case lang.NodeBlock:
		innerSpawn(ctx, node.Left, actx, reactor, stdin, stdout)
	default:
		safeSend(stdout, lang.ErrorExit(fmt.Sprintf("runtime: node kind %s is not a top-level statement", node.Kind)))
	}
}

// safeSend blocks until the channel has room, giving backpressure to a
// fast producer; recover tolerates a send racing the close of a stdout
// nobody is going to drain further.
func safeSend(stdout chan<- lang.ProgramOutput, out lang.ProgramOutput) {
	defer func() { recover() }()
	stdout <- out
}

func evalCall(ctx context.Context, node *lang.Node, actx *lang.AstContext, reactor lang.ReactorHandle, stdin <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) {
	target := node.Right
	if target == nil || target.Kind != lang.NodeIdent || target.Meta.ReferenceTo == nil {
		safeSend(stdout, lang.ErrorExit("call target is not a resolved identifier"))
		return
	}

	value, ok := actx.ScopeGet(*target.Meta.ReferenceTo, target.IdentSpan)
	if !ok {
		safeSend(stdout, lang.ErrorExit(fmt.Sprintf("reference not found: %s", target.IdentSpan)))
		return
	}

	switch value.Kind {
	case lang.ValueNativeProcedure:
		args := argStrings(actx, node.Left)
		out := value.Native(ctx, reactor, args, stdin, stdout)
		safeSend(stdout, out)
	case lang.ValueProcedure:
		args := argValues(actx, node.Left)
		evalProcedure(ctx, value.Procedure, args, actx, reactor, stdin, stdout)
	default:
		safeSend(stdout, lang.ErrorExit(fmt.Sprintf("%s is not callable", target.IdentSpan)))
	}
}

// evalProcedure runs a closure value at a call site. Each parameter is
// bound positionally to the call site's argument values in the closure
// body's block scope before the body runs; parameters past the last
// supplied argument bind Undefined. ScopeSet reuses the reference the
// aggregation pass pre-declared for each parameter, so rebinding on a
// later invocation overwrites the same cell.
func evalProcedure(ctx context.Context, closure *lang.Node, args []lang.RuntimeValue, actx *lang.AstContext, reactor lang.ReactorHandle, stdin <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) {
	if closure == nil || closure.Right == nil {
		safeSend(stdout, lang.SuccessExit())
		return
	}
	blockScope := closure.Right.Meta.Scope
	for i, param := range closure.Left.Arguments() {
		if param.Kind != lang.NodeIdent {
			continue
		}
		value := lang.Undefined()
		if i < len(args) {
			value = args[i]
		}
		if _, err := actx.ScopeSet(blockScope, param.IdentSpan, value); err != nil {
			safeSend(stdout, lang.ErrorExit(err.Error()))
			return
		}
	}
	innerSpawn(ctx, closure.Right, actx, reactor, stdin, stdout)
}

func argStrings(actx *lang.AstContext, container *lang.Node) []string {
	nodes := container.Arguments()
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, argString(actx, n))
	}
	return out
}

func argString(actx *lang.AstContext, n *lang.Node) string {
	switch n.Kind {
	case lang.NodeLiteral:
		return n.LiteralText()
	case lang.NodeIdent:
		if n.Meta.ReferenceTo == nil {
			return n.IdentSpan
		}
		v, ok := actx.ScopeGet(*n.Meta.ReferenceTo, n.IdentSpan)
		if !ok {
			return n.IdentSpan
		}
		return v.Stringify()
	default:
		return "<closure>"
	}
}

// argValues resolves a call's arguments into RuntimeValues for a closure
// invocation: literals become numbers or strings, identifiers resolve
// through their aggregated reference, and an inline closure argument
// becomes a first-class Procedure.
func argValues(actx *lang.AstContext, container *lang.Node) []lang.RuntimeValue {
	nodes := container.Arguments()
	out := make([]lang.RuntimeValue, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, argValue(actx, n))
	}
	return out
}

func argValue(actx *lang.AstContext, n *lang.Node) lang.RuntimeValue {
	switch n.Kind {
	case lang.NodeLiteral:
		if n.LiteralToken == lang.TokenLiteralInteger || n.LiteralToken == lang.TokenLiteralFloat {
			if f, err := strconv.ParseFloat(n.LiteralValue, 64); err == nil {
				return lang.NumberValue(f)
			}
		}
		return lang.StringValue(n.LiteralText())
	case lang.NodeIdent:
		if n.Meta.ReferenceTo == nil {
			return lang.StringValue(n.IdentSpan)
		}
		v, ok := actx.ScopeGet(*n.Meta.ReferenceTo, n.IdentSpan)
		if !ok {
			return lang.Undefined()
		}
		return v
	case lang.NodeClosure:
		return lang.ProcedureValue(n)
	default:
		return lang.Undefined()
	}
}

// evalAssignation evaluates the right-hand side on an internal pipeline,
// drains every Text/Json message it emits, and reduces the collected
// messages into a single RuntimeValue bound to the left-hand identifier:
// zero messages bind Undefined, one binds that message's value directly,
// more than one bind an array. Nothing is forwarded to the caller's own
// stdout — assignment is silent on the outer pipeline.
func evalAssignation(ctx context.Context, node *lang.Node, actx *lang.AstContext, reactor lang.ReactorHandle, stdin <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) {
	scope, name, err := assignTarget(node.Left)
	if err != nil {
		safeSend(stdout, lang.ErrorExit(err.Error()))
		return
	}

	right := node.Right
	if right.Kind == lang.NodeClosure {
		if _, err := actx.ScopeSet(scope, name, lang.ProcedureValue(right)); err != nil {
			safeSend(stdout, lang.ErrorExit(err.Error()))
		}
		return
	}

	pipeline := make(chan lang.ProgramOutput, PipelineSize)
	threading.GoSafe(func() {
		innerSpawn(ctx, right, actx, reactor, stdin, pipeline)
		close(pipeline)
	})

	var collected []interface{}
	for msg := range pipeline {
		switch msg.Kind {
		case lang.OutputJSON:
			collected = append(collected, normalizeJSON(msg.Content))
		case lang.OutputText:
			collected = append(collected, msg.Message)
		}
	}

	var value lang.RuntimeValue
	switch len(collected) {
	case 0:
		value = lang.Undefined()
	case 1:
		value = lang.ValueFromJSON(collected[0])
	default:
		arr := make([]lang.RuntimeValue, len(collected))
		for i, c := range collected {
			arr[i] = lang.ValueFromJSON(c)
		}
		value = lang.ArrayValue(arr)
	}

	if _, err := actx.ScopeSet(scope, name, value); err != nil {
		safeSend(stdout, lang.ErrorExit(err.Error()))
	}
}

func assignTarget(left *lang.Node) (lang.ScopeID, string, error) {
	switch left.Kind {
	case lang.NodeDeclare:
		ident := left.Left
		if ident.Meta.ReferenceTo == nil {
			return 0, "", fmt.Errorf("runtime: declared identifier %s was never resolved", ident.IdentSpan)
		}
		return *ident.Meta.ReferenceTo, ident.IdentSpan, nil
	case lang.NodeIdent:
		if left.Meta.ReferenceTo == nil {
			return 0, "", fmt.Errorf("runtime: identifier %s was never resolved", left.IdentSpan)
		}
		return *left.Meta.ReferenceTo, left.IdentSpan, nil
	default:
		return 0, "", fmt.Errorf("runtime: assignment target is not an identifier (got %s)", left.Kind)
	}
}

// normalizeJSON round-trips v through encoding/json so every Json message,
// regardless of the concrete Go type a builtin emitted, lands as one of
// Go's generic JSON shapes before ValueFromJSON inspects it.
func normalizeJSON(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	return decoded
}

// evalComma runs left to completion, then right, both on the calling
// goroutine — sequencing needs no extra concurrency since innerSpawn
// already blocks its caller until the subtree finishes.
func evalComma(ctx context.Context, node *lang.Node, actx *lang.AstContext, reactor lang.ReactorHandle, stdin <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) {
	innerSpawn(ctx, node.Left, actx, reactor, stdin, stdout)
	innerSpawn(ctx, node.Right, actx, reactor, nil, stdout)
}

// evalPipe runs left concurrently, feeding its output as right's stdin;
// right runs on the calling goroutine, so its completion defines the
// pipe's own completion.
func evalPipe(ctx context.Context, node *lang.Node, actx *lang.AstContext, reactor lang.ReactorHandle, stdin <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) {
	pipeline := make(chan lang.ProgramOutput, PipelineSize)
	threading.GoSafe(func() {
		innerSpawn(ctx, node.Left, actx, reactor, stdin, pipeline)
		close(pipeline)
	})
	innerSpawn(ctx, node.Right, actx, reactor, pipeline, stdout)
}
