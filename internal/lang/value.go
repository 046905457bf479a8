package lang

import (
	"context"
	"fmt"
	"strconv"

	"candlereactor/internal/marketsync"
	"candlereactor/internal/store"
)

// ValueKind tags the variant a RuntimeValue carries.
type ValueKind int

const (
	ValueUndefined ValueKind = iota
	ValueNumber
	ValueString
	ValueObject
	ValueArray
	ValueProcedure
	ValueNativeProcedure
)

// ReactorHandle is the capability surface the runtime and builtins need
// from a reactor, kept as an interface here so this package never imports
// the reactor package that in turn depends on it.
type ReactorHandle interface {
	ListExchangeNames() []string
	ListMarkets(ctx context.Context, exchangeName string) ([]store.MarketIdentifier, error)
	DefaultExchangeName() string
	GetOrRegisterMarket(ctx context.Context, id store.MarketIdentifier) (*marketsync.SyncMarket, error)
}

// OutputKind tags a ProgramOutput variant.
type OutputKind int

const (
	OutputText OutputKind = iota
	OutputJSON
	OutputExit
)

// ProgramOutput is one message a running program emits on its stdout
// stream: a line of text, a JSON payload, or a terminal exit.
type ProgramOutput struct {
	Kind    OutputKind
	Message string
	Content interface{}
	Status  ExitStatus
}

// ExitStatus classifies how a program (or one of its builtins) terminated.
type ExitStatus int

const (
	ExitSuccess ExitStatus = iota
	ExitError
)

// TextOutput builds a Text message.
func TextOutput(message string) ProgramOutput {
	return ProgramOutput{Kind: OutputText, Message: message}
}

// JSONOutput builds a Json message.
func JSONOutput(content interface{}) ProgramOutput {
	return ProgramOutput{Kind: OutputJSON, Content: content}
}

// SuccessExit builds a successful Exit message with no trailing text.
func SuccessExit() ProgramOutput {
	return ProgramOutput{Kind: OutputExit, Status: ExitSuccess}
}

// ErrorExit builds a failed Exit message carrying message as the failure
// reason.
func ErrorExit(message string) ProgramOutput {
	return ProgramOutput{Kind: OutputExit, Message: message, Status: ExitError}
}

// NativeProcedure is a builtin's entry point: given the reactor, its
// positional string arguments and the pipeline's stdin/stdout, it may write
// any number of messages to stdout and returns the Exit message that
// terminates it.
type NativeProcedure func(ctx context.Context, reactor ReactorHandle, args []string, stdin <-chan ProgramOutput, stdout chan<- ProgramOutput) ProgramOutput

// RuntimeValue is the tagged union every memory cell and call argument
// resolves to.
type RuntimeValue struct {
	Kind      ValueKind
	Number    float64
	Str       string
	Object    *OrderedMap
	Array     []RuntimeValue
	Procedure *Node
	Native    NativeProcedure
}

// Undefined returns the zero-information RuntimeValue.
func Undefined() RuntimeValue { return RuntimeValue{Kind: ValueUndefined} }

// NumberValue wraps a float64.
func NumberValue(n float64) RuntimeValue { return RuntimeValue{Kind: ValueNumber, Number: n} }

// StringValue wraps a string.
func StringValue(s string) RuntimeValue { return RuntimeValue{Kind: ValueString, Str: s} }

// ObjectValue wraps an OrderedMap.
func ObjectValue(m *OrderedMap) RuntimeValue { return RuntimeValue{Kind: ValueObject, Object: m} }

// ArrayValue wraps a slice of values.
func ArrayValue(values []RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: ValueArray, Array: values}
}

// ProcedureValue wraps a parsed closure node.
func ProcedureValue(closure *Node) RuntimeValue {
	return RuntimeValue{Kind: ValueProcedure, Procedure: closure}
}

// NativeProcedureValue wraps a builtin.
func NativeProcedureValue(fn NativeProcedure) RuntimeValue {
	return RuntimeValue{Kind: ValueNativeProcedure, Native: fn}
}

// ValueFromJSON converts a value already decoded into Go's generic JSON
// shape (string, float64, bool, nil, []interface{}, map[string]interface{})
// into a RuntimeValue. Anything else becomes Undefined.
func ValueFromJSON(v interface{}) RuntimeValue {
	switch t := v.(type) {
	case nil:
		return Undefined()
	case string:
		return StringValue(t)
	case float64:
		return NumberValue(t)
	case bool:
		if t {
			return StringValue("true")
		}
		return StringValue("false")
	case []interface{}:
		arr := make([]RuntimeValue, len(t))
		for i, e := range t {
			arr[i] = ValueFromJSON(e)
		}
		return ArrayValue(arr)
	case map[string]interface{}:
		m := NewOrderedMap()
		for k, e := range t {
			m.Set(k, ValueFromJSON(e))
		}
		return ObjectValue(m)
	default:
		return Undefined()
	}
}

// Stringify renders a RuntimeValue the way a builtin consumes it back as a
// call argument (e.g. `cat(x)` after `let x = echo("BTC/USD")`).
func (v RuntimeValue) Stringify() string {
	switch v.Kind {
	case ValueUndefined:
		return ""
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case ValueString:
		return v.Str
	case ValueArray:
		out := "["
		for i, e := range v.Array {
			if i > 0 {
				out += ", "
			}
			out += e.Stringify()
		}
		return out + "]"
	case ValueObject:
		return "<object>"
	case ValueProcedure:
		return "<closure>"
	case ValueNativeProcedure:
		return "<native>"
	default:
		return fmt.Sprintf("<value kind %d>", v.Kind)
	}
}
