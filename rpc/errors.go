package rpc

import (
	"errors"
	"fmt"
	"strings"
)

// Reserved JSON-RPC protocol error codes. Application errors must stay
// outside [-32768,-32000].
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)

// ErrDuplicateMethod is returned by Registry.Register when the method name
// is already taken.
var ErrDuplicateMethod = errors.New("rpc: duplicate method")

// ErrReservedMethod is returned by Registry.Register for names in the
// "rpc." namespace, which the protocol reserves (e.g. rpc.discover).
var ErrReservedMethod = errors.New("rpc: reserved method name")

// Error is a coded RPC error. It is both the wire representation of the
// error member in a response and the value handlers return to fail a call
// with a specific code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates an Error with no data payload.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrorVariant is a registry-declared application error: a unique code, a
// fixed message, and an optional data shape used by discovery. Handlers
// raise a variant with Err.
type ErrorVariant struct {
	Code      int
	Message   string
	DataShape any
}

// Variant declares an ErrorVariant without a data shape.
func Variant(code int, message string) ErrorVariant {
	return ErrorVariant{Code: code, Message: message}
}

// Err builds the Error a handler returns to raise this variant. data may
// be nil.
func (v ErrorVariant) Err(data any) *Error {
	return &Error{Code: v.Code, Message: v.Message, Data: data}
}

// DataCarrier lets an arbitrary error expose a data payload. Undeclared
// errors that implement it are serialized with their data attached.
type DataCarrier interface {
	ErrorData() any
}

type dataError struct {
	err  error
	data any
}

func (e *dataError) Error() string  { return e.err.Error() }
func (e *dataError) Unwrap() error  { return e.err }
func (e *dataError) ErrorData() any { return e.data }

// WithData attaches a data payload to err. The dispatcher splits it back
// out when mapping the error to a response.
func WithData(err error, data any) error {
	return &dataError{err: err, data: data}
}

// ErrorData extracts an attached data payload from err, or nil.
func ErrorData(err error) any {
	var dc DataCarrier
	if errors.As(err, &dc) {
		return dc.ErrorData()
	}
	return nil
}

// Binding diagnostics. The info strings are part of the wire contract and
// must not be reworded.

func invalidParams(info string) *Error {
	return &Error{
		Code:    CodeInvalidParams,
		Message: "Invalid params",
		Data:    map[string]any{"info": info},
	}
}

func missingArguments(names []string) *Error {
	return invalidParams(fmt.Sprintf(
		"Missing %d required argument(s):  %s",
		len(names), strings.Join(names, ", "),
	))
}

func unexpectedArgument(name string) *Error {
	return invalidParams("Got an unexpected argument: " + name)
}

func positionalArity(declared, given int) *Error {
	verb := "were"
	if given == 1 {
		verb = "was"
	}
	return invalidParams(fmt.Sprintf(
		"Method takes %d positional arguments but %d %s given",
		declared, given, verb,
	))
}

func invalidArgumentValue(name string) *Error {
	return invalidParams("Invalid value for argument: " + name)
}
