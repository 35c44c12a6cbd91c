package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/mnehpets/rpcserve/openrpc"
	"github.com/mnehpets/rpcserve/rpc"
)

// Executor is the protocol state machine: it decodes a raw payload into
// calls, resolves and invokes procedures, and serializes responses in
// whichever wire format the request arrived in.
//
// An Executor is safe for concurrent use once the registry is fully
// populated; each request's state is request-local.
type Executor struct {
	reg      *rpc.Registry
	discover bool

	docFn   func(context.Context) (any, error)
	docOnce sync.Once
	doc     any
	docErr  error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDiscover enables or disables the rpc.discover method. Enabled by
// default.
func WithDiscover(enabled bool) ExecutorOption {
	return func(e *Executor) { e.discover = enabled }
}

// WithDiscoverDoc overrides the discovery document source. The result is
// cached after the first call.
func WithDiscoverDoc(fn func(context.Context) (any, error)) ExecutorOption {
	return func(e *Executor) { e.docFn = fn }
}

// NewExecutor creates an Executor serving reg.
func NewExecutor(reg *rpc.Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{reg: reg, discover: true}
	for _, opt := range opts {
		opt(e)
	}
	if e.docFn == nil {
		e.docFn = openrpc.Handler(reg)
	}
	return e
}

// Exec processes one raw request payload (single or batched, any
// supported format) and returns the raw response payload. A nil return
// means no response body: the input was a notification, or a batch of
// nothing but notifications.
//
// Exec never fails: every error becomes a well-formed error envelope.
func (e *Executor) Exec(ctx context.Context, payload []byte) []byte {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return render20(nil, nil, rpc.NewError(rpc.CodeParseError, "Parse error"))
	}

	switch payload[0] {
	case '[':
		return e.execBatch(ctx, payload)
	case '{':
		return e.execSingle(ctx, payload)
	default:
		if json.Valid(payload) {
			return render20(nil, nil, rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request"))
		}
		return render20(nil, nil, rpc.NewError(rpc.CodeParseError, "Parse error"))
	}
}

func (e *Executor) execSingle(ctx context.Context, payload []byte) []byte {
	members, err := rpc.DecodeObject(payload)
	if err != nil {
		return render20(nil, nil, rpc.NewError(rpc.CodeParseError, "Parse error"))
	}

	c := classify(members, false)
	if c.invalid != nil {
		return render20(c.id, nil, c.invalid)
	}

	if c.notification() {
		e.run(ctx, &c)
		return nil
	}

	result, rpcErr := e.run(ctx, &c)
	switch c.format {
	case FormatLegacyV1:
		return renderLegacyV1(result, rpcErr)
	case FormatLegacyV2:
		return renderLegacyV2(result, rpcErr)
	default:
		return render20(c.id, result, rpcErr)
	}
}

func (e *Executor) execBatch(ctx context.Context, payload []byte) []byte {
	var elems []json.RawMessage
	if err := json.Unmarshal(payload, &elems); err != nil {
		return render20(nil, nil, rpc.NewError(rpc.CodeParseError, "Parse error"))
	}
	if len(elems) == 0 {
		return render20(nil, nil, rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request"))
	}

	// Calls start sequentially in array order; outcomes keep that order
	// regardless of individual failures.
	outcomes := make([]json.RawMessage, 0, len(elems))
	for _, elem := range elems {
		members, err := rpc.DecodeObject(elem)
		if err != nil {
			outcomes = append(outcomes,
				render20(nil, nil, rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request")))
			continue
		}
		c := classify(members, true)
		if c.invalid != nil {
			outcomes = append(outcomes, render20(c.id, nil, c.invalid))
			continue
		}
		if c.notification() {
			e.run(ctx, &c)
			continue
		}
		result, rpcErr := e.run(ctx, &c)
		outcomes = append(outcomes, render20(c.id, result, rpcErr))
	}

	if len(outcomes) == 0 {
		return nil
	}
	body, _ := json.Marshal(outcomes)
	return body
}

// run resolves and invokes one call, mapping every failure to a coded
// error. Nothing escapes the per-call boundary.
func (e *Executor) run(ctx context.Context, c *call) (any, *rpc.Error) {
	if c.method == rpc.DiscoverMethod {
		if !e.discover {
			return nil, rpc.NewError(rpc.CodeMethodNotFound, "Method not found")
		}
		return e.discoverDoc(ctx)
	}

	proc, ok := e.reg.Lookup(c.method)
	if !ok {
		return nil, rpc.NewError(rpc.CodeMethodNotFound, "Method not found")
	}

	result, err := proc.Call(ctx, c.params)
	if err == nil {
		return result, nil
	}
	var re *rpc.Error
	if errors.As(err, &re) {
		return nil, re
	}
	return nil, &rpc.Error{
		Code:    rpc.CodeServerError,
		Message: err.Error(),
		Data:    rpc.ErrorData(err),
	}
}

// discoverDoc generates the discovery document once and serves the cached
// copy afterwards; the registry is immutable during serving, so the
// document cannot go stale.
func (e *Executor) discoverDoc(ctx context.Context) (any, *rpc.Error) {
	e.docOnce.Do(func() {
		e.doc, e.docErr = e.docFn(ctx)
	})
	if e.docErr != nil {
		return nil, rpc.NewError(rpc.CodeInternalError, "Internal error")
	}
	return e.doc, nil
}

func render20(id json.RawMessage, result any, rpcErr *rpc.Error) json.RawMessage {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	if rpcErr != nil {
		body, _ := json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Error   *rpc.Error      `json:"error"`
		}{"2.0", id, rpcErr})
		return body
	}
	body, err := json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  any             `json:"result"`
	}{"2.0", id, result})
	if err != nil {
		return render20(id, nil, rpc.NewError(rpc.CodeInternalError, "Internal error"))
	}
	return body
}

// renderLegacyV1 emits the flat legacy envelope: result fields (when the
// result is an object) or error data fields merge into the envelope
// itself.
func renderLegacyV1(result any, rpcErr *rpc.Error) json.RawMessage {
	obj := map[string]any{}
	if rpcErr != nil {
		mergeFlat(obj, rpcErr.Data, "data")
		obj["code"] = rpcErr.Code
		obj["message"] = rpcErr.Message
	} else {
		mergeFlat(obj, result, "result")
		obj["code"] = 0
		obj["message"] = "OK"
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return renderLegacyV1(nil, rpc.NewError(rpc.CodeInternalError, "Internal error"))
	}
	return body
}

func renderLegacyV2(result any, rpcErr *rpc.Error) json.RawMessage {
	var obj map[string]any
	if rpcErr != nil {
		obj = map[string]any{"code": rpcErr.Code, "message": rpcErr.Message}
		if rpcErr.Data != nil {
			obj["details"] = rpcErr.Data
		}
	} else {
		obj = map[string]any{"code": 0, "message": "OK", "result": result}
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return renderLegacyV2(nil, rpc.NewError(rpc.CodeInternalError, "Internal error"))
	}
	return body
}

// mergeFlat merges v into obj when v serializes to a JSON object. A
// non-object, non-null value is kept under fallbackKey so it is not
// silently dropped.
func mergeFlat(obj map[string]any, v any, fallbackKey string) {
	if v == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return
	}
	if trimmed[0] != '{' {
		obj[fallbackKey] = json.RawMessage(trimmed)
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return
	}
	for k, val := range fields {
		obj[k] = val
	}
}
