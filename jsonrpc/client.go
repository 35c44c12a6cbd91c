package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnehpets/rpcserve/rpc"
)

// TransportFunc carries one raw request payload to a server and returns
// the raw response payload. An empty response is valid: it means the
// request was a notification (or a batch of nothing but notifications).
type TransportFunc func(ctx context.Context, payload []byte) ([]byte, error)

// ErrNotBatchable is returned by ExecBatch when the client is configured
// for a legacy format; the legacy envelopes predate batching.
var ErrNotBatchable = errors.New("jsonrpc: legacy formats are not batchable")

// ErrMissingResponse is set on a batch slot when the server reply lacks
// an entry for that call's id.
var ErrMissingResponse = errors.New("jsonrpc: no response for call")

// Client encodes outgoing calls and decodes responses back into raw
// values or typed *rpc.Error values. It is the symmetric counterpart of
// the Executor and shares its error taxonomy.
type Client struct {
	transport TransportFunc
	format    Format
	newID     func() string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithFormat selects the wire format the transport speaks. FormatV2 is
// the default and the only batchable one.
func WithFormat(f Format) ClientOption {
	return func(c *Client) { c.format = f }
}

// WithIDFunc overrides request id generation, mainly for tests.
func WithIDFunc(fn func() string) ClientOption {
	return func(c *Client) { c.newID = fn }
}

// NewClient creates a Client sending payloads through transport.
func NewClient(transport TransportFunc, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		format:    FormatV2,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call is one prepared outgoing call for ExecBatch.
type Call struct {
	method string
	params any
	oneWay bool
	id     string
}

// CallOption configures a single call.
type CallOption func(*Call)

// OneWay marks the call as a notification: no id is sent and no result
// is expected.
func OneWay() CallOption {
	return func(c *Call) { c.oneWay = true }
}

// NewCall prepares a call for ExecBatch. params may be nil, a slice
// (positional), or a struct/map (named).
func (c *Client) NewCall(method string, params any, opts ...CallOption) *Call {
	call := &Call{method: method, params: params}
	for _, opt := range opts {
		opt(call)
	}
	if !call.oneWay {
		call.id = c.newID()
	}
	return call
}

// Exec performs a single call and returns the raw result value. Server
// errors come back as *rpc.Error; transport failures as ordinary errors.
// A OneWay call returns (nil, nil) once the payload is handed to the
// transport.
func (c *Client) Exec(ctx context.Context, method string, params any, opts ...CallOption) (json.RawMessage, error) {
	call := c.NewCall(method, params, opts...)

	payload, err := c.encodeCall(call)
	if err != nil {
		return nil, err
	}
	resp, err := c.transport(ctx, payload)
	if err != nil {
		return nil, err
	}
	if call.oneWay {
		return nil, nil
	}
	return c.decodeResponse(resp)
}

// Result is one slot of a batch outcome: the raw result value or the
// error for that call. One-way calls leave both nil.
type Result struct {
	Value json.RawMessage
	Err   error
}

// ExecBatch performs the calls as one batch and returns one Result per
// call, in call order. Per-call server errors land in their slot and
// never abort siblings; only transport-level failures return an error.
func (c *Client) ExecBatch(ctx context.Context, calls ...*Call) ([]Result, error) {
	if len(calls) == 0 {
		return []Result{}, nil
	}
	if c.format != FormatV2 {
		return nil, ErrNotBatchable
	}

	elems := make([]json.RawMessage, len(calls))
	expect := 0
	for i, call := range calls {
		elem, err := c.encode20(call)
		if err != nil {
			return nil, err
		}
		elems[i] = elem
		if !call.oneWay {
			expect++
		}
	}
	payload, err := json.Marshal(elems)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport(ctx, payload)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(calls))
	if expect == 0 {
		return results, nil
	}

	var replies []json.RawMessage
	if err := json.Unmarshal(resp, &replies); err != nil {
		return nil, fmt.Errorf("jsonrpc: malformed batch response: %w", err)
	}
	byID := make(map[string]json.RawMessage, len(replies))
	for _, reply := range replies {
		var envelope struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(reply, &envelope); err != nil {
			continue
		}
		byID[envelope.ID] = reply
	}

	for i, call := range calls {
		if call.oneWay {
			continue
		}
		reply, ok := byID[call.id]
		if !ok {
			results[i] = Result{Err: ErrMissingResponse}
			continue
		}
		value, err := decode20(reply)
		results[i] = Result{Value: value, Err: err}
	}
	return results, nil
}

func (c *Client) encodeCall(call *Call) (json.RawMessage, error) {
	switch c.format {
	case FormatLegacyV1:
		return encodeLegacyV1(call)
	case FormatLegacyV2:
		return json.Marshal(map[string]any{
			"method": call.method,
			"params": call.params,
		})
	default:
		return c.encode20(call)
	}
}

func (c *Client) encode20(call *Call) (json.RawMessage, error) {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  call.method,
	}
	if call.params != nil {
		req["params"] = call.params
	}
	if !call.oneWay {
		req["id"] = call.id
	}
	return json.Marshal(req)
}

// encodeLegacyV1 flattens the params object into the request itself; v1
// params must therefore serialize to a JSON object.
func encodeLegacyV1(call *Call) (json.RawMessage, error) {
	raw, err := json.Marshal(call.params)
	if err != nil {
		return nil, err
	}
	obj := map[string]json.RawMessage{}
	if call.params != nil && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("jsonrpc: legacy v1 params must be an object: %w", err)
		}
	}
	if _, ok := obj["method"]; ok {
		return nil, fmt.Errorf("jsonrpc: legacy v1 params may not contain a %q key", "method")
	}
	obj["method"] = json.RawMessage(`"` + call.method + `"`)
	return json.Marshal(obj)
}

func (c *Client) decodeResponse(resp []byte) (json.RawMessage, error) {
	switch c.format {
	case FormatLegacyV1:
		return decodeLegacyV1(resp)
	case FormatLegacyV2:
		return decodeLegacyV2(resp)
	default:
		return decode20(resp)
	}
}

func decode20(resp []byte) (json.RawMessage, error) {
	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.Error      `json:"error"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return nil, fmt.Errorf("jsonrpc: malformed response: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	return envelope.Result, nil
}

func decodeLegacyV2(resp []byte) (json.RawMessage, error) {
	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Details any             `json:"details"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return nil, fmt.Errorf("jsonrpc: malformed response: %w", err)
	}
	if envelope.Code != 0 {
		return nil, &rpc.Error{Code: envelope.Code, Message: envelope.Message, Data: envelope.Details}
	}
	return envelope.Result, nil
}

// decodeLegacyV1 peels code/message off the flat envelope; whatever
// remains is the result object (on success) or the error data.
func decodeLegacyV1(resp []byte) (json.RawMessage, error) {
	members, err := rpc.DecodeObject(resp)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: malformed response: %w", err)
	}
	code := 0
	message := ""
	rest := make([]rpc.ObjectMember, 0, len(members))
	for _, m := range members {
		switch m.Key {
		case "code":
			if err := json.Unmarshal(m.Value, &code); err != nil {
				return nil, fmt.Errorf("jsonrpc: malformed response code: %w", err)
			}
		case "message":
			if err := json.Unmarshal(m.Value, &message); err != nil {
				return nil, fmt.Errorf("jsonrpc: malformed response message: %w", err)
			}
		default:
			rest = append(rest, m)
		}
	}
	if code != 0 {
		var data any
		if len(rest) > 0 {
			fields := make(map[string]json.RawMessage, len(rest))
			for _, m := range rest {
				fields[m.Key] = m.Value
			}
			data = fields
		}
		return nil, &rpc.Error{Code: code, Message: message, Data: data}
	}
	return encodeObject(rest), nil
}
