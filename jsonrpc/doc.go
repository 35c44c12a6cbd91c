// Package jsonrpc implements the transport-agnostic JSON-RPC execution
// engine: an Executor that turns raw request payloads into raw response
// payloads, and a Client that encodes outgoing calls over any transport.
//
// This package implements the JSON-RPC 2.0 specification
// (https://www.jsonrpc.org/specification) plus two legacy envelopes kept
// for backward compatibility.
//
// # Wire formats
//
// Three request formats are detected structurally:
//
//   - JSON-RPC 2.0: {"jsonrpc":"2.0","method":...,"params":...,"id":...}.
//     Supports batching (a JSON array of requests) and notifications
//     (requests without an id, which produce no response entry).
//   - Legacy v2: {"method":...,"params":...} with no "jsonrpc" key.
//     Responses are {"code":0,"message":"OK","result":...} on success and
//     {"code":...,"message":...,"details":...} on error.
//   - Legacy v1: {"method":...} with no "jsonrpc" and no "params" key;
//     every other top-level key is a parameter. Result and error data
//     fields merge flat into the response envelope.
//
// The legacy formats are single-request only.
//
// # Executing
//
//	reg := rpc.New()
//	reg.MustRegister("echo", echoHandler)
//	ex := jsonrpc.NewExecutor(reg)
//	respBody := ex.Exec(ctx, reqBody) // nil for notifications
//
// Every failure is confined to its call: a batch of three requests where
// the middle one fails still yields three outcomes in input order. Only
// unparsable input and an invalid top-level shape are fatal to the whole
// request, and even those return a single well-formed error envelope.
//
// The reserved method "rpc.discover" (enabled by default) serves an
// OpenRPC description generated from the registry, see package openrpc.
//
// # Calling
//
//	clt := jsonrpc.NewClient(transport)
//	raw, err := clt.Exec(ctx, "sum", []int{1, 2})
//	results, err := clt.ExecBatch(ctx,
//	    clt.NewCall("sum", []int{1, 2}),
//	    clt.NewCall("log", LogParams{Line: "hi"}, jsonrpc.OneWay()))
//
// Server-declared errors surface as *rpc.Error values; transport
// failures as ordinary errors.
package jsonrpc
