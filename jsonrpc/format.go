package jsonrpc

import (
	"bytes"
	"encoding/json"

	"github.com/mnehpets/rpcserve/rpc"
)

// Format identifies the wire format of a request, detected structurally
// before any field-specific handling.
type Format int

const (
	// FormatV2 is the JSON-RPC 2.0 envelope. The only batchable format.
	FormatV2 Format = iota
	// FormatLegacyV1 is the oldest envelope: no "jsonrpc" and no "params"
	// key; every top-level key besides "method" is itself a parameter.
	// That includes keys like "id", a known constraint of the format,
	// preserved for compatibility.
	FormatLegacyV1
	// FormatLegacyV2 carries a "params" key but no "jsonrpc" key.
	FormatLegacyV2
)

func (f Format) String() string {
	switch f {
	case FormatV2:
		return "2.0"
	case FormatLegacyV1:
		return "legacy-v1"
	case FormatLegacyV2:
		return "legacy-v2"
	}
	return "unknown"
}

// call is one decoded unit of work.
type call struct {
	format Format
	method string
	params json.RawMessage
	id     json.RawMessage
	hasID  bool
	// invalid is set when the request shape is broken; such calls skip
	// dispatch and serialize as this error.
	invalid *rpc.Error
}

// notification reports whether the call produces no response entry. Only
// the 2.0 format has notifications; legacy requests always get a reply.
func (c *call) notification() bool {
	return c.format == FormatV2 && !c.hasID && c.invalid == nil
}

// classify detects the wire format of a single decoded request object.
// Batch elements are always current-format: the legacy envelopes predate
// batching.
func classify(members []rpc.ObjectMember, batchElem bool) call {
	var (
		verRaw, methodRaw, paramsRaw, idRaw json.RawMessage
		hasVer, hasMethod, hasParams, hasID bool
	)
	for _, m := range members {
		switch m.Key {
		case "jsonrpc":
			verRaw, hasVer = m.Value, true
		case "method":
			methodRaw, hasMethod = m.Value, true
		case "params":
			paramsRaw, hasParams = m.Value, true
		case "id":
			idRaw, hasID = m.Value, true
		}
	}

	if hasVer || batchElem {
		c := call{format: FormatV2, params: paramsRaw, id: idRaw, hasID: hasID}
		var ver string
		if !hasVer || json.Unmarshal(verRaw, &ver) != nil || ver != "2.0" {
			c.invalid = rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request")
			return c
		}
		if !hasMethod || json.Unmarshal(methodRaw, &c.method) != nil || c.method == "" {
			c.invalid = rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request")
			return c
		}
		return c
	}

	var method string
	if !hasMethod || json.Unmarshal(methodRaw, &method) != nil || method == "" {
		return call{
			format:  FormatV2,
			invalid: rpc.NewError(rpc.CodeInvalidRequest, "Invalid Request"),
		}
	}

	if hasParams {
		return call{format: FormatLegacyV2, method: method, params: paramsRaw}
	}

	// Legacy v1: the request object doubles as the params object.
	rest := make([]rpc.ObjectMember, 0, len(members))
	for _, m := range members {
		if m.Key != "method" {
			rest = append(rest, m)
		}
	}
	return call{format: FormatLegacyV1, method: method, params: encodeObject(rest)}
}

// encodeObject re-assembles object members into JSON, preserving order.
func encodeObject(members []rpc.ObjectMember) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(m.Key)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}
