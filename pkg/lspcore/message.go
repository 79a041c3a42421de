// Package lspcore implements the reusable runtime of a Language Server
// Protocol server: framed JSON-RPC codec, request/response/notification
// parsing, a type-safe dispatch router, lifecycle and cancellation
// middleware, and a client handle for server-initiated traffic.
//
// The package never imports a concrete LSP method or payload catalog
// (see pkg/lsptypes for that); handler authors register functions keyed by
// method name and typed in their parameter/result, and lspcore does the
// framing, dispatch, and lifecycle bookkeeping around them.
package lspcore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// protocolVersion is the only legal value of the "jsonrpc" field.
const protocolVersion = "2.0"

// Standard and LSP-specific JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
	CodeContentModified      = -32801
)

// ID is the sum type LSP uses for request identifiers: null, an integer,
// or a string. The zero value represents null.
type ID struct {
	isSet    bool
	isString bool
	num      int64
	str      string
}

// NewIntID builds a numeric request identifier.
func NewIntID(n int64) ID { return ID{isSet: true, num: n} }

// NewStringID builds a string request identifier.
func NewStringID(s string) ID { return ID{isSet: true, isString: true, str: s} }

// IsNull reports whether the identifier is the JSON null value.
func (id ID) IsNull() bool { return !id.isSet }

// IsString reports whether the identifier holds a string value.
func (id ID) IsString() bool { return id.isSet && id.isString }

// Int returns the numeric value of the identifier; it is meaningless when
// IsString or IsNull is true.
func (id ID) Int() int64 { return id.num }

// String returns a human-readable rendering of the identifier for log
// messages. The numeric id 5 and the string id "5" render alike, so the
// pending and inflight tables key on mapKey instead.
func (id ID) String() string {
	switch {
	case !id.isSet:
		return "null"
	case id.isString:
		return id.str
	default:
		return fmt.Sprintf("%d", id.num)
	}
}

// mapKey returns a type-tagged string usable as a map key that never
// collides across ID kinds: the numeric id 5 and the string id "5" must
// not be treated as the same identifier, so String() (which renders both
// as "5") is not safe to key a map on.
func (id ID) mapKey() string {
	switch {
	case !id.isSet:
		return "n:"
	case id.isString:
		return "s:" + id.str
	default:
		return fmt.Sprintf("i:%d", id.num)
	}
}

// Equal reports structural equality, matching the spec's identifier
// equality rule.
func (id ID) Equal(other ID) bool {
	if id.isSet != other.isSet {
		return false
	}
	if !id.isSet {
		return true
	}
	if id.isString != other.isString {
		return false
	}
	if id.isString {
		return id.str == other.str
	}
	return id.num == other.num
}

// MarshalJSON encodes the identifier as null, a JSON number, or a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case !id.isSet:
		return []byte("null"), nil
	case id.isString:
		return json.Marshal(id.str)
	default:
		return json.Marshal(id.num)
	}
}

// UnmarshalJSON decodes null, a JSON number, or a JSON string into an ID.
// Any other shape is rejected as an invalid identifier.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*id = ID{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("invalid string id: %w", err)
		}
		*id = NewStringID(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("invalid id %q: must be null, a string, or an integer", trimmed)
	}
	*id = NewIntID(n)
	return nil
}

// ErrorObject is the JSON-RPC error object carried by a failed Response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface so handler code can return
// *ErrorObject directly as a Go error.
func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewError builds an ErrorObject with no auxiliary data.
func NewError(code int, message string) *ErrorObject {
	return &ErrorObject{Code: code, Message: message}
}

// NewErrorf builds an ErrorObject with a formatted message.
func NewErrorf(code int, format string, args ...interface{}) *ErrorObject {
	return &ErrorObject{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Request is an inbound or outbound JSON-RPC call or notification. A
// Request with a non-null ID is a method call expecting a Response; a
// Request with a null/absent ID is a notification.
// JSONRPC, Method, and Params are also described by requestWire below; the
// two custom methods at the bottom of this section are what actually
// control (de)serialization.
type Request struct {
	JSONRPC string
	ID      ID
	Method  string
	Params  json.RawMessage
}

// IsNotification reports whether this Request carries no id.
func (r *Request) IsNotification() bool { return r.ID.IsNull() }

// requestWire mirrors Request but is only used to control whether "id" is
// emitted: a notification has no id field at all on the wire, not a null one.
type requestWire struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MarshalJSON omits "id" entirely for notifications instead of emitting
// "id":null, matching the wire-format distinction the spec draws between a
// request (id present) and a notification (id absent).
func (r Request) MarshalJSON() ([]byte, error) {
	wire := requestWire{JSONRPC: r.JSONRPC, Method: r.Method, Params: r.Params}
	if !r.ID.IsNull() {
		id := r.ID
		wire.ID = &id
	}
	return json.Marshal(wire)
}

// UnmarshalJSON accepts both an absent "id" (notification) and an explicit
// "id":null (also treated as a notification, per the spec's open question).
func (r *Request) UnmarshalJSON(data []byte) error {
	var wire requestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.JSONRPC = wire.JSONRPC
	r.Method = wire.Method
	r.Params = wire.Params
	if wire.ID != nil {
		r.ID = *wire.ID
	} else {
		r.ID = ID{}
	}
	return nil
}

// rawMessage is the shape used to sniff whether inbound bytes are a
// Request or a Response before committing to either struct, since both
// carry "id" but only one carries "method".
type rawMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *ErrorObject    `json:"error"`
}

// DecodedMessage is the result of classifying one framed JSON body: exactly
// one of Request or Response is non-nil.
type DecodedMessage struct {
	Request  *Request
	Response *Response
}

// DecodeMessage parses a single JSON-RPC body and classifies it as a
// request/notification or a response. A body with a "method" field is a
// request; otherwise, if it has "result" or "error", it's a response.
func DecodeMessage(body []byte) (*DecodedMessage, error) {
	var raw rawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if raw.JSONRPC != protocolVersion {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", raw.JSONRPC)
	}

	if raw.Method != "" {
		req := &Request{JSONRPC: raw.JSONRPC, Method: raw.Method, Params: raw.Params}
		if len(raw.ID) > 0 {
			if err := req.ID.UnmarshalJSON(raw.ID); err != nil {
				return nil, err
			}
		}
		return &DecodedMessage{Request: req}, nil
	}

	if raw.Result != nil || raw.Error != nil {
		if raw.Result != nil && raw.Error != nil {
			return nil, errors.New("response carries both result and error")
		}
		resp := &Response{JSONRPC: raw.JSONRPC, Result: raw.Result, Error: raw.Error}
		if len(raw.ID) > 0 {
			if err := resp.ID.UnmarshalJSON(raw.ID); err != nil {
				return nil, err
			}
		}
		return &DecodedMessage{Response: resp}, nil
	}

	return nil, errors.New("message is neither a request nor a response")
}

// Response is a JSON-RPC reply: exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// NewResultResponse builds a successful Response, marshaling result to JSON.
func NewResultResponse(id ID, result interface{}) (*Response, error) {
	var raw json.RawMessage
	if result == nil {
		raw = json.RawMessage("null")
	} else {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		raw = data
	}
	return &Response{JSONRPC: protocolVersion, ID: id, Result: raw}, nil
}

// NewErrorResponse builds a failed Response carrying err.
func NewErrorResponse(id ID, err *ErrorObject) *Response {
	return &Response{JSONRPC: protocolVersion, ID: id, Error: err}
}

// NewRequestMessage builds an outbound Request (server-initiated call or
// notification). Pass the zero ID for a notification.
func NewRequestMessage(id ID, method string, params interface{}) (*Request, error) {
	req := &Request{JSONRPC: protocolVersion, ID: id, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = data
	}
	return req, nil
}
