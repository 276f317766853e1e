package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const Version = "2.0"

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Request is a JSON-RPC 2.0 request. An empty ID marks a notification.
// A numeric id is kept as its literal text and echoed back as a number.
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
	ID     string         `json:"id,omitempty"`

	numericID bool
}

type wireRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  map[string]any  `json:"params,omitempty"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{Jsonrpc: Version, Method: r.Method, Params: r.Params}
	if r.ID != "" {
		w.ID = encodeID(r.ID, r.numericID)
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts string or numeric ids; numeric ids keep their
// literal text.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, numeric, err := decodeID(w.ID)
	if err != nil {
		return err
	}
	*r = Request{Method: w.Method, Params: w.Params, ID: id, numericID: numeric}
	return nil
}

// decodeID returns the id text and whether it was a JSON number.
func decodeID(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, false, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false, fmt.Errorf("invalid id %s", raw)
	}
	return n.String(), true, nil
}

func encodeID(id string, numeric bool) json.RawMessage {
	if numeric {
		return json.RawMessage(id)
	}
	data, _ := json.Marshal(id)
	return data
}

// Error is the error member of a failed Response. It also satisfies the
// error interface so clients can return it directly.
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Response carries exactly one of a result or an error. The fields are
// unexported; Success and Failure are the only ways to build one.
type Response struct {
	id        string
	numericID bool
	result    map[string]any
	err       *Error
}

// Success builds a result response. A nil result becomes an empty object.
func Success(id string, result map[string]any) Response {
	if result == nil {
		result = map[string]any{}
	}
	return Response{id: id, result: result}
}

func Failure(id string, code int, message string) Response {
	return Response{id: id, err: &Error{Code: code, Message: message}}
}

func failureWithData(id string, code int, message string, data map[string]any) Response {
	return Response{id: id, err: &Error{Code: code, Message: message, Data: data}}
}

func (r Response) ID() string { return r.id }

// replyTo gives r the id of req, keeping its JSON type.
func (r Response) replyTo(req Request) Response {
	r.id = req.ID
	r.numericID = req.numericID
	return r
}

// Result returns the result and true, or nil and false for an error response.
func (r Response) Result() (map[string]any, bool) {
	if r.err != nil {
		return nil, false
	}
	return r.result, true
}

// Err returns the error member, or nil for a result response.
func (r Response) Err() *Error { return r.err }

func (r Response) IsError() bool { return r.err != nil }

type wireResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  map[string]any  `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{Jsonrpc: Version, Error: r.err}
	if r.id != "" {
		w.ID = encodeID(r.id, r.numericID)
	} else {
		w.ID = json.RawMessage("null")
	}
	if r.err == nil {
		w.Result = r.result
		if w.Result == nil {
			w.Result = map[string]any{}
		}
	}
	return json.Marshal(w)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, numeric, err := decodeID(w.ID)
	if err != nil {
		return err
	}
	switch {
	case w.Error != nil:
		*r = Response{id: id, numericID: numeric, err: w.Error}
	case w.Result != nil:
		*r = Success(id, w.Result)
		r.numericID = numeric
	default:
		return fmt.Errorf("response %s has neither result nor error", strconv.Quote(id))
	}
	return nil
}
