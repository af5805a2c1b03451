package a2a

import (
	"encoding/json"

	pkgerrors "decisionflow/pkg/errors"
)

// JSON-RPC 2.0 methods understood by the agent server.
const (
	MethodMessageSend   = "message/send"
	MethodMessageStream = "message/stream"
	MethodTasksGet      = "tasks/get"
	MethodTasksCancel   = "tasks/cancel"
)

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// A2A extension error codes.
const (
	CodeTaskNotFound                 = -32001
	CodeTaskNotCancelable            = -32002
	CodePushNotificationsUnsupported = -32003
	CodeUnsupportedOperation         = -32004
	CodeContentTypeNotSupported      = -32005
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Valid reports whether the envelope is well formed.
func (r *Request) Valid() bool {
	return r.JSONRPC == "2.0" && r.Method != ""
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewResponse builds a success response.
func NewResponse(id json.RawMessage, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// errorToRPC maps domain errors onto protocol error codes.
func errorToRPC(err error) *RPCError {
	switch {
	case pkgerrors.Is(err, pkgerrors.ErrTaskNotFound):
		return &RPCError{Code: CodeTaskNotFound, Message: "task not found"}
	case pkgerrors.Is(err, pkgerrors.ErrTaskNotCancelable):
		return &RPCError{Code: CodeTaskNotCancelable, Message: "task cannot be canceled"}
	case pkgerrors.Is(err, pkgerrors.ErrPushNotificationsUnsupported):
		return &RPCError{Code: CodePushNotificationsUnsupported, Message: "push notifications are not supported"}
	case pkgerrors.Is(err, pkgerrors.ErrUnsupportedOperation):
		return &RPCError{Code: CodeUnsupportedOperation, Message: "operation is not supported"}
	case pkgerrors.Is(err, pkgerrors.ErrContentTypeNotSupported):
		return &RPCError{Code: CodeContentTypeNotSupported, Message: "content type is not supported"}
	case pkgerrors.Is(err, pkgerrors.ErrInvalidInput):
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	default:
		return &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
}
