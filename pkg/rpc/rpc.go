// Package rpc contains the JSON-RPC 2.0 wire structures shared by the
// server and the client.
package rpc

import (
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the only JSON-RPC protocol version supported.
const JSONRPCVersion = "2.0"

type (
	// Request is a standard JSON-RPC 2.0 request with positional
	// parameters.
	Request struct {
		JSONRPC string            `json:"jsonrpc"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params"`
		ID      uint64            `json:"id"`
	}

	// Response is a standard JSON-RPC 2.0 response, exactly one of
	// Result and Error is set.
	Response struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *Error          `json:"error,omitempty"`
		ID      uint64          `json:"id"`
	}

	// Notification is a JSON-RPC event pushed over a websocket
	// connection, it carries no ID and expects no response.
	Notification struct {
		JSONRPC string            `json:"jsonrpc"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params"`
	}

	// Error is a JSON-RPC error structure.
	Error struct {
		Code    int64  `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data,omitempty"`
	}
)

// Standard JSON-RPC 2.0 error codes.
const (
	ParseErrorCode     = -32700
	InvalidRequestCode = -32600
	MethodNotFoundCode = -32601
	InvalidParamsCode  = -32602
	InternalErrorCode  = -32603
)

// Application error codes.
const (
	NotFoundCode       = -100
	NotAuthorizedCode  = -101
	LockedCode         = -102
	CapacityCode       = -103
	ReceiverRejectCode = -104
	ReentrancyCode     = -105
	BadStateCode       = -106
)

// NewError is an Error constructor taking a standard or application code.
func NewError(code int64, message, data string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewInvalidParamsError creates a standard "invalid params" error with
// the given details.
func NewInvalidParamsError(data string) *Error {
	return NewError(InvalidParamsCode, "Invalid params", data)
}

// NewInternalError creates a standard internal error with the given
// details.
func NewInternalError(data string) *Error {
	return NewError(InternalErrorCode, "Internal error", data)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%d) - %s", e.Message, e.Code, e.Data)
}

// Is allows errors.Is comparison by code.
func (e *Error) Is(target error) bool {
	inner, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == inner.Code
}

// EventMethod is the method name of notification events pushed to
// websocket clients.
const EventMethod = "ledger_event"
