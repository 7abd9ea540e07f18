// Package rpc exposes ledger state and instruction submission via a
// JSON-RPC 2.0 HTTP endpoint.
package rpc

import (
	"encoding/json"
	"errors"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object. Data carries the ledger error
// when the failure is a program rejection.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData identifies a ledger rejection.
type ErrorData struct {
	Code uint32         `json:"code"`
	Name string         `json:"name"`
	Kind core.ErrorKind `json:"kind"`
}

// Standard JSON-RPC error codes plus the server-defined range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32000
	CodeNotFound       = -32001
	CodeProgramError   = -32002
)

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

// failResponse maps err onto the closest JSON-RPC error, attaching the
// program error identity when there is one.
func failResponse(id any, err error) Response {
	if pe, ok := core.AsProgramError(err); ok {
		return Response{
			JSONRPC: "2.0",
			ID:      id,
			Error: &Error{
				Code:    CodeProgramError,
				Message: err.Error(),
				Data:    errorData(pe),
			},
		}
	}
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(id, CodeNotFound, err.Error())
	}
	return errResponse(id, CodeInternalError, err.Error())
}

func errorData(pe *core.ProgramError) *ErrorData {
	return &ErrorData{Code: pe.Code, Name: pe.Name, Kind: pe.Kind}
}

func okResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}
