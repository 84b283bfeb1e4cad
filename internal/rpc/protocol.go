// Package rpc implements the newline-delimited JSON-RPC 2.0 stdio protocol
// described in spec §4.H/§6: a long-lived process reading requests on stdin
// and writing responses on stdout, with a hand-rolled tool registry in place
// of the teacher's modelcontextprotocol/go-sdk-based mcp.AddTool.
package rpc

import "encoding/json"

// protocolVersion is the negotiated MCP-style wire version advertised by
// initialize.
const protocolVersion = "2024-11-05"

// Request is an inbound JSON-RPC 2.0 message. ID is nil for notifications
// (none are currently accepted, but the field is kept for wire fidelity).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outbound JSON-RPC 2.0 message. Exactly one of Result/Error
// is populated.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC 2.0 error codes used for protocol-level failures, as
// opposed to the domain error kinds in errors.go which travel inside
// wireError.Data.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      any    `json:"clientInfo,omitempty"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      map[string]any `json:"serverInfo"`
}

type toolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema map[string]any  `json:"inputSchema"`
	Annotations ToolAnnotations `json:"annotations"`
}

type toolsListResult struct {
	Tools []toolDescriptor `json:"tools"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}
