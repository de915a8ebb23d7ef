// Package toolserver implements the client side of the subprocess tool-server
// protocol: JSON-RPC 2.0, one message per line, over the worker's stdio. The
// worker is the catalog of record for tools and the universal execution
// fallback when no live browser is attached.
package toolserver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message is one JSON-RPC 2.0 message exchanged with the worker.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorResponse  `json:"error,omitempty"`
}

// ErrorResponse is a JSON-RPC error payload.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ServerInfo describes the connected worker.
type ServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	ProtocolVer string `json:"protocolVersion"`
}

// ToolDescriptor describes one tool exposed by the worker's catalog.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// toolsListResult is the payload of tools/list.
type toolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// toolCallParams are the parameters of tools/call.
type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is the payload of a tools/call response.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is one piece of content in a tool result.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`     // base64 for binary content
	MimeType string `json:"mimeType,omitempty"` // for binary content
}

// Text flattens the result's text blocks into a single string.
func (r *ToolCallResult) Text() string {
	var parts []string
	for _, block := range r.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolError carries a tool-execution error payload returned by the worker.
type ToolError struct {
	Tool    string
	Code    int
	Message string
	Data    any
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tool %q failed: %s (code %d)", e.Tool, e.Message, e.Code)
	}
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Message)
}
