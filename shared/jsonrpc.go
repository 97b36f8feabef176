package shared

import "encoding/json"

// JSONRPCVersion is the protocol version sent in every request.
const JSONRPCVersion = "2.0"

// JSON-RPC error codes used by the gateway.
const (
	RPCCodeParseError     = -32700
	RPCCodeInvalidRequest = -32600
	RPCCodeMethodNotFound = -32601
	RPCCodeInvalidParams  = -32602
	RPCCodeInternal       = -32603
	RPCCodeServer         = -32000
)

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope. A missing result leaves
// Result nil; a null result is kept as the literal "null".
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is the error member of a response.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CallArgs is the transaction object taken by eth_sendTransaction and eth_estimateGas.
type CallArgs struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Value    string `json:"value,omitempty"`
	Gas      string `json:"gas,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
}

// AuthRequest is the body of POST /authenticate/.
type AuthRequest struct {
	Signature string `json:"signature"`
	Address   string `json:"address"`
}
