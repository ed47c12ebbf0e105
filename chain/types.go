package chain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTransactionNotFound is returned when the ledger has no record of the
// requested transaction. Callers treat it as "not visible yet", not as fraud.
var ErrTransactionNotFound = errors.New("transaction not found")

// Transfer is a single value movement inside a ledger transaction.
type Transfer struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
}

// Transaction is the parsed view of an on-ledger transaction: just the
// transfers it contains and whether the ledger marked it failed.
type Transaction struct {
	Reference string     `json:"reference"`
	Failed    bool       `json:"failed"`
	Transfers []Transfer `json:"transfers"`
}

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
	ID      int           `json:"id"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
