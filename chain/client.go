// Package chain talks to the external ledger over JSON-RPC. The rest of the
// system treats the ledger as opaque: fetch a transaction, read a balance,
// submit a transfer, confirm a transfer.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const rpcErrCodeNotFound = -32004

// Client is a JSON-RPC ledger client.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	RPCURL  string
	Timeout time.Duration
}

// NewClient creates a new ledger client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// call makes a JSON-RPC call to the ledger node.
func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// GetTransaction returns a transaction by reference, or ErrTransactionNotFound
// if the ledger does not know it yet.
func (c *Client) GetTransaction(ctx context.Context, reference string) (*Transaction, error) {
	result, err := c.call(ctx, "getTransaction", []interface{}{reference})
	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) && rpcErr.Code == rpcErrCodeNotFound {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction %s: %w", reference, err)
	}

	// Some nodes answer null instead of an error object for unknown references
	if len(result) == 0 || string(result) == "null" {
		return nil, ErrTransactionNotFound
	}

	var tx Transaction
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", reference, err)
	}
	if tx.Reference == "" {
		tx.Reference = reference
	}
	return &tx, nil
}

// GetBalance returns the spendable balance of an account in base units.
func (c *Client) GetBalance(ctx context.Context, account string) (int64, error) {
	result, err := c.call(ctx, "getBalance", []interface{}{account})
	if err != nil {
		return 0, fmt.Errorf("get balance of %s: %w", account, err)
	}

	var balance int64
	if err := json.Unmarshal(result, &balance); err != nil {
		return 0, fmt.Errorf("decode balance of %s: %w", account, err)
	}
	return balance, nil
}

// SubmitTransfer submits a transfer and returns the ledger's reference for it.
// Submission is fire-and-forget: callers must follow up with ConfirmTransfer
// and must never resubmit, since the first transfer may still land.
func (c *Client) SubmitTransfer(ctx context.Context, from, to string, amount int64) (string, error) {
	result, err := c.call(ctx, "submitTransfer", []interface{}{from, to, amount})
	if err != nil {
		return "", fmt.Errorf("submit transfer %s -> %s: %w", from, to, err)
	}

	var reference string
	if err := json.Unmarshal(result, &reference); err != nil {
		return "", fmt.Errorf("decode transfer reference: %w", err)
	}
	return reference, nil
}

// ConfirmTransfer blocks until the ledger reports the transfer confirmed or
// failed. A false return with nil error means the transfer failed on-ledger.
func (c *Client) ConfirmTransfer(ctx context.Context, reference string) (bool, error) {
	result, err := c.call(ctx, "confirmTransfer", []interface{}{reference})
	if err != nil {
		return false, fmt.Errorf("confirm transfer %s: %w", reference, err)
	}

	var confirmed bool
	if err := json.Unmarshal(result, &confirmed); err != nil {
		return false, fmt.Errorf("decode confirmation of %s: %w", reference, err)
	}
	return confirmed, nil
}
