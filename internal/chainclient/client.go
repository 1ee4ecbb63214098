// Package chainclient provides a JSON-RPC 2.0 client for Klingpay nodes.
// It implements the engine's ChainSource and Broadcaster collaborator
// contracts; retries and backoff are deliberately left to callers.
package chainclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Klingon-tech/klingpay-wallet/internal/engine"
	"github.com/Klingon-tech/klingpay-wallet/internal/log"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// DefaultTimeout is the per-call HTTP timeout when none is configured.
const DefaultTimeout = 10 * time.Second

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, DefaultTimeout)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
// Individual calls can still be cut shorter through their context.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the
// provided pointer. If result is nil, the response result is discarded.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return &RPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// SpendableOutputs fetches the unspent outputs controlled by an address.
// An empty result is a valid answer; the engine decides what to do with it.
func (c *Client) SpendableOutputs(ctx context.Context, address string) ([]engine.UTXO, error) {
	var utxos []engine.UTXO
	if err := c.Call(ctx, "klingpay_getUTXOs", []string{address}, &utxos); err != nil {
		return nil, fmt.Errorf("get utxos: %w", err)
	}
	for i := range utxos {
		if utxos[i].Address == "" {
			utxos[i].Address = address
		}
	}
	return utxos, nil
}

// AddressBalance fetches the advisory balance of an address.
func (c *Client) AddressBalance(ctx context.Context, address string) (engine.AddressBalance, error) {
	var bal engine.AddressBalance
	if err := c.Call(ctx, "klingpay_getBalance", []string{address}, &bal); err != nil {
		return engine.AddressBalance{}, fmt.Errorf("get balance: %w", err)
	}
	return bal, nil
}

// SubmitTransaction broadcasts a signed transaction's bytes and returns
// the transaction hash the node accepted it under.
func (c *Client) SubmitTransaction(ctx context.Context, raw []byte) (types.Hash, error) {
	var hashHex string
	if err := c.Call(ctx, "klingpay_sendRawTransaction", []string{hex.EncodeToString(raw)}, &hashHex); err != nil {
		return types.Hash{}, fmt.Errorf("send raw transaction: %w", err)
	}
	hash, err := types.HexToHash(hashHex)
	if err != nil {
		return types.Hash{}, fmt.Errorf("parse tx hash: %w", err)
	}
	log.Chain.Debug().Str("hash", hashHex).Msg("raw transaction accepted")
	return hash, nil
}
