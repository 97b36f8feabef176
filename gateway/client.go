// Package gateway is a client for the gateway's join/authenticate flow and its
// token-scoped JSON-RPC endpoint, including the session key overloads.
package gateway

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tengw/internal/ethsign"
	"tengw/internal/logging"
	"tengw/shared"
)

// DefaultTimeout is the HTTP timeout used when no client is supplied.
const DefaultTimeout = 30 * time.Second

// maxBodySize bounds gateway response bodies.
const maxBodySize = 10 * 1024 * 1024

// Client talks to one gateway on behalf of one account. It holds the token obtained
// by Join; a Client is not meant to be shared between goroutines while joining.
type Client struct {
	network shared.NetworkConfig
	http    *http.Client
	key     *ecdsa.PrivateKey
	address common.Address
	logger  *zap.Logger
	token   string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	key    *ecdsa.PrivateKey
	http   *http.Client
	logger *zap.Logger
}

// WithPrivateKey uses key instead of generating a fresh account.
func WithPrivateKey(key *ecdsa.PrivateKey) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.http = c
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a client for network. Without WithPrivateKey a new account is generated.
func New(network shared.NetworkConfig, opts ...Option) (*Client, error) {
	if err := network.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.key == nil {
		key, err := ethsign.GenerateKey()
		if err != nil {
			return nil, err
		}
		o.key = key
	}
	if o.http == nil {
		o.http = &http.Client{Timeout: DefaultTimeout}
	}

	c := &Client{
		network: network.WithOverrides(network.URL, 0),
		http:    o.http,
		key:     o.key,
		address: ethsign.AddressOf(o.key),
		logger:  logging.OrNop(o.logger),
	}
	c.logger = c.logger.With(zap.String("account", c.address.Hex()))
	return c, nil
}

// Address returns the account address.
func (c *Client) Address() common.Address { return c.address }

// PrivateKey returns the account key.
func (c *Client) PrivateKey() *ecdsa.PrivateKey { return c.key }

// Network returns the gateway configuration.
func (c *Client) Network() shared.NetworkConfig { return c.network }

// Token returns the token from the last Join, or "".
func (c *Client) Token() string { return c.token }

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Join requests a new token from GET {base}/join/ and stores it.
func (c *Client) Join(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.network.URL+"/join/", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "join")
	if err != nil {
		return "", err
	}

	c.token = strings.TrimSpace(string(body))
	c.logger.Info("Joined gateway", zap.String("token", c.token))
	return c.token, nil
}

// Sign returns the EIP-712 authentication signature for the current token.
func (c *Client) Sign() (string, error) {
	if c.token == "" {
		return "", ErrNotJoined
	}
	sig, err := ethsign.SignAuthentication(c.key, c.token, c.network.ChainID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	c.logger.Debug("Signed authentication message", zap.String("signature", sig))
	return sig, nil
}

// Authenticate registers the account with the current token. It returns true when the
// gateway answers "success"; any other 2xx body is logged and reported as false.
func (c *Client) Authenticate(ctx context.Context, signature string) (bool, error) {
	if c.token == "" {
		return false, ErrNotJoined
	}

	payload, err := json.Marshal(shared.AuthRequest{
		Signature: signature,
		Address:   c.address.Hex(),
	})
	if err != nil {
		return false, fmt.Errorf("marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL("/authenticate/"), bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "authenticate")
	if err != nil {
		return false, err
	}

	if strings.TrimSpace(string(body)) == shared.AuthSuccessBody {
		c.logger.Info("Authenticated")
		return true, nil
	}
	c.logger.Warn("Authentication failed", zap.String("response", string(body)))
	return false, nil
}

// FullAuthFlow runs Join, Sign and Authenticate in order.
func (c *Client) FullAuthFlow(ctx context.Context) (bool, error) {
	if _, err := c.Join(ctx); err != nil {
		return false, err
	}
	sig, err := c.Sign()
	if err != nil {
		return false, err
	}
	return c.Authenticate(ctx, sig)
}

// RequireAuth runs FullAuthFlow and turns a rejected authentication into ErrAuthRejected.
func (c *Client) RequireAuth(ctx context.Context) error {
	ok, err := c.FullAuthFlow(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthRejected
	}
	return nil
}

// Call invokes method on the token-scoped JSON-RPC endpoint and decodes the result
// into out (which may be nil). A JSON null result decodes as the zero value of out.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	if params == nil {
		params = []any{}
	}

	payload, err := json.Marshal(shared.JSONRPCRequest{
		JSONRPC: shared.JSONRPCVersion,
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL("/"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, method)
	if err != nil {
		return err
	}

	var resp shared.JSONRPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", method, err)
	}
	if resp.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		}
	}
	if len(resp.Result) == 0 {
		return fmt.Errorf("%s: %w", method, ErrMissingResult)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: unmarshal result: %w", method, err)
	}
	return nil
}

func (c *Client) tokenURL(path string) string {
	return c.network.URL + path + "?token=" + url.QueryEscape(c.token)
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(op, resp.StatusCode, body)
	}
	return body, nil
}

// JoinStatus issues a bare GET {baseURL}/join/ and returns the HTTP status code.
// It is used for load testing and does not keep the token.
func JoinStatus(ctx context.Context, httpClient *http.Client, baseURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/join/", nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	return resp.StatusCode, nil
}
