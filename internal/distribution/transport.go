package distribution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport moves real tokens on the external ledger rail. Implementations
// report success with an opaque settlement reference; a returned error is
// ambiguous — the remote transfer may still have landed.
type Transport interface {
	Send(ctx context.Context, recipientAddress string, amount int64) (signature string, err error)
}

// HTTPTransport posts transfer requests to a settlement endpoint as JSON.
type HTTPTransport struct {
	Endpoint string       // Settlement endpoint URL
	Client   *http.Client // HTTP client with its own timeout
}

// NewHTTPTransport creates a transport client for the given endpoint
func NewHTTPTransport(endpoint string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second // Default request timeout
	}
	return &HTTPTransport{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

// sendRequest is the wire payload for a transfer.
type sendRequest struct {
	Recipient string `json:"recipient"` // Destination address
	Amount    int64  `json:"amount"`    // Tokens, smallest unit
}

// sendResponse is the wire payload of the endpoint's reply.
type sendResponse struct {
	Signature string `json:"signature"` // Settlement reference on success
	Error     string `json:"error"`     // Remote failure message, if any
}

// Send posts the transfer and returns the settlement reference.
func (t *HTTPTransport) Send(ctx context.Context, recipientAddress string, amount int64) (string, error) {
	body, err := json.Marshal(sendRequest{Recipient: recipientAddress, Amount: amount})
	if err != nil {
		return "", fmt.Errorf("marshal transfer: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transport error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	var out sendResponse // Decoded reply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transfer response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("transport rejected transfer: %s", out.Error)
	}
	if out.Signature == "" {
		return "", fmt.Errorf("transport returned no signature")
	}
	return out.Signature, nil
}
