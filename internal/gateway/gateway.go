package gateway

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

// Gateway is the Lightning payment backend consumed by the wallet. All
// calls are blocking remote operations; callers must not hold locks across
// them.
type Gateway interface {
	Invoice(ctx context.Context, amountMsats int64, description string) (*InvoiceResult, error)
	Decode(ctx context.Context, invoice string) (*DecodedInvoice, error)
	Pay(ctx context.Context, invoice string) (*PayResult, error)
}

type InvoiceResult struct {
	Invoice     string `json:"invoice"`
	OperationID string `json:"operationId"`
}

type DecodedInvoice struct {
	AmountMsats int64  `json:"amountMsats"`
	Description string `json:"description"`
	PaymentHash string `json:"paymentHash"`
	Timestamp   int64  `json:"timestamp"`
}

type PayResult struct {
	OperationID string `json:"operationId"`
	FeeMsats    int64  `json:"fee"`
}

// Error is a rejection from the Lightning backend. Permanent marks
// non-retryable failures (bad invoice, route definitively unavailable);
// everything else, timeouts included, is treated as retryable.
type Error struct {
	Message   string
	Permanent bool
}

func (e *Error) Error() string { return e.Message }

// IsPermanent reports whether err is a non-retryable gateway rejection.
func IsPermanent(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Permanent
}

// Client talks JSON over HTTP to the gateway service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Invoice(ctx context.Context, amountMsats int64, description string) (*InvoiceResult, error) {
	var out InvoiceResult
	err := c.post(ctx, "/v1/invoices", map[string]interface{}{
		"amountMsats": amountMsats,
		"description": description,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Decode(ctx context.Context, invoice string) (*DecodedInvoice, error) {
	var out DecodedInvoice
	err := c.post(ctx, "/v1/invoices/decode", map[string]interface{}{"invoice": invoice}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Pay(ctx context.Context, invoice string) (*PayResult, error) {
	var out PayResult
	err := c.post(ctx, "/v1/payments", map[string]interface{}{"invoice": invoice}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: fmt.Sprintf("gateway unreachable: %v", err)}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Message: fmt.Sprintf("gateway read: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		var fail struct {
			Message   string `json:"message"`
			Permanent bool   `json:"permanent"`
		}
		_ = json.Unmarshal(raw, &fail)
		if fail.Message == "" {
			fail.Message = fmt.Sprintf("gateway status %d", resp.StatusCode)
		}
		// 4xx means the request itself was rejected; retrying the same
		// invoice cannot succeed.
		return &Error{Message: fail.Message, Permanent: fail.Permanent || resp.StatusCode/100 == 4}
	}
	return json.Unmarshal(raw, out)
}
