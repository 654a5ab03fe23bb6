package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// SandboxAPIBase is the default REST endpoint; production deployments set
// PAYPAL_API_BASE instead.
const SandboxAPIBase = "https://api-m.sandbox.paypal.com"

// tokenExpirySlack keeps a cached token from being presented right at its
// declared expiry; anything closer than this is treated as already expired.
const tokenExpirySlack = 30 * time.Second

// Credentials is the client-credentials pair issued by PayPal for this
// service. Loaded once at startup and injected; never mutated.
type Credentials struct {
	ClientID string
	Secret   string
}

// Client talks to the PayPal OAuth2 and order-management REST APIs. All
// calls are bounded by the HTTP client's timeout; none are retried.
type Client struct {
	Base  string
	HTTP  *http.Client
	creds Credentials

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

func New(base string, creds Credentials, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc, creds: creds}
}

// AccessToken exchanges the client credentials for a bearer token. Tokens
// are cached until shortly before their provider-declared expiry; a token is
// never served past it.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.cachedToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		token := c.cachedToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return "", &AuthError{Detail: fmt.Sprintf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))}
	}

	var payload tokenPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &AuthError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if payload.AccessToken == "" {
		return "", &AuthError{Detail: "token response has no access_token"}
	}

	issued := time.Now()
	c.mu.Lock()
	c.cachedToken = payload.AccessToken
	c.tokenExpiry = issued.Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return payload.AccessToken, nil
}

// CreateOrder opens a payment intent with intent CAPTURE and returns the
// approve link the payer must be sent to. Exactly one provider-side order is
// opened per call; this is never retried because a retry would open a second
// order.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) (*Order, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	if order.Amount == "" {
		order.Amount = DefaultAmount
	}
	if order.Currency == "" {
		order.Currency = DefaultCurrency
	}
	if order.Description == "" {
		order.Description = DefaultDescription
	}

	payload := createOrderPayload{
		Intent: "CAPTURE",
		ApplicationContext: applicationContext{
			ReturnURL: order.ReturnURL,
			CancelURL: order.CancelURL,
			// PAY_NOW skips the provider-side review step so the payer
			// commits in one screen.
			UserAction:         "PAY_NOW",
			BrandName:          "Healthcare App",
			ShippingPreference: "NO_SHIPPING",
		},
		PurchaseUnits: []purchaseUnit{{
			Amount:      amount{CurrencyCode: order.Currency, Value: order.Amount},
			Description: order.Description,
		}},
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/v2/checkout/orders", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build create-order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if order.IdempotencyKey != "" {
		req.Header.Set("PayPal-Request-Id", order.IdempotencyKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("create order: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(b))}
	}

	var created orderPayload
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &IntegrationError{Detail: fmt.Sprintf("decode order response: %v", err)}
	}

	approve := ""
	for _, l := range created.Links {
		if l.Rel == "approve" {
			approve = l.Href
			break
		}
	}
	if approve == "" {
		return nil, &IntegrationError{Detail: fmt.Sprintf("order %s has no approve link", created.ID)}
	}

	return &Order{ID: created.ID, Status: created.Status, ApproveURL: approve}, nil
}

// GetOrder fetches the provider-side state of an order. Used for logging
// context before capture; capture does not depend on it.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderDetails, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+"/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("build get-order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("get order %s: %w", orderID, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(b))}
	}

	var details orderPayload
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, &IntegrationError{Detail: fmt.Sprintf("decode order %s: %v", orderID, err)}
	}

	return &OrderDetails{ID: details.ID, Status: details.Status}, nil
}

// CaptureOrder collects the funds for an approved order. This is the one
// call where money moves: a timeout is reported as IndeterminateError, never
// as a plain failure, because the capture may have succeeded upstream after
// the local deadline fired. Capturing an already-captured order is rejected
// by PayPal itself; no local guard is kept.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("build capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &IndeterminateError{Op: "capture order " + orderID, Err: err}
		}
		return nil, &UpstreamError{Err: fmt.Errorf("capture order %s: %w", orderID, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		detail := strings.TrimSpace(string(b))
		if resp.StatusCode == http.StatusUnprocessableEntity {
			// ORDER_ALREADY_CAPTURED, ORDER_NOT_APPROVED and friends
			// come back as 422 with an issue payload.
			return nil, &IntegrationError{Detail: detail}
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var captured orderPayload
	if err := json.NewDecoder(resp.Body).Decode(&captured); err != nil {
		return nil, &IntegrationError{Detail: fmt.Sprintf("decode capture response for %s: %v", orderID, err)}
	}

	return &Capture{ID: captured.ID, Status: captured.Status}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
