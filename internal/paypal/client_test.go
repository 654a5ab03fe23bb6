package paypal_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonanatree/medipay/internal/paypal"
)

// fakeProvider stands in for the PayPal sandbox: token endpoint, order
// creation, order details and capture.
type fakeProvider struct {
	srv *httptest.Server

	mu           sync.Mutex
	tokenCalls   int
	createCalls  int
	getCalls     int
	captureCalls int

	tokenStatus   int
	expiresIn     int64
	createStatus  int
	omitApprove   bool
	captureStatus int
	captureBody   string
	captureDelay  time.Duration

	lastCreateBody []byte
	lastRequestID  string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	f := &fakeProvider{
		tokenStatus:   http.StatusOK,
		expiresIn:     3600,
		createStatus:  http.StatusCreated,
		captureStatus: http.StatusCreated,
		captureBody:   `{"id":"ORDER-1","status":"COMPLETED"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", f.handleToken)
	mux.HandleFunc("/v2/checkout/orders", f.handleCreate)
	mux.HandleFunc("/v2/checkout/orders/", f.handleOrder)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.tokenCalls++
	status := f.tokenStatus
	expiresIn := f.expiresIn
	calls := f.tokenCalls
	f.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		w.Write([]byte(`{"error":"invalid_client"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":%d}`, calls, expiresIn)
}

func (f *fakeProvider) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.createCalls++
	f.lastCreateBody = body
	f.lastRequestID = r.Header.Get("PayPal-Request-Id")
	status := f.createStatus
	omitApprove := f.omitApprove
	f.mu.Unlock()

	if status/100 != 2 {
		w.WriteHeader(status)
		w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
		return
	}

	links := fmt.Sprintf(`[{"href":"%s/checkoutnow?token=ORDER-1","rel":"approve","method":"GET"}]`, f.srv.URL)
	if omitApprove {
		links = `[{"href":"https://example.test/self","rel":"self","method":"GET"}]`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"id":"ORDER-1","status":"CREATED","links":%s}`, links)
}

func (f *fakeProvider) handleOrder(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/capture") {
		f.mu.Lock()
		f.captureCalls++
		status := f.captureStatus
		body := f.captureBody
		delay := f.captureDelay
		f.mu.Unlock()

		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
		return
	}

	f.mu.Lock()
	f.getCalls++
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"id":"ORDER-1","status":"APPROVED","links":[]}`))
}

func (f *fakeProvider) client(timeout time.Duration) *paypal.Client {
	return paypal.New(
		f.srv.URL,
		paypal.Credentials{ClientID: "client-id", Secret: "client-secret"},
		&http.Client{Timeout: timeout},
	)
}

func TestAccessToken_Cached(t *testing.T) {
	f := newFakeProvider(t)
	c := f.client(time.Second)

	first, err := c.AccessToken(context.Background())
	require.NoError(t, err)
	second, err := c.AccessToken(context.Background())
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, f.tokenCalls)
}

func TestAccessToken_NeverServedPastExpiry(t *testing.T) {
	f := newFakeProvider(t)
	// Declared lifetime shorter than the safety slack: the cached token is
	// stale the moment it is issued.
	f.expiresIn = 5
	c := f.client(time.Second)

	_, err := c.AccessToken(context.Background())
	require.NoError(t, err)
	_, err = c.AccessToken(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, f.tokenCalls)
}

func TestAccessToken_Failure(t *testing.T) {
	f := newFakeProvider(t)
	f.tokenStatus = http.StatusUnauthorized
	c := f.client(time.Second)

	_, err := c.AccessToken(context.Background())

	var authErr *paypal.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.Detail, "invalid_client")
}

func TestCreateOrder_Defaults(t *testing.T) {
	f := newFakeProvider(t)
	c := f.client(time.Second)

	order, err := c.CreateOrder(context.Background(), paypal.OrderRequest{
		ReturnURL: "http://app.test/capture-order",
		CancelURL: "http://app.test/cancel-order",
	})
	require.NoError(t, err)
	require.Equal(t, "ORDER-1", order.ID)
	require.Equal(t, paypal.StatusCreated, order.Status)
	require.Equal(t, 1, f.createCalls)

	var sent struct {
		Intent        string `json:"intent"`
		PurchaseUnits []struct {
			Amount struct {
				CurrencyCode string `json:"currency_code"`
				Value        string `json:"value"`
			} `json:"amount"`
			Description string `json:"description"`
		} `json:"purchase_units"`
		ApplicationContext struct {
			ReturnURL          string `json:"return_url"`
			CancelURL          string `json:"cancel_url"`
			UserAction         string `json:"user_action"`
			ShippingPreference string `json:"shipping_preference"`
		} `json:"application_context"`
	}
	require.NoError(t, json.Unmarshal(f.lastCreateBody, &sent))
	require.Equal(t, "CAPTURE", sent.Intent)
	require.Len(t, sent.PurchaseUnits, 1)
	require.Equal(t, "10.00", sent.PurchaseUnits[0].Amount.Value)
	require.Equal(t, "USD", sent.PurchaseUnits[0].Amount.CurrencyCode)
	require.Equal(t, "Medical Appointment", sent.PurchaseUnits[0].Description)
	require.Equal(t, "http://app.test/capture-order", sent.ApplicationContext.ReturnURL)
	require.Equal(t, "http://app.test/cancel-order", sent.ApplicationContext.CancelURL)
	require.Equal(t, "PAY_NOW", sent.ApplicationContext.UserAction)
	require.Equal(t, "NO_SHIPPING", sent.ApplicationContext.ShippingPreference)
}

func TestCreateOrder_ForwardsIdempotencyKey(t *testing.T) {
	f := newFakeProvider(t)
	c := f.client(time.Second)

	_, err := c.CreateOrder(context.Background(), paypal.OrderRequest{
		Amount:         "25.50",
		IdempotencyKey: "checkout-42",
	})
	require.NoError(t, err)
	require.Equal(t, "checkout-42", f.lastRequestID)
}

func TestCreateOrder_AuthFailureSkipsOrderCall(t *testing.T) {
	f := newFakeProvider(t)
	f.tokenStatus = http.StatusInternalServerError
	c := f.client(time.Second)

	_, err := c.CreateOrder(context.Background(), paypal.OrderRequest{Amount: "25.50", Currency: "USD"})

	var authErr *paypal.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, 0, f.createCalls)
}

func TestCreateOrder_MissingApproveLink(t *testing.T) {
	f := newFakeProvider(t)
	f.omitApprove = true
	c := f.client(time.Second)

	_, err := c.CreateOrder(context.Background(), paypal.OrderRequest{})

	var integrationErr *paypal.IntegrationError
	require.ErrorAs(t, err, &integrationErr)
	require.Contains(t, integrationErr.Detail, "approve link")
}

func TestCreateOrder_UpstreamRejection(t *testing.T) {
	f := newFakeProvider(t)
	f.createStatus = http.StatusUnprocessableEntity
	c := f.client(time.Second)

	_, err := c.CreateOrder(context.Background(), paypal.OrderRequest{Amount: "bogus"})

	var upstreamErr *paypal.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	require.Equal(t, http.StatusUnprocessableEntity, upstreamErr.StatusCode)
}

func TestCaptureOrder_Success(t *testing.T) {
	f := newFakeProvider(t)
	c := f.client(time.Second)

	capture, err := c.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	require.Equal(t, "ORDER-1", capture.ID)
	require.Equal(t, paypal.StatusCompleted, capture.Status)
	require.Equal(t, 1, f.captureCalls)
}

func TestCaptureOrder_TimeoutIsIndeterminate(t *testing.T) {
	f := newFakeProvider(t)
	f.captureDelay = 300 * time.Millisecond
	c := f.client(50 * time.Millisecond)

	_, err := c.CaptureOrder(context.Background(), "ORDER-1")

	var indeterminate *paypal.IndeterminateError
	require.ErrorAs(t, err, &indeterminate)

	// A timeout must never degrade into the plain upstream classification.
	var upstreamErr *paypal.UpstreamError
	require.False(t, errors.As(err, &upstreamErr))
}

func TestCaptureOrder_AlreadyCaptured(t *testing.T) {
	f := newFakeProvider(t)
	f.captureStatus = http.StatusUnprocessableEntity
	f.captureBody = `{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"ORDER_ALREADY_CAPTURED"}]}`
	c := f.client(time.Second)

	_, err := c.CaptureOrder(context.Background(), "ORDER-1")

	var integrationErr *paypal.IntegrationError
	require.ErrorAs(t, err, &integrationErr)
	require.Contains(t, integrationErr.Detail, "ORDER_ALREADY_CAPTURED")
}

func TestGetOrder(t *testing.T) {
	f := newFakeProvider(t)
	c := f.client(time.Second)

	details, err := c.GetOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	require.Equal(t, "ORDER-1", details.ID)
	require.Equal(t, paypal.StatusApproved, details.Status)
	require.Equal(t, 1, f.getCalls)
}
