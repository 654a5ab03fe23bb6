package paypal

// Order statuses reported by PayPal over the order lifecycle. The order
// record itself always lives on the provider side; these values only pass
// through this service.
const (
	StatusCreated   = "CREATED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusFailed    = "FAILED"
)

// Defaults applied when the caller omits payment details.
const (
	DefaultAmount      = "10.00"
	DefaultCurrency    = "USD"
	DefaultDescription = "Medical Appointment"
)

// OrderRequest describes the payment intent to open. Amount is a decimal
// string and is deliberately not validated here: PayPal is authoritative on
// billing correctness and rejects malformed amounts itself.
type OrderRequest struct {
	Amount      string
	Currency    string
	Description string

	// ReturnURL and CancelURL are where PayPal redirects the payer after
	// the provider-hosted approval step.
	ReturnURL string
	CancelURL string

	// IdempotencyKey, when set, is forwarded as PayPal-Request-Id so the
	// caller can guard against duplicate order creation. No local dedup
	// happens.
	IdempotencyKey string
}

// Order is the created payment intent. ApproveURL is the provider-hosted
// page the payer must be redirected to.
type Order struct {
	ID         string
	Status     string
	ApproveURL string
}

// OrderDetails is the current provider-side view of an order.
type OrderDetails struct {
	ID     string
	Status string
}

// Capture is the result of collecting funds against an approved order.
type Capture struct {
	ID     string
	Status string
}

// Wire types for the PayPal REST API.

type createOrderPayload struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type purchaseUnit struct {
	Amount      amount `json:"amount"`
	Description string `json:"description,omitempty"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type applicationContext struct {
	ReturnURL          string `json:"return_url"`
	CancelURL          string `json:"cancel_url"`
	UserAction         string `json:"user_action"`
	BrandName          string `json:"brand_name"`
	ShippingPreference string `json:"shipping_preference"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type orderPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

type tokenPayload struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
