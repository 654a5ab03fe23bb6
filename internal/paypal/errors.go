package paypal

import "fmt"

// AuthError means the client-credentials exchange with PayPal failed. No
// order call is attempted after it; retrying is the caller's decision.
type AuthError struct {
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("paypal authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("paypal authentication failed: %s", e.Detail)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IntegrationError means PayPal answered with a shape or status this client
// does not expect: an order response without an approve link, a capture of an
// already-captured order, and so on. It is an upstream contract problem, not
// a user error.
type IntegrationError struct {
	Detail string
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("unexpected paypal response: %s", e.Detail)
}

// UpstreamError is a network failure or non-2xx response from PayPal.
type UpstreamError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("paypal request failed: %v", e.Err)
	}
	return fmt.Sprintf("paypal request failed: status=%d body=%s", e.StatusCode, e.Detail)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IndeterminateError means a side-effecting call timed out before a response
// arrived. PayPal may have applied it anyway, so callers must never report
// it as a plain failure or as success.
type IndeterminateError struct {
	Op  string
	Err error
}

func (e *IndeterminateError) Error() string {
	return fmt.Sprintf("%s: outcome unknown after timeout: %v", e.Op, e.Err)
}

func (e *IndeterminateError) Unwrap() error { return e.Err }
