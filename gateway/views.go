package gateway

import (
	"io"
	"net/http"
)

// Terminal outcome pages for the redirect flow. Each page deep-links back
// into the client application after a short delay. The pages are constants:
// no caller data is ever interpolated into them.

const successPage = `<html>
  <head>
    <title>Payment Successful</title>
    <meta http-equiv="refresh" content="3;url=yourapp://payment-success" />
    <style>
      body { font-family: Arial, sans-serif; text-align: center; padding-top: 50px; }
      .success { color: green; }
    </style>
  </head>
  <body>
    <h1 class="success">Payment Successful!</h1>
    <p>Your appointment has been booked successfully.</p>
    <p>Redirecting back to the app...</p>
  </body>
</html>`

const errorPage = `<html>
  <head>
    <title>Payment Error</title>
    <meta http-equiv="refresh" content="5;url=yourapp://payment-error" />
    <style>
      body { font-family: Arial, sans-serif; text-align: center; padding-top: 50px; }
      .error { color: red; }
    </style>
  </head>
  <body>
    <h1 class="error">Payment Processing Error</h1>
    <p>There was an error processing your payment.</p>
    <p>Redirecting back to the app...</p>
  </body>
</html>`

const cancelledPage = `<html>
  <head>
    <title>Payment Cancelled</title>
    <meta http-equiv="refresh" content="3;url=yourapp://payment-cancelled" />
    <style>
      body { font-family: Arial, sans-serif; text-align: center; padding-top: 50px; }
    </style>
  </head>
  <body>
    <h1>Payment Cancelled</h1>
    <p>You've cancelled the payment process.</p>
    <p>Redirecting back to the app...</p>
  </body>
</html>`

// indeterminatePage is shown when the capture call timed out: the charge may
// or may not have gone through, so the page neither confirms nor denies it.
const indeterminatePage = `<html>
  <head>
    <title>Payment Pending Confirmation</title>
    <meta http-equiv="refresh" content="5;url=yourapp://payment-error" />
    <style>
      body { font-family: Arial, sans-serif; text-align: center; padding-top: 50px; }
      .pending { color: darkorange; }
    </style>
  </head>
  <body>
    <h1 class="pending">Payment Pending Confirmation</h1>
    <p>We could not confirm the result of your payment yet.</p>
    <p>Please check your appointment status in the app before paying again.</p>
    <p>Redirecting back to the app...</p>
  </body>
</html>`

func renderPage(w http.ResponseWriter, status int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, page)
}
