package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"github.com/jonanatree/medipay/internal/paypal"
	"github.com/jonanatree/medipay/internal/prescription"
)

// API is the HTTP surface of the gateway: the PayPal order flow, the
// prescription PDF transform and a liveness endpoint.
type API struct {
	logger     *slog.Logger
	payments   *paypal.Client
	appBaseURL string
}

func NewAPI(logger *slog.Logger, payments *paypal.Client, appBaseURL string) *API {
	return &API{
		logger:     logger,
		payments:   payments,
		appBaseURL: appBaseURL,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Post("/create-order", a.createOrder)
	r.Get("/capture-order", a.captureOrder)
	r.Get("/cancel-order", a.cancelOrder)
	r.Post("/paypal-webhook", a.webhook)
	r.Post("/generate-prescription-pdf", a.generatePrescriptionPDF)
	r.Get("/health", a.health)
}

type createOrderRequest struct {
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

type createOrderResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Approve string `json:"approve"`
}

type apiError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	var create createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil && err != io.EOF {
		a.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	order, err := a.payments.CreateOrder(r.Context(), paypal.OrderRequest{
		Amount:         create.Amount,
		Currency:       create.Currency,
		Description:    create.Description,
		IdempotencyKey: create.IdempotencyKey,
		ReturnURL:      a.appBaseURL + "/capture-order",
		CancelURL:      a.appBaseURL + "/cancel-order",
	})
	if err != nil {
		a.logger.Error("creating order", "err", err)
		a.writeError(w, http.StatusBadGateway, "Failed to create PayPal order", err.Error())
		return
	}

	a.logger.Info("paypal order created", slog.String("order_id", order.ID), slog.String("status", order.Status))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(createOrderResponse{
		ID:      order.ID,
		Status:  order.Status,
		Approve: order.ApproveURL,
	})
}

// captureOrder finishes the redirect flow: PayPal sends the payer back here
// with the order reference in the token query parameter. The outcome is
// always a terminal HTML page; upstream failure detail goes to the log, not
// to the payer.
func (a *API) captureOrder(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing order token", http.StatusBadRequest)
		return
	}

	details, err := a.payments.GetOrder(r.Context(), token)
	if err != nil {
		a.logger.Error("fetching order before capture", slog.String("order_id", token), "err", err)
		renderPage(w, http.StatusInternalServerError, errorPage)
		return
	}
	a.logger.Info("capturing order", slog.String("order_id", details.ID), slog.String("status", details.Status))

	capture, err := a.payments.CaptureOrder(r.Context(), token)
	if err != nil {
		var indeterminate *paypal.IndeterminateError
		if errors.As(err, &indeterminate) {
			// The capture may have gone through upstream even though no
			// response arrived. Tell the payer the outcome is pending;
			// claiming failure here could contradict a successful charge.
			a.logger.Error("capture outcome indeterminate", slog.String("order_id", token), "err", err)
			renderPage(w, http.StatusAccepted, indeterminatePage)
			return
		}
		a.logger.Error("capturing payment", slog.String("order_id", token), "err", err)
		renderPage(w, http.StatusInternalServerError, errorPage)
		return
	}

	a.logger.Info("payment captured", slog.String("capture_id", capture.ID), slog.String("status", capture.Status))
	renderPage(w, http.StatusOK, successPage)
}

func (a *API) cancelOrder(w http.ResponseWriter, r *http.Request) {
	// An un-approved order simply expires on the provider side; nothing to
	// call, nothing to record.
	a.logger.Info("payment cancelled by user")
	renderPage(w, http.StatusOK, cancelledPage)
}

func (a *API) webhook(w http.ResponseWriter, r *http.Request) {
	// Signature verification needs the exact bytes PayPal signed, so the
	// body is read raw and never re-serialized.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var event struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(body, &event); err == nil && event.EventType != "" {
		a.logger.Info("received paypal webhook event",
			slog.String("event_id", event.ID),
			slog.String("event_type", event.EventType),
		)
	} else {
		a.logger.Info("received paypal webhook event", slog.Int("bytes", len(body)))
	}

	// TODO: verify the transmission signature against the webhook id
	// before acting on events. Until then every delivery is acknowledged;
	// PayPal retries on non-2xx, so the 200 also stops redelivery storms.
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type prescriptionRequest struct {
	PatientData   *prescription.Patient `json:"patientData"`
	DoctorName    string                `json:"doctorName"`
	Prescriptions []prescription.Item   `json:"prescriptions"`
	Vitals        *prescription.Vitals  `json:"vitals"`
}

func (a *API) generatePrescriptionPDF(w http.ResponseWriter, r *http.Request) {
	var req prescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.PatientData == nil || req.DoctorName == "" || req.Prescriptions == nil || req.Vitals == nil {
		a.writeError(w, http.StatusBadRequest, "Missing required fields for prescription", "")
		return
	}

	pdf, err := prescription.Render(prescription.Document{
		Patient:       *req.PatientData,
		DoctorName:    req.DoctorName,
		Prescriptions: req.Prescriptions,
		Vitals:        *req.Vitals,
		Date:          time.Now(),
	})
	if err != nil {
		a.logger.Error("generating prescription pdf", "err", err)
		a.writeError(w, http.StatusInternalServerError, "Error generating PDF", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Base64Data string `json:"base64Data"`
	}{base64.StdEncoding.EncodeToString(pdf)})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}{"OK", time.Now().UTC().Format(time.RFC3339)})
}

func (a *API) writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Error: true, Message: message, Details: details})
}
