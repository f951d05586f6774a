package api

import (
	"io/ioutil"
	"net/http"

	"bitbucket.org/akrix/backend/config"
	"bitbucket.org/akrix/backend/middlewares"
	"bitbucket.org/akrix/backend/models"
	"bitbucket.org/akrix/backend/payments"
	"github.com/gorilla/mux"
	"github.com/thedevsaddam/govalidator"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

type createOrderResponse struct {
	PaymentID     string          `json:"payment_id"`
	OrderID       string          `json:"order_id"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	KeyID         string          `json:"key_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Payment       *models.Payment `json:"payment"`
}

func newCreateOrderResponse(ctx *config.AppContext, result *payments.InitiateResult) *createOrderResponse {
	response := &createOrderResponse{
		PaymentID:     result.Payment.ID,
		ReceiptNumber: result.Payment.ReceiptNumber,
		Payment:       result.Payment,
	}
	if result.Order != nil {
		response.OrderID = result.Order.ID
		response.Amount = result.Order.Amount
		response.Currency = result.Order.Currency
	}
	if ctx.Razorpay != nil {
		response.KeyID = ctx.Razorpay.KeyID
	}
	return response
}

func decodeCreatePayment(w *middlewares.ResponseWriter, r *http.Request, rules govalidator.MapData) (*models.CreatePaymentOpts, bool) {
	var opts models.CreatePaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   rules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return nil, false
	}
	return &opts, true
}

// CreatePaymentOrder registers a pending payment and its gateway order.
func CreatePaymentOrder(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("CreatePaymentOrder")

	opts, ok := decodeCreatePayment(w, r, models.CreatePaymentRules)
	if !ok {
		return
	}

	result, err := ctx.Payments.Initiate(r.Context(), payments.NewInitiateRequest(payments.FlowGatewayOrder, opts))
	if err != nil {
		if result != nil && result.Payment != nil && models.IsGateway(err) {
			w.Write(http.StatusBadGateway, newCreateOrderResponse(ctx, result), err, middlewares.Responses.GatewayUnavailable)
			return
		}
		w.WriteError(err)
		return
	}

	w.WriteJSON(http.StatusOK, newCreateOrderResponse(ctx, result), nil, "")
}

// RetryPaymentOrder returns the gateway order of a pending payment, creating it if the first attempt failed.
func RetryPaymentOrder(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("RetryPaymentOrder")

	result, err := ctx.Payments.CreateGatewayOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		w.WriteError(err)
		return
	}

	w.WriteJSON(http.StatusOK, newCreateOrderResponse(ctx, result), nil, "")
}

// VerifyPayment confirms a checkout with its gateway signature.
func VerifyPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("VerifyPayment")

	var opts models.VerifyPaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.VerifyPaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	result, err := ctx.Payments.ConfirmViaGatewaySignature(r.Context(), opts.PaymentID, opts.RazorpayOrderID, opts.RazorpayPaymentID, opts.RazorpaySignature)
	if err != nil {
		w.WriteError(err)
		return
	}

	writeResult(w, result, middlewares.Responses.PaymentVerificationFailed)
}

// InitiatePayment records a pending payment settled outside the gateway.
func InitiatePayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("InitiatePayment")

	opts, ok := decodeCreatePayment(w, r, models.CreatePaymentRules)
	if !ok {
		return
	}

	result, err := ctx.Payments.Initiate(r.Context(), payments.NewInitiateRequest(payments.FlowDirect, opts))
	if err != nil {
		w.WriteError(err)
		return
	}

	w.WriteJSON(http.StatusCreated, result, nil, "")
}

// CreateQRPayment records a pending UPI payment to be confirmed with a UTR.
func CreateQRPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("CreateQRPayment")

	opts, ok := decodeCreatePayment(w, r, models.QRPaymentRules)
	if !ok {
		return
	}

	result, err := ctx.Payments.Initiate(r.Context(), payments.NewInitiateRequest(payments.FlowQR, opts))
	if err != nil {
		w.WriteError(err)
		return
	}

	w.WriteJSON(http.StatusCreated, result, nil, "")
}

// VerifyUTR confirms a QR payment with its 12 digit bank reference.
func VerifyUTR(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("VerifyUTR")

	var opts models.VerifyReferenceOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.VerifyReferenceRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	result, err := ctx.Payments.ConfirmViaReference(r.Context(), opts.PaymentID, opts.UTR)
	if err != nil {
		w.WriteError(err)
		return
	}

	writeResult(w, result, middlewares.Responses.InvalidUTR)
}

func writeResult(w *middlewares.ResponseWriter, result *payments.Result, failure *middlewares.NewRM) {
	if result.Success {
		w.WriteJSON(http.StatusOK, result, nil, "")
		return
	}

	if models.IsInvalidTransition(result.Reason) {
		w.Write(http.StatusConflict, result, result.Reason, middlewares.Responses.PaymentAlreadyFinal)
		return
	}

	w.Write(http.StatusBadRequest, result, result.Reason, failure)
}

// PaymentWebhook applies signed gateway events. Unknown events are acknowledged.
func PaymentWebhook(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("PaymentWebhook")

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.InvalidWebhook)
		return
	}
	defer r.Body.Close()

	err = ctx.Payments.HandleWebhook(r.Context(), body, r.Header.Get(webhookSignatureHeader))
	if models.IsValidation(err) {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.InvalidWebhook)
		return
	}
	if err != nil {
		w.WriteError(err)
		return
	}

	w.WriteJSON(http.StatusOK, map[string]string{"status": "ok"}, nil, "")
}

func GetPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	payment, err := ctx.Payments.FindPaymentByID(id)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if payment == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.PaymentNotFound)
		return
	}

	w.WriteJSON(http.StatusOK, payment, nil, "")
}
