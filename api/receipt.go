package api

import (
	"net/http"

	"bitbucket.org/akrix/backend/config"
	"bitbucket.org/akrix/backend/middlewares"
	"bitbucket.org/akrix/backend/models"
	"bitbucket.org/akrix/backend/payments"
	"github.com/gorilla/mux"
)

func GetReceipt(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	receipt, err := ctx.Payments.FindReceiptByID(id)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if receipt == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.ReceiptNotFound)
		return
	}

	w.WriteJSON(http.StatusOK, receipt, nil, "")
}

func DownloadReceipt(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("DownloadReceipt")

	doc, receipt, err := ctx.Payments.ReceiptDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if models.IsNotFound(err) {
			w.Write(http.StatusNotFound, nil, err, middlewares.Responses.ReceiptNotFound)
			return
		}
		w.WriteError(err)
		return
	}

	w.PDF(payments.ReceiptFileName(receipt.ReceiptNumber), doc)
}

// DownloadPaymentReceipt renders the document of a payment in any status.
func DownloadPaymentReceipt(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("DownloadPaymentReceipt")

	doc, payment, err := ctx.Payments.PaymentDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if models.IsNotFound(err) {
			w.Write(http.StatusNotFound, nil, err, middlewares.Responses.PaymentNotFound)
			return
		}
		w.WriteError(err)
		return
	}

	w.PDF(payments.ReceiptFileName(payment.ReceiptNumber), doc)
}

// GenerateReceipt records a desk payment as completed and returns its PDF.
func GenerateReceipt(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("GenerateReceipt")

	opts, ok := decodeCreatePayment(w, r, models.CreatePaymentRules)
	if !ok {
		return
	}

	result, err := ctx.Payments.CreateDirectReceipt(r.Context(), payments.NewInitiateRequest(payments.FlowDirect, opts))
	if err != nil {
		w.WriteError(err)
		return
	}

	doc, _, err := ctx.Payments.PaymentDocument(r.Context(), result.Payment.ID)
	if err != nil {
		w.WriteError(err)
		return
	}

	w.PDF(payments.ReceiptFileName(result.Payment.ReceiptNumber), doc)
}

func SendReceiptEmail(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("SendReceiptEmail")

	result, err := ctx.Payments.SendReceipt(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if models.IsNotFound(err) {
			w.Write(http.StatusNotFound, nil, err, middlewares.Responses.ReceiptNotFound)
			return
		}
		w.WriteError(err)
		return
	}

	w.Write(http.StatusOK, result, nil, middlewares.Responses.ReceiptSent)
}
