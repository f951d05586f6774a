package api

import (
	"net/http"
	"strings"
	"time"

	"bitbucket.org/akrix/backend/config"
	"bitbucket.org/akrix/backend/db"
	"bitbucket.org/akrix/backend/helpers"
	"bitbucket.org/akrix/backend/middlewares"
	"bitbucket.org/akrix/backend/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/pkg/errors"
	"github.com/thedevsaddam/govalidator"
)

var listRules = govalidator.MapData{
	"page":   []string{"numeric"},
	"limit":  []string{"numeric"},
	"status": []string{"in:pending,completed,failed,cancelled"},
}

func Login(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	var opts models.LoginOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.LoginRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	admin, err := ctx.DB.GetAdminLoginByUsername(strings.TrimSpace(opts.Username))
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if admin == nil {
		w.Write(http.StatusUnauthorized, nil, nil, middlewares.Responses.AdminNotFound)
		return
	}

	if !helpers.AuthenticateHashedPassword(admin.Password, opts.Password) {
		w.Write(http.StatusUnauthorized, nil, nil, middlewares.Responses.AdminNotFound)
		return
	}

	admin.Token, err = helpers.GenerateToken(admin, ctx.Config.JWTSecret, time.Now())
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, admin, nil, "")
}

func decodeListOpts(w *middlewares.ResponseWriter, r *http.Request) (*models.ListOpts, bool) {
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   listRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return nil, false
	}

	var opts models.ListOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&opts, r.URL.Query()); err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.FailedValidations)
		return nil, false
	}
	opts.Normalize()

	return &opts, true
}

func ListPayments(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	opts, ok := decodeListOpts(w, r)
	if !ok {
		return
	}

	items, total, err := ctx.DB.ListPayments(*opts)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, &models.Page{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}, nil, "")
}

func ListReceipts(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	opts, ok := decodeListOpts(w, r)
	if !ok {
		return
	}

	items, total, err := ctx.DB.ListReceipts(*opts)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, &models.Page{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}, nil, "")
}

// GetGatewayPayment returns the gateway's own record of a payment.
func GetGatewayPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("GetGatewayPayment")

	details, err := ctx.Payments.FetchGatewayPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		w.WriteError(err)
		return
	}

	w.WriteJSON(http.StatusOK, details, nil, "")
}

// CreateAdmin stores a new active admin with a hashed password.
func CreateAdmin(storage db.AdminStorage, opts *models.InsertAdminOpts) (*models.Admin, error) {
	if opts.Username == "" || opts.Email == "" || len(opts.Password) < 8 {
		return nil, errors.New("username, email and a password of at least 8 characters are required")
	}

	password, err := helpers.HashPassword(opts.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed hashing password")
	}

	now := time.Now().UTC()
	admin := &models.Admin{
		ID:        uuid.New().String(),
		Username:  strings.TrimSpace(opts.Username),
		Email:     strings.ToLower(strings.TrimSpace(opts.Email)),
		Password:  password,
		Name:      opts.Name,
		Role:      models.AdminRole,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := storage.InsertAdmin(admin); err != nil {
		return nil, err
	}

	return admin, nil
}
