package middlewares

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bitbucket.org/akrix/backend/config"
	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

var supportedLanguages = []string{Language.English, Language.Hindi}

var languageMatcher = language.NewMatcher([]language.Tag{language.English, language.Hindi})

type ResponseWriter struct {
	Writer   http.ResponseWriter
	Language string
	logger   *log.Entry
}

func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	rw := &ResponseWriter{Writer: w}
	rw.GetRequestLanguage(r)
	return rw
}

type generalResponse struct {
	Errors  []*errorResponse `json:"errors"`
	Success bool             `json:"success"`
	Data    interface{}      `json:"data"`
}

type errorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Scope   string      `json:"scope"`
	Type    int         `json:"type"`
	Data    interface{} `json:"data"`
}

type ErrOption func(*errorResponse)

func WithErrorType(errType int) ErrOption {
	return func(err *errorResponse) {
		err.Type = errType
	}
}

func WithErrorScope(scope string) ErrOption {
	return func(err *errorResponse) {
		err.Scope = scope
	}
}

// GetRequestLanguage picks the response language from Accept-Language and
// binds the request logger.
func (r *ResponseWriter) GetRequestLanguage(req *http.Request) {
	r.Language = Language.English
	if req == nil {
		return
	}
	r.logger = config.GetLogger(req.Context())

	tags, _, err := language.ParseAcceptLanguage(req.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence != language.No {
		r.Language = supportedLanguages[index]
	}
}

func (r *ResponseWriter) log() *log.Entry {
	if r.logger == nil {
		return config.GetLogger(context.Background())
	}
	return r.logger
}

// StartLogger tags every following log line with the handler name.
func (r *ResponseWriter) StartLogger(handler string) {
	r.logger = r.log().WithField("handler", handler)
}

func (r *ResponseWriter) LogError(err error, message string) {
	r.log().WithField("error", err).Error(message)
}

func (r *ResponseWriter) LogInfo(data interface{}, message string) {
	r.log().WithField("data", data).Info(message)
}

func (r *ResponseWriter) message(rm *NewRM) string {
	if rm == nil {
		return ""
	}
	if msg, ok := (*rm)[r.Language]; ok {
		return msg
	}
	return (*rm)[Language.English]
}

func (r *ResponseWriter) writeJSONResponse(code int, errors []*errorResponse, data interface{}) {
	response := &generalResponse{Errors: errors, Success: errors == nil, Data: data}
	b, err := json.Marshal(response)
	if err != nil {
		r.Writer.WriteHeader(http.StatusInternalServerError)
		r.Writer.Write([]byte(fmt.Sprintf("unexpected error: %v", err)))
		return
	}
	r.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	r.Writer.WriteHeader(code)
	if _, err := r.Writer.Write(b); err != nil {
		r.LogError(err, "could not write response")
	}
}

func (r *ResponseWriter) writePlainJSONResponse(statusCode int, data interface{}) {
	b, err := json.Marshal(data)
	if err != nil {
		r.Writer.WriteHeader(http.StatusInternalServerError)
		r.Writer.Write([]byte(fmt.Sprintf("unexpected error: %v", err)))
		return
	}

	r.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	r.Writer.WriteHeader(statusCode)

	if _, err := r.Writer.Write(b); err != nil {
		r.LogError(err, "could not write response")
	}
}

func (r *ResponseWriter) WriteJSON(statusCode int, data interface{}, err error, message string) {
	fields := make(log.Fields)
	fields["status_code"] = statusCode
	if statusCode >= 200 && statusCode <= 299 {
		r.log().WithFields(fields).Info("success")
	}
	if statusCode >= 300 {
		if data == nil {
			data = map[string]interface{}{
				"error": message,
			}
		}
		if err == nil {
			err = errors.New(message)
		}
		fields["errors"] = data
		r.log().WithFields(fields).Error(err)
	}
	r.writePlainJSONResponse(statusCode, data)
}

// Write is WriteJSON with the message translated to the request language.
func (r *ResponseWriter) Write(statusCode int, data interface{}, err error, rm *NewRM) {
	r.WriteJSON(statusCode, data, err, r.message(rm))
}

// WriteError maps a domain error to its status code and message.
func (r *ResponseWriter) WriteError(err error) {
	switch {
	case models.IsValidation(err):
		r.WriteJSON(http.StatusBadRequest, nil, err, err.Error())
	case models.IsNotFound(err):
		r.WriteJSON(http.StatusNotFound, nil, err, err.Error())
	case models.IsInvalidTransition(err):
		r.Write(http.StatusConflict, nil, err, Responses.PaymentAlreadyFinal)
	case models.IsConflict(err):
		r.Write(http.StatusConflict, nil, err, Responses.AlreadyExists)
	case models.IsGateway(err):
		r.Write(http.StatusBadGateway, nil, err, Responses.GatewayUnavailable)
	case models.IsRender(err):
		r.Write(http.StatusInternalServerError, nil, err, Responses.ReceiptUnavailable)
	default:
		r.Write(http.StatusInternalServerError, nil, err, Responses.InternalServerError)
	}
}

// PDF writes doc as a download named fileName.
func (r *ResponseWriter) PDF(fileName string, doc []byte) {
	r.Writer.Header().Set("Content-Type", "application/pdf")
	r.Writer.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	r.Writer.WriteHeader(http.StatusOK)
	if _, err := r.Writer.Write(doc); err != nil {
		r.LogError(err, "could not write pdf")
	}
}

func (r *ResponseWriter) JSON(code int, data interface{}) {
	r.writeJSONResponse(code, nil, data)
}

func (r *ResponseWriter) String(code int, msg string) {
	r.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	r.Writer.WriteHeader(code)
	if _, err := r.Writer.Write([]byte(msg)); err != nil {
		r.LogError(err, "could not write response")
	}
}

func (r *ResponseWriter) Error(code int, msg string, opts ...ErrOption) {
	err := &errorResponse{Code: code, Message: msg}
	for _, With := range opts {
		With(err)
	}
	r.writeJSONResponse(code, []*errorResponse{err}, nil)
}
