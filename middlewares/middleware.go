package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/akrix/backend/config"
	"bitbucket.org/akrix/backend/helpers"
	"bitbucket.org/akrix/backend/models"
	"github.com/dgrijalva/jwt-go"
	"github.com/lithammer/shortuuid/v3"
	jwtmiddleware "github.com/mfuentesg/go-jwtmiddleware"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

type contextKey string

const (
	adminContextKey contextKey = "admin"
	requestIDHeader            = "X-Request-ID"
)

func jwtErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	r := &ResponseWriter{Writer: w}
	if err.Error() == "Token is expired" {
		r.Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"), WithErrorType(1))
		return
	}
	if err != nil {
		r.Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"))
	}
}

func NewJWTMiddleware(secret []byte) *jwtmiddleware.Middleware {
	return jwtmiddleware.New(
		jwtmiddleware.WithErrorHandler(jwtErrorHandler),
		jwtmiddleware.WithSigningMethod(jwt.SigningMethodHS256),
		jwtmiddleware.WithSignKey(secret),
		jwtmiddleware.WithUserProperty("_jwt-token"),
	)
}

// LoggerRequest tags the request with an id and stores its logger in the context.
func LoggerRequest(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = shortuuid.New()
	}
	rw.Header().Set(requestIDHeader, requestID)

	requestLogger := config.GetLogger(r.Context()).WithFields(log.Fields{
		"request_id": requestID,
		"method":     r.Method,
		"host":       r.Host,
		"url":        r.URL.Path,
	})
	requestLogger.Info("logger_request")

	next(rw, r.WithContext(config.WithLogger(r.Context(), requestLogger)))
}

// AdminMiddleware decodes the admin claims of a bearer token into the request
// context. The signature is checked by the JWT middleware on protected routes.
func AdminMiddleware() negroni.HandlerFunc {
	return negroni.HandlerFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		token := strings.Split(r.Header.Get("Authorization"), " ")
		if len(token) != 2 {
			next(rw, r)
			return
		}

		data, ok := helpers.ParserTokenUnverified(token[1])
		if !ok {
			next(rw, r)
			return
		}

		tokenParse, ok := data["u"].(map[string]interface{})
		if !ok {
			next(rw, r)
			return
		}

		info := models.InfoAdmin{}
		mapstructure.Decode(map[string]interface{}{
			"ID":       tokenParse["i"],
			"Username": tokenParse["username"],
			"Role":     tokenParse["r"],
		}, &info)
		info.IsAdmin = info.Role == models.AdminRole

		ctx := context.WithValue(r.Context(), adminContextKey, info)
		next(rw, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose token does not carry the admin role.
func RequireAdmin(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if !AdminFromRequest(r).IsAdmin {
		w := NewResponseWriter(rw, r)
		w.Write(http.StatusForbidden, nil, nil, Responses.InvalidRoles)
		return
	}
	next(rw, r)
}

func AdminFromRequest(r *http.Request) models.InfoAdmin {
	info, _ := r.Context().Value(adminContextKey).(models.InfoAdmin)
	return info
}
