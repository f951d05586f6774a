package server

import (
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/akrix/backend/config"
	"bitbucket.org/akrix/backend/db"
	"bitbucket.org/akrix/backend/helpers"
	"bitbucket.org/akrix/backend/middlewares"
	"bitbucket.org/akrix/backend/payments"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	joonix "github.com/joonix/log"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

func recoveryHandler(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	defer func() {
		if err := recover(); err != nil {
			config.GetLogger(r.Context()).Error(err)
			(&middlewares.ResponseWriter{Writer: w}).Error(http.StatusInternalServerError, "internal server error")
			return
		}
	}()
	next(w, r)
}

type AppHandlerFunc func(*config.AppContext, *middlewares.ResponseWriter, *http.Request)

type AppHandler struct {
	Context     *config.AppContext
	HandlerFunc AppHandlerFunc
}

func (a *AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.HandlerFunc(a.Context, middlewares.NewResponseWriter(w, r), r)
}

type Route struct {
	Path            string
	Handler         AppHandlerFunc
	Methods         []string
	IsProtected     bool
	IsRoleProtected bool
}

func NewRouter(ctx *config.AppContext, routes []*Route) *mux.Router {
	router := mux.NewRouter()
	jwt := middlewares.NewJWTMiddleware([]byte(ctx.Config.JWTSecret))
	for _, r := range routes {
		handler := &AppHandler{Context: ctx, HandlerFunc: r.Handler}
		switch {
		case r.IsRoleProtected:
			router.Handle(r.Path, negroni.New(
				negroni.HandlerFunc(jwt.HandlerNext),
				negroni.HandlerFunc(middlewares.RequireAdmin),
				negroni.Wrap(handler),
			)).Methods(r.Methods...)
		case r.IsProtected:
			router.Handle(r.Path, negroni.New(
				negroni.HandlerFunc(jwt.HandlerNext),
				negroni.Wrap(handler),
			)).Methods(r.Methods...)
		default:
			router.Handle(r.Path, handler).Methods(r.Methods...)
		}
	}
	return router
}

func GetAppContext() *ContextWrapper {
	log.SetFormatter(joonix.NewFormatter())
	var conf config.Configuration
	if err := envdecode.Decode(&conf); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("could not load the app configuration")
	}
	if err := conf.Validate(); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("invalid app configuration")
	}
	context := &config.AppContext{
		Config: conf,
	}

	contextWrapper := ContextWrapper{
		Context: context,
	}

	return &contextWrapper
}

type ContextWrapper struct {
	Context *config.AppContext
}

func (wrapper *ContextWrapper) CreateSQLConnection() {
	conf := wrapper.Context.Config.SQL
	conn, err := config.CreateConnectionSQL(conf)
	if err != nil {
		log.Fatal(err)
	}
	conn.SetConnMaxLifetime(time.Minute * 5)
	wrapper.Context.SQLConn = conn
	wrapper.Context.DB, err = db.New(conn)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatalf("%s: failed to connect", conf.Driver)
	}
}

// Migrate creates missing tables. It expects CreateSQLConnection to have run.
func (wrapper *ContextWrapper) Migrate() error {
	conn, ok := wrapper.Context.DB.(*db.DB)
	if !ok {
		return errors.New("no sql connection")
	}
	return conn.Migrate()
}

func (wrapper *ContextWrapper) CreateSMTPConnection() {
	conf := wrapper.Context.Config
	conn := config.CreateNewConnectionSMTP(conf.AwsSMTP)
	if conn == nil {
		log.Warn("smtp: no host configured, receipts will not be emailed")
		return
	}
	wrapper.Context.AwsSMTP = conn
	wrapper.Context.Mailer = helpers.NewMailer(
		conn,
		conf.Mail.EmailFrom,
		conf.Mail.NameFrom,
		conf.MailTemplate(conf.Mail.Receipt.Template),
		conf.MailTemplate(conf.Mail.Receipt.AdminTemplate),
	)
}

func (wrapper *ContextWrapper) CreateRazorpayIntegration() {
	rp := config.CreateRazorpayIntegration(wrapper.Context.Config.Razorpay)
	if rp == nil {
		log.Fatal(errors.Errorf("failed to create razorpay integration"))
	}
	wrapper.Context.Razorpay = rp
}

func (wrapper *ContextWrapper) CreateNewSessionS3() {
	session, err := config.CreateNewSessionS3(wrapper.Context.Config.AwsS3)
	if err != nil {
		log.Fatal(errors.Errorf("failed to create new session s3 - %s", err.Error()))
	}
	if session == nil {
		log.Warn("s3: no bucket configured, receipts will not be archived")
		return
	}
	wrapper.Context.AwsS3 = session
}

// CreatePaymentService wires storage, gateway, renderer, mailer and archive
// into the payment orchestrator.
func (wrapper *ContextWrapper) CreatePaymentService() {
	ctx := wrapper.Context
	conf := ctx.Config
	logger := log.WithField("app", conf.AppName)

	receipts := payments.NewReceiptGenerator(ctx.DB, conf.CreateReceiptRenderer(), conf.RenderTimeout(), logger)
	store := payments.NewStore(ctx.DB, receipts, conf.Receipt.Prefix, logger)

	paymentConf := payments.Config{
		Store:           store,
		Receipts:        receipts,
		Gateway:         ctx.Razorpay,
		Logger:          logger,
		Currency:        conf.Razorpay.Currency,
		AdminEmail:      conf.Mail.AdminEmail,
		CustomerSubject: conf.Mail.Receipt.Subject,
		AdminSubject:    conf.Mail.Receipt.AdminSubject,
		AutoSend:        conf.Receipt.AutoSend,
	}
	if ctx.Mailer != nil {
		paymentConf.Notifier = ctx.Mailer
	}
	if ctx.AwsS3 != nil {
		paymentConf.Archiver = helpers.NewS3Archive(ctx.AwsS3, conf.AwsS3.S3Bucket, conf.AwsS3.S3PathReceipt, conf.AwsS3.S3Url)
	}

	ctx.Payments = payments.NewOrchestrator(paymentConf)
}

func UpServer(routes []*Route, wrapper *ContextWrapper) {
	server, err := createServer(wrapper.Context, routes)
	if err != nil {
		log.Fatal(err)
	}

	if wrapper.Context.SQLConn != nil {
		defer wrapper.Context.SQLConn.Close()
	}

	log.Info("Environment " + wrapper.Context.Config.Environment)
	log.Info("Listening on " + server.Addr)

	log.Fatal(server.ListenAndServe())
}

// NewHandler builds the middleware chain around the routes.
func NewHandler(context *config.AppContext, routes []*Route) http.Handler {
	n := negroni.New()
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "PUT", "PATCH", "HEAD"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Accept-Language", "Authorization", "X-Request-ID"},
	})
	n.Use(c)
	n.UseFunc(recoveryHandler)
	n.Use(negroni.HandlerFunc(middlewares.LoggerRequest))
	n.Use(middlewares.AdminMiddleware())
	n.UseHandler(NewRouter(context, routes))
	return n
}

func createServer(context *config.AppContext, routes []*Route) (*http.Server, error) {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", context.Config.Port),
		ReadTimeout:  time.Duration(context.Config.Timeout) * time.Second,
		WriteTimeout: time.Duration(context.Config.Timeout) * time.Second,
		Handler:      NewHandler(context, routes),
	}, nil
}
