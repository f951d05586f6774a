package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/akrix/backend/db"
	"bitbucket.org/akrix/backend/helpers"
	"bitbucket.org/akrix/backend/payments"
	"bitbucket.org/akrix/backend/razorpay"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type Configuration struct {
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT,default=5000"`
	Timeout     int    `env:"TIMEOUT,default=30"`
	SQL         database
	AwsSMTP     awsSMTP
	AwsS3       awsS3
	Razorpay    razorpayConf
	Receipt     receiptConf
	Company     company
	Mail        mail
	Environment string `env:"ENVIRONMENT,default=development"`
	AppName     string `env:"APP_NAME,default=akrix-payments"`
}

type database struct {
	Driver         string `env:"DATA_BASE_DRIVER,default=mysql"`
	URL            string `env:"DATA_BASE_URL,required"`
	Name           string `env:"DATA_BASE_NAME,required"`
	User           string `env:"DATA_BASE_USER,required"`
	Port           int    `env:"DATA_BASE_PORT,default=3306"`
	Password       string `env:"DATA_BASE_PASSWORD,required"`
	SSLMode        string `env:"DATA_BASE_SSL_MODE,default=disable"`
	OpenConnection int    `env:"DATA_BASE_MAX_OPEN_CONNECTION,default=5"`
}

type awsSMTP struct {
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

type awsS3 struct {
	S3Region      string `env:"S3_REGION"`
	S3Bucket      string `env:"S3_BUCKET"`
	S3Url         string `env:"S3_URL"`
	S3PathReceipt string `env:"S3_PATH_RECEIPT,default=receipts"`
}

type razorpayConf struct {
	KeyID         string `env:"RAZORPAY_KEY_ID,required"`
	KeySecret     string `env:"RAZORPAY_KEY_SECRET,required"`
	WebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET"`
	Currency      string `env:"RAZORPAY_CURRENCY,default=INR"`
	Timeout       int    `env:"RAZORPAY_TIMEOUT,default=5"`
}

type receiptConf struct {
	Prefix        string `env:"RECEIPT_PREFIX,default=AKRX"`
	Renderer      string `env:"RECEIPT_RENDERER,default=fpdf"`
	Template      string `env:"RECEIPT_TEMPLATE,default=templates/pdf/receipt.html"`
	RenderTimeout int    `env:"RECEIPT_RENDER_TIMEOUT,default=5"`
	AutoSend      bool   `env:"RECEIPT_AUTO_SEND,default=true"`
}

type company struct {
	Name    string `env:"COMPANY_NAME,default=Akrix Solutions"`
	Address string `env:"COMPANY_ADDRESS"`
	Email   string `env:"COMPANY_EMAIL"`
}

type mail struct {
	Receipt    mailReceipt
	NameFrom   string `env:"MAIL_NAME_FROM,default=Akrix Solutions"`
	EmailFrom  string `env:"MAIL_EMAIL_FROM"`
	AdminEmail string `env:"MAIL_ADMIN_EMAIL"`
	Folder     string `env:"MAIL_FOLDER,default=templates"`
	Path       string `env:"MAIL_PATH,default=/mail"`
}

type mailReceipt struct {
	Subject       string `env:"MAIL_RECEIPT_SUBJECT,default=Payment Successful - Receipt %s"`
	Template      string `env:"MAIL_RECEIPT_TEMPLATE,default=receipt.html"`
	AdminSubject  string `env:"MAIL_RECEIPT_ADMIN_SUBJECT,default=New payment received - Receipt %s"`
	AdminTemplate string `env:"MAIL_RECEIPT_ADMIN_TEMPLATE,default=admin.html"`
}

type AppContext struct {
	Config   Configuration
	SQLConn  *sqlx.DB
	DB       db.Storage
	AwsSMTP  *gomail.Dialer
	AwsS3    *session.Session
	Razorpay *razorpay.Client
	Mailer   *helpers.Mailer
	Payments *payments.Orchestrator
}

func CreateConnectionSQL(conf database) (*sqlx.DB, error) {
	var dsn string
	switch conf.Driver {
	case db.DriverPostgres:
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", conf.URL, conf.Port, conf.User, conf.Password, conf.Name, conf.SSLMode)
	case db.DriverMySQL:
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", conf.User, conf.Password, conf.URL, strconv.Itoa(conf.Port), conf.Name)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}

	connection, err := sqlx.Connect(conf.Driver, dsn)
	if err != nil {
		return nil, err
	}
	connection.SetMaxOpenConns(conf.OpenConnection)
	return connection, nil
}

// CreateNewConnectionSMTP returns nil when no SMTP host is configured.
func CreateNewConnectionSMTP(conf awsSMTP) *gomail.Dialer {
	if conf.SMTPHost == "" {
		return nil
	}
	return gomail.NewDialer(conf.SMTPHost, conf.SMTPPort, conf.SMTPUser, conf.SMTPPassword)
}

func CreateRazorpayIntegration(conf razorpayConf) *razorpay.Client {
	return razorpay.NewClient(razorpay.Options{
		KeyID:         conf.KeyID,
		KeySecret:     conf.KeySecret,
		WebhookSecret: conf.WebhookSecret,
		Timeout:       seconds(conf.Timeout),
	})
}

// CreateNewSessionS3 returns nil when no bucket is configured.
func CreateNewSessionS3(conf awsS3) (*session.Session, error) {
	if conf.S3Bucket == "" {
		return nil, nil
	}
	return session.NewSession(&aws.Config{Region: aws.String(conf.S3Region)})
}

// Validate checks the values envdecode tags cannot express.
func (c *Configuration) Validate() error {
	if !db.ValidReceiptPrefix(c.Receipt.Prefix) {
		return errors.Errorf("RECEIPT_PREFIX %q must be uppercase letters only", c.Receipt.Prefix)
	}
	return nil
}

func (c *Configuration) MailTemplate(name string) string {
	return fmt.Sprintf("%s%s/%s", c.Mail.Folder, c.Mail.Path, name)
}

func (c *Configuration) Issuer() helpers.Issuer {
	return helpers.Issuer{
		Name:    c.Company.Name,
		Address: c.Company.Address,
		Email:   c.Company.Email,
	}
}

// CreateReceiptRenderer returns the wkhtmltopdf renderer when RECEIPT_RENDERER=html
// and the gofpdf one otherwise.
func (c *Configuration) CreateReceiptRenderer() payments.Renderer {
	if c.Receipt.Renderer == "html" {
		return &helpers.HTMLRenderer{Issuer: c.Issuer(), TemplatePath: c.Receipt.Template}
	}
	return &helpers.FPDFRenderer{Issuer: c.Issuer()}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// RenderTimeout bounds a single receipt render.
func (c *Configuration) RenderTimeout() time.Duration {
	return seconds(c.Receipt.RenderTimeout)
}

type loggerKey struct{}

func WithLogger(ctx context.Context, logger *log.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the request logger stored in ctx or the standard logger.
func GetLogger(ctx context.Context) *log.Entry {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*log.Entry); ok && logger != nil {
			return logger
		}
	}
	return log.NewEntry(log.StandardLogger())
}
