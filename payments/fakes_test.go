package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bitbucket.org/akrix/backend/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeGateway struct {
	mu          sync.Mutex
	validSig    string
	orderErr    error
	orders      []string
	webhookOK   bool
	details     map[string]interface{}
	orderSerial int
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount decimal.Decimal, currency string, receiptRef string) (*models.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, receiptRef)
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	g.orderSerial++
	return &models.GatewayOrder{
		ID:       fmt.Sprintf("order_%d", g.orderSerial),
		Amount:   amount.Shift(2).IntPart(),
		Currency: currency,
		Receipt:  receiptRef,
	}, nil
}

func (g *fakeGateway) VerifySignature(_, _, signature string) bool {
	return signature != "" && signature == g.validSig
}

func (g *fakeGateway) VerifyWebhook([]byte, string) bool {
	return g.webhookOK
}

func (g *fakeGateway) FetchPaymentDetails(_ context.Context, paymentID string) (map[string]interface{}, error) {
	return g.details, nil
}

type fakeRenderer struct {
	delay time.Duration
	err   error
	views []models.ReceiptView
	mu    sync.Mutex
}

func (r *fakeRenderer) Render(view models.ReceiptView) ([]byte, error) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.views = append(r.views, view)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-" + view.ReceiptNumber), nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []models.Delivery
	docs       [][]byte
	err        error
	sent       chan struct{}
}

func (n *fakeNotifier) Deliver(_ context.Context, d models.Delivery, doc []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.deliveries = append(n.deliveries, d)
	n.docs = append(n.docs, doc)
	if n.sent != nil {
		n.sent <- struct{}{}
	}
	return nil
}

type fakeArchiver struct {
	names []string
}

func (a *fakeArchiver) Archive(_ context.Context, name string, _ []byte) (string, error) {
	a.names = append(a.names, name)
	return "https://bucket.example/receipts/" + name, nil
}

type fixture struct {
	storage      *memStorage
	gateway      *fakeGateway
	renderer     *fakeRenderer
	notifier     *fakeNotifier
	archiver     *fakeArchiver
	store        *Store
	receipts     *ReceiptGenerator
	orchestrator *Orchestrator
	logs         *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	entry := log.NewEntry(logger)

	f := &fixture{
		storage:  newMemStorage(),
		gateway:  &fakeGateway{validSig: "good-signature"},
		renderer: &fakeRenderer{},
		notifier: &fakeNotifier{},
		archiver: &fakeArchiver{},
		logs:     hook,
	}
	f.receipts = NewReceiptGenerator(f.storage, f.renderer, time.Second, entry)
	f.store = NewStore(f.storage, f.receipts, "AKRX", entry)
	f.orchestrator = NewOrchestrator(Config{
		Store:      f.store,
		Receipts:   f.receipts,
		Gateway:    f.gateway,
		Notifier:   f.notifier,
		Archiver:   f.archiver,
		Logger:     entry,
		Currency:   "INR",
		AdminEmail: "accounts@akrix.example",
	})
	return f
}

func sampleRequest(flow Flow) InitiateRequest {
	return InitiateRequest{
		Flow: flow,
		Customer: Customer{
			Name:    "Asha Rao",
			Email:   "asha@example.com",
			Phone:   "9876543210",
			Address: "12 MG Road, Bengaluru",
		},
		Amount: decimal.RequireFromString("1500.50"),
		Mode:   models.PaymentModeCard,
	}
}
