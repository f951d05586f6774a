package payments

import (
	"sync"

	"bitbucket.org/akrix/backend/db"
	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
)

// memStorage is an in-memory db.Storage that enforces the same unique keys as the schema.
type memStorage struct {
	mu       sync.Mutex
	users    map[string]models.User
	payments map[string]models.Payment
	receipts map[string]models.Receipt
	admins   map[string]models.Admin

	// hide makes the next n lookups by email or payment id miss, simulating a racing insert.
	hideUsers    int
	hideReceipts int

	// racingStatus is written by the next status update before its compare-and-set runs.
	racingStatus models.PaymentStatus

	updateErr error
	insertErr error
}

func newMemStorage() *memStorage {
	return &memStorage{
		users:    map[string]models.User{},
		payments: map[string]models.Payment{},
		receipts: map[string]models.Receipt{},
		admins:   map[string]models.Admin{},
	}
}

func (m *memStorage) GetUserByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideUsers > 0 {
		m.hideUsers--
		return nil, nil
	}
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (m *memStorage) InsertUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return &models.ConflictError{Resource: "user", Err: errors.New("duplicate email")}
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memStorage) InsertPayment(payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.payments[payment.ID] = *payment
	return nil
}

func (m *memStorage) loadPayment(p models.Payment) *models.Payment {
	payment := p
	if u, ok := m.users[p.UserID]; ok {
		user := u
		payment.User = &user
	}
	for _, r := range m.receipts {
		if r.PaymentID == p.ID {
			receipt := r
			payment.Receipt = &receipt
		}
	}
	return &payment
}

func (m *memStorage) GetPaymentByID(id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	return m.loadPayment(p), nil
}

func (m *memStorage) GetPaymentByGatewayOrderID(orderID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if models.StringValue(p.GatewayOrderID) == orderID {
			return m.loadPayment(p), nil
		}
	}
	return nil, nil
}

func (m *memStorage) SetPaymentGatewayOrder(id string, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.Status != models.PaymentStatusPending || p.GatewayOrderID != nil {
		return db.ErrStatusChanged
	}
	p.GatewayOrderID = models.StringPtr(orderID)
	m.payments[id] = p
	return nil
}

func (m *memStorage) UpdatePaymentStatus(opts *db.UpdatePaymentStatusOpts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	p, ok := m.payments[opts.ID]
	if ok && m.racingStatus != "" {
		p.Status = m.racingStatus
		m.payments[opts.ID] = p
		m.racingStatus = ""
	}
	if !ok || p.Status != opts.From {
		return db.ErrStatusChanged
	}
	p.Status = opts.To
	if opts.GatewayPaymentID != nil {
		p.GatewayPaymentID = opts.GatewayPaymentID
	}
	if opts.GatewayOrderID != nil {
		p.GatewayOrderID = opts.GatewayOrderID
	}
	if opts.GatewaySignature != nil {
		p.GatewaySignature = opts.GatewaySignature
	}
	p.UpdatedAt = opts.UpdatedAt
	m.payments[opts.ID] = p
	return nil
}

func (m *memStorage) ListPayments(models.ListOpts) ([]models.Payment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Payment{}
	for _, p := range m.payments {
		out = append(out, *m.loadPayment(p))
	}
	return out, len(out), nil
}

func (m *memStorage) GetReceiptByID(id string) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStorage) GetReceiptByPaymentID(paymentID string) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideReceipts > 0 {
		m.hideReceipts--
		return nil, nil
	}
	for _, r := range m.receipts {
		if r.PaymentID == paymentID {
			receipt := r
			return &receipt, nil
		}
	}
	return nil, nil
}

func (m *memStorage) InsertReceipt(receipt *models.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.receipts {
		if r.PaymentID == receipt.PaymentID {
			return &models.ConflictError{Resource: "receipt", Err: errors.New("duplicate payment_id")}
		}
	}
	m.receipts[receipt.ID] = *receipt
	return nil
}

func (m *memStorage) ListReceipts(models.ListOpts) ([]models.Receipt, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Receipt{}
	for _, r := range m.receipts {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *memStorage) GetAdminLoginByUsername(username string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[username]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memStorage) InsertAdmin(admin *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[admin.Username] = *admin
	return nil
}

func (m *memStorage) receiptCount(paymentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.receipts {
		if r.PaymentID == paymentID {
			n++
		}
	}
	return n
}

var _ db.Storage = (*memStorage)(nil)

// UpdatePaymentStatusDirect sets a status without the lifecycle checks.
func (m *memStorage) UpdatePaymentStatusDirect(id string, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return errors.Errorf("payment %s not found", id)
	}
	p.Status = status
	m.payments[id] = p
	return nil
}
