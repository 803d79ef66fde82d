// Package memstore is an in-process implementation of every storage port.
// It backs STORE_DRIVER=memory and the service/handler tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"
)

var (
	_ port.Store     = (*Store)(nil)
	_ port.CodeStore = (*Store)(nil)
)

// Store keeps all collections in maps guarded by one lock.
type Store struct {
	mu sync.RWMutex

	clients      map[string]*domain.Client
	vehicles     map[string]*domain.Vehicle
	limits       map[string]*domain.Limit
	transactions map[string]*domain.FuelTransaction
	invoices     map[string]*domain.Invoice
	alerts       map[string]*domain.CreditAlert
	codes        map[string]*domain.VerificationCode
}

// New returns an empty store.
func New() *Store {
	return &Store{
		clients:      make(map[string]*domain.Client),
		vehicles:     make(map[string]*domain.Vehicle),
		limits:       make(map[string]*domain.Limit),
		transactions: make(map[string]*domain.FuelTransaction),
		invoices:     make(map[string]*domain.Invoice),
		alerts:       make(map[string]*domain.CreditAlert),
		codes:        make(map[string]*domain.VerificationCode),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// ============================================================
// Clients
// ============================================================

func cloneClient(c *domain.Client) *domain.Client {
	out := *c
	out.Contacts = slices.Clone(c.Contacts)
	if c.LastAlertSent != nil {
		out.LastAlertSent = make(map[string]time.Time, len(c.LastAlertSent))
		for k, v := range c.LastAlertSent {
			out.LastAlertSent[k] = v
		}
	}
	return &out
}

func (s *Store) GetClientByID(_ context.Context, clientID string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[clientID]
	if !ok {
		return nil, nil
	}
	return cloneClient(c), nil
}

func (s *Store) GetClientByCNPJ(_ context.Context, cnpj string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.CNPJ == cnpj {
			return cloneClient(c), nil
		}
	}
	return nil, nil
}

func (s *Store) CreateClient(_ context.Context, client *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.CNPJ == client.CNPJ {
			return &domain.ErrConflict{Message: "CNPJ already registered"}
		}
	}
	s.clients[client.ID] = cloneClient(client)
	return nil
}

// withClient applies fn to the stored client under the write lock.
func (s *Store) withClient(clientID string, fn func(c *domain.Client)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok {
		return &domain.ErrNotFound{Resource: "client", ID: clientID}
	}
	fn(c)
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, clientID, passwordHash string) error {
	return s.withClient(clientID, func(c *domain.Client) { c.PasswordHash = passwordHash })
}

func (s *Store) UpdateCreditUsage(_ context.Context, clientID string, usage float64) error {
	return s.withClient(clientID, func(c *domain.Client) { c.CurrentUsage = usage })
}

func (s *Store) MarkAlertSent(_ context.Context, clientID, threshold string, at time.Time) error {
	return s.withClient(clientID, func(c *domain.Client) {
		if c.LastAlertSent == nil {
			c.LastAlertSent = make(map[string]time.Time)
		}
		c.LastAlertSent[threshold] = at
	})
}

func (s *Store) UpdateSettings(_ context.Context, clientID string, req *domain.UpdateSettingsRequest) error {
	return s.withClient(clientID, func(c *domain.Client) {
		if req.TwoFactorEnabled != nil {
			c.TwoFactorEnabled = *req.TwoFactorEnabled
		}
		if req.EmailNotifications != nil {
			c.EmailNotifications = *req.EmailNotifications
		}
		if req.WhatsAppNotifications != nil {
			c.WhatsAppNotifications = *req.WhatsAppNotifications
		}
		if req.NotificationEmail != nil {
			c.NotificationEmail = *req.NotificationEmail
		}
		if req.NotificationWhatsApp != nil {
			c.NotificationWhatsApp = *req.NotificationWhatsApp
		}
		if req.Contacts != nil {
			c.Contacts = slices.Clone(req.Contacts)
		}
	})
}

func (s *Store) SetContacts(_ context.Context, clientID string, contacts []domain.Contact) error {
	return s.withClient(clientID, func(c *domain.Client) { c.Contacts = slices.Clone(contacts) })
}

// ============================================================
// Vehicles
// ============================================================

func (s *Store) ListActiveVehicles(_ context.Context, clientID string) ([]domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Vehicle{}
	for _, v := range s.vehicles {
		if v.ClientID == clientID && v.IsActive {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountActiveVehicles(ctx context.Context, clientID string) (int, error) {
	vs, err := s.ListActiveVehicles(ctx, clientID)
	return len(vs), err
}

func (s *Store) GetVehicle(_ context.Context, clientID, vehicleID string) (*domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[vehicleID]
	if !ok || v.ClientID != clientID {
		return nil, nil
	}
	out := *v
	return &out, nil
}

func (s *Store) FindActiveVehicleByPlate(_ context.Context, clientID, plate string) (*domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.vehicles {
		if v.ClientID == clientID && v.IsActive && v.LicensePlate == plate {
			out := *v
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateVehicle(_ context.Context, vehicle *domain.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := *vehicle
	s.vehicles[v.ID] = &v
	return nil
}

func (s *Store) UpdateVehicle(_ context.Context, vehicle *domain.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.vehicles[vehicle.ID]
	if !ok || cur.ClientID != vehicle.ClientID {
		return &domain.ErrNotFound{Resource: "vehicle", ID: vehicle.ID}
	}
	v := *vehicle
	s.vehicles[v.ID] = &v
	return nil
}

func (s *Store) DeactivateVehicle(_ context.Context, clientID, vehicleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok || v.ClientID != clientID || !v.IsActive {
		return false, nil
	}
	v.IsActive = false
	return true, nil
}

// ============================================================
// Limits
// ============================================================

func (s *Store) ListActiveLimits(_ context.Context, clientID string) ([]domain.Limit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Limit{}
	for _, l := range s.limits {
		if l.ClientID == clientID && l.IsActive {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetLimit(_ context.Context, clientID, limitID string) (*domain.Limit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.limits[limitID]
	if !ok || l.ClientID != clientID {
		return nil, nil
	}
	out := *l
	return &out, nil
}

func (s *Store) CreateLimit(_ context.Context, limit *domain.Limit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := *limit
	s.limits[l.ID] = &l
	return nil
}

func (s *Store) UpdateLimit(_ context.Context, limit *domain.Limit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.limits[limit.ID]
	if !ok || cur.ClientID != limit.ClientID {
		return &domain.ErrNotFound{Resource: "limit", ID: limit.ID}
	}
	l := *limit
	s.limits[l.ID] = &l
	return nil
}

func (s *Store) DeactivateLimit(_ context.Context, clientID, limitID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limits[limitID]
	if !ok || l.ClientID != clientID || !l.IsActive {
		return false, nil
	}
	l.IsActive = false
	return true, nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) ListTransactions(_ context.Context, clientID string, f port.TransactionFilter) ([]domain.FuelTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.FuelTransaction{}
	for _, tx := range s.transactions {
		if tx.ClientID != clientID {
			continue
		}
		if f.VehicleID != "" && tx.VehicleID != f.VehicleID {
			continue
		}
		if f.IDs != nil && !slices.Contains(f.IDs, tx.ID) {
			continue
		}
		if !f.From.IsZero() && tx.TransactionDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !tx.TransactionDate.Before(f.To) {
			continue
		}
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionDate.After(out[j].TransactionDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, clientID, transactionID string) (*domain.FuelTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[transactionID]
	if !ok || tx.ClientID != clientID {
		return nil, nil
	}
	out := *tx
	return &out, nil
}

func (s *Store) InsertTransactions(_ context.Context, txs []domain.FuelTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range txs {
		tx := txs[i]
		s.transactions[tx.ID] = &tx
	}
	return nil
}

// ============================================================
// Invoices
// ============================================================

func (s *Store) ListInvoices(_ context.Context, clientID string, f port.InvoiceFilter) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Invoice{}
	for _, inv := range s.invoices {
		if inv.ClientID != clientID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, inv.Status) {
			continue
		}
		cp := *inv
		cp.TransactionIDs = slices.Clone(inv.TransactionIDs)
		out = append(out, cp)
	}
	if f.SortByDue {
		sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) GetInvoice(_ context.Context, clientID, invoiceID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[invoiceID]
	if !ok || inv.ClientID != clientID {
		return nil, nil
	}
	out := *inv
	out.TransactionIDs = slices.Clone(inv.TransactionIDs)
	return &out, nil
}

func (s *Store) InsertInvoice(_ context.Context, invoice *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv := *invoice
	inv.TransactionIDs = slices.Clone(invoice.TransactionIDs)
	s.invoices[inv.ID] = &inv
	return nil
}

// SetInvoiceStatus changes an invoice's status. Used by tests and the seed tooling.
func (s *Store) SetInvoiceStatus(invoiceID, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[invoiceID]
	if ok {
		inv.Status = status
	}
	return ok
}

// ============================================================
// Alerts
// ============================================================

func (s *Store) CreateAlert(_ context.Context, alert *domain.CreditAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *alert
	s.alerts[a.ID] = &a
	return nil
}

func (s *Store) ListAlerts(_ context.Context, clientID string, includeDismissed bool, limit int) ([]domain.CreditAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.CreditAlert{}
	for _, a := range s.alerts {
		if a.ClientID != clientID || (a.Dismissed && !includeDismissed) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DismissAlert(_ context.Context, clientID, alertID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[alertID]
	if !ok || a.ClientID != clientID {
		return false, nil
	}
	a.Dismissed = true
	return true, nil
}

// ============================================================
// Verification codes
// ============================================================

func (s *Store) SaveCode(_ context.Context, code *domain.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *code
	s.codes[c.CNPJ] = &c
	return nil
}

func (s *Store) ConsumeCode(_ context.Context, cnpj, code string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[cnpj]
	if !ok || c.Code != code || !now.Before(c.ExpiresAt) {
		return false, nil
	}
	delete(s.codes, cnpj)
	return true, nil
}

func (s *Store) DeleteCodes(_ context.Context, cnpj string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.codes, cnpj)
	return nil
}
