package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var devTracer = otel.Tracer("service/devtools")

// Demo account created by Seed.
const (
	SeedCNPJ     = "12345678901234"
	SeedPassword = "123456"

	seedTransactions = 20
	seedPrice        = 5.45
	defaultLimit     = 15000
)

// ============================================================
// Dev Tools
// ============================================================

// SeedService provisions clients and demo data. Its HTTP route is only
// mounted outside production; the admin CLI uses it directly.
type SeedService struct {
	store  port.Store
	logger *zap.Logger
	now    Clock
	rng    *rand.Rand
}

func NewSeedService(store port.Store, logger *zap.Logger) *SeedService {
	now := time.Now()
	return &SeedService{
		store:  store,
		logger: logger,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(uint64(now.UnixNano()), 0x5eed)),
	}
}

// WithClock overrides the service's time source.
func (s *SeedService) WithClock(now Clock) *SeedService {
	s.now = now
	return s
}

// CreateClient registers a new active client with a bcrypt-hashed password.
func (s *SeedService) CreateClient(ctx context.Context, req *domain.NewClientRequest) (*domain.Client, error) {
	ctx, span := devTracer.Start(ctx, "SeedService.CreateClient")
	defer span.End()

	cnpj, err := NormalizeCNPJ(req.CNPJ)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, &domain.ErrValidation{Field: "company_name", Message: "company_name is required"}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("password must have at least %d characters", minPasswordLength)}
	}

	existing, err := s.store.GetClientByCNPJ(ctx, cnpj)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "Client with this CNPJ already exists"}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	limit := req.CreditLimit
	if limit <= 0 {
		limit = defaultLimit
	}

	client := &domain.Client{
		ID:                 uuid.NewString(),
		CNPJ:               cnpj,
		CompanyName:        strings.TrimSpace(req.CompanyName),
		Email:              strings.TrimSpace(req.Email),
		Phone:              req.Phone,
		WhatsApp:           req.WhatsApp,
		Contacts:           []domain.Contact{},
		PasswordHash:       hash,
		IsActive:           true,
		EmailNotifications: true,
		CreditLimit:        limit,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client created", zap.String("client_id", client.ID), zap.String("cnpj", cnpj))
	return client, nil
}

// Seed creates the demo client with two vehicles, twenty transactions spread
// over the last thirty days and one open invoice. It is a no-op when the demo
// client already exists.
func (s *SeedService) Seed(ctx context.Context) (*domain.SeedResponse, error) {
	ctx, span := devTracer.Start(ctx, "SeedService.Seed")
	defer span.End()

	existing, err := s.store.GetClientByCNPJ(ctx, SeedCNPJ)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if existing != nil {
		return &domain.SeedResponse{Message: "Test data already exists", ClientID: existing.ID, CNPJ: SeedCNPJ}, nil
	}

	client, err := s.CreateClient(ctx, &domain.NewClientRequest{
		CNPJ:        SeedCNPJ,
		CompanyName: "Transportadora ABC Ltda",
		Email:       "admin@transportadoraabc.com",
		Phone:       "11999999999",
		WhatsApp:    "11999999999",
		Password:    SeedPassword,
		CreditLimit: defaultLimit,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	vehicles := []domain.Vehicle{
		{LicensePlate: "ABC1234", Model: "Mercedes Sprinter", Year: 2022, DriverName: "João Silva"},
		{LicensePlate: "DEF5678", Model: "Volkswagen Delivery", Year: 2021, DriverName: "Maria Santos"},
	}
	for i := range vehicles {
		vehicles[i].ID = uuid.NewString()
		vehicles[i].ClientID = client.ID
		vehicles[i].FuelType = domain.FuelDiesel
		vehicles[i].IsActive = true
		vehicles[i].CreatedAt = now
		if err := s.store.CreateVehicle(ctx, &vehicles[i]); err != nil {
			return nil, fmt.Errorf("seed vehicle: %w", err)
		}
	}

	price := decimal.NewFromFloat(seedPrice)
	txs := make([]domain.FuelTransaction, 0, seedTransactions)
	for range seedTransactions {
		v := vehicles[s.rng.IntN(len(vehicles))]
		liters := decimal.NewFromFloat(30 + s.rng.Float64()*50).Round(2)
		txs = append(txs, domain.FuelTransaction{
			ID:              uuid.NewString(),
			ClientID:        client.ID,
			VehicleID:       v.ID,
			LicensePlate:    v.LicensePlate,
			FuelType:        domain.FuelDiesel,
			Liters:          liters.InexactFloat64(),
			PricePerLiter:   seedPrice,
			TotalAmount:     liters.Mul(price).Round(2).InexactFloat64(),
			StationID:       "station_001",
			StationName:     "Posto Shell Centro",
			TransactionDate: now.AddDate(0, 0, -s.rng.IntN(31)),
			Status:          domain.TxCompleted,
		})
	}
	if err := s.store.InsertTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("seed transactions: %w", err)
	}

	invoice := &domain.Invoice{
		ID:             uuid.NewString(),
		ClientID:       client.ID,
		InvoiceNumber:  "INV-2024-001",
		TotalAmount:    2850.75,
		DueDate:        now.AddDate(0, 0, 15),
		Status:         domain.InvoiceOpen,
		TransactionIDs: []string{},
		CreatedAt:      now,
	}
	if err := s.store.InsertInvoice(ctx, invoice); err != nil {
		return nil, fmt.Errorf("seed invoice: %w", err)
	}

	s.logger.Info("DEV: test data created",
		zap.String("client_id", client.ID),
		zap.Int("vehicles", len(vehicles)),
		zap.Int("transactions", len(txs)),
	)
	return &domain.SeedResponse{
		Message:      "Test data created successfully",
		ClientID:     client.ID,
		CNPJ:         SeedCNPJ,
		Vehicles:     len(vehicles),
		Transactions: len(txs),
		Invoices:     1,
	}, nil
}
