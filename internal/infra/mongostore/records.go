package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ============================================================
// TransactionStore implementation
// ============================================================

func (s *Store) ListTransactions(ctx context.Context, clientID string, f port.TransactionFilter) ([]domain.FuelTransaction, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListTransactions")
	defer span.End()

	filter := bson.M{"client_id": clientID}
	if f.VehicleID != "" {
		filter["vehicle_id"] = f.VehicleID
	}
	if f.IDs != nil {
		filter["id"] = bson.M{"$in": f.IDs}
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		window := bson.M{}
		if !f.From.IsZero() {
			window["$gte"] = f.From
		}
		if !f.To.IsZero() {
			window["$lt"] = f.To
		}
		filter["transaction_date"] = window
	}

	opts := options.Find().SetSort(bson.D{{Key: "transaction_date", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return findAll[transactionDoc, domain.FuelTransaction](ctx, s, s.coll(collTransactions), filter, opts, (*transactionDoc).toDomain)
}

func (s *Store) GetTransaction(ctx context.Context, clientID, transactionID string) (*domain.FuelTransaction, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetTransaction")
	defer span.End()

	return findOne[transactionDoc, domain.FuelTransaction](ctx, s.coll(collTransactions),
		bson.M{"id": transactionID, "client_id": clientID}, (*transactionDoc).toDomain)
}

func (s *Store) InsertTransactions(ctx context.Context, txs []domain.FuelTransaction) error {
	ctx, span := tracer.Start(ctx, "Mongo.InsertTransactions")
	defer span.End()

	if len(txs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(txs))
	for _, tx := range txs {
		d := transactionDoc(tx)
		docs = append(docs, &d)
	}
	if _, err := s.coll(collTransactions).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("fuel_transactions insert: %w", err)
	}
	return nil
}

// ============================================================
// InvoiceStore implementation
// ============================================================

func (s *Store) ListInvoices(ctx context.Context, clientID string, f port.InvoiceFilter) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListInvoices")
	defer span.End()

	filter := bson.M{"client_id": clientID}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}

	sort := bson.D{{Key: "created_at", Value: -1}}
	if f.SortByDue {
		sort = bson.D{{Key: "due_date", Value: 1}}
	}
	opts := options.Find().SetSort(sort)
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return findAll[invoiceDoc, domain.Invoice](ctx, s, s.coll(collInvoices), filter, opts, (*invoiceDoc).toDomain)
}

func (s *Store) GetInvoice(ctx context.Context, clientID, invoiceID string) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetInvoice")
	defer span.End()

	return findOne[invoiceDoc, domain.Invoice](ctx, s.coll(collInvoices),
		bson.M{"id": invoiceID, "client_id": clientID}, (*invoiceDoc).toDomain)
}

func (s *Store) InsertInvoice(ctx context.Context, invoice *domain.Invoice) error {
	ctx, span := tracer.Start(ctx, "Mongo.InsertInvoice")
	defer span.End()

	doc := invoiceDoc(*invoice)
	if _, err := s.coll(collInvoices).InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("invoices insert: %w", err)
	}
	return nil
}

// ============================================================
// AlertStore implementation
// ============================================================

func (s *Store) CreateAlert(ctx context.Context, alert *domain.CreditAlert) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateAlert")
	defer span.End()

	doc := alertDoc(*alert)
	if _, err := s.coll(collAlerts).InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("credit_alerts insert: %w", err)
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, clientID string, includeDismissed bool, limit int) ([]domain.CreditAlert, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListAlerts")
	defer span.End()

	filter := bson.M{"client_id": clientID}
	if !includeDismissed {
		filter["dismissed"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[alertDoc, domain.CreditAlert](ctx, s, s.coll(collAlerts), filter, opts, (*alertDoc).toDomain)
}

func (s *Store) DismissAlert(ctx context.Context, clientID, alertID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Mongo.DismissAlert")
	defer span.End()

	res, err := s.coll(collAlerts).UpdateOne(ctx,
		bson.M{"id": alertID, "client_id": clientID},
		bson.M{"$set": bson.M{"dismissed": true}},
	)
	if err != nil {
		return false, fmt.Errorf("credit_alerts dismiss: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// ============================================================
// CodeStore implementation
// ============================================================

func (s *Store) SaveCode(ctx context.Context, code *domain.VerificationCode) error {
	ctx, span := tracer.Start(ctx, "Mongo.SaveCode")
	defer span.End()

	doc := codeDoc(*code)
	_, err := s.coll(collCodes).ReplaceOne(ctx,
		bson.M{"cnpj": code.CNPJ},
		&doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("verification_codes upsert: %w", err)
	}
	return nil
}

func (s *Store) ConsumeCode(ctx context.Context, cnpj, code string, now time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ConsumeCode")
	defer span.End()

	res, err := s.coll(collCodes).DeleteOne(ctx, bson.M{
		"cnpj":       cnpj,
		"code":       code,
		"expires_at": bson.M{"$gt": now},
	})
	if err != nil {
		return false, fmt.Errorf("verification_codes consume: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (s *Store) DeleteCodes(ctx context.Context, cnpj string) error {
	ctx, span := tracer.Start(ctx, "Mongo.DeleteCodes")
	defer span.End()

	if _, err := s.coll(collCodes).DeleteMany(ctx, bson.M{"cnpj": cnpj}); err != nil {
		return fmt.Errorf("verification_codes delete: %w", err)
	}
	return nil
}
