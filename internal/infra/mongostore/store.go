// Package mongostore implements the storage ports on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("mongostore")

// Collection names.
const (
	collClients      = "clients"
	collVehicles     = "vehicles"
	collLimits       = "limits"
	collTransactions = "fuel_transactions"
	collInvoices     = "invoices"
	collAlerts       = "credit_alerts"
	collCodes        = "verification_codes"
)

var (
	_ port.Store     = (*Store)(nil)
	_ port.CodeStore = (*Store)(nil)
)

// Store wraps a Mongo database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect dials MongoDB and pings the primary, retrying with backoff.
func Connect(ctx context.Context, uri, dbName string, cfg resilience.Config, logger *zap.Logger) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	err = pingWithRetry(ctx, cfg, logger, func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &Store{client: client, db: client.Database(dbName), logger: logger}, nil
}

// Mongo error codes that no amount of retrying fixes.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// pingWithRetry pings until the server answers. Authentication failures
// stop the retry loop at once.
func pingWithRetry(ctx context.Context, cfg resilience.Config, logger *zap.Logger, ping func(context.Context) error) error {
	return resilience.RetryWithBackoff(ctx, cfg, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := ping(pingCtx)
		if err == nil {
			return nil
		}
		if isAuthError(err) {
			logger.Error("mongo rejected credentials", zap.Error(err))
			return resilience.Permanent(err)
		}
		logger.Warn("mongo ping failed, retrying", zap.Error(err))
		return err
	})
}

// isAuthError reports a credential failure, whether returned as a command
// error or surfaced through the handshake during server selection.
func isAuthError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeUnauthorized || cmdErr.Code == codeAuthenticationFailed
	}
	return strings.Contains(err.Error(), "auth error")
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Mongo.Ping")
	defer span.End()
	return s.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the indexes the portal relies on. Safe to call on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Mongo.EnsureIndexes")
	defer span.End()

	asc := func(keys ...string) bson.D {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return d
	}

	specs := map[string][]mongo.IndexModel{
		collClients: {
			{Keys: asc("cnpj"), Options: options.Index().SetUnique(true)},
			{Keys: asc("id"), Options: options.Index().SetUnique(true)},
		},
		collVehicles:     {{Keys: asc("client_id", "is_active", "license_plate")}},
		collLimits:       {{Keys: asc("client_id", "is_active")}},
		collTransactions: {{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "transaction_date", Value: -1}}}},
		collInvoices:     {{Keys: asc("client_id", "status")}},
		collAlerts:       {{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "created_at", Value: -1}}}},
		collCodes: {
			{Keys: asc("cnpj"), Options: options.Index().SetUnique(true)},
			{Keys: asc("expires_at"), Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}

	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// findOne decodes a single document. A missing document yields (nil, nil).
func findOne[D any, T any](ctx context.Context, coll *mongo.Collection, filter bson.M, convert func(*D) (T, error)) (*T, error) {
	var d D
	err := coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s find: %w", coll.Name(), err)
	}
	v, err := convert(&d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// findAll decodes every document of a cursor. Records that fail to decode or
// validate are skipped with a warning instead of failing the listing.
func findAll[D any, T any](ctx context.Context, s *Store, coll *mongo.Collection, filter bson.M, opts *options.FindOptions, convert func(*D) (T, error)) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s find: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	out := []T{}
	for cur.Next(ctx) {
		var d D
		if err := cur.Decode(&d); err != nil {
			s.logger.Warn("skipping undecodable record",
				zap.String("collection", coll.Name()),
				zap.Error(err),
			)
			continue
		}
		v, err := convert(&d)
		if err != nil {
			s.logger.Warn("skipping malformed record",
				zap.String("collection", coll.Name()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, v)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s cursor: %w", coll.Name(), err)
	}
	return out, nil
}

// setFields applies a $set to the single document matching filter and
// reports a not-found error when nothing matched.
func (s *Store) setFields(ctx context.Context, coll, resource, id string, filter, set bson.M) error {
	res, err := s.coll(coll).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("%s update: %w", coll, err)
	}
	if res.MatchedCount == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}
