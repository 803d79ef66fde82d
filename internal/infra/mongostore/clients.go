package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// ClientStore implementation
// ============================================================

func (s *Store) GetClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetClientByID")
	defer span.End()
	span.SetAttributes(attribute.String("client.id", clientID))

	return findOne[clientDoc, domain.Client](ctx, s.coll(collClients), bson.M{"id": clientID}, (*clientDoc).toDomain)
}

func (s *Store) GetClientByCNPJ(ctx context.Context, cnpj string) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetClientByCNPJ")
	defer span.End()

	return findOne[clientDoc, domain.Client](ctx, s.coll(collClients), bson.M{"cnpj": cnpj}, (*clientDoc).toDomain)
}

func (s *Store) CreateClient(ctx context.Context, client *domain.Client) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateClient")
	defer span.End()

	_, err := s.coll(collClients).InsertOne(ctx, newClientDoc(client))
	if mongo.IsDuplicateKeyError(err) {
		return &domain.ErrConflict{Message: "CNPJ already registered"}
	}
	if err != nil {
		return fmt.Errorf("clients insert: %w", err)
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, clientID, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdatePassword")
	defer span.End()

	return s.setFields(ctx, collClients, "client", clientID,
		bson.M{"id": clientID},
		bson.M{"password_hash": passwordHash},
	)
}

func (s *Store) UpdateCreditUsage(ctx context.Context, clientID string, usage float64) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdateCreditUsage")
	defer span.End()

	return s.setFields(ctx, collClients, "client", clientID,
		bson.M{"id": clientID},
		bson.M{"current_usage": usage},
	)
}

func (s *Store) MarkAlertSent(ctx context.Context, clientID, threshold string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "Mongo.MarkAlertSent")
	defer span.End()

	return s.setFields(ctx, collClients, "client", clientID,
		bson.M{"id": clientID},
		bson.M{"last_alert_sent." + threshold: at.UTC()},
	)
}

func (s *Store) UpdateSettings(ctx context.Context, clientID string, req *domain.UpdateSettingsRequest) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdateSettings")
	defer span.End()

	set := bson.M{}
	if req.TwoFactorEnabled != nil {
		set["two_factor_enabled"] = *req.TwoFactorEnabled
	}
	if req.EmailNotifications != nil {
		set["email_notifications"] = *req.EmailNotifications
	}
	if req.WhatsAppNotifications != nil {
		set["whatsapp_notifications"] = *req.WhatsAppNotifications
	}
	if req.NotificationEmail != nil {
		set["notification_email"] = *req.NotificationEmail
	}
	if req.NotificationWhatsApp != nil {
		set["notification_whatsapp"] = *req.NotificationWhatsApp
	}
	if req.Contacts != nil {
		set["contacts"] = contactsToDocs(req.Contacts)
	}
	if len(set) == 0 {
		return nil
	}
	return s.setFields(ctx, collClients, "client", clientID, bson.M{"id": clientID}, set)
}

func (s *Store) SetContacts(ctx context.Context, clientID string, contacts []domain.Contact) error {
	ctx, span := tracer.Start(ctx, "Mongo.SetContacts")
	defer span.End()

	return s.setFields(ctx, collClients, "client", clientID,
		bson.M{"id": clientID},
		bson.M{"contacts": contactsToDocs(contacts)},
	)
}
