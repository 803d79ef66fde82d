package mongostore

import (
	"testing"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestClientDoc_RoundTripThroughBSON(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &domain.Client{
		ID:           "c1",
		CNPJ:         "12345678901234",
		CompanyName:  "Transportadora ABC Ltda",
		PasswordHash: "hash",
		IsActive:     true,
		Contacts:     []domain.Contact{{ID: "k1", Type: domain.ContactWhatsApp, Value: "5511999999999", IsPrimary: true}},
		CreditLimit:  15000,
		LastAlertSent: map[string]time.Time{
			"90": created,
		},
		CreatedAt: created,
	}

	raw, err := bson.Marshal(newClientDoc(in))
	require.NoError(t, err)

	var doc clientDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	out, err := doc.toDomain()
	require.NoError(t, err)

	assert.Equal(t, in.CNPJ, out.CNPJ)
	assert.Equal(t, "hash", out.PasswordHash)
	assert.Equal(t, in.Contacts, out.Contacts)
	assert.True(t, out.LastAlertSent["90"].Equal(created))
	assert.True(t, out.CreatedAt.Equal(created))
}

func TestClientDoc_IgnoresServerID(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": "abc", "id": "c1", "cnpj": "1"})
	require.NoError(t, err)

	var doc clientDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	out, err := doc.toDomain()
	require.NoError(t, err)
	assert.Equal(t, "c1", out.ID)
}

func TestDocs_RejectMalformedRecords(t *testing.T) {
	_, err := (&clientDoc{ID: "c1"}).toDomain()
	assert.Error(t, err)

	_, err = (&vehicleDoc{ID: "v1", ClientID: "c1"}).toDomain()
	assert.Error(t, err, "vehicle without plate")

	_, err = (&transactionDoc{ID: "t1", ClientID: "c1", Liters: -1}).toDomain()
	assert.Error(t, err)

	_, err = (&invoiceDoc{ID: "i1", ClientID: "c1", Status: "cancelled"}).toDomain()
	assert.Error(t, err)

	inv, err := (&invoiceDoc{ID: "i1", ClientID: "c1", Status: domain.InvoicePaid}).toDomain()
	require.NoError(t, err)
	assert.NotNil(t, inv.TransactionIDs)
}
