package document

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallybook/backend/internal/domain/shared"
)

func createTestDocument(t *testing.T, docType DocumentType) *Document {
	t.Helper()
	doc, err := NewDocument(uuid.New(), uuid.New(), docType, "INV-202506-00001")
	require.NoError(t, err)
	return doc
}

func TestDocumentType_IsValid(t *testing.T) {
	tests := []struct {
		docType DocumentType
		isValid bool
	}{
		{DocumentTypeReceipt, true},
		{DocumentTypeInvoice, true},
		{DocumentType("quote"), false},
		{DocumentType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.docType.IsValid())
		})
	}
}

func TestDocumentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     DocumentStatus
		to       DocumentStatus
		canTrans bool
	}{
		{DocumentStatusDraft, DocumentStatusSent, true},
		{DocumentStatusDraft, DocumentStatusViewed, false},
		{DocumentStatusSent, DocumentStatusViewed, true},
		{DocumentStatusSent, DocumentStatusDraft, false},
		{DocumentStatusViewed, DocumentStatusDraft, false},
		{DocumentStatusViewed, DocumentStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewDocument(t *testing.T) {
	businessID := uuid.New()
	transactionID := uuid.New()

	t.Run("creates a draft", func(t *testing.T) {
		doc, err := NewDocument(businessID, transactionID, DocumentTypeReceipt, "RCT-202506-00001")

		require.NoError(t, err)
		assert.Equal(t, DocumentStatusDraft, doc.Status)
		assert.True(t, doc.IsDraft())
		assert.Nil(t, doc.SentAt)
		assert.Nil(t, doc.ViewedAt)
		assert.Equal(t, transactionID, doc.TransactionID)

		events := doc.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeDocumentCreated, events[0].EventType())
	})

	t.Run("fails without a transaction", func(t *testing.T) {
		_, err := NewDocument(businessID, uuid.Nil, DocumentTypeReceipt, "RCT-202506-00001")
		assert.Error(t, err)
	})

	t.Run("fails with invalid type", func(t *testing.T) {
		_, err := NewDocument(businessID, transactionID, DocumentType("quote"), "Q-1")
		assert.Error(t, err)
	})

	t.Run("fails without a number", func(t *testing.T) {
		_, err := NewDocument(businessID, transactionID, DocumentTypeInvoice, "")
		assert.Error(t, err)
	})
}

func TestDocument_MarkSent(t *testing.T) {
	t.Run("moves draft to sent", func(t *testing.T) {
		doc := createTestDocument(t, DocumentTypeInvoice)
		doc.ClearDomainEvents()

		err := doc.MarkSent()

		require.NoError(t, err)
		assert.True(t, doc.IsSent())
		require.NotNil(t, doc.SentAt)

		events := doc.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeDocumentSent, events[0].EventType())
	})

	t.Run("fails when already sent", func(t *testing.T) {
		doc := createTestDocument(t, DocumentTypeInvoice)
		require.NoError(t, doc.MarkSent())
		firstSentAt := *doc.SentAt

		err := doc.MarkSent()

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		assert.Equal(t, firstSentAt, *doc.SentAt)
	})

	t.Run("fails when viewed", func(t *testing.T) {
		doc := createTestDocument(t, DocumentTypeInvoice)
		require.NoError(t, doc.MarkSent())
		require.NoError(t, doc.ConfirmViewed())

		assert.Error(t, doc.MarkSent())
	})
}

func TestDocument_ConfirmViewed(t *testing.T) {
	t.Run("moves sent to viewed", func(t *testing.T) {
		doc := createTestDocument(t, DocumentTypeReceipt)
		require.NoError(t, doc.MarkSent())
		doc.ClearDomainEvents()

		err := doc.ConfirmViewed()

		require.NoError(t, err)
		assert.True(t, doc.IsViewed())
		require.NotNil(t, doc.ViewedAt)

		events := doc.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeDocumentViewed, events[0].EventType())
	})

	t.Run("repeat confirmation is a no-op", func(t *testing.T) {
		doc := createTestDocument(t, DocumentTypeReceipt)
		require.NoError(t, doc.MarkSent())
		require.NoError(t, doc.ConfirmViewed())
		firstViewedAt := *doc.ViewedAt
		doc.ClearDomainEvents()

		err := doc.ConfirmViewed()

		require.NoError(t, err)
		assert.Equal(t, firstViewedAt, *doc.ViewedAt)
		assert.Empty(t, doc.GetDomainEvents())
	})

	t.Run("fails on a draft", func(t *testing.T) {
		doc := createTestDocument(t, DocumentTypeReceipt)

		err := doc.ConfirmViewed()

		require.Error(t, err)
		assert.True(t, doc.IsDraft())
		assert.Nil(t, doc.ViewedAt)
	})
}
