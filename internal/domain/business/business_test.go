package business

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

func TestNewBusiness(t *testing.T) {
	t.Run("creates a business", func(t *testing.T) {
		b, err := NewBusiness("Mama Nkechi Stores", valueobject.USD)

		require.NoError(t, err)
		assert.Equal(t, "Mama Nkechi Stores", b.Name)
		assert.Equal(t, valueobject.USD, b.Currency)
		assert.False(t, b.HasStorefront())
		assert.Equal(t, 1, b.GetVersion())

		events := b.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeBusinessCreated, events[0].EventType())
	})

	t.Run("defaults the currency", func(t *testing.T) {
		b, err := NewBusiness("Mama Nkechi Stores", "")

		require.NoError(t, err)
		assert.Equal(t, valueobject.DefaultCurrency, b.Currency)
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewBusiness("", valueobject.USD)
		assert.Error(t, err)
	})

	t.Run("fails with unsupported currency", func(t *testing.T) {
		_, err := NewBusiness("Mama Nkechi Stores", valueobject.Currency("XYZ"))
		assert.Error(t, err)
	})
}

func TestBusiness_Update(t *testing.T) {
	b, err := NewBusiness("Mama Nkechi Stores", valueobject.USD)
	require.NoError(t, err)
	b.ClearDomainEvents()

	require.NoError(t, b.Update("Nkechi & Sons"))
	assert.Equal(t, "Nkechi & Sons", b.Name)
	assert.Len(t, b.GetDomainEvents(), 1)

	assert.Error(t, b.Update(""))
	assert.Error(t, b.Update(strings.Repeat("x", 201)))
}

func TestBusiness_SetContact(t *testing.T) {
	b, err := NewBusiness("Mama Nkechi Stores", valueobject.USD)
	require.NoError(t, err)

	require.NoError(t, b.SetContact("Nkechi Obi", "+234 801 234 5678", "nkechi@example.com"))
	assert.Equal(t, "Nkechi Obi", b.OwnerName)
	assert.Equal(t, "+234 801 234 5678", b.Phone)

	assert.Error(t, b.SetContact(strings.Repeat("x", 101), "", ""))
	assert.Error(t, b.SetContact("", strings.Repeat("9", 51), ""))
}

func TestBusiness_SetCurrency(t *testing.T) {
	b, err := NewBusiness("Mama Nkechi Stores", valueobject.USD)
	require.NoError(t, err)

	require.NoError(t, b.SetCurrency(valueobject.NGN))
	assert.Equal(t, valueobject.NGN, b.Currency)

	assert.Error(t, b.SetCurrency(valueobject.Currency("XYZ")))
	assert.Equal(t, valueobject.NGN, b.Currency)
}

func TestBusiness_Storefront(t *testing.T) {
	b, err := NewBusiness("Mama Nkechi Stores", valueobject.USD)
	require.NoError(t, err)

	t.Run("enables with a slug", func(t *testing.T) {
		require.NoError(t, b.EnableStorefront("Nkechi-Stores"))
		assert.True(t, b.HasStorefront())
		assert.Equal(t, "nkechi-stores", b.Slug)
	})

	t.Run("disable keeps the slug reserved", func(t *testing.T) {
		b.DisableStorefront()
		assert.False(t, b.HasStorefront())
		assert.Equal(t, "nkechi-stores", b.Slug)
	})

	t.Run("rejects invalid slugs", func(t *testing.T) {
		assert.Error(t, b.EnableStorefront(""))
		assert.Error(t, b.EnableStorefront("has space"))
		assert.Error(t, b.EnableStorefront("under_score"))
	})
}
