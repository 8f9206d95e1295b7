package cache

import (
	"context"
	"testing"
	"time"

	"book-checkout/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReservation(id string) *model.Reservation {
	return &model.Reservation{
		ID:          id,
		OwnerUserID: "user-1",
		Subtotal:    25.00,
		TotalAmount: 25.00,
		LineItems: []model.ReservationLineItem{
			{BookID: "B001", Quantity: 1, UnitPrice: 25.00, LineTotal: 25.00},
		},
		PaymentMethod: model.PaymentMethodKHQR,
		SourceCartID:  "cart-1",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestMemory_ExpiredKeyBehavesLikeMissing(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	require.NoError(t, mem.Set(ctx, "k", []byte("v"), time.Minute))

	// Move the clock past the expiry; the key must read as a plain miss.
	mem.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := mem.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemory_ExactExpiryIsExpired(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	base := time.Now()
	mem.now = func() time.Time { return base }
	require.NoError(t, mem.Set(ctx, "k", []byte("v"), time.Minute))

	// now == expiresAt exactly: closed interval on the expired side.
	mem.now = func() time.Time { return base.Add(time.Minute) }

	_, err := mem.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestReservationStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewReservationStore(NewMemory(), 15*time.Minute, zerolog.Nop())

	res := testReservation("RSV-1")
	require.NoError(t, store.Save(ctx, res))

	got, err := store.Get(ctx, "RSV-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res.ID, got.ID)
	assert.Equal(t, res.OwnerUserID, got.OwnerUserID)
	assert.Equal(t, res.TotalAmount, got.TotalAmount)
	assert.Len(t, got.LineItems, 1)

	require.NoError(t, store.Delete(ctx, "RSV-1"))

	got, err = store.Get(ctx, "RSV-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReservationStore_GetMissingIsNilNil(t *testing.T) {
	store := NewReservationStore(NewMemory(), 15*time.Minute, zerolog.Nop())

	got, err := store.Get(context.Background(), "never-existed")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQRSessionStore_SaveOverwritesPreviousSession(t *testing.T) {
	ctx := context.Background()
	store := NewQRSessionStore(NewMemory(), 10*time.Minute, zerolog.Nop())

	first := &model.QRSession{
		ReservationID: "RSV-1",
		Descriptor:    "qr-payload-1",
		IntegrityHash: "hash-1",
		ExpiresAt:     time.Now().Add(10 * time.Minute),
		Amount:        25.00,
		Currency:      "USD",
	}
	require.NoError(t, store.Save(ctx, first))

	second := &model.QRSession{
		ReservationID: "RSV-1",
		Descriptor:    "qr-payload-2",
		IntegrityHash: "hash-2",
		ExpiresAt:     time.Now().Add(10 * time.Minute),
		Amount:        25.00,
		Currency:      "USD",
	}
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Get(ctx, "RSV-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash-2", got.IntegrityHash)
	assert.Equal(t, "qr-payload-2", got.Descriptor)
}

func TestQRSessionStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewQRSessionStore(NewMemory(), 10*time.Minute, zerolog.Nop())

	assert.NoError(t, store.Delete(ctx, "RSV-missing"))
}
