package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"book-checkout/internal/model"

	"github.com/rs/zerolog"
)

const qrSessionKeyPrefix = "checkout:qrsession:"

// QRSessionStore holds minted payment descriptors keyed by reservation id.
// Saving a session overwrites any previous one for the same reservation, so
// a stale descriptor is never independently checkable after a re-mint.
type QRSessionStore struct {
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewQRSessionStore creates a QR session store with the given TTL. The TTL
// must not exceed the reservation TTL; config validation enforces that.
func NewQRSessionStore(cache Cache, ttl time.Duration, logger zerolog.Logger) *QRSessionStore {
	return &QRSessionStore{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("store", "qr_session").Logger(),
	}
}

// Save stores the session under its reservation id, replacing any previous
// session and its remaining TTL.
func (s *QRSessionStore) Save(ctx context.Context, session *model.QRSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal qr session: %w", err)
	}

	if err := s.cache.Set(ctx, qrSessionKeyPrefix+session.ReservationID, payload, s.ttl); err != nil {
		return fmt.Errorf("failed to store qr session: %w", err)
	}

	s.logger.Debug().
		Str("reservation_id", session.ReservationID).
		Str("integrity_hash", session.IntegrityHash).
		Time("expires_at", session.ExpiresAt).
		Msg("qr session stored")

	return nil
}

// Get returns the session for a reservation, or (nil, nil) if absent or
// expired.
func (s *QRSessionStore) Get(ctx context.Context, reservationID string) (*model.QRSession, error) {
	payload, err := s.cache.Get(ctx, qrSessionKeyPrefix+reservationID)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read qr session: %w", err)
	}

	var session model.QRSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal qr session: %w", err)
	}

	return &session, nil
}

// Delete removes the session for a reservation.
func (s *QRSessionStore) Delete(ctx context.Context, reservationID string) error {
	if err := s.cache.Delete(ctx, qrSessionKeyPrefix+reservationID); err != nil {
		return fmt.Errorf("failed to delete qr session: %w", err)
	}

	s.logger.Debug().Str("reservation_id", reservationID).Msg("qr session deleted")
	return nil
}
