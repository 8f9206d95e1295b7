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

const reservationKeyPrefix = "checkout:reservation:"

// ReservationStore holds unconfirmed checkout snapshots with a bounded
// lifetime. Deleting the entry is what consumes the reservation, so the
// store doubles as the single-use ticket for exactly-once materialisation.
type ReservationStore struct {
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewReservationStore creates a reservation store with the given TTL.
func NewReservationStore(cache Cache, ttl time.Duration, logger zerolog.Logger) *ReservationStore {
	return &ReservationStore{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("store", "reservation").Logger(),
	}
}

// Save stores the reservation under its id for the store's TTL.
func (s *ReservationStore) Save(ctx context.Context, res *model.Reservation) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation: %w", err)
	}

	if err := s.cache.Set(ctx, reservationKeyPrefix+res.ID, payload, s.ttl); err != nil {
		return fmt.Errorf("failed to store reservation: %w", err)
	}

	s.logger.Debug().
		Str("reservation_id", res.ID).
		Dur("ttl", s.ttl).
		Msg("reservation stored")

	return nil
}

// Get returns the reservation by id, or (nil, nil) if absent or expired.
func (s *ReservationStore) Get(ctx context.Context, id string) (*model.Reservation, error) {
	payload, err := s.cache.Get(ctx, reservationKeyPrefix+id)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reservation: %w", err)
	}

	var res model.Reservation
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reservation: %w", err)
	}

	return &res, nil
}

// Delete removes the reservation. Removing an absent reservation is a no-op.
func (s *ReservationStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, reservationKeyPrefix+id); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	s.logger.Debug().Str("reservation_id", id).Msg("reservation deleted")
	return nil
}
