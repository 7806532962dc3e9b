package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maxg-dev/santiscl/internal/platform/cache"
)

const (
	// DefaultTTL is how long completed responses are replayable.
	DefaultTTL = 24 * time.Hour
	// pendingTTL bounds how long a crashed request can hold a key.
	pendingTTL = 2 * time.Minute

	keyPrefix = "idem:"
)

// ReservationState describes the outcome of reserving a key.
type ReservationState int

const (
	// ReservationStateNew means the caller owns the key and should process the request.
	ReservationStateNew ReservationState = iota
	// ReservationStateCompleted means a stored response should be replayed.
	ReservationStateCompleted
	// ReservationStatePending means another request is processing the key.
	ReservationStatePending
)

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key reserved for different request fingerprint")

// Record is the stored state of a key.
type Record struct {
	Fingerprint string              `json:"fingerprint"`
	Completed   bool                `json:"completed"`
	Status      int                 `json:"status,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`
	Body        []byte              `json:"body,omitempty"`
}

// Store keeps reservations in redis (or the in-process cache.Memory).
type Store struct {
	cmds cache.Commands
}

// NewStore binds the store to cmds.
func NewStore(cmds cache.Commands) (*Store, error) {
	if cmds == nil {
		return nil, errors.New("idempotency: commands are required")
	}
	return &Store{cmds: cmds}, nil
}

// Reserve claims key for fingerprint or reports the state of an earlier claim.
func (s *Store) Reserve(ctx context.Context, key, fingerprint string) (ReservationState, Record, error) {
	pending, err := json.Marshal(Record{Fingerprint: fingerprint})
	if err != nil {
		return 0, Record{}, err
	}
	storageKey := storageKey(key)
	created, err := s.cmds.SetNX(ctx, storageKey, pending, pendingTTL).Result()
	if err != nil {
		return 0, Record{}, fmt.Errorf("idempotency: reserve: %w", err)
	}
	if created {
		return ReservationStateNew, Record{}, nil
	}

	raw, err := s.cmds.Get(ctx, storageKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, key, fingerprint)
	}
	if err != nil {
		return 0, Record{}, fmt.Errorf("idempotency: load: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return 0, Record{}, fmt.Errorf("idempotency: decode: %w", err)
	}
	if record.Fingerprint != fingerprint {
		return 0, Record{}, ErrFingerprintMismatch
	}
	if record.Completed {
		return ReservationStateCompleted, record, nil
	}
	return ReservationStatePending, record, nil
}

// Complete stores the response for key so later requests replay it.
func (s *Store) Complete(ctx context.Context, key string, record Record, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	record.Completed = true
	record.Headers = sanitizeHeaders(record.Headers)
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.cmds.Set(ctx, storageKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: save: %w", err)
	}
	return nil
}

// Release drops the reservation so the request can be retried.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.cmds.Del(ctx, storageKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: release: %w", err)
	}
	return nil
}

func storageKey(key string) string {
	return keyPrefix + sha256Hex([]byte(strings.TrimSpace(key)))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sanitizeHeaders(header map[string][]string) map[string][]string {
	if len(header) == 0 {
		return nil
	}
	filtered := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		switch strings.ToLower(canonical) {
		case "content-length", "date", "connection", "keep-alive", "set-cookie", "transfer-encoding", "upgrade":
			continue
		}
		filtered[canonical] = append([]string(nil), values...)
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
