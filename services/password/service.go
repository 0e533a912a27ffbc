package password

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost targets roughly 50-250ms per hash on commodity hardware.
const DefaultCost = 12

// MaxLength is bcrypt's input limit in bytes.
const MaxLength = 72

var (
	ErrHashingFailed   = errors.New("failed to hash password")
	ErrPasswordTooLong = fmt.Errorf("password must be at most %d bytes", MaxLength)
)

// Hasher hashes and verifies passwords with bcrypt. Concurrent bcrypt work is
// bounded by a weighted semaphore so CPU-bound hashing cannot starve the
// goroutines serving other requests.
type Hasher struct {
	cost      int
	slots     *semaphore.Weighted
	logger    *logging.Service
	dummyHash []byte
}

func NewHasher(cost, concurrency int, logger *logging.Service) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	h := &Hasher{
		cost:   cost,
		slots:  semaphore.NewWeighted(int64(concurrency)),
		logger: logger,
	}

	// A real hash at the configured cost, so that verifying an unknown account
	// costs the same as verifying a known one.
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to seed dummy hash: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to build dummy hash: %w", err)
	}
	h.dummyHash = dummy

	if logger != nil {
		logger.Info("initialized password hasher",
			zap.Int("bcrypt_cost", cost),
			zap.Int("concurrency", concurrency))
	}

	return h, nil
}

func (h *Hasher) Cost() int {
	return h.cost
}

// DummyHash returns a valid hash that no password is known to match.
func (h *Hasher) DummyHash() string {
	return string(h.dummyHash)
}

func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if len(password) > MaxLength {
		return "", ErrPasswordTooLong
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("password hashing failed", zap.Error(err))
		}
		return "", fmt.Errorf("%w: %v", ErrHashingFailed, err)
	}

	if h.logger != nil {
		h.logger.Debug("password hash generated",
			zap.Int("bcrypt_cost", h.cost),
			zap.Duration("took", time.Since(start)))
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash, a cancelled
// context or any other failure is reported as a mismatch. Passwords over
// MaxLength never match: bcrypt would compare only their first 72 bytes.
func (h *Hasher) Verify(ctx context.Context, password, hash string) bool {
	if len(password) > MaxLength {
		return false
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.slots.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) && h.logger != nil {
		h.logger.Warn("password verification against malformed hash", zap.Error(err))
	}
	return err == nil
}
