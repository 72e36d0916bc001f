package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies passwords with bcrypt. The work runs on
// its own goroutine so a cancelled request stops waiting for it.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is outside bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt encoding of plaintext, salt included.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	type result struct {
		hash []byte
		err  error
	}
	out, err := await(ctx, func() result {
		b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		return result{b, err}
	})
	if err != nil {
		return "", err
	}
	if out.err != nil {
		return "", fmt.Errorf("failed to hash password: %w", out.err)
	}
	return string(out.hash), nil
}

// Verify reports whether plaintext matches hash. A malformed hash is a
// mismatch; the only error returned is the context's.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	return await(ctx, func() bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
	})
}

func await[T any](ctx context.Context, fn func() T) (T, error) {
	done := make(chan T, 1)
	go func() { done <- fn() }()

	select {
	case v := <-done:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
