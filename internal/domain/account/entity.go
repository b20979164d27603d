package account

import (
	"context"
	"fmt"
)

// Account owns environments, farms and the quota on running servers.
type Account struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ServerLimit int    `json:"server_limit"` // 0 means unlimited
}

// QuotaExceededError reports a server-count quota violation.
type QuotaExceededError struct {
	Limit   int
	Current int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("account server quota exceeded: %d of %d servers in use", e.Current, e.Limit)
}

// ValidateServerQuota checks that the account can hold `requested` more
// servers.
func (a *Account) ValidateServerQuota(current int64, requested int) error {
	if a.ServerLimit <= 0 {
		return nil
	}
	if current+int64(requested) > int64(a.ServerLimit) {
		return &QuotaExceededError{Limit: a.ServerLimit, Current: current}
	}
	return nil
}

// User is a resolved account user identity, used for launch attribution.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Repository resolves accounts and their usage.
type Repository interface {
	ByID(ctx context.Context, id int64) (*Account, error)

	// ActiveServerCount counts the account's non-terminated servers.
	ActiveServerCount(ctx context.Context, accountID int64) (int64, error)
}

// UserResolver resolves a raw user identifier into a user identity.
type UserResolver interface {
	ByID(ctx context.Context, id int64) (*User, error)
}
