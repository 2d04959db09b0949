package ports

import (
	"context"

	"github.com/emberfi/burndeck/internal/domain"
)

// Notifier presents a refreshed account state to the user.
type Notifier interface {
	Notify(ctx context.Context, state domain.AccountState) error
}
