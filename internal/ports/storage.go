package ports

import (
	"context"

	"github.com/emberfi/burndeck/internal/domain"
)

// Storage is the diagnostics history log. It is write-only from the
// pipeline's point of view: nothing read from it ever feeds back into a
// position — every refresh rebuilds from the chain.
type Storage interface {
	// SaveRefresh records a summary row for one completed refresh.
	SaveRefresh(ctx context.Context, state domain.AccountState) error

	// SaveTx records one transaction attempt and its outcome.
	SaveTx(ctx context.Context, rec domain.TxRecord) error

	// TxHistory returns the most recent transaction attempts, newest first.
	TxHistory(ctx context.Context, limit int) ([]domain.TxRecord, error)

	Close() error
}
