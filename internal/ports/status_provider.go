package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emberfi/burndeck/internal/domain"
)

// StatusProvider fetches the optional off-chain user-status snapshot.
// (nil, nil) means the service is disabled, unreachable, or answered
// non-2xx — callers treat that as "no off-chain data", never as zeroes
// and never as an error worth surfacing.
type StatusProvider interface {
	UserStatus(ctx context.Context, addr common.Address) (*domain.OffchainSnapshot, error)
}
