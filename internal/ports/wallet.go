package ports

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Wallet is the external signing session. Connection lifecycle and key
// custody live behind this interface; the orchestrator only ever asks
// whether a session exists and on which network.
type Wallet interface {
	// Connected reports whether a signing session is available.
	Connected() bool

	// Address is the account being tracked and signed for.
	Address() common.Address

	// ChainID is the network the wallet is currently on.
	ChainID() *big.Int
}
