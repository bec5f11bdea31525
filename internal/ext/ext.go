// Package ext declares the narrow external collaborator interfaces this
// repository's core depends on but does not implement. Concrete transports,
// wallets, and chain clients live outside this module and satisfy these
// contracts; the core never imports them back.
package ext

import (
	"context"

	"github.com/google/uuid"

	"github.com/rawblock/coinshuffle-core/pkg/models"
)

// Waiter organizes a room's participant set before a shuffle starts:
// collecting UTXO commitments from interested peers and deciding when a
// batch is ready to hand to the coordinator. This repository's core never
// calls Organize itself; it only depends on the interface existing so a
// caller can plug one in ahead of coordinator.Coordinator.CreateRoom.
type Waiter interface {
	Organize(ctx context.Context, token models.Address, amount [32]byte) ([]models.Input, error)
}

// Signer produces a participant's signature over a room's canonical
// signing message (see shuffle.MessageToSign), typically by delegating to
// a wallet or HSM the core has no business touching directly.
type Signer interface {
	Sign(ctx context.Context, message [32]byte) ([]byte, error)
}

// Transfer broadcasts the assembled (outputs, inputs) pair once every
// participant in a room has signed.
type Transfer interface {
	Transfer(ctx context.Context, roomID uuid.UUID, outputs []models.Output, inputs []models.Input) ([32]byte, error)
}
