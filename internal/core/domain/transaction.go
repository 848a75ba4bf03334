package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction tags the sign of a transaction from the wallet's point of view.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionSent     Direction = "sent"
)

// Transaction is one confirmed or pending movement of funds affecting a
// tracked wallet. Value is in satoshis and signed: received is positive,
// sent is negative. (WalletID, TxID) is unique, so re-ingesting the same
// transaction is a no-op.
type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	WalletID    uuid.UUID  `json:"wallet_id"`
	TxID        string     `json:"txid"`
	BlockHeight *int64     `json:"block_height,omitempty"` // nil = unconfirmed
	Timestamp   *time.Time `json:"timestamp,omitempty"`    // nil until confirmed
	Value       int64      `json:"value"`
	Direction   Direction  `json:"direction"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsConfirmed reports whether the transaction has been mined.
func (t *Transaction) IsConfirmed() bool {
	return t.BlockHeight != nil
}

// DirectionFor returns the direction implied by a signed satoshi value.
func DirectionFor(value int64) Direction {
	if value < 0 {
		return DirectionSent
	}
	return DirectionReceived
}
