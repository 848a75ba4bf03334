package ports

import (
	"context"
	"time"
)

// Cursor is the pagination token used to continue a transaction listing.
// The provider treats it as opaque; the Blockchair adapter maps it to an
// offset.
type Cursor struct {
	Offset int64
}

// TxRecord is one provider transaction affecting the queried address.
// Value is signed satoshis: positive = received, negative = sent.
type TxRecord struct {
	TxID        string
	BlockHeight *int64     // nil = unconfirmed
	Timestamp   *time.Time // nil until confirmed
	Value       int64
}

// TxPage is one page of a wallet's transaction history. NextCursor is
// nil when the listing is exhausted.
type TxPage struct {
	Transactions []TxRecord
	NextCursor   *Cursor
}

// AddressInfo is the provider's summary view of an address.
type AddressInfo struct {
	Balance          int64 // satoshis, as reported by the provider
	TransactionCount int64
}

// Provider fetches blockchain data for Bitcoin addresses. Implementations
// enforce the provider's published rate ceiling (callers suspend, never
// error, when over budget) and retry transient failures with bounded
// exponential backoff.
type Provider interface {
	FetchAddressInfo(ctx context.Context, address string) (*AddressInfo, error)
	FetchPage(ctx context.Context, address string, cursor *Cursor) (*TxPage, error)
}
