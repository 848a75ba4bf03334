package blockchair

// Wire types for the Blockchair dashboards API. Only the fields the
// tracker needs are decoded; the rest of the (large) payload is ignored.

// apiResponse is the top-level envelope: data keyed by the queried address.
type apiResponse struct {
	Data  map[string]addressData `json:"data"`
	Error string                 `json:"error,omitempty"`
}

type addressData struct {
	Address      addressSummary   `json:"address"`
	Transactions []rawTransaction `json:"transactions"`
}

type addressSummary struct {
	Balance          int64 `json:"balance"` // satoshis
	TransactionCount int64 `json:"transaction_count"`
}

// rawTransaction is one entry of the transaction_details listing.
// BalanceChange is the signed satoshi delta for the queried address.
type rawTransaction struct {
	Hash          string `json:"hash"`
	BlockID       int64  `json:"block_id"` // <= 0 means unconfirmed
	Time          string `json:"time"`
	BalanceChange int64  `json:"balance_change"`
}
