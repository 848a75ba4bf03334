package domain

import "regexp"

// Bitcoin address shapes: legacy and script-hash base58 (1... / 3...)
// and bech32 segwit (bc1...). Format check only; no checksum
// verification, the provider rejects addresses that do not exist.
var (
	base58AddressRe = regexp.MustCompile(`^[13][1-9A-HJ-NP-Za-km-z]{25,34}$`)
	bech32AddressRe = regexp.MustCompile(`^bc1[02-9ac-hj-np-z]{11,71}$`)
)

// ValidAddress reports whether s looks like a Bitcoin mainnet address.
func ValidAddress(s string) bool {
	return base58AddressRe.MatchString(s) || bech32AddressRe.MatchString(s)
}
