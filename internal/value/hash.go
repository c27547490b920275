package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainValue prefixes value content hashes. The version suffix allows the
// canonical encoding to change later without colliding with old hashes.
const DomainValue = "tabula/value/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns a stable identity for a value's content.
// Two values are Equal exactly when their hashes match (up to NFC normalisation of text).
func ContentHash(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ContentHash: %w", err)
	}
	return hashWithDomain(DomainValue, canonical), nil
}
