package models

import "time"

// ProofRef points at the off-chain reserve proof artifacts. The engine
// stores and serves them opaquely; it never verifies the merkle root.
type ProofRef struct {
	MerkleRoot string `json:"merkle_root"` // hex-encoded root of the reserve proof tree
	ProofCID   string `json:"proof_cid"`   // content address of the full proof document
}

// Attestation is the issuer's signed statement of backing reserves at a
// point in time. Amounts are integer cents.
type Attestation struct {
	Proof        ProofRef  `json:"proof"`
	TotalReserve uint64    `json:"total_reserve"`
	IssuedSupply uint64    `json:"issued_supply"`
	AsOf         time.Time `json:"as_of"`
}

// FreshAt reports whether the attestation is recent enough to gate
// issuance. A stale attestation is treated the same as none at all.
func (a *Attestation) FreshAt(now time.Time, maxAge time.Duration) bool {
	if a == nil || a.AsOf.IsZero() {
		return false
	}
	return now.Sub(a.AsOf) <= maxAge
}
