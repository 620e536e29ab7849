// Package storage defines the record store a serving peer answers lookups from.
package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable record store.
//
// Contract:
// - Put MUST be idempotent.
// - Stored records MUST be immutable.
// - Keys MUST be derived from the bytes written.
// - Get MUST return ErrNotFound when the CID is absent; a peer answers that
//   lookup with an empty (record-not-found) reply rather than an error.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
