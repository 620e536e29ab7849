// Package cidutil holds the content-addressing helpers shared by the record
// stores and the lookup reducers.
package cidutil

import (
	"errors"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var (
	ErrUndefined = errors.New("cidutil: undefined cid")
	ErrMismatch  = errors.New("cidutil: content does not match cid")
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Parse decodes the canonical string form of a CID and rejects cid.Undef.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, ErrUndefined
	}
	return id, nil
}

// Verify recomputes the digest of data with id's own prefix (version, codec,
// hash function) and reports ErrMismatch when it differs.
func Verify(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrUndefined
	}
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrMismatch
	}
	return nil
}
