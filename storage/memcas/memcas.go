// Package memcas is an in-process record store. Loopback peers and tests use
// it in place of a directory-backed store.
package memcas

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/casnet/cidutil"
	"xdao.co/casnet/storage"
)

type CAS struct {
	mu      sync.RWMutex
	records map[cid.Cid][]byte
}

var _ storage.CAS = (*CAS)(nil)

func New() *CAS {
	return &CAS{records: make(map[cid.Cid][]byte)}
}

func (c *CAS) Put(bytes []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(bytes)
	if err != nil {
		return cid.Undef, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.records[id]; ok {
		if string(existing) != string(bytes) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	c.records[id] = append([]byte(nil), bytes...)
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	c.mu.RLock()
	b, ok := c.records[id]
	c.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.records[id]
	return ok
}

// Len reports the number of stored records.
func (c *CAS) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
