// Package network correlates outbound record lookups with their outcomes.
//
// A lookup for an address moves through a small state machine held in
// Results:
//
//	absent  --GetEntry(sent)-->    pending
//	absent  --GetEntry(failed)-->  failed(reason)
//	pending --timeout-->           failed(TIMEOUT)
//	any     --reply-->             succeeded(entry) | failed(reason)
//	settled --timeout-->           settled (unchanged)
//	settled --GetEntry-->          pending
//
// A reply always overwrites; a timeout only settles an entry that is still
// pending. The reducers in this package hold no locks: the host that owns a
// State must apply them one at a time, in the order actions were delivered.
package network
