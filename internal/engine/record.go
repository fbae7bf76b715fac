package engine

import "github.com/pomaicache/keycache/internal/cache"

// subkeySeparator delimits a composite key's top-level meta entry from its
// sub-key range: a sub-key is encoded as key + subkeySeparator + field, so
// every sub-key of key has key+subkeySeparator as a strict prefix.
const subkeySeparator = "\x00"

// Record is the meta-keyspace's durable representation of a single entry:
// a top-level key's kind and expiry, or (for KindComposite) one field of a
// composite value's sub-key range.
type Record struct {
	Kind       cache.MetaKind
	DeadlineMs int64
	Value      []byte
}
