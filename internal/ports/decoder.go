package ports

import "github.com/bft-labs/ladcache/internal/domain"

// RecordDecoder turns one frame payload (the bytes after the length field)
// into a record. Implementations must not retain payload.
type RecordDecoder interface {
	Decode(payload []byte) (domain.Record, error)
}
