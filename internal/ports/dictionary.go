package ports

import "github.com/bft-labs/ladcache/internal/domain"

// Dictionary resolves channel and event identifiers to their definitions.
// Implementations must be safe for concurrent use.
type Dictionary interface {
	LookupChannel(id string) (domain.ChannelDefinition, bool)

	// LookupEvent finds an event by numeric id; fsw selects the flight
	// software dictionary over the ground one.
	LookupEvent(id int64, fsw bool) (domain.EventDefinition, bool)
}
