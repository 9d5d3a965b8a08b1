package query

import (
	"fmt"
	"strings"

	"github.com/bft-labs/ladcache/internal/domain"
)

// ComparisonStrategy is how a client decides which of two values is newer.
type ComparisonStrategy uint8

const (
	// LastReceived treats the most recently ingested value as newest.
	LastReceived ComparisonStrategy = iota

	// CompareERT orders values by earth received time.
	CompareERT

	// CompareSCET orders values by spacecraft event time.
	CompareSCET

	// CompareSCLK orders values by spacecraft clock.
	CompareSCLK
)

var strategyNames = [...]string{
	LastReceived: "last_received",
	CompareERT:   "ert",
	CompareSCET:  "scet",
	CompareSCLK:  "sclk",
}

// String returns the strategy's configuration name.
func (s ComparisonStrategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", s)
}

// ParseComparisonStrategy accepts the names produced by String.
func ParseComparisonStrategy(s string) (ComparisonStrategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range strategyNames {
		if n == s {
			return ComparisonStrategy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown comparison strategy %q", domain.ErrInvalidQuery, s)
}

// TimeTypeFor maps a comparison strategy onto the time domain queries order
// by. It panics on a strategy it does not know.
func TimeTypeFor(s ComparisonStrategy) domain.TimeType {
	switch s {
	case LastReceived:
		return domain.TimeRecordCreation
	case CompareERT:
		return domain.TimeERT
	case CompareSCET:
		return domain.TimeSCET
	case CompareSCLK:
		return domain.TimeSCLK
	}
	panic(fmt.Sprintf("query: unmapped comparison strategy %d", s))
}
