package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeType selects which timestamp domain a query orders and bounds by.
type TimeType uint8

const (
	TimeAny TimeType = iota
	TimeERT
	TimeSCET
	TimeSCLK
	TimeLST
	TimeRecordCreation
)

var timeTypeNames = [...]string{
	TimeAny:            "any",
	TimeERT:            "ert",
	TimeSCET:           "scet",
	TimeSCLK:           "sclk",
	TimeLST:            "lst",
	TimeRecordCreation: "event",
}

// String returns the lower-case name used in configuration and logs.
func (t TimeType) String() string {
	if int(t) < len(timeTypeNames) {
		return timeTypeNames[t]
	}
	return "unknown"
}

// Concrete reports whether t names a single timestamp domain.
func (t TimeType) Concrete() bool {
	return t != TimeAny && int(t) < len(timeTypeNames)
}

// ParseTimeType accepts the names produced by String, case-insensitively.
// "rct" is accepted as an alias of "event".
func ParseTimeType(s string) (TimeType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "rct" {
		return TimeRecordCreation, nil
	}
	for i, n := range timeTypeNames {
		if n == s {
			return TimeType(i), nil
		}
	}
	return TimeAny, fmt.Errorf("unknown time type %q", s)
}

// TimeKey is a two-part ordering key in one timestamp domain.
type TimeKey struct {
	Major int64
	Minor int64
}

// Before reports whether k sorts strictly before o.
func (k TimeKey) Before(o TimeKey) bool {
	if k.Major != o.Major {
		return k.Major < o.Major
	}
	return k.Minor < o.Minor
}

// Key returns the ordering key of h in the given domain. LST is ordered by
// SCET, from which it is derived. TimeAny orders by record creation time.
func (h *RecordHeader) Key(t TimeType) TimeKey {
	switch t {
	case TimeERT:
		return TimeKey{h.ErtMillis, h.ErtNanos}
	case TimeSCET, TimeLST:
		return TimeKey{h.ScetMillis, h.ScetNanos}
	case TimeSCLK:
		return TimeKey{h.SclkCoarse, h.SclkFine}
	default:
		return TimeKey{h.EventTime, 0}
	}
}

// ADT converts a (milliseconds, nanosecond remainder) pair into a time.
// The remainder holds the sub-millisecond nanoseconds. ok is false when
// either component is unset.
func ADT(millis, nanos int64) (t time.Time, ok bool) {
	if millis < 0 || nanos < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(millis).Add(time.Duration(nanos)).UTC(), true
}

// SplitADT is the inverse of ADT.
func SplitADT(t time.Time) (millis, nanos int64) {
	millis = t.UnixMilli()
	nanos = int64(t.Nanosecond() % int(time.Millisecond))
	return millis, nanos
}

func formatEventID(id int64) string {
	return strconv.FormatInt(id, 10)
}
