package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// QueryType restricts a query to one record variant.
type QueryType uint8

const (
	QueryAll     QueryType = iota // channel samples and events
	QueryChannel                  // channel samples only
	QueryEvent                    // events only
)

// Source selects records by how they reached the ground.
type Source uint8

const (
	SourceAll      Source = iota // either path
	SourceRealtime               // downlinked as it happened
	SourceRecorded               // played back from onboard storage
)

// RecordedState is the finer realtime/recorded filter. It is intersected
// with Source.
type RecordedState uint8

const (
	RecordedBoth RecordedState = iota // no restriction
	RealtimeOnly                      // realtime records only
	RecordedOnly                      // recorded records only
)

// DataOrigin restricts channel samples by origin class. Events match FSW or
// SSE according to their flight-software flag; header and monitor exclude
// events entirely.
type DataOrigin uint8

const (
	DataOriginAll     DataOrigin = iota // every origin
	DataOriginFSW                       // flight software
	DataOriginHeader                    // frame and packet header channels
	DataOriginMonitor                   // station monitor channels
	DataOriginSSE                       // support equipment
)

// QueryParams captures the axes of one query. It is created by
// QueryBuilder.Build and never modified afterwards; accessors return copies.
type QueryParams struct {
	queryType     QueryType
	source        Source
	recordedState RecordedState
	origin        DataOrigin
	timeType      TimeType

	entityID       string
	entityRegexes  []*regexp.Regexp
	eventIDs       []int64
	eventLevels    []string
	levelRegexes   []*regexp.Regexp
	nameRegexes    []*regexp.Regexp
	messageRegexes []*regexp.Regexp
	sessionIDs     []int64
	hostPattern    *regexp.Regexp
	venuePattern   *regexp.Regexp
	dssIDs         []int
	vcids          []int
	scid           int
	hasSCID        bool

	lower    TimeKey
	upper    TimeKey
	hasLower bool
	hasUpper bool

	maxResults int
}

// QueryType returns the record variant filter.
func (q QueryParams) QueryType() QueryType { return q.queryType }

// Source returns the realtime/recorded source filter.
func (q QueryParams) Source() Source { return q.source }

// RecordedState returns the recorded state filter.
func (q QueryParams) RecordedState() RecordedState { return q.recordedState }

// Origin returns the data origin filter.
func (q QueryParams) Origin() DataOrigin { return q.origin }

// TimeType returns the timestamp domain results are ordered and bounded by.
func (q QueryParams) TimeType() TimeType { return q.timeType }

// EntityID returns the exact entity filter, or "" for any entity.
func (q QueryParams) EntityID() string { return q.entityID }

// MaxResults returns the result cap, at least 1.
func (q QueryParams) MaxResults() int { return q.maxResults }

// SCID returns the spacecraft filter and whether one is set.
func (q QueryParams) SCID() (int, bool) { return q.scid, q.hasSCID }

// StationIDs returns a copy of the ground station filter.
func (q QueryParams) StationIDs() []int { return slices.Clone(q.dssIDs) }

// SessionIDs returns a copy of the session filter.
func (q QueryParams) SessionIDs() []int64 { return slices.Clone(q.sessionIDs) }

// EventIDs returns a copy of the event id filter.
func (q QueryParams) EventIDs() []int64 { return slices.Clone(q.eventIDs) }

// Builder returns a builder pre-populated with q, for deriving a variant.
func (q QueryParams) Builder() *QueryBuilder {
	b := &QueryBuilder{
		queryType:     q.queryType,
		source:        q.source,
		recordedState: q.recordedState,
		origin:        q.origin,
		timeType:      q.timeType,
		entityID:      q.entityID,
		eventIDs:      slices.Clone(q.eventIDs),
		eventLevels:   slices.Clone(q.eventLevels),
		sessionIDs:    slices.Clone(q.sessionIDs),
		dssIDs:        slices.Clone(q.dssIDs),
		vcids:         slices.Clone(q.vcids),
		scid:          q.scid,
		hasSCID:       q.hasSCID,
		lower:         q.lower,
		upper:         q.upper,
		hasLower:      q.hasLower,
		hasUpper:      q.hasUpper,
		maxResults:    q.maxResults,
		hasMax:        true,
	}
	b.entityPatterns = patternStrings(q.entityRegexes)
	b.namePatterns = patternStrings(q.nameRegexes)
	b.messagePatterns = patternStrings(q.messageRegexes)
	if q.hostPattern != nil {
		b.hostPattern = q.hostPattern.String()
	}
	if q.venuePattern != nil {
		b.venuePattern = q.venuePattern.String()
	}
	return b
}

// String renders the parameters for logs.
func (q QueryParams) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "type=%d,source=%d,recorded=%d,origin=%d,timeType=%s", q.queryType, q.source, q.recordedState, q.origin, q.timeType)
	if q.entityID != "" {
		fmt.Fprintf(&sb, ",entity=%s", q.entityID)
	}
	if len(q.eventIDs) > 0 {
		fmt.Fprintf(&sb, ",evrIds=%v", q.eventIDs)
	}
	if len(q.eventLevels) > 0 {
		fmt.Fprintf(&sb, ",evrLevels=%v", q.eventLevels)
	}
	if q.hasSCID {
		fmt.Fprintf(&sb, ",scid=%d", q.scid)
	}
	if q.hostPattern != nil {
		fmt.Fprintf(&sb, ",host=%s", q.hostPattern)
	}
	if q.venuePattern != nil {
		fmt.Fprintf(&sb, ",venue=%s", q.venuePattern)
	}
	if len(q.sessionIDs) > 0 {
		fmt.Fprintf(&sb, ",sessions=%v", q.sessionIDs)
	}
	if len(q.dssIDs) > 0 {
		fmt.Fprintf(&sb, ",dss=%v", q.dssIDs)
	}
	fmt.Fprintf(&sb, ",max=%d", q.maxResults)
	return sb.String()
}

// Matches reports whether rec satisfies every filter except the result cap.
func (q QueryParams) Matches(rec Record) bool {
	if !q.matchesKind(rec) || !q.matchesRealtime(rec) || !q.matchesOrigin(rec) {
		return false
	}
	if q.entityID != "" && rec.EntityID() != q.entityID {
		return false
	}
	if len(q.entityRegexes) > 0 && !anyMatch(q.entityRegexes, rec.EntityID()) {
		return false
	}
	if !q.matchesEvent(rec) {
		return false
	}

	h := rec.Header()
	if q.hasSCID && h.SCID != q.scid {
		return false
	}
	if q.hostPattern != nil && !q.hostPattern.MatchString(h.Host) {
		return false
	}
	if q.venuePattern != nil && !q.venuePattern.MatchString(h.Venue) {
		return false
	}
	if len(q.sessionIDs) > 0 && !slices.Contains(q.sessionIDs, h.SessionID) {
		return false
	}
	if len(q.dssIDs) > 0 && !slices.Contains(q.dssIDs, h.DSSID) {
		return false
	}
	if len(q.vcids) > 0 && !slices.Contains(q.vcids, h.VCID) {
		return false
	}

	if q.hasLower || q.hasUpper {
		k := h.Key(q.timeType)
		if q.hasLower && k.Before(q.lower) {
			return false
		}
		if q.hasUpper && q.upper.Before(k) {
			return false
		}
	}
	return true
}

func (q QueryParams) matchesKind(rec Record) bool {
	switch q.queryType {
	case QueryChannel:
		return rec.Kind() == KindChannel
	case QueryEvent:
		return rec.Kind() == KindEvent
	default:
		return true
	}
}

func (q QueryParams) matchesRealtime(rec Record) bool {
	var realtime bool
	switch r := rec.(type) {
	case *ChannelSample:
		realtime = r.Realtime
	case *EventRecord:
		realtime = r.Realtime
	}

	switch q.source {
	case SourceRealtime:
		if !realtime {
			return false
		}
	case SourceRecorded:
		if realtime {
			return false
		}
	}
	switch q.recordedState {
	case RealtimeOnly:
		return realtime
	case RecordedOnly:
		return !realtime
	default:
		return true
	}
}

func (q QueryParams) matchesOrigin(rec Record) bool {
	if q.origin == DataOriginAll {
		return true
	}
	switch r := rec.(type) {
	case *ChannelSample:
		switch q.origin {
		case DataOriginFSW:
			return r.Origin == OriginFlight
		case DataOriginHeader:
			return r.Origin == OriginHeader
		case DataOriginMonitor:
			return r.Origin == OriginMonitor
		case DataOriginSSE:
			return r.Origin == OriginSSE
		}
	case *EventRecord:
		switch q.origin {
		case DataOriginFSW:
			return r.FSW
		case DataOriginSSE:
			return !r.FSW
		}
	}
	return false
}

// matchesEvent applies the event-only filters. Channel samples never match
// when any of them is set.
func (q QueryParams) matchesEvent(rec Record) bool {
	if len(q.eventIDs) == 0 && len(q.levelRegexes) == 0 && len(q.nameRegexes) == 0 && len(q.messageRegexes) == 0 {
		return true
	}
	ev, ok := rec.(*EventRecord)
	if !ok {
		return false
	}
	if len(q.eventIDs) > 0 && !slices.Contains(q.eventIDs, ev.EventID) {
		return false
	}
	if len(q.levelRegexes) > 0 && !anyMatch(q.levelRegexes, ev.Level) {
		return false
	}
	if len(q.nameRegexes) > 0 && !anyMatch(q.nameRegexes, ev.Name) {
		return false
	}
	if len(q.messageRegexes) > 0 && !anyMatch(q.messageRegexes, ev.Message) {
		return false
	}
	return true
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func patternStrings(res []*regexp.Regexp) []string {
	var out []string
	for _, re := range res {
		out = append(out, re.String())
	}
	return out
}

// QueryBuilder assembles QueryParams. The zero value queries every record
// with TimeAny and a result cap of one.
type QueryBuilder struct {
	queryType       QueryType
	source          Source
	recordedState   RecordedState
	origin          DataOrigin
	timeType        TimeType
	entityID        string
	entityPatterns  []string
	eventIDs        []int64
	eventLevels     []string
	namePatterns    []string
	messagePatterns []string
	sessionIDs      []int64
	hostPattern     string
	venuePattern    string
	dssIDs          []int
	vcids           []int
	scid            int
	hasSCID         bool
	lower           TimeKey
	upper           TimeKey
	hasLower        bool
	hasUpper        bool
	maxResults      int
	hasMax          bool
}

// NewQueryBuilder returns an empty builder.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{}
}

// QueryType restricts results to one record variant.
func (b *QueryBuilder) QueryType(t QueryType) *QueryBuilder { b.queryType = t; return b }

// Source restricts results to realtime or recorded records.
func (b *QueryBuilder) Source(s Source) *QueryBuilder { b.source = s; return b }

// RecordedState restricts results by recorded state; it is intersected
// with Source.
func (b *QueryBuilder) RecordedState(s RecordedState) *QueryBuilder {
	b.recordedState = s
	return b
}

// Origin restricts results to one data origin.
func (b *QueryBuilder) Origin(o DataOrigin) *QueryBuilder { b.origin = o; return b }

// TimeType selects the timestamp domain for ordering and bounds.
func (b *QueryBuilder) TimeType(t TimeType) *QueryBuilder { b.timeType = t; return b }

// EntityID restricts results to one channel id or event name.
func (b *QueryBuilder) EntityID(id string) *QueryBuilder { b.entityID = id; return b }

// EntityPatterns adds regular expressions matched against entity ids.
func (b *QueryBuilder) EntityPatterns(p ...string) *QueryBuilder {
	b.entityPatterns = append(b.entityPatterns, p...)
	return b
}

// EventIDs restricts events to the given numeric ids.
func (b *QueryBuilder) EventIDs(ids ...int64) *QueryBuilder {
	b.eventIDs = append(b.eventIDs, ids...)
	return b
}

// EventLevels restricts events to levels matching any of the given
// regular expressions. Each must match the whole level, case-insensitively,
// so a plain level name selects exactly that level.
func (b *QueryBuilder) EventLevels(l ...string) *QueryBuilder {
	b.eventLevels = append(b.eventLevels, l...)
	return b
}

// EventNamePatterns restricts events to names matching any of the given
// regular expressions.
func (b *QueryBuilder) EventNamePatterns(p ...string) *QueryBuilder {
	b.namePatterns = append(b.namePatterns, p...)
	return b
}

// MessagePatterns restricts events to messages matching any of the given
// regular expressions.
func (b *QueryBuilder) MessagePatterns(p ...string) *QueryBuilder {
	b.messagePatterns = append(b.messagePatterns, p...)
	return b
}

// SessionIDs restricts results to the given sessions.
func (b *QueryBuilder) SessionIDs(ids ...int64) *QueryBuilder {
	b.sessionIDs = append(b.sessionIDs, ids...)
	return b
}

// HostPattern restricts results to session hosts matching p.
func (b *QueryBuilder) HostPattern(p string) *QueryBuilder { b.hostPattern = p; return b }

// VenuePattern restricts results to venues matching p.
func (b *QueryBuilder) VenuePattern(p string) *QueryBuilder { b.venuePattern = p; return b }

// StationIDs restricts results to the given ground stations.
func (b *QueryBuilder) StationIDs(ids ...int) *QueryBuilder {
	b.dssIDs = append(b.dssIDs, ids...)
	return b
}

// VCIDs restricts results to the given virtual channels.
func (b *QueryBuilder) VCIDs(ids ...int) *QueryBuilder {
	b.vcids = append(b.vcids, ids...)
	return b
}

// SCID restricts results to one spacecraft.
func (b *QueryBuilder) SCID(id int) *QueryBuilder {
	b.scid, b.hasSCID = id, true
	return b
}

// Lower sets an inclusive lower bound in the query's time domain.
func (b *QueryBuilder) Lower(k TimeKey) *QueryBuilder {
	b.lower, b.hasLower = k, true
	return b
}

// Upper sets an inclusive upper bound in the query's time domain.
func (b *QueryBuilder) Upper(k TimeKey) *QueryBuilder {
	b.upper, b.hasUpper = k, true
	return b
}

// ClearBounds removes both time bounds.
func (b *QueryBuilder) ClearBounds() *QueryBuilder {
	b.lower, b.upper = TimeKey{}, TimeKey{}
	b.hasLower, b.hasUpper = false, false
	return b
}

// MaxResults caps the number of results; it must be at least 1.
func (b *QueryBuilder) MaxResults(n int) *QueryBuilder {
	b.maxResults, b.hasMax = n, true
	return b
}

// Build validates the builder and returns immutable parameters. Errors wrap
// ErrInvalidQuery.
func (b *QueryBuilder) Build() (QueryParams, error) {
	limit := 1
	if b.hasMax {
		if b.maxResults < 1 {
			return QueryParams{}, fmt.Errorf("%w: max results must be at least 1, got %d", ErrInvalidQuery, b.maxResults)
		}
		limit = b.maxResults
	}
	if (b.hasLower || b.hasUpper) && !b.timeType.Concrete() {
		return QueryParams{}, fmt.Errorf("%w: time bounds require a concrete time type", ErrInvalidQuery)
	}
	if b.hasLower && b.hasUpper && b.upper.Before(b.lower) {
		return QueryParams{}, fmt.Errorf("%w: upper time bound precedes lower bound", ErrInvalidQuery)
	}
	if int(b.timeType) >= len(timeTypeNames) {
		return QueryParams{}, fmt.Errorf("%w: unknown time type %d", ErrInvalidQuery, b.timeType)
	}

	q := QueryParams{
		queryType:     b.queryType,
		source:        b.source,
		recordedState: b.recordedState,
		origin:        b.origin,
		timeType:      b.timeType,
		entityID:      b.entityID,
		eventIDs:      slices.Clone(b.eventIDs),
		eventLevels:   slices.Clone(b.eventLevels),
		sessionIDs:    slices.Clone(b.sessionIDs),
		dssIDs:        slices.Clone(b.dssIDs),
		vcids:         slices.Clone(b.vcids),
		scid:          b.scid,
		hasSCID:       b.hasSCID,
		lower:         b.lower,
		upper:         b.upper,
		hasLower:      b.hasLower,
		hasUpper:      b.hasUpper,
		maxResults:    limit,
	}

	var err error
	if q.entityRegexes, err = compileAll("entity", b.entityPatterns); err != nil {
		return QueryParams{}, err
	}
	if q.nameRegexes, err = compileAll("event name", b.namePatterns); err != nil {
		return QueryParams{}, err
	}
	if q.messageRegexes, err = compileAll("message", b.messagePatterns); err != nil {
		return QueryParams{}, err
	}
	for _, l := range b.eventLevels {
		re, err := regexp.Compile("(?i)^(?:" + l + ")$")
		if err != nil {
			return QueryParams{}, fmt.Errorf("%w: event level %q: %v", ErrInvalidQuery, l, err)
		}
		q.levelRegexes = append(q.levelRegexes, re)
	}
	if q.hostPattern, err = compileOptional("host", b.hostPattern); err != nil {
		return QueryParams{}, err
	}
	if q.venuePattern, err = compileOptional("venue", b.venuePattern); err != nil {
		return QueryParams{}, err
	}
	return q, nil
}

func compileAll(name string, patterns []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s pattern %q: %v", ErrInvalidQuery, name, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func compileOptional(name, p string) (*regexp.Regexp, error) {
	if p == "" {
		return nil, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s pattern %q: %v", ErrInvalidQuery, name, p, err)
	}
	return re, nil
}
