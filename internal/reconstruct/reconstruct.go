// Package reconstruct rebuilds typed domain values from stored records,
// restoring dictionary definitions and every timestamp domain.
package reconstruct

import (
	"fmt"
	"time"

	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/metrics"
	"github.com/bft-labs/ladcache/internal/ports"
)

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithLSTSpacecraft restricts local solar time parsing to the given
// spacecraft. Without it every spacecraft is assumed to have LST.
func WithLSTSpacecraft(scids ...int) Option {
	return func(r *Reconstructor) {
		r.lst = make(map[int]struct{}, len(scids))
		for _, id := range scids {
			r.lst[id] = struct{}{}
		}
	}
}

// WithMetrics counts skipped records.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconstructor) { r.metrics = m }
}

// Reconstructor converts records into values. It holds no per-call state
// and is safe for concurrent use when its Dictionary is.
type Reconstructor struct {
	dict    ports.Dictionary
	logger  ports.Logger
	metrics *metrics.Metrics
	lst     map[int]struct{}
}

// New creates a reconstructor backed by dict.
func New(dict ports.Dictionary, logger ports.Logger, opts ...Option) *Reconstructor {
	r := &Reconstructor{dict: dict, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Value converts any record.
func (r *Reconstructor) Value(rec domain.Record) (domain.Value, error) {
	switch v := rec.(type) {
	case *domain.ChannelSample:
		return r.Channel(v)
	case *domain.EventRecord:
		return r.Event(v)
	default:
		panic(fmt.Sprintf("reconstruct: unexpected record type %T", rec))
	}
}

// Channel converts a channel sample. A channel missing from the dictionary
// gets a placeholder definition.
func (r *Reconstructor) Channel(s *domain.ChannelSample) (*domain.ChannelValue, error) {
	if s.ChannelID == "" {
		return nil, &ConversionError{Kind: domain.KindChannel, Field: "channel_id", Err: errMissing}
	}

	def, ok := r.dict.LookupChannel(s.ChannelID)
	if !ok {
		def = domain.ChannelDefinition{
			ID:             s.ChannelID,
			Name:           s.ChannelID,
			Type:           s.DNType,
			DefinitionType: domain.DefinitionTypeFor(s.Origin),
			Placeholder:    true,
		}
	}

	times, err := r.times(&s.RecordHeader)
	if err != nil {
		return nil, &ConversionError{Kind: domain.KindChannel, EntityID: s.ChannelID, Field: "lst", Err: err}
	}

	dnType := s.DNType
	if dnType == domain.ChannelUnknown {
		dnType = def.Type
	}
	dn, err := decodeDN(dnType, s.DN)
	if err != nil {
		return nil, &ConversionError{Kind: domain.KindChannel, EntityID: s.ChannelID, Field: "dn", Err: err}
	}

	alarms := make([]domain.Alarm, len(s.Alarms))
	copy(alarms, s.Alarms)

	return &domain.ChannelValue{
		Definition: def,
		Times:      times,
		Context:    contextOf(&s.RecordHeader),
		DN:         dn,
		EU:         s.EU,
		HasEU:      s.HasEU,
		Status:     s.Status,
		Alarms:     alarms,
		Realtime:   s.Realtime,
	}, nil
}

// Event converts an event record. An event missing from the dictionary gets
// a placeholder definition carrying the record's id, name and level.
func (r *Reconstructor) Event(e *domain.EventRecord) (*domain.EventValue, error) {
	if e.Name == "" && e.EventID < 0 {
		return nil, &ConversionError{Kind: domain.KindEvent, Field: "event_id", Err: errMissing}
	}

	var (
		def domain.EventDefinition
		ok  bool
	)
	if e.EventID >= 0 {
		def, ok = r.dict.LookupEvent(e.EventID, e.FSW)
	}
	if !ok {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("EVR_%d", e.EventID)
		}
		def = domain.EventDefinition{
			ID:          e.EventID,
			Name:        name,
			Level:       e.Level,
			FSW:         e.FSW,
			Placeholder: true,
		}
	}

	times, err := r.times(&e.RecordHeader)
	if err != nil {
		return nil, &ConversionError{Kind: domain.KindEvent, EntityID: e.EntityID(), Field: "lst", Err: err}
	}

	return &domain.EventValue{
		Definition: def,
		Times:      times,
		Context:    contextOf(&e.RecordHeader),
		Message:    e.Message,
		Metadata:   e.Metadata,
		Realtime:   e.Realtime,
	}, nil
}

// All converts records in order, skipping and logging any that fail.
func (r *Reconstructor) All(recs []domain.Record) []domain.Value {
	out := make([]domain.Value, 0, len(recs))
	for _, rec := range recs {
		v, err := r.Value(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// Messages is All with each value wrapped in an envelope stamped with the
// record's creation time.
func (r *Reconstructor) Messages(recs []domain.Record) []domain.Message[domain.Value] {
	out := make([]domain.Message[domain.Value], 0, len(recs))
	for _, rec := range recs {
		v, err := r.Value(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		out = append(out, domain.Message[domain.Value]{
			CreatedAt: millisTime(rec.Header().EventTime),
			Body:      v,
		})
	}
	return out
}

func (r *Reconstructor) skip(rec domain.Record, err error) {
	r.metrics.ConversionFailed(rec.Kind().String())
	r.logger.Warn("skipping record that failed conversion",
		ports.String("kind", rec.Kind().String()),
		ports.String("entity", rec.EntityID()),
		ports.Int64("insert_number", rec.Header().InsertNumber),
		ports.Err(err),
	)
}

func (r *Reconstructor) times(h *domain.RecordHeader) (domain.Times, error) {
	var t domain.Times
	t.ERT, _ = domain.ADT(h.ErtMillis, h.ErtNanos)
	t.SCET, _ = domain.ADT(h.ScetMillis, h.ScetNanos)
	if h.SclkCoarse >= 0 && h.SclkFine >= 0 {
		t.SCLK = domain.Sclk{Coarse: h.SclkCoarse, Fine: h.SclkFine}
		t.HasSCLK = true
	}
	t.EventTime = millisTime(h.EventTime)

	if h.LST != "" && r.hasLST(h.SCID) {
		lst, err := domain.ParseLocalSolarTime(h.SCID, h.LST)
		if err != nil {
			return domain.Times{}, err
		}
		t.LST, t.HasLST = lst, true
	}
	return t, nil
}

func (r *Reconstructor) hasLST(scid int) bool {
	if r.lst == nil {
		return true
	}
	_, ok := r.lst[scid]
	return ok
}

func contextOf(h *domain.RecordHeader) domain.Context {
	return domain.Context{
		DSSID:     h.DSSID,
		VCID:      h.VCID,
		SessionID: h.SessionID,
		Host:      h.Host,
		SCID:      h.SCID,
		Venue:     h.Venue,
	}
}

func millisTime(ms int64) time.Time {
	if ms < 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
