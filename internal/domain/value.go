package domain

import (
	"fmt"
	"time"
)

// DefinitionType mirrors the origin class of a channel definition.
type DefinitionType string

const (
	DefinitionFSW     DefinitionType = "FSW"
	DefinitionHeader  DefinitionType = "H"
	DefinitionMonitor DefinitionType = "M"
	DefinitionSSE     DefinitionType = "SSE"
)

// DefinitionTypeFor maps a record origin onto its definition type.
func DefinitionTypeFor(o Origin) DefinitionType {
	switch o {
	case OriginHeader:
		return DefinitionHeader
	case OriginMonitor:
		return DefinitionMonitor
	case OriginSSE:
		return DefinitionSSE
	default:
		return DefinitionFSW
	}
}

// ChannelDefinition is the structural definition of a channel.
type ChannelDefinition struct {
	ID             string
	Name           string
	Type           ChannelType
	DefinitionType DefinitionType
	Units          string
	EUUnits        string
	Subsystem      string

	// Placeholder is set when the definition was synthesized because the
	// dictionary had no entry for the channel.
	Placeholder bool
}

// EventDefinition is the structural definition of an event.
type EventDefinition struct {
	ID          int64
	Name        string
	Level       string
	FSW         bool
	Category    string
	Placeholder bool
}

// Sclk is a spacecraft clock reading.
type Sclk struct {
	Coarse int64
	Fine   int64
}

// String formats the clock as coarse-fine.
func (s Sclk) String() string {
	return fmt.Sprintf("%010d-%05d", s.Coarse, s.Fine)
}

// LocalSolarTime is a sol number plus time of day on a given spacecraft's
// surface clock.
type LocalSolarTime struct {
	SCID      int
	Sol       int
	TimeOfDay time.Duration
}

// String formats the time as SOL-nnnnMhh:mm:ss.fff.
func (l LocalSolarTime) String() string {
	d := l.TimeOfDay
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("SOL-%04dM%02d:%02d:%02d.%03d", l.Sol, h, m, s, d/time.Millisecond)
}

// Times holds every timestamp domain of a reconstructed value. Zero values
// mean the record did not carry that domain.
type Times struct {
	ERT       time.Time
	SCET      time.Time
	SCLK      Sclk
	HasSCLK   bool
	LST       LocalSolarTime
	HasLST    bool
	EventTime time.Time
}

// Context holds the session and station fields of a reconstructed value.
type Context struct {
	DSSID     int
	VCID      int
	SessionID int64
	Host      string
	SCID      int
	Venue     string
}

// Value is a reconstructed domain object, *ChannelValue or *EventValue.
type Value interface {
	Kind() Kind
	valueSealed()
}

// ChannelValue is a fully typed channel sample with its definition restored.
type ChannelValue struct {
	Definition ChannelDefinition
	Times
	Context

	// DN is int64, uint64, float64, string or bool depending on the
	// definition type.
	DN       any
	EU       float64
	HasEU    bool
	Status   string
	Alarms   []Alarm
	Realtime bool
}

// Kind implements Value.
func (*ChannelValue) Kind() Kind { return KindChannel }

func (*ChannelValue) valueSealed() {}

// EventValue is a fully typed event with its definition restored.
type EventValue struct {
	Definition EventDefinition
	Times
	Context

	Message  string
	Metadata EventMetadata
	Realtime bool
}

// Kind implements Value.
func (*EventValue) Kind() Kind { return KindEvent }

func (*EventValue) valueSealed() {}

// Message wraps a reconstructed value for callers that need message
// semantics. CreatedAt is the original record creation time.
type Message[T Value] struct {
	CreatedAt time.Time
	Body      T
}
