package domain

// Kind identifies a Record variant.
type Kind uint8

const (
	KindChannel Kind = iota + 1
	KindEvent
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "eha"
	case KindEvent:
		return "evr"
	default:
		return "unknown"
	}
}

// Record is a decoded telemetry record. The set of variants is fixed by the
// wire protocol: *ChannelSample and *EventRecord. Callers switch on the
// concrete type; the unexported method keeps the set closed.
type Record interface {
	// Kind reports the variant.
	Kind() Kind

	// EntityID is the channel id for samples and the event id (decimal) or
	// name for events.
	EntityID() string

	// Header returns the shared identifying fields.
	Header() *RecordHeader

	sealed()
}

// RecordHeader carries the timestamp, session and station fields shared by
// both record variants. Negative time components mean "not set".
type RecordHeader struct {
	SclkCoarse int64
	SclkFine   int64

	ErtMillis int64
	ErtNanos  int64

	ScetMillis int64
	ScetNanos  int64

	// LST is the local solar time as received, e.g. "SOL-0042M11:20:13.512".
	LST string

	// EventTime is the record creation time in Unix milliseconds.
	EventTime int64

	DSSID     int
	VCID      int
	SessionID int64
	Host      string
	SCID      int
	Venue     string

	// InsertNumber is assigned by the store on insert; -1 until then.
	InsertNumber int64
}

// Origin is the class of producer a channel sample came from.
type Origin uint8

const (
	OriginFlight Origin = iota
	OriginHeader
	OriginMonitor
	OriginSSE
)

// String returns a human-readable representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginFlight:
		return "fsw"
	case OriginHeader:
		return "header"
	case OriginMonitor:
		return "monitor"
	case OriginSSE:
		return "sse"
	default:
		return "unknown"
	}
}

// ChannelType is the data number type of a channel.
type ChannelType uint8

const (
	ChannelUnknown ChannelType = iota
	ChannelSignedInt
	ChannelUnsignedInt
	ChannelFloat
	ChannelASCII
	ChannelStatus
	ChannelBoolean
	ChannelDigital
	ChannelTime
)

var channelTypeNames = map[ChannelType]string{
	ChannelUnknown:     "UNKNOWN",
	ChannelSignedInt:   "SIGNED_INT",
	ChannelUnsignedInt: "UNSIGNED_INT",
	ChannelFloat:       "FLOAT",
	ChannelASCII:       "ASCII",
	ChannelStatus:      "STATUS",
	ChannelBoolean:     "BOOLEAN",
	ChannelDigital:     "DIGITAL",
	ChannelTime:        "TIME",
}

// String returns the dictionary name of the channel type.
func (t ChannelType) String() string {
	if n, ok := channelTypeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseChannelType maps a dictionary type name back to a ChannelType.
func ParseChannelType(s string) ChannelType {
	for t, n := range channelTypeNames {
		if n == s {
			return t
		}
	}
	return ChannelUnknown
}

// AlarmLevel is the severity of a channel alarm.
type AlarmLevel uint8

const (
	AlarmNone AlarmLevel = iota
	AlarmYellow
	AlarmRed
)

// Alarm is one alarm evaluated against a channel sample.
type Alarm struct {
	Name  string
	Level AlarmLevel
	State string
	OnEU  bool
}

// ChannelSample is an engineering/housekeeping telemetry value (EHA).
type ChannelSample struct {
	RecordHeader

	ChannelID string
	DNType    ChannelType

	// DN holds the raw data number: 8 bytes big-endian for numeric and
	// time types, UTF-8 text for ASCII.
	DN []byte

	// EU is the engineering value when the channel has a conversion.
	EU    float64
	HasEU bool

	Status   string
	Alarms   []Alarm
	Realtime bool
	Origin   Origin
}

// Kind implements Record.
func (*ChannelSample) Kind() Kind { return KindChannel }

// EntityID implements Record.
func (c *ChannelSample) EntityID() string { return c.ChannelID }

// Header implements Record.
func (c *ChannelSample) Header() *RecordHeader { return &c.RecordHeader }

func (*ChannelSample) sealed() {}

// EventMetadata holds the fixed set of named strings an event carries.
type EventMetadata struct {
	TaskName           string
	SequenceID         string
	CategorySequenceID string
	AddressStack       string
	Source             string
	TaskID             string
	Errno              string
}

// EventRecord is a discrete, leveled event (EVR).
type EventRecord struct {
	RecordHeader

	EventID  int64
	Name     string
	Level    string
	Realtime bool
	FSW      bool
	Message  string
	Metadata EventMetadata
}

// Kind implements Record.
func (*EventRecord) Kind() Kind { return KindEvent }

// EntityID implements Record. Events are keyed by name when they have one.
func (e *EventRecord) EntityID() string {
	if e.Name != "" {
		return e.Name
	}
	return formatEventID(e.EventID)
}

// Header implements Record.
func (e *EventRecord) Header() *RecordHeader { return &e.RecordHeader }

func (*EventRecord) sealed() {}

// NewHeader returns a header with every optional field marked unset.
func NewHeader() RecordHeader {
	return RecordHeader{
		SclkCoarse:   -1,
		SclkFine:     -1,
		ErtMillis:    -1,
		ErtNanos:     -1,
		ScetMillis:   -1,
		ScetNanos:    -1,
		EventTime:    -1,
		DSSID:        -1,
		VCID:         -1,
		SessionID:    -1,
		SCID:         -1,
		InsertNumber: -1,
	}
}
