package codec

import "github.com/bft-labs/ladcache/internal/domain"

type wireHeader struct {
	SclkCoarse int64  `cbor:"1,keyasint"`
	SclkFine   int64  `cbor:"2,keyasint"`
	ErtMillis  int64  `cbor:"3,keyasint"`
	ErtNanos   int64  `cbor:"4,keyasint"`
	ScetMillis int64  `cbor:"5,keyasint"`
	ScetNanos  int64  `cbor:"6,keyasint"`
	LST        string `cbor:"7,keyasint,omitempty"`
	EventTime  int64  `cbor:"8,keyasint"`
	DSSID      int    `cbor:"9,keyasint"`
	VCID       int    `cbor:"10,keyasint"`
	SessionID  int64  `cbor:"11,keyasint"`
	Host       string `cbor:"12,keyasint,omitempty"`
	SCID       int    `cbor:"13,keyasint"`
	Venue      string `cbor:"14,keyasint,omitempty"`
}

type wireAlarm struct {
	Name  string `cbor:"1,keyasint"`
	Level uint8  `cbor:"2,keyasint"`
	State string `cbor:"3,keyasint,omitempty"`
	OnEU  bool   `cbor:"4,keyasint,omitempty"`
}

type wireChannel struct {
	Header    wireHeader  `cbor:"1,keyasint"`
	ChannelID string      `cbor:"2,keyasint"`
	DNType    uint8       `cbor:"3,keyasint"`
	DN        []byte      `cbor:"4,keyasint"`
	EU        *float64    `cbor:"5,keyasint,omitempty"`
	Status    string      `cbor:"6,keyasint,omitempty"`
	Alarms    []wireAlarm `cbor:"7,keyasint,omitempty"`
	Realtime  bool        `cbor:"8,keyasint"`
	Origin    uint8       `cbor:"9,keyasint"`
}

type wireEvent struct {
	Header   wireHeader       `cbor:"1,keyasint"`
	EventID  int64            `cbor:"2,keyasint"`
	Name     string           `cbor:"3,keyasint,omitempty"`
	Level    string           `cbor:"4,keyasint,omitempty"`
	Realtime bool             `cbor:"5,keyasint"`
	FSW      bool             `cbor:"6,keyasint"`
	Message  string           `cbor:"7,keyasint,omitempty"`
	Metadata map[uint8]string `cbor:"8,keyasint,omitempty"`
}

// Metadata keys on the wire.
const (
	metaTaskName uint8 = iota + 1
	metaSequenceID
	metaCategorySequenceID
	metaAddressStack
	metaSource
	metaTaskID
	metaErrno
)

// unsetHeader marks every numeric field unset, matching domain.NewHeader,
// so keys a producer omits do not decode as zero.
func unsetHeader() wireHeader {
	return wireHeader{
		SclkCoarse: -1,
		SclkFine:   -1,
		ErtMillis:  -1,
		ErtNanos:   -1,
		ScetMillis: -1,
		ScetNanos:  -1,
		EventTime:  -1,
		DSSID:      -1,
		VCID:       -1,
		SessionID:  -1,
		SCID:       -1,
	}
}

func fromHeader(h *domain.RecordHeader) wireHeader {
	return wireHeader{
		SclkCoarse: h.SclkCoarse,
		SclkFine:   h.SclkFine,
		ErtMillis:  h.ErtMillis,
		ErtNanos:   h.ErtNanos,
		ScetMillis: h.ScetMillis,
		ScetNanos:  h.ScetNanos,
		LST:        h.LST,
		EventTime:  h.EventTime,
		DSSID:      h.DSSID,
		VCID:       h.VCID,
		SessionID:  h.SessionID,
		Host:       h.Host,
		SCID:       h.SCID,
		Venue:      h.Venue,
	}
}

func (w wireHeader) header() domain.RecordHeader {
	return domain.RecordHeader{
		SclkCoarse:   w.SclkCoarse,
		SclkFine:     w.SclkFine,
		ErtMillis:    w.ErtMillis,
		ErtNanos:     w.ErtNanos,
		ScetMillis:   w.ScetMillis,
		ScetNanos:    w.ScetNanos,
		LST:          w.LST,
		EventTime:    w.EventTime,
		DSSID:        w.DSSID,
		VCID:         w.VCID,
		SessionID:    w.SessionID,
		Host:         w.Host,
		SCID:         w.SCID,
		Venue:        w.Venue,
		InsertNumber: -1,
	}
}

func fromChannel(c *domain.ChannelSample) wireChannel {
	w := wireChannel{
		Header:    fromHeader(&c.RecordHeader),
		ChannelID: c.ChannelID,
		DNType:    uint8(c.DNType),
		DN:        c.DN,
		Status:    c.Status,
		Realtime:  c.Realtime,
		Origin:    uint8(c.Origin),
	}
	if c.HasEU {
		eu := c.EU
		w.EU = &eu
	}
	for _, a := range c.Alarms {
		w.Alarms = append(w.Alarms, wireAlarm{Name: a.Name, Level: uint8(a.Level), State: a.State, OnEU: a.OnEU})
	}
	return w
}

func (w *wireChannel) record() *domain.ChannelSample {
	c := &domain.ChannelSample{
		RecordHeader: w.Header.header(),
		ChannelID:    w.ChannelID,
		DNType:       domain.ChannelType(w.DNType),
		DN:           w.DN,
		Status:       w.Status,
		Realtime:     w.Realtime,
		Origin:       domain.Origin(w.Origin),
	}
	if w.EU != nil {
		c.EU, c.HasEU = *w.EU, true
	}
	for _, a := range w.Alarms {
		c.Alarms = append(c.Alarms, domain.Alarm{Name: a.Name, Level: domain.AlarmLevel(a.Level), State: a.State, OnEU: a.OnEU})
	}
	return c
}

func fromEvent(e *domain.EventRecord) wireEvent {
	w := wireEvent{
		Header:   fromHeader(&e.RecordHeader),
		EventID:  e.EventID,
		Name:     e.Name,
		Level:    e.Level,
		Realtime: e.Realtime,
		FSW:      e.FSW,
		Message:  e.Message,
	}
	m := e.Metadata
	for k, v := range map[uint8]string{
		metaTaskName:           m.TaskName,
		metaSequenceID:         m.SequenceID,
		metaCategorySequenceID: m.CategorySequenceID,
		metaAddressStack:       m.AddressStack,
		metaSource:             m.Source,
		metaTaskID:             m.TaskID,
		metaErrno:              m.Errno,
	} {
		if v == "" {
			continue
		}
		if w.Metadata == nil {
			w.Metadata = make(map[uint8]string)
		}
		w.Metadata[k] = v
	}
	return w
}

func (w *wireEvent) record() *domain.EventRecord {
	md := w.Metadata
	return &domain.EventRecord{
		RecordHeader: w.Header.header(),
		EventID:      w.EventID,
		Name:         w.Name,
		Level:        w.Level,
		Realtime:     w.Realtime,
		FSW:          w.FSW,
		Message:      w.Message,
		Metadata: domain.EventMetadata{
			TaskName:           md[metaTaskName],
			SequenceID:         md[metaSequenceID],
			CategorySequenceID: md[metaCategorySequenceID],
			AddressStack:       md[metaAddressStack],
			Source:             md[metaSource],
			TaskID:             md[metaTaskID],
			Errno:              md[metaErrno],
		},
	}
}
