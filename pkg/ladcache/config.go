package ladcache

import (
	"fmt"
	"time"

	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/query"
)

// Config holds the settings of a Service. Zero fields take defaults.
type Config struct {
	// HistoryDepth is the number of records kept per channel or event.
	HistoryDepth int

	// PageSize is the number of records the store returns per page.
	PageSize int

	// MaxRecordSize caps the frame length field.
	MaxRecordSize uint32

	// QueryTimeout bounds each Latest or History call.
	QueryTimeout time.Duration

	// ChunkQueue and RecordQueue size the queues inside each stream.
	ChunkQueue  int
	RecordQueue int

	// MaxAge drops a channel or event once it has received no record for
	// this long. Zero keeps entities forever.
	MaxAge time.Duration

	// ReapInterval is how often expired entities are dropped. Defaults to
	// half of MaxAge, at most one minute.
	ReapInterval time.Duration

	// LSTSpacecraft lists the spacecraft that report local solar time.
	// Empty means all of them.
	LSTSpacecraft []int
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.HistoryDepth == 0 {
		c.HistoryDepth = 100
	}
	if c.PageSize == 0 {
		c.PageSize = 256
	}
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = domain.DefaultMaxRecordSize
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = query.DefaultTimeout
	}
	if c.ChunkQueue == 0 {
		c.ChunkQueue = 16
	}
	if c.RecordQueue == 0 {
		c.RecordQueue = 256
	}
	if c.MaxAge > 0 && c.ReapInterval == 0 {
		c.ReapInterval = min(c.MaxAge/2, time.Minute)
		if c.ReapInterval <= 0 {
			c.ReapInterval = c.MaxAge
		}
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.HistoryDepth < 0:
		return fmt.Errorf("%w: negative history depth", domain.ErrInvalidConfig)
	case c.PageSize < 0:
		return fmt.Errorf("%w: negative page size", domain.ErrInvalidConfig)
	case c.MaxRecordSize != 0 && c.MaxRecordSize <= domain.LengthFieldSize:
		return fmt.Errorf("%w: max record size %d does not exceed the length field", domain.ErrInvalidConfig, c.MaxRecordSize)
	case c.QueryTimeout < 0:
		return fmt.Errorf("%w: negative query timeout", domain.ErrInvalidConfig)
	case c.ChunkQueue < 0 || c.RecordQueue < 0:
		return fmt.Errorf("%w: negative queue size", domain.ErrInvalidConfig)
	case c.MaxAge < 0 || c.ReapInterval < 0:
		return fmt.Errorf("%w: negative max age or reap interval", domain.ErrInvalidConfig)
	}
	return nil
}
