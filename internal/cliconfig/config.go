package cliconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/ladcache/internal/domain"
)

// Defaults for the CLI.
const (
	DefaultListen       = ":7730"
	DefaultReadSize     = 64 << 10
	DefaultNATSPending  = 64
	DefaultHistoryDepth = 100
	DefaultPageSize     = 256
	DefaultQueryTimeout = 10 * time.Second
	DefaultChunkQueue   = 16
	DefaultRecordQueue  = 256
	DefaultLogLevel     = "info"
)

// Config holds CLI configuration for ladcache.
type Config struct {
	// Listen is the TCP address producers connect to. Empty disables TCP.
	Listen   string
	ReadSize int

	// NATSURL enables the NATS source; one stream is opened per subject.
	NATSURL      string
	NATSSubjects []string
	NATSPending  int

	Dictionary      string
	WatchDictionary bool
	LSTSpacecraft   []int

	HistoryDepth  int
	PageSize      int
	MaxRecordSize int
	QueryTimeout  time.Duration

	// MaxAge drops entities idle for this long. Zero keeps them.
	MaxAge time.Duration

	ChunkQueue  int
	RecordQueue int

	// MetricsAddr serves /metrics when set.
	MetricsAddr string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Listen:          DefaultListen,
		ReadSize:        DefaultReadSize,
		NATSPending:     DefaultNATSPending,
		WatchDictionary: true,
		HistoryDepth:    DefaultHistoryDepth,
		PageSize:        DefaultPageSize,
		MaxRecordSize:   domain.DefaultMaxRecordSize,
		QueryTimeout:    DefaultQueryTimeout,
		ChunkQueue:      DefaultChunkQueue,
		RecordQueue:     DefaultRecordQueue,
		LogLevel:        DefaultLogLevel,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.NATSURL != "" && len(c.NATSSubjects) == 0 {
		return invalid("nats-subject is required with nats-url")
	}
	if c.ReadSize <= 0 {
		return invalid("read size must be positive")
	}
	if c.HistoryDepth <= 0 {
		return invalid("history depth must be positive")
	}
	if c.PageSize <= 0 {
		return invalid("page size must be positive")
	}
	if c.MaxRecordSize <= domain.LengthFieldSize || uint64(c.MaxRecordSize) > math.MaxUint32 {
		return invalid("max record size must be in (%d, %d]", domain.LengthFieldSize, uint64(math.MaxUint32))
	}
	if c.QueryTimeout <= 0 {
		return invalid("query timeout must be positive")
	}
	if c.MaxAge < 0 {
		return invalid("max age must not be negative")
	}
	if c.ChunkQueue <= 0 || c.RecordQueue <= 0 {
		return invalid("queue sizes must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return invalid("log level %q: %v", c.LogLevel, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if it has entries and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInts sets a list if it has entries and flag not changed.
func (s *configSetter) setInts(flag string, value []int, dst *[]int) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setListFromString splits a comma-separated environment value.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

// setIntsFromString splits and parses a comma-separated environment value.
func (s *configSetter) setIntsFromString(flag, value string, dst *[]int) error {
	var parts []string
	s.setListFromString(flag, value, &parts)
	if len(parts) == 0 {
		return nil
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", flag, err)
		}
		out = append(out, i)
	}
	*dst = out
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
