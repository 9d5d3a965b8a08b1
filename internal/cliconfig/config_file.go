package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Listen          string   `toml:"listen"`
	ReadSize        int      `toml:"read_size"`
	NATSURL         string   `toml:"nats_url"`
	NATSSubjects    []string `toml:"nats_subjects"`
	NATSPending     int      `toml:"nats_pending"`
	Dictionary      string   `toml:"dictionary"`
	WatchDictionary *bool    `toml:"watch_dictionary"`
	LSTSpacecraft   []int    `toml:"lst_spacecraft"`
	HistoryDepth    int      `toml:"history_depth"`
	PageSize        int      `toml:"page_size"`
	MaxRecordSize   int      `toml:"max_record_size"`
	QueryTimeout    string   `toml:"query_timeout"`
	MaxAge          string   `toml:"max_age"`
	ChunkQueue      int      `toml:"chunk_queue"`
	RecordQueue     int      `toml:"record_queue"`
	MetricsAddr     string   `toml:"metrics_addr"`
	LogLevel        string   `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.ladcache/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".ladcache", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.Listen, &cfg.Listen)
	s.setString("nats-url", fc.NATSURL, &cfg.NATSURL)
	s.setStrings("nats-subject", fc.NATSSubjects, &cfg.NATSSubjects)
	s.setString("dictionary", fc.Dictionary, &cfg.Dictionary)
	s.setInts("lst-scid", fc.LSTSpacecraft, &cfg.LSTSpacecraft)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("query-timeout", fc.QueryTimeout, &cfg.QueryTimeout); err != nil {
		return err
	}
	if err := s.setDuration("max-age", fc.MaxAge, &cfg.MaxAge); err != nil {
		return err
	}

	s.setInt("read-size", fc.ReadSize, &cfg.ReadSize)
	s.setInt("nats-pending", fc.NATSPending, &cfg.NATSPending)
	s.setInt("history-depth", fc.HistoryDepth, &cfg.HistoryDepth)
	s.setInt("page-size", fc.PageSize, &cfg.PageSize)
	s.setInt("max-record-size", fc.MaxRecordSize, &cfg.MaxRecordSize)
	s.setInt("chunk-queue", fc.ChunkQueue, &cfg.ChunkQueue)
	s.setInt("record-queue", fc.RecordQueue, &cfg.RecordQueue)

	s.setBool("watch-dictionary", fc.WatchDictionary, &cfg.WatchDictionary)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
