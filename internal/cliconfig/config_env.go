package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "LADCACHE_"

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies configuration from environment variables (LADCACHE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", env("LISTEN"), &cfg.Listen)
	s.setString("nats-url", env("NATS_URL"), &cfg.NATSURL)
	s.setListFromString("nats-subject", env("NATS_SUBJECTS"), &cfg.NATSSubjects)
	s.setString("dictionary", env("DICTIONARY"), &cfg.Dictionary)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntsFromString("lst-scid", env("LST_SPACECRAFT"), &cfg.LSTSpacecraft); err != nil {
		return err
	}
	if err := s.setDuration("query-timeout", env("QUERY_TIMEOUT"), &cfg.QueryTimeout); err != nil {
		return err
	}
	if err := s.setDuration("max-age", env("MAX_AGE"), &cfg.MaxAge); err != nil {
		return err
	}

	ints := []struct {
		flag, name string
		dst        *int
	}{
		{"read-size", "READ_SIZE", &cfg.ReadSize},
		{"nats-pending", "NATS_PENDING", &cfg.NATSPending},
		{"history-depth", "HISTORY_DEPTH", &cfg.HistoryDepth},
		{"page-size", "PAGE_SIZE", &cfg.PageSize},
		{"max-record-size", "MAX_RECORD_SIZE", &cfg.MaxRecordSize},
		{"chunk-queue", "CHUNK_QUEUE", &cfg.ChunkQueue},
		{"record-queue", "RECORD_QUEUE", &cfg.RecordQueue},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, env(i.name), i.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("watch-dictionary", env("WATCH_DICTIONARY"), &cfg.WatchDictionary)

	return nil
}
