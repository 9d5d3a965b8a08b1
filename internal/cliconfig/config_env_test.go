package cliconfig

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"LADCACHE_LISTEN":           ":9100",
				"LADCACHE_NATS_SUBJECTS":    "eha,evr",
				"LADCACHE_QUERY_TIMEOUT":    "3s",
				"LADCACHE_MAX_AGE":          "1h",
				"LADCACHE_HISTORY_DEPTH":    "10",
				"LADCACHE_LST_SPACECRAFT":   "168, 76",
				"LADCACHE_WATCH_DICTIONARY": "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Listen:          ":9100",
				NATSSubjects:    []string{"eha", "evr"},
				QueryTimeout:    3 * time.Second,
				MaxAge:          time.Hour,
				HistoryDepth:    10,
				LSTSpacecraft:   []int{168, 76},
				WatchDictionary: true,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"LADCACHE_LISTEN":    ":9100",
				"LADCACHE_LOG_LEVEL": "warn",
			},
			changed: map[string]bool{"listen": true},
			initial: Config{
				Listen: ":7000",
			},
			expected: Config{
				Listen:   ":7000",
				LogLevel: "warn",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"LADCACHE_QUERY_TIMEOUT": "not-a-duration",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"LADCACHE_PAGE_SIZE": "many",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	fileConf := FileConfig{
		Listen:       ":1111",
		Dictionary:   "/file/dict.yaml",
		HistoryDepth: 7,
	}

	t.Setenv("LADCACHE_LISTEN", ":2222")
	t.Setenv("LADCACHE_DICTIONARY", "/env/dict.yaml")

	// Simulate CLI flags
	changed := map[string]bool{
		"listen": true,
	}

	cfg := Config{
		Listen: ":3333",
	}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.Listen != ":3333" {
		t.Errorf("Listen = %v, want :3333 (CLI should win)", cfg.Listen)
	}
	if cfg.Dictionary != "/env/dict.yaml" {
		t.Errorf("Dictionary = %v, want /env/dict.yaml (env should override file)", cfg.Dictionary)
	}
	if cfg.HistoryDepth != 7 {
		t.Errorf("HistoryDepth = %v, want 7 (file should set)", cfg.HistoryDepth)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := Logger(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q, want only the warn line", out)
	}

	if _, err := Logger(&buf, "loud"); err == nil {
		t.Error("Logger() expected error for unknown level")
	}
}
