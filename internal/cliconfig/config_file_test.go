package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Listen:          ":9000",
				NATSURL:         "nats://bus:4222",
				NATSSubjects:    []string{"eha", "evr"},
				Dictionary:      "/etc/ladcache/dict.yaml",
				WatchDictionary: &falseVal,
				LSTSpacecraft:   []int{168},
				HistoryDepth:    50,
				QueryTimeout:    "2s",
				MaxAge:          "30m",
				LogLevel:        "debug",
			},
			changed: map[string]bool{},
			initial: Config{WatchDictionary: true},
			expected: Config{
				Listen:        ":9000",
				NATSURL:       "nats://bus:4222",
				NATSSubjects:  []string{"eha", "evr"},
				Dictionary:    "/etc/ladcache/dict.yaml",
				LSTSpacecraft: []int{168},
				HistoryDepth:  50,
				QueryTimeout:  2 * time.Second,
				MaxAge:        30 * time.Minute,
				LogLevel:      "debug",
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Listen:       ":9000",
				HistoryDepth: 50,
			},
			changed: map[string]bool{"listen": true},
			initial: Config{
				Listen: ":7000",
			},
			expected: Config{
				Listen:       ":7000", // unchanged because flag was set
				HistoryDepth: 50,
			},
			wantErr: false,
		},
		{
			name: "ignores zero values",
			fileConfig: FileConfig{
				PageSize: 0,
			},
			changed:  map[string]bool{},
			initial:  Config{PageSize: 10},
			expected: Config{PageSize: 10},
			wantErr:  false,
		},
		{
			name: "returns error for invalid duration",
			fileConfig: FileConfig{
				QueryTimeout: "soon",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
listen = ":9000"
nats_subjects = ["eha", "evr"]
history_depth = 25
query_timeout = "5s"
lst_spacecraft = [168]
watch_dictionary = false
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Listen != ":9000" {
		t.Errorf("Listen = %v, want :9000", fc.Listen)
	}
	if !reflect.DeepEqual(fc.NATSSubjects, []string{"eha", "evr"}) {
		t.Errorf("NATSSubjects = %v, want [eha evr]", fc.NATSSubjects)
	}
	if fc.HistoryDepth != 25 {
		t.Errorf("HistoryDepth = %v, want 25", fc.HistoryDepth)
	}
	if fc.QueryTimeout != "5s" {
		t.Errorf("QueryTimeout = %v, want 5s", fc.QueryTimeout)
	}
	if !reflect.DeepEqual(fc.LSTSpacecraft, []int{168}) {
		t.Errorf("LSTSpacecraft = %v, want [168]", fc.LSTSpacecraft)
	}
	if fc.WatchDictionary == nil || *fc.WatchDictionary {
		t.Errorf("WatchDictionary = %v, want false", fc.WatchDictionary)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
listen = ":9000"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".ladcache") {
		t.Errorf("DefaultConfigPath() = %v, should contain .ladcache", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
