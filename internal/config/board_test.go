package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/lift-controller/internal/serialmux"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyBoardConfig()
	if got := cfg.GetSerialPort(); got != PortMock {
		t.Errorf("GetSerialPort() = %q, want %q", got, PortMock)
	}
	if got := cfg.GetSerial(); got.BaudRate != serialmux.DefaultBaudRate || got.Parity != "N" {
		t.Errorf("GetSerial() = %+v", got)
	}
	if got := cfg.GetListen(); got != "localhost:8080" {
		t.Errorf("GetListen() = %q", got)
	}
	if got := cfg.GetDBPath(); got != "lift.db" {
		t.Errorf("GetDBPath() = %q", got)
	}
	if got := cfg.GetFloorTable(); got != "config/floors.example.yaml" {
		t.Errorf("GetFloorTable() = %q", got)
	}
	if got := cfg.GetSegmentTable(); got != "config/segments.example.yaml" {
		t.Errorf("GetSegmentTable() = %q", got)
	}
	if got := cfg.GetTimeScale(); got != 1 {
		t.Errorf("GetTimeScale() = %v", got)
	}
	if got := cfg.GetFrameInterval(); got != 20*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v", got)
	}
	if got := cfg.GetOutputRateHz(); got != 25 {
		t.Errorf("GetOutputRateHz() = %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on empty config = %v", err)
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if got := cfg.GetSerialPort(); got != PortMock {
		t.Errorf("default serial_port = %q", got)
	}
	if got := cfg.GetFrameInterval(); got != 20*time.Millisecond {
		t.Errorf("default frame_interval = %v", got)
	}
	if got := cfg.GetSerial().BaudRate; got != 115200 {
		t.Errorf("default baud rate = %d", got)
	}
}

func TestLoadBoardConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"serial_port": "/dev/ttyUSB1", "time_scale": 12.5, "db_path": ""}`)
	cfg, err := LoadBoardConfig(path)
	if err != nil {
		t.Fatalf("LoadBoardConfig: %v", err)
	}
	if got := cfg.GetSerialPort(); got != "/dev/ttyUSB1" {
		t.Errorf("GetSerialPort() = %q", got)
	}
	if got := cfg.GetTimeScale(); got != 12.5 {
		t.Errorf("GetTimeScale() = %v", got)
	}
	if got := cfg.GetDBPath(); got != "" {
		t.Errorf("explicit empty db_path = %q, want disabled", got)
	}
	if got := cfg.GetListen(); got != "localhost:8080" {
		t.Errorf("omitted listen = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BoardConfig
		wantErr string
	}{
		{"valid", BoardConfig{TimeScale: ptrFloat64(2), FrameInterval: ptrString("5ms")}, ""},
		{"zero time scale", BoardConfig{TimeScale: ptrFloat64(0)}, "time_scale"},
		{"bad interval", BoardConfig{FrameInterval: ptrString("soon")}, "frame_interval"},
		{"negative interval", BoardConfig{FrameInterval: ptrString("-1s")}, "frame_interval"},
		{"negative rate", BoardConfig{OutputRateHz: ptrFloat64(-1)}, "output_rate_hz"},
		{"json floor table", BoardConfig{FloorTable: ptrString("floors.json")}, "floor_table"},
		{"bad serial", BoardConfig{Serial: &serialmux.PortOptions{BaudRate: 1234}}, "serial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadBoardConfigRejects(t *testing.T) {
	if _, err := LoadBoardConfig(writeConfig(t, "board.yaml", "{}")); err == nil {
		t.Error("expected error for non-JSON extension")
	}
	if _, err := LoadBoardConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadBoardConfig(writeConfig(t, "broken.json", "{")); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := LoadBoardConfig(writeConfig(t, "invalid.json", `{"time_scale": -1}`)); err == nil {
		t.Error("expected validation error")
	}
	big := writeConfig(t, "big.json", `{"listen": "`+strings.Repeat("x", 1<<20)+`"}`)
	if _, err := LoadBoardConfig(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestGetterFallbacks(t *testing.T) {
	cfg := &BoardConfig{
		FrameInterval: ptrString("nonsense"),
		TimeScale:     ptrFloat64(-3),
		Serial:        &serialmux.PortOptions{DataBits: 12},
	}
	if got := cfg.GetFrameInterval(); got != 20*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v", got)
	}
	if got := cfg.GetTimeScale(); got != 1 {
		t.Errorf("GetTimeScale() = %v", got)
	}
	if got := cfg.GetSerial(); got.DataBits != 8 {
		t.Errorf("GetSerial() with invalid options = %+v", got)
	}
}
