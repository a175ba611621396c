package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportYAML = `
export:
  host_url: "example.chatwork.com"
  interval_ms: 100
  target_room_ids: "3, 5"
  except_room_ids: "9"
  delete_reactions: true
  export_json: true
server:
  host: "127.0.0.1"
  port: 8081
logging:
  level: "debug"
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeTempConfig(t, exportYAML))
	require.NoError(t, err)

	assert.Equal(t, "example.chatwork.com", cfg.Export.HostURL)
	assert.Equal(t, 100*time.Millisecond, cfg.Export.Interval())
	assert.Equal(t, "3, 5", cfg.Export.TargetRoomIDs)
	assert.True(t, cfg.Export.DeleteReactions)
	assert.True(t, cfg.Export.ExportJSON)
	assert.Equal(t, "127.0.0.1:8081", cfg.Address())
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Keys absent from the file keep their documented defaults.
	assert.True(t, cfg.Export.AppendDate)
	assert.True(t, cfg.Export.AppendUsername)
	assert.True(t, cfg.Export.DownloadAttachments)
	assert.False(t, cfg.Export.ExportXLSX)
	assert.Equal(t, DefaultOutputDir, cfg.Export.OutputDir)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "no-such.yml"))
	assert.Error(t, err)
}

func TestLoadMalformedConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("config.yml", []byte("export: [broken"), 0o600))

	// A present but broken config.yml must surface, not silently fall
	// back to env defaults.
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadWithoutConfigFileFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultHostURL, cfg.Export.HostURL)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, "www.chatwork.com", s.HostURL)
	assert.Equal(t, 300, s.IntervalMs)
	assert.Empty(t, s.TargetRoomIDs)
	assert.Empty(t, s.ExceptRoomIDs)
	assert.True(t, s.AppendDate)
	assert.True(t, s.AppendUsername)
	assert.False(t, s.DeleteReactions)
	assert.True(t, s.DownloadAttachments)
	assert.False(t, s.ExportJSON)
}

func TestParseRoomIDs(t *testing.T) {
	testCases := []struct {
		name string
		list string
		want map[int64]struct{}
	}{
		{
			name: "empty means all rooms",
			list: "",
			want: map[int64]struct{}{},
		},
		{
			name: "trims and drops non-numeric entries",
			list: "3, 5,x,9",
			want: map[int64]struct{}{3: {}, 5: {}, 9: {}},
		},
		{
			name: "single id",
			list: "42",
			want: map[int64]struct{}{42: {}},
		},
		{
			name: "trailing comma",
			list: "1,2,",
			want: map[int64]struct{}{1: {}, 2: {}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseRoomIDs(tc.list))
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	cfg := DefaultConfig()
	cfg.Export.TargetRoomIDs = "7,8"
	cfg.Export.ExportJSON = true
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Export, loaded.Export)
	assert.Equal(t, cfg.Server, loaded.Server)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty host", func(c *Config) { c.Export.HostURL = "" }, true},
		{"host with path", func(c *Config) { c.Export.HostURL = "chatwork.com/gateway" }, true},
		{"negative interval", func(c *Config) { c.Export.IntervalMs = -1 }, true},
		{"zero interval is allowed", func(c *Config) { c.Export.IntervalMs = 0 }, false},
		{"empty output dir", func(c *Config) { c.Export.OutputDir = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
