package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Stream        struct {
		LineEnding  string `mapstructure:"line_ending"`
		MaxHexChunk int    `mapstructure:"max_hex_chunk"`
	} `mapstructure:"stream"`
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestServiceConfig_ApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "svc"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults, got %+v", cfg.Logging)
	}

	prod := ServiceConfig{Name: "svc", Environment: "production"}
	prod.ApplyDefaults()
	if prod.Debug || !prod.IsProduction() {
		t.Error("production must not enable debug")
	}
}

func TestServiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"bad environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
name: streamd
environment: staging
logging:
  level: debug
stream:
  line_ending: lf
  max_hex_chunk: 64
`)
	var cfg testConfig
	if err := LoadConfig("streamd", &cfg, WithConfigFile(path)); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "streamd" || cfg.Environment != "staging" {
		t.Errorf("unexpected base config %+v", cfg.ServiceConfig)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected nested logging level, got %q", cfg.Logging.Level)
	}
	if cfg.Stream.LineEnding != "lf" || cfg.Stream.MaxHexChunk != 64 {
		t.Errorf("unexpected stream section %+v", cfg.Stream)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "name: streamd\nstream:\n  line_ending: lf\n")
	t.Setenv("STREAM_LINE_ENDING", "crlf")
	t.Setenv("STREAM_MAX_HEX_CHUNK", "128")

	var cfg testConfig
	if err := LoadConfig("streamd", &cfg, WithConfigFile(path)); err != nil {
		t.Fatal(err)
	}
	if cfg.Stream.LineEnding != "crlf" {
		t.Errorf("expected env override, got %q", cfg.Stream.LineEnding)
	}
	if cfg.Stream.MaxHexChunk != 128 {
		t.Errorf("expected 128, got %d", cfg.Stream.MaxHexChunk)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("streamd", &cfg,
		WithFileSystem(&mockFS{}),
		WithDefault("name", "fallback"),
		WithDefault("stream.max_hex_chunk", 32),
	)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "fallback" || cfg.Stream.MaxHexChunk != 32 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("streamd", &cfg, WithConfigFile("/nonexistent/config.yml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfig_SearchesCandidates(t *testing.T) {
	fs := &mockFS{files: map[string]bool{".env": true}}
	var cfg testConfig
	if err := LoadConfig("streamd", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatal(err)
	}
	if len(fs.loaded) != 1 || fs.loaded[0] != ".env" {
		t.Errorf("expected .env to be loaded, got %v", fs.loaded)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("STREAM_MAX_HEX_CHUNK")
	want := []string{"stream_max_hex_chunk", "stream.max_hex_chunk", "stream.max.hex_chunk", "stream.max.hex.chunk"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := envKeyVariants("DEBUG"); len(got) != 1 || got[0] != "debug" {
		t.Errorf("got %v", got)
	}
}
