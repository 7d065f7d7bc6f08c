package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.Health.Addr)
	assert.Equal(t, "answ_times", cfg.Histogram.Name)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.Report.Interval)

	// No steps yet.
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	yaml := `
log_level: debug
health:
  addr: ":9091"
histogram:
  name: rpc_times
  steps:
    slow: 1s
    medium: 500ms
    fast: 100ms
workers: 8
report:
  interval: 5s
  client_name: bench-eu-1
  clickhouse:
    enabled: true
    endpoint: "clickhouse:9000"
    database: bench
    migrate: true
  http:
    enabled: true
    address: "http://vector:8080"
    compression: zstd
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9091", cfg.Health.Addr)
	assert.Equal(t, "rpc_times", cfg.Histogram.Name)
	assert.Equal(t, 3, cfg.Histogram.Steps.Len())
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 4096, cfg.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Report.Interval)
	assert.Equal(t, "bench-eu-1", cfg.Report.ClientName)
	assert.True(t, cfg.Report.ClickHouse.Enabled)
	assert.Equal(t, "bench", cfg.Report.ClickHouse.Database)
	assert.True(t, cfg.Report.ClickHouse.Migrate)
	assert.Equal(t, "zstd", cfg.Report.HTTP.Compression)

	gen, err := cfg.Histogram.Generator()
	require.NoError(t, err)

	steps := make([]time.Duration, gen.Size())
	gen.Fill(steps)
	assert.Equal(t, []time.Duration{time.Second, 500 * time.Millisecond, 100 * time.Millisecond}, steps)
}

func TestParseConfig_GrammarSteps(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
histogram:
  steps: "slow : 2s  fast : 20ms"
`))
	require.NoError(t, err)

	v, ok := cfg.Histogram.Steps.Lookup("fast")
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, v)
}

func TestParseConfig_Simple(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
histogram:
  simple: { max: 1s, min: 1ms, count: 4 }
`))
	require.NoError(t, err)

	gen, err := cfg.Histogram.Generator()
	require.NoError(t, err)
	assert.Equal(t, 4, gen.Size())
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "no steps",
			doc:  "histogram: { name: h }\n",
			want: "one of histogram.steps or histogram.simple is required",
		},
		{
			name: "both forms",
			doc:  "histogram:\n  steps: { a: 1s }\n  simple: { max: 1s, min: 1ms, count: 3 }\n",
			want: "mutually exclusive",
		},
		{
			name: "empty name",
			doc:  "histogram:\n  name: ''\n  steps: { a: 1s }\n",
			want: "histogram.name is required",
		},
		{
			name: "simple min above max",
			doc:  "histogram:\n  simple: { max: 1ms, min: 1s, count: 3 }\n",
			want: "0 < min < max",
		},
		{
			name: "simple count overflows bucket index",
			doc:  "histogram:\n  simple: { max: 1h, min: 1us, count: 70000 }\n",
			want: "histogram.simple.count must be at most 65535",
		},
		{
			name: "no workers",
			doc:  "workers: 0\nhistogram:\n  steps: { a: 1s }\n",
			want: "workers must be positive",
		},
		{
			name: "bad step value",
			doc:  "histogram:\n  steps: { a: soon }\n",
			want: `bad <interval> "soon"`,
		},
		{
			name: "http without address",
			doc:  "histogram:\n  steps: { a: 1s }\nreport:\n  http: { enabled: true }\n",
			want: "report.http",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\t- bad"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}
