package rwconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFullConfig(t *testing.T) {
	data := []byte(`
spinCount: 128
auditDSN: "user:pass@tcp(127.0.0.1:3306)/audit"
metricsAddr: ":9100"
`)
	cfg, err := Parse(data)
	assert.NoError(t, err)
	assert.Equal(t, 128, cfg.SpinCount)
	assert.True(t, cfg.SpinCountSet)
	assert.Equal(t, "user:pass@tcp(127.0.0.1:3306)/audit", cfg.AuditDSN)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestParseOmittedSpinCount(t *testing.T) {
	cfg, err := Parse([]byte(`auditDSN: ""`))
	assert.NoError(t, err)
	assert.False(t, cfg.SpinCountSet)
	assert.Equal(t, 0, cfg.SpinCount)
}

func TestParseExplicitZeroSpinCount(t *testing.T) {
	cfg, err := Parse([]byte(`spinCount: 0`))
	assert.NoError(t, err)
	assert.True(t, cfg.SpinCountSet)
	assert.Equal(t, 0, cfg.SpinCount)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("not: valid: yaml: at: all:"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.SpinCountSet)
	assert.Empty(t, cfg.AuditDSN)
	assert.Empty(t, cfg.MetricsAddr)
}
