// Package rwconfig loads the tunable knobs shared by the rest of this
// module's packages from a YAML file: the lock's adaptive spin budget, the
// audit sink's DSN, and the metrics listen address.
package rwconfig

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// Config is the on-disk shape of a rwqueue deployment's tunables.
type Config struct {
	// SpinCount overrides rwqueue.New's default adaptive spin budget. A
	// zero value is meaningful (disables spinning) and is distinguished
	// from "unset" by SpinCountSet.
	SpinCount    int  `yaml:"spinCount"`
	SpinCountSet bool `yaml:"-"`

	// AuditDSN, if non-empty, is the go-sql-driver/mysql data source name
	// the audit package should connect to. Empty disables auditing.
	AuditDSN string `yaml:"auditDSN"`

	// MetricsAddr, if non-empty, is the address rwstats should serve
	// Prometheus's /metrics endpoint on. Empty disables the listener.
	MetricsAddr string `yaml:"metricsAddr"`
}

// rawConfig mirrors Config but leaves SpinCount as a pointer so Load can
// tell "absent from the file" apart from "explicitly zero".
type rawConfig struct {
	SpinCount   *int   `yaml:"spinCount"`
	AuditDSN    string `yaml:"auditDSN"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rwconfig: reading %q: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML config data directly, for callers that already have it
// in memory (tests, or config delivered over a non-file channel).
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rwconfig: parsing config: %w", err)
	}
	cfg := &Config{
		AuditDSN:    raw.AuditDSN,
		MetricsAddr: raw.MetricsAddr,
	}
	if raw.SpinCount != nil {
		cfg.SpinCount = *raw.SpinCount
		cfg.SpinCountSet = true
	}
	return cfg, nil
}

// Default returns a Config with no DSN or metrics address configured and
// SpinCount unset, suitable as a starting point before applying flag
// overrides.
func Default() *Config {
	return &Config{}
}
