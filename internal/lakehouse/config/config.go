// Package config loads the lakehouse core's environment-variable
// configuration, grounded on the teacher's internal/config viper-backed
// layered loading and internal/storage/factory's os.Getenv-guarded option
// resolution. See spec.md §6 and SPEC_FULL.md §1.3.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds every environment-variable-driven knob named in spec.md §6,
// plus the operational defaults SPEC_FULL.md adds for the Open Questions
// spec.md declines to pin down (retention grace, JIT caps, worker count,
// row-group sizing).
type Config struct {
	SQLConnectionString      string
	ObjectStoreURI           string
	MetadataCacheMB          int
	DataFusionMemoryBudgetMB int
	APIKeys                  []string
	OIDCIssuer               string
	OIDCAudience             string

	RetentionGrace        time.Duration
	JITMaxBlocks          int
	JITTimeout            time.Duration
	WorkerCount           int
	PartitionRowGroupRows int64
}

func defaults() Config {
	return Config{
		MetadataCacheMB:          50,
		DataFusionMemoryBudgetMB: 4096,
		RetentionGrace:           1 * time.Hour,
		JITMaxBlocks:             10_000,
		JITTimeout:               30 * time.Second,
		WorkerCount:              8,
		PartitionRowGroupRows:    1_000_000,
	}
}

// Load reads configuration from the environment, applying SPEC_FULL.md's
// defaults for anything unset. MICROMEGAS_SQL_CONNECTION_STRING and
// MICROMEGAS_OBJECT_STORE_URI are mandatory; their absence is a Config-kind
// fatal error per spec.md §7.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("") // env vars are read verbatim (MICROMEGAS_* already fully qualified)
	v.AutomaticEnv()

	cfg := defaults()

	cfg.SQLConnectionString = os.Getenv("MICROMEGAS_SQL_CONNECTION_STRING")
	if cfg.SQLConnectionString == "" {
		return nil, fmt.Errorf("MICROMEGAS_SQL_CONNECTION_STRING is required")
	}
	cfg.ObjectStoreURI = os.Getenv("MICROMEGAS_OBJECT_STORE_URI")
	if cfg.ObjectStoreURI == "" {
		return nil, fmt.Errorf("MICROMEGAS_OBJECT_STORE_URI is required")
	}

	if v := os.Getenv("MICROMEGAS_METADATA_CACHE_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing MICROMEGAS_METADATA_CACHE_MB: %w", err)
		}
		cfg.MetadataCacheMB = n
	}
	if v := os.Getenv("MICROMEGAS_DATAFUSION_MEMORY_BUDGET_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing MICROMEGAS_DATAFUSION_MEMORY_BUDGET_MB: %w", err)
		}
		cfg.DataFusionMemoryBudgetMB = n
	}
	if v := os.Getenv("MICROMEGAS_API_KEYS"); v != "" {
		cfg.APIKeys = splitCSV(v)
	}
	cfg.OIDCIssuer = os.Getenv("MICROMEGAS_OIDC_ISSUER")
	cfg.OIDCAudience = os.Getenv("MICROMEGAS_OIDC_AUDIENCE")

	if v := os.Getenv("MICROMEGAS_RETENTION_GRACE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing MICROMEGAS_RETENTION_GRACE: %w", err)
		}
		cfg.RetentionGrace = d
	}
	if v := os.Getenv("MICROMEGAS_JIT_MAX_BLOCKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing MICROMEGAS_JIT_MAX_BLOCKS: %w", err)
		}
		cfg.JITMaxBlocks = n
	}
	if v := os.Getenv("MICROMEGAS_JIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing MICROMEGAS_JIT_TIMEOUT: %w", err)
		}
		cfg.JITTimeout = d
	}
	if v := os.Getenv("MICROMEGAS_WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing MICROMEGAS_WORKER_COUNT: %w", err)
		}
		cfg.WorkerCount = n
	}
	if v := os.Getenv("MICROMEGAS_PARTITION_ROW_GROUP_ROWS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing MICROMEGAS_PARTITION_ROW_GROUP_ROWS: %w", err)
		}
		cfg.PartitionRowGroupRows = n
	}
	return &cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
