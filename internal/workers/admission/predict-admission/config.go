package predictadmission

import (
	"time"

	"study-abroad-engine/pkg/registry"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(reg *registry.ActivityRegistry) *Config {
	cfg := &Config{Timeout: 30 * time.Second}
	if reg != nil {
		if a, ok := reg.ByTaskType(TaskType); ok {
			cfg.Timeout = a.TimeoutDuration(cfg.Timeout)
		}
	}
	return cfg
}
