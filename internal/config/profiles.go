package config

import (
	"fmt"
)

// ApplyProfile применяет профиль производительности к конфигурации
func ApplyProfile(cfg *Config, profile string) error {
	switch profile {
	case "safe":
		cfg.Wipe.MaxSpeedMBps = 10
	case "balanced":
		cfg.Wipe.MaxSpeedMBps = 50
	case "fast":
		cfg.Wipe.MaxSpeedMBps = 0 // unlimited
	default:
		return fmt.Errorf("unknown profile: %s", profile)
	}
	return nil
}

// Profiles возвращает имена доступных профилей
func Profiles() []string {
	return []string{"safe", "balanced", "fast"}
}
