package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения: SECUREWIPE_WIPE_MAX_SPEED_MBPS и т.д.
const EnvPrefix = "SECUREWIPE"

var envKeys = []string{
	"security.require_confirmation",
	"security.confirmation_word",
	"security.protected_paths",
	"wipe.max_speed_mbps",
	"wipe.prune_empty_dirs",
	"logging.level",
	"logging.file",
	"logging.verbose",
	"reporting.enabled",
	"reporting.local_path",
	"reporting.formats",
	"reporting.archive_db",
	"reporting.signing_key",
}

// ApplyEnv накладывает переменные окружения поверх загруженной конфигурации.
// Заданы только те ключи, для которых переменная установлена.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration after environment overrides: %w", err)
	}
	return nil
}
