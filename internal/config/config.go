package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SecurityConfig настройки защиты от случайного затирания
type SecurityConfig struct {
	RequireConfirmation bool     `yaml:"require_confirmation" mapstructure:"require_confirmation"`
	ConfirmationWord    string   `yaml:"confirmation_word" mapstructure:"confirmation_word"`
	ProtectedPaths      []string `yaml:"protected_paths" mapstructure:"protected_paths"`
}

// WipeConfig параметры движка затирания
type WipeConfig struct {
	MaxSpeedMBps   float64 `yaml:"max_speed_mbps" mapstructure:"max_speed_mbps"`
	FollowSymlinks bool    `yaml:"follow_symlinks" mapstructure:"follow_symlinks"`
	PruneEmptyDirs bool    `yaml:"prune_empty_dirs" mapstructure:"prune_empty_dirs"`
}

// LoggingConfig параметры журнала
type LoggingConfig struct {
	Level   string `yaml:"level" mapstructure:"level"`
	File    string `yaml:"file" mapstructure:"file"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// ReportingConfig параметры сохранения сертификатов
type ReportingConfig struct {
	Enabled   bool     `yaml:"enabled" mapstructure:"enabled"`
	LocalPath string   `yaml:"local_path" mapstructure:"local_path"`
	Formats   []string `yaml:"formats" mapstructure:"formats"`
	ArchiveDB string   `yaml:"archive_db" mapstructure:"archive_db"`
	// SigningKey PEM приватный ключ (ed25519/ecdsa/rsa) для DSSE подписи сертификата
	SigningKey string `yaml:"signing_key,omitempty" mapstructure:"signing_key"`
}

// Config конфигурация securewipe
type Config struct {
	Security  SecurityConfig  `yaml:"security" mapstructure:"security"`
	Wipe      WipeConfig      `yaml:"wipe" mapstructure:"wipe"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Reporting ReportingConfig `yaml:"reporting" mapstructure:"reporting"`
}

var validFormats = map[string]bool{
	"json": true,
	"txt":  true,
	"yaml": true,
}

var validLevels = map[string]bool{
	"DEBUG": true,
	"INFO":  true,
	"WARN":  true,
	"ERROR": true,
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Security: SecurityConfig{
			RequireConfirmation: true,
			ConfirmationWord:    "DELETE",
			ProtectedPaths:      defaultProtectedPaths(),
		},
		Wipe: WipeConfig{
			MaxSpeedMBps:   0, // без ограничения
			FollowSymlinks: false,
			PruneEmptyDirs: true,
		},
		Logging: LoggingConfig{
			Level: "INFO",
			File:  "",
		},
		Reporting: ReportingConfig{
			Enabled:   true,
			LocalPath: "./certificates",
			Formats:   []string{"json", "txt"},
			ArchiveDB: "./certificates/archive.sqlite",
		},
	}
}

// Load загружает конфигурацию из файла. Отсутствующий файл не является ошибкой.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Поля, не указанные в файле, остаются значениями по умолчанию
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate проверяет конфигурацию на валидность
func Validate(config *Config) error {
	if config.Security.RequireConfirmation && strings.TrimSpace(config.Security.ConfirmationWord) == "" {
		return fmt.Errorf("confirmation word must not be empty when confirmation is required")
	}

	for _, path := range config.Security.ProtectedPaths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("empty protected path")
		}
	}

	if config.Wipe.MaxSpeedMBps < 0 {
		return fmt.Errorf("max speed cannot be negative, got %f", config.Wipe.MaxSpeedMBps)
	}
	if config.Wipe.MaxSpeedMBps > 10000 {
		return fmt.Errorf("max speed too high (max 10000MB/s), got %f", config.Wipe.MaxSpeedMBps)
	}

	// Переход по симлинкам затёр бы данные вне выбранной папки
	if config.Wipe.FollowSymlinks {
		return fmt.Errorf("follow_symlinks is not supported")
	}

	if !validLevels[strings.ToUpper(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	if config.Reporting.Enabled {
		if config.Reporting.LocalPath == "" && config.Reporting.ArchiveDB == "" {
			return fmt.Errorf("reporting enabled but neither local_path nor archive_db is set")
		}
		if config.Reporting.LocalPath != "" && len(config.Reporting.Formats) == 0 {
			return fmt.Errorf("reporting local_path set but no formats configured")
		}
		for _, f := range config.Reporting.Formats {
			if !validFormats[strings.ToLower(f)] {
				return fmt.Errorf("invalid certificate format: %s", f)
			}
		}
	}

	return nil
}

// Save сохраняет конфигурацию в файл
func Save(config *Config, path string) error {
	if err := Validate(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// defaultProtectedPaths системные каталоги, которые нельзя выбирать целью
func defaultProtectedPaths() []string {
	paths := []string{"/bin", "/boot", "/dev", "/etc", "/lib", "/proc", "/sbin", "/sys", "/usr", "/var"}
	if windir := os.Getenv("WINDIR"); windir != "" {
		drive := filepath.VolumeName(windir)
		paths = append(paths,
			windir,
			filepath.Join(drive+`\`, "Program Files"),
			filepath.Join(drive+`\`, "Program Files (x86)"),
		)
	}
	return paths
}
