package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"securewipe/internal/config"
)

// Enterprise логгер с аудитом поверх zap
type EnterpriseLogger struct {
	zl      *zap.Logger
	verbose bool
}

// NewEnterpriseLogger пишет JSON в logging.file и человекочитаемый вывод в консоль.
// В консоль попадают все записи при verbose, иначе только ERROR и выше.
func NewEnterpriseLogger(cfg *config.Config, verbose bool) (*EnterpriseLogger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Logging.Level, err)
	}
	verbose = verbose || cfg.Logging.Verbose

	consoleLevel := zapcore.ErrorLevel
	if verbose {
		consoleLevel = level
	}

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), consoleLevel),
	}

	// Автоматическое создание директории для логов
	if cfg.Logging.File != "" {
		logDir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] cannot create log directory %s: %v, logging to console only\n", logDir, err)
		} else {
			f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] cannot open log file %s: %v, logging to console only\n", cfg.Logging.File, err)
			} else {
				fileEnc := zap.NewProductionEncoderConfig()
				fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
				cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(f), level))
			}
		}
	}

	return &EnterpriseLogger{
		zl:      zap.New(zapcore.NewTee(cores...)),
		verbose: verbose,
	}, nil
}

// New оборачивает готовый zap логгер (тесты, встраивание)
func New(zl *zap.Logger) *EnterpriseLogger {
	return &EnterpriseLogger{zl: zl}
}

// NewNop логгер, который ничего не пишет
func NewNop() *EnterpriseLogger {
	return New(zap.NewNop())
}

// Log пишет запись уровня level с парами ключ-значение
func (l *EnterpriseLogger) Log(level, message string, fields ...interface{}) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if !l.zl.Core().Enabled(lvl) {
		return
	}

	zf := make([]zap.Field, 0, len(fields)/2+1)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("field%d", i)
		}
		if i+1 >= len(fields) {
			zf = append(zf, zap.Any(key, nil))
			break
		}
		if e, isErr := fields[i+1].(error); isErr {
			zf = append(zf, zap.NamedError(key, e))
			continue
		}
		zf = append(zf, zap.Any(key, fields[i+1]))
	}

	// FATAL не завершает процесс: решение о выходе принимает вызывающий
	if lvl >= zapcore.DPanicLevel {
		lvl = zapcore.ErrorLevel
	}
	if ce := l.zl.Check(lvl, message); ce != nil {
		ce.Write(zf...)
	}
}

// Zap возвращает нижележащий логгер для типизированных полей
func (l *EnterpriseLogger) Zap() *zap.Logger {
	return l.zl
}

// Verbose включен ли подробный консольный вывод
func (l *EnterpriseLogger) Verbose() bool {
	return l.verbose
}

func (l *EnterpriseLogger) Close() error {
	// Sync на stderr возвращает EINVAL на некоторых платформах
	_ = l.zl.Sync()
	return nil
}
