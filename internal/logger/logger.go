// Package logger provides logging functionality for the application.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interface defines the logger interface.
type Interface interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Fatal(msg string, fields ...any)
	With(fields ...any) Interface
}

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level (debug, info, warn, error, fatal).
	Level string `mapstructure:"level" yaml:"level"`
	// Encoding is the output encoding, "console" or "json".
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
	// Development enables development mode with prettier output.
	Development bool `mapstructure:"development" yaml:"development"`
}

// Logger implements the Interface.
type Logger struct {
	zapLogger *zap.Logger
}

// logLevels maps string levels to zapcore.Level
var logLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"fatal": zapcore.FatalLevel,
}

// New creates a new logger instance.
func New(config *Config) (Interface, error) {
	if config == nil {
		config = &Config{}
	}

	// Set default values
	if config.Level == "" {
		config.Level = "info"
	}
	if config.Encoding == "" {
		config.Encoding = "console"
	}

	// Create encoder config
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if config.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
		}
		encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		encoderConfig.ConsoleSeparator = " | "
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	}

	// Create encoder
	var encoder zapcore.Encoder
	if config.Encoding == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(os.Stdout),
		getLogLevel(config.Level),
	)

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if config.Development {
		opts = append(opts, zap.Development())
	}

	return &Logger{zapLogger: zap.New(core, opts...)}, nil
}

// getLogLevel converts a string level to zapcore.Level
func getLogLevel(level string) zapcore.Level {
	lvl, exists := logLevels[strings.ToLower(level)]
	if !exists {
		return zapcore.InfoLevel
	}
	return lvl
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...any) {
	l.zapLogger.Debug(msg, toZapFields(fields)...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...any) {
	l.zapLogger.Info(msg, toZapFields(fields)...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...any) {
	l.zapLogger.Warn(msg, toZapFields(fields)...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...any) {
	l.zapLogger.Error(msg, toZapFields(fields)...)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...any) {
	l.zapLogger.Fatal(msg, toZapFields(fields)...)
}

// With creates a new logger with the given fields.
func (l *Logger) With(fields ...any) Interface {
	return &Logger{
		zapLogger: l.zapLogger.With(toZapFields(fields)...),
	}
}

// toZapFields converts variadic key/value pairs to zap fields.
// A trailing key without a value is logged under the "dangling" key.
func toZapFields(fields []any) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)/2+1)

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			zapFields = append(zapFields, zap.Any("dangling", fields[i]))
			break
		}

		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}

	return zapFields
}
