package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

var (
	// globalLogger holds the process-wide logger; atomic so readers never
	// race initialization.
	globalLogger atomic.Pointer[zap.Logger]
	// once guards Initialize so repeated calls are harmless.
	once sync.Once
)

// ANSI escapes for the console level column.
const (
	ansiMagenta = "\x1b[35m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiRed     = "\x1b[31m"
	ansiReset   = "\x1b[0m"
)

// Initialize builds the global zap logger from cfg, writing the console
// stream to consoleWriter. The console core uses the configured format; a
// second lumberjack-rotated JSON core is added when a log file is set.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{
			zapcore.NewCore(consoleEncoder(cfg), consoleWriter, level),
		}

		if cfg.LogFile != "" {
			// Rotation and concurrent writes are lumberjack's problem.
			fileSink := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
			cores = append(cores, zapcore.NewCore(jsonEncoder(), fileSink, level))
		}

		opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			opts = append(opts, zap.AddCaller())
		}

		logger := zap.New(zapcore.NewTee(cores...), opts...).Named(cfg.ServiceName)
		globalLogger.Store(logger)

		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// InitializeLogger is the production entry point: console output goes to a
// locked stdout.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stdout))
}

// GetLogger returns the global logger. Before initialization it hands back
// a named development logger so early code paths still log somewhere.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("uninitialized")
}

// Sync flushes buffered entries. Sync errors on terminal stdout are
// expected on several platforms and are not worth reporting.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "sync /dev/stdout") ||
			strings.Contains(msg, "invalid argument") ||
			strings.Contains(msg, "operation not supported") {
			return
		}
		fmt.Fprintln(os.Stderr, "failed to sync logger:", err)
	}
}

// ResetForTest clears the global logger and re-arms the once guard. Test
// use only.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

// consoleEncoder returns the encoder for the terminal stream: single-line,
// readable timestamps, optionally color-coded levels. A "json" format
// selects the structured encoder instead.
func consoleEncoder(cfg config.LoggerConfig) zapcore.Encoder {
	if cfg.Format == "json" {
		return jsonEncoder()
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if cfg.Color {
		encCfg.EncodeLevel = colorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	// Suffix the component name with a dot so it reads as a prefix of the
	// message rather than a bare token.
	encCfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(encCfg)
}

// jsonEncoder is the structured encoder used for the rotated log file and
// for "json" console output.
func jsonEncoder() zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	// Lowercase levels in the structured stream, matching zap's production
	// JSON convention; the console core keeps the capital column.
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(encCfg)
}

// colorLevelEncoder paints the level column with a fixed palette.
func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var color string
	switch level {
	case zapcore.DebugLevel:
		color = ansiMagenta
	case zapcore.InfoLevel:
		color = ansiGreen
	case zapcore.WarnLevel:
		color = ansiYellow
	default:
		color = ansiRed
	}
	enc.AppendString(color + strings.ToUpper(level.String()) + ansiReset)
}
