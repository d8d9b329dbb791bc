package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string
	Format string
}

// loggers 成对替换，保证 base 与 sugar 始终来自同一个 logger
type loggers struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

var (
	current    atomic.Pointer[loggers]
	sessionID  atomic.Value
	generation uint64
)

func init() {
	Replace(nil)
}

func InitFromEnv() error {
	cfg := Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}
	return Init(cfg)
}

func Init(cfg Config) error {
	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = "info"
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "console"
	}

	var zapCfg zap.Config
	switch format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %s", cfg.Format)
	}

	atomLevel := zap.NewAtomicLevel()
	if err := atomLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %s", cfg.Level)
	}
	zapCfg.Level = atomLevel

	logger, err := zapCfg.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	Replace(logger)
	return nil
}

// Replace 替换全局 logger，可与日志调用并发；测试中配合 zaptest/observer 使用
func Replace(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	current.Store(&loggers{base: logger, sugar: logger.Sugar()})
}

func Sync() {
	_ = current.Load().base.Sync()
}

// NewSessionID 为新的播放会话生成 ID
func NewSessionID() string {
	return uuid.NewString()
}

// StartSession 记录当前会话 ID，并递增会话代数
func StartSession(id string) uint64 {
	if strings.TrimSpace(id) != "" {
		sessionID.Store(id)
	}
	return atomic.AddUint64(&generation, 1)
}

func Debugf(format string, args ...interface{}) {
	withFields().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	withFields().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	withFields().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	withFields().Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	withFields().Fatalf(format, args...)
}

func withFields() *zap.SugaredLogger {
	sid, _ := sessionID.Load().(string)
	if sid == "" {
		sid = "session-none"
	}
	return current.Load().sugar.With(
		"session_id", sid,
		"generation", atomic.LoadUint64(&generation),
	)
}
