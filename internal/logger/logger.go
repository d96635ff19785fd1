package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel 日志级别
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// Logger 自定义日志器
type Logger struct {
	zapLogger *zap.Logger
}

// LogConfig 日志配置，由 config.LogConfig 实现
type LogConfig interface {
	GetLevel() string
	GetOutput() string
	GetFile() string
}

// LumberjackConfig lumberjack 配置
type LumberjackConfig struct {
	Filename   string // 日志文件路径
	MaxSize    int    // 每个日志文件的最大大小（MB）
	MaxBackups int    // 保留的旧日志文件数量
	MaxAge     int    // 保留日志文件的天数
	Compress   bool   // 是否压缩旧日志文件
}

var defaultLogger *Logger

func init() {
	var err error
	defaultLogger, err = New(INFO)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
}

// New 创建输出到标准输出的日志器
func New(level LogLevel) (*Logger, error) {
	return newWithOutput(level, []string{"stdout"})
}

// NewFromConfig 按配置创建日志器：stdout、stderr 或带轮转的文件
func NewFromConfig(cfg LogConfig) (*Logger, error) {
	level := ParseLogLevel(cfg.GetLevel())
	switch strings.ToLower(cfg.GetOutput()) {
	case "", "stdout":
		return newWithOutput(level, []string{"stdout"})
	case "stderr":
		return newWithOutput(level, []string{"stderr"})
	case "file":
		if cfg.GetFile() == "" {
			return nil, fmt.Errorf("log output is file but no log file is configured")
		}
		return NewWithFileRotation(level, cfg.GetFile())
	default:
		return nil, fmt.Errorf("unknown log output %q", cfg.GetOutput())
	}
}

// NewWithFileRotation 创建支持文件轮转的日志器
func NewWithFileRotation(level LogLevel, logFile string) (*Logger, error) {
	return NewWithLumberjackConfig(level, LumberjackConfig{
		Filename: logFile,
		Compress: true,
	})
}

// NewWithLumberjackConfig 使用自定义 lumberjack 配置创建日志器
func NewWithLumberjackConfig(level LogLevel, config LumberjackConfig) (*Logger, error) {
	if config.MaxSize == 0 {
		config.MaxSize = 100
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}
	if config.MaxAge == 0 {
		config.MaxAge = 28
	}

	writer := &lumberjack.Logger{
		Filename:   config.Filename,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	encoder := zapcore.NewJSONEncoder(encoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(writer), zap.NewAtomicLevelAt(zapLevelFromLogLevel(level)))
	return &Logger{zapLogger: zap.New(core, zap.AddCallerSkip(2), zap.AddCaller())}, nil
}

func newWithOutput(level LogLevel, paths []string) (*Logger, error) {
	config := zap.NewProductionConfig()
	if level == DEBUG {
		config = zap.NewDevelopmentConfig()
	} else {
		config.EncoderConfig = encoderConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevelFromLogLevel(level))
	config.OutputPaths = paths

	zapLogger, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return &Logger{zapLogger: zapLogger}, nil
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	enc.CallerKey = "caller"
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	enc.LevelKey = "level"
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.MessageKey = "message"
	enc.EncodeName = zapcore.FullNameEncoder
	return enc
}

// Debug 调试日志
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zapLogger.Debug(fmt.Sprintf(format, args...))
}

// Info 信息日志
func (l *Logger) Info(format string, args ...interface{}) {
	l.zapLogger.Info(fmt.Sprintf(format, args...))
}

// Warn 警告日志
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zapLogger.Warn(fmt.Sprintf(format, args...))
}

// Error 错误日志
func (l *Logger) Error(format string, args ...interface{}) {
	l.zapLogger.Error(fmt.Sprintf(format, args...))
}

// Fatal 致命错误日志
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.zapLogger.Fatal(fmt.Sprintf(format, args...))
}

// Sync 同步日志
func (l *Logger) Sync() {
	_ = l.zapLogger.Sync()
}

// With 添加字段，返回的日志器直接调用方法，调用栈少一层包函数
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zapLogger: l.zapLogger.WithOptions(zap.AddCallerSkip(-1)).With(fields...)}
}

// SetDefaultLogger 设置默认日志器
func SetDefaultLogger(l *Logger) {
	if defaultLogger != nil {
		defaultLogger.Sync()
	}
	defaultLogger = l
}

// With 基于默认日志器附加字段
func With(fields ...zap.Field) *Logger {
	return defaultLogger.With(fields...)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

func Fatal(format string, args ...interface{}) {
	defaultLogger.Fatal(format, args...)
}

func Sync() {
	defaultLogger.Sync()
}

// ParseLogLevel 解析日志级别字符串
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func zapLevelFromLogLevel(level LogLevel) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
