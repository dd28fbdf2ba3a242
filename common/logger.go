// Package common 提供日志、配置、服务生命周期等基础设施
package common

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// LogLevel 日志级别
type LogLevel string

// 日志级别
const (
	Debug LogLevel = "debug"
	Info  LogLevel = "info"
	Warn  LogLevel = "warn"
	Error LogLevel = "error"
)

// 运行环境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

func (p LogLevel) zapLevel() (zapcore.Level, bool) {
	switch LogLevel(strings.ToLower(string(p))) {
	case Debug:
		return zapcore.DebugLevel, true
	case Info:
		return zapcore.InfoLevel, true
	case Warn:
		return zapcore.WarnLevel, true
	case Error:
		return zapcore.ErrorLevel, true
	}
	return zapcore.InfoLevel, false
}

// Logger 日志接口
type Logger interface {
	Debugf(format string, params ...interface{})
	Infof(format string, params ...interface{})
	Warnf(format string, params ...interface{})
	Errorf(format string, params ...interface{})
	DebugEnabled() bool
	InfoEnabled() bool
	WarnEnabled() bool
	ErrorEnabled() bool
	SetLevel(level LogLevel)
	Sync()
}

var (
	logger   Logger = NewZapLogger(&LogConfig{Env: EnvDevelopment, Level: string(Info)})
	loggerMu sync.RWMutex
)

func currentLogger() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger 替换全局logger
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	loggerMu.Lock()
	old := logger
	logger = l
	loggerMu.Unlock()
	old.Sync()
}

func initLogger(conf *LogConfig) error {
	SetLogger(NewZapLogger(conf))
	return nil
}

// SetLogLevel 设置全局日志级别,无效的级别按info处理
func SetLogLevel(level LogLevel) {
	if _, ok := level.zapLevel(); !ok {
		level = Info
	}
	currentLogger().SetLevel(level)
}

// Debugf debug
func Debugf(format string, params ...interface{}) {
	currentLogger().Debugf(format, params...)
}

// Infof info
func Infof(format string, params ...interface{}) {
	currentLogger().Infof(format, params...)
}

// Warnf warn
func Warnf(format string, params ...interface{}) {
	currentLogger().Warnf(format, params...)
}

// Errorf error
func Errorf(format string, params ...interface{}) {
	currentLogger().Errorf(format, params...)
}

// Logf 按level记录日志
func Logf(level LogLevel, format string, params ...interface{}) {
	switch level {
	case Debug:
		Debugf(format, params...)
	case Warn:
		Warnf(format, params...)
	case Error:
		Errorf(format, params...)
	default:
		Infof(format, params...)
	}
}

// DebugEnabled debug是否开启
func DebugEnabled() bool {
	return currentLogger().DebugEnabled()
}

// InfoEnabled info是否开启
func InfoEnabled() bool {
	return currentLogger().InfoEnabled()
}

// WarnEnabled warn是否开启
func WarnEnabled() bool {
	return currentLogger().WarnEnabled()
}

// ErrorEnabled error是否开启
func ErrorEnabled() bool {
	return currentLogger().ErrorEnabled()
}

// SyncLog 刷新日志缓冲
func SyncLog() {
	currentLogger().Sync()
}
