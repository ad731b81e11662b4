// pkg/middleware/logger/logger.go
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Middleware struct{}

func ProvideLoggerMiddleware() *Middleware { return &Middleware{} }
func ProvideLogger() *zap.Logger           { return NewLog("system.log") }

// access logger is built lazily so importing the package has no side effects;
// the first request pays for the log dir.
var httpAccessLogger atomic.Pointer[zap.Logger]

func accessLogger() *zap.Logger {
	if l := httpAccessLogger.Load(); l != nil {
		return l
	}
	l := NewLog("http-access.log")
	if httpAccessLogger.CompareAndSwap(nil, l) {
		return l
	}
	// Lost the race; use whichever logger won.
	return httpAccessLogger.Load()
}

// SetAccessLogger lets tests/CLIs override the access logger (optional).
// Safe to call while requests are in flight.
func SetAccessLogger(l *zap.Logger) {
	if l != nil {
		httpAccessLogger.Store(l)
	}
}

func ensureLogDir() string {
	dir := "log"
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func NewLog(n string) *zap.Logger {
	_ = ensureLogDir()

	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = zapcore.OmitKey

	console := zapcore.Lock(os.Stdout)

	var logPath string
	if runtime.GOOS == "windows" {
		logPath = filepath.Join("log", n)
	} else {
		logPath = fmt.Sprintf("%s/%s", "log", n)
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), console, zap.InfoLevel),
	)
	return zap.New(core)
}
