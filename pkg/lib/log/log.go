// Package log 提供 overlay 统一日志接口
//
// 基于 log/slog，所有组件通过 Logger(component) 获取带组件名的日志器：
//
//	var logger = log.Logger("core/peergroup")
//	logger.Info("状态变更", "state", s)
//
// 组件日志器在每次调用时解析 slog.Default()，因此 SetOutput/SetLevel
// 可以在运行期间切换输出目标。
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// 日志级别
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// level 当前全局级别，SetLevel 与 SetOutput 共享
var level = new(slog.LevelVar)

// output 当前输出目标
var output atomic.Value

func init() {
	level.Set(slog.LevelInfo)
	output.Store(io.Writer(os.Stderr))
	install()
}

// install 按当前输出与级别重建默认 logger
func install() {
	w, _ := output.Load().(io.Writer)
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetOutput 将日志输出重定向到 w
func SetOutput(w io.Writer) {
	output.Store(w)
	install()
}

// SetLevel 设置全局日志级别
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutputWithLevel 同时设置输出目标和级别
func SetOutputWithLevel(w io.Writer, l slog.Level) {
	level.Set(l)
	SetOutput(w)
}

// ParseLevel 解析 debug/info/warn/error，无法识别时返回 info
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 组件日志器
//
// 不缓存 handler，每次调用都使用当前的 slog.Default()。
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的日志器
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) base() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) { l.base().Debug(msg, args...) }

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) { l.base().Info(msg, args...) }

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) { l.base().Warn(msg, args...) }

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) { l.base().Error(msg, args...) }

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.base().DebugContext(ctx, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.base().WarnContext(ctx, msg, args...)
}

// With 返回附加了属性的 slog.Logger
//
// 用于一段逻辑内共享的属性，例如一次维护周期的 cycle ID。
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.base().With(args...)
}

// Component 返回组件名
func (l *LazyLogger) Component() string {
	return l.component
}
