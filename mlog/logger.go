package mlog

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

type Logger interface {
	Trace(v ...any)
	Debug(v ...any)
	Info(v ...any)
	Notice(v ...any)
	Warn(v ...any)
	Error(v ...any)
	Fatal(v ...any)

	Tracef(format string, v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Noticef(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Fatalf(format string, v ...any)
}

type holder struct {
	l Logger
}

// ticker 协程与 SetLogger 可能并发, 用原子指针保存
var logger atomic.Pointer[holder]

func SetLogger(l Logger) {
	logger.Store(&holder{l: l})
}

func load() Logger {
	h := logger.Load()
	if h == nil {
		return nil
	}
	return h.l
}

// UseDefaultLogger 文件日志, 按大小滚动; ctx 结束后 flush 并关闭文件
func UseDefaultLogger(ctx context.Context, wg *sync.WaitGroup, path string, logName string, level Level, stdOut bool) error {
	l, err := newZapLogger(path, logName, level, stdOut)
	if err != nil {
		return err
	}
	l.Start(ctx, wg)
	SetLogger(l)
	return nil
}

func UseStdLogger(level Level) error {
	l := newStdoutLogger(level)
	SetLogger(l)
	return nil
}

type Level uint32

const (
	FatalLevel Level = iota
	ErrorLevel
	WarnLevel
	NoticeLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

// ParseLevel 未知名字返回 InfoLevel
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "fatal":
		return FatalLevel, true
	case "error":
		return ErrorLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "notice":
		return NoticeLevel, true
	case "info":
		return InfoLevel, true
	case "debug":
		return DebugLevel, true
	case "trace":
		return TraceLevel, true
	}
	return InfoLevel, false
}

func Trace(a ...any) {
	if l := load(); l != nil {
		l.Trace(a...)
	}
}

func Tracef(format string, a ...any) {
	if l := load(); l != nil {
		l.Tracef(format, a...)
	}
}

func Debug(a ...any) {
	if l := load(); l != nil {
		l.Debug(a...)
	}
}

func Debugf(format string, a ...any) {
	if l := load(); l != nil {
		l.Debugf(format, a...)
	}
}

func Info(a ...any) {
	if l := load(); l != nil {
		l.Info(a...)
	}
}

func Infof(format string, a ...any) {
	if l := load(); l != nil {
		l.Infof(format, a...)
	}
}

func Notice(a ...any) {
	if l := load(); l != nil {
		l.Notice(a...)
	}
}

func Noticef(format string, a ...any) {
	if l := load(); l != nil {
		l.Noticef(format, a...)
	}
}

func Warn(a ...any) {
	if l := load(); l != nil {
		l.Warn(a...)
	}
}

func Warnf(format string, a ...any) {
	if l := load(); l != nil {
		l.Warnf(format, a...)
	}
}

func Error(a ...any) {
	if l := load(); l != nil {
		l.Error(a...)
	}
}

func Errorf(format string, a ...any) {
	if l := load(); l != nil {
		l.Errorf(format, a...)
	}
}

func Fatal(a ...any) {
	if l := load(); l != nil {
		l.Fatal(a...)
	}
}

func Fatalf(format string, a ...any) {
	if l := load(); l != nil {
		l.Fatalf(format, a...)
	}
}
