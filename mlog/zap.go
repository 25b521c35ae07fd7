package mlog

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
)

type zapLogger struct {
	level  Level
	sugar  *zap.SugaredLogger
	writer *lumberjack.Logger
}

func newZapLogger(logpath, logName string, level Level, stdOut bool) (*zapLogger, error) {
	// 默认使用当前路径
	if len(logpath) == 0 {
		logpath = "."
	}
	if err := os.MkdirAll(logpath, 0755); err != nil {
		return nil, err
	}
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(logpath, genLogName(logName)),
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		LocalTime:  true,
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	zl := zapLevel(level)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), zl),
	}
	if stdOut {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), zl))
	}
	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))
	return &zapLogger{
		level:  level,
		sugar:  l.Sugar(),
		writer: writer,
	}, nil
}

// NewZap 包装已有的 zap.Logger, 例如测试里的 zaptest/observer
func NewZap(l *zap.Logger, level Level) Logger {
	return &zapLogger{level: level, sugar: l.Sugar()}
}

func (l *zapLogger) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		_ = l.sugar.Sync()
		if l.writer != nil {
			_ = l.writer.Close()
		}
	}()
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case FatalLevel:
		return zapcore.FatalLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case NoticeLevel, InfoLevel:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

func (l *zapLogger) IsLevelEnabled(level Level) bool {
	return l.level >= level
}

func (l *zapLogger) Trace(v ...any) {
	if l.IsLevelEnabled(TraceLevel) {
		l.sugar.Debug(append([]any{getLevelTag(TraceLevel)}, v...)...)
	}
}

func (l *zapLogger) Tracef(format string, v ...any) {
	if l.IsLevelEnabled(TraceLevel) {
		l.sugar.Debugf(getLevelTag(TraceLevel)+format, v...)
	}
}

func (l *zapLogger) Debug(v ...any) {
	if l.IsLevelEnabled(DebugLevel) {
		l.sugar.Debug(v...)
	}
}

func (l *zapLogger) Debugf(format string, v ...any) {
	if l.IsLevelEnabled(DebugLevel) {
		l.sugar.Debugf(format, v...)
	}
}

func (l *zapLogger) Info(v ...any) {
	if l.IsLevelEnabled(InfoLevel) {
		l.sugar.Info(v...)
	}
}

func (l *zapLogger) Infof(format string, v ...any) {
	if l.IsLevelEnabled(InfoLevel) {
		l.sugar.Infof(format, v...)
	}
}

func (l *zapLogger) Notice(v ...any) {
	if l.IsLevelEnabled(NoticeLevel) {
		l.sugar.Info(append([]any{getLevelTag(NoticeLevel)}, v...)...)
	}
}

func (l *zapLogger) Noticef(format string, v ...any) {
	if l.IsLevelEnabled(NoticeLevel) {
		l.sugar.Infof(getLevelTag(NoticeLevel)+format, v...)
	}
}

func (l *zapLogger) Warn(v ...any) {
	if l.IsLevelEnabled(WarnLevel) {
		l.sugar.Warn(v...)
	}
}

func (l *zapLogger) Warnf(format string, v ...any) {
	if l.IsLevelEnabled(WarnLevel) {
		l.sugar.Warnf(format, v...)
	}
}

func (l *zapLogger) Error(v ...any) {
	if l.IsLevelEnabled(ErrorLevel) {
		l.sugar.Error(v...)
	}
}

func (l *zapLogger) Errorf(format string, v ...any) {
	if l.IsLevelEnabled(ErrorLevel) {
		l.sugar.Errorf(format, v...)
	}
}

func (l *zapLogger) Fatal(v ...any) {
	l.sugar.Fatal(v...)
}

func (l *zapLogger) Fatalf(format string, v ...any) {
	l.sugar.Fatalf(format, v...)
}

func genLogName(logName string) string {
	if logName == "" {
		logName = "mlog"
	}
	return logName + ".log"
}
