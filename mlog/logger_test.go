package mlog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	lv, ok := ParseLevel("DEBUG")
	assert.True(t, ok)
	assert.Equal(t, DebugLevel, lv)

	lv, ok = ParseLevel("nope")
	assert.False(t, ok)
	assert.Equal(t, InfoLevel, lv)
}

func TestZapLevelFilter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(NewZap(zap.New(core), InfoLevel))
	defer SetLogger(nil)

	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	Noticef("notice %d", 3)
	Warn("warn")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "shown 2", entries[0].Message)
	assert.Equal(t, "[notice] notice 3", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}

func TestNilLogger(t *testing.T) {
	SetLogger(nil)
	// 未设置 logger 时不应 panic
	Info("x")
	Errorf("y %d", 1)
}

func TestUseDefaultLogger(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	require.NoError(t, UseDefaultLogger(ctx, wg, dir, "flowtime", InfoLevel, false))
	Infof("hello %s", "file")
	cancel()
	wg.Wait()
	SetLogger(nil)

	data, err := os.ReadFile(filepath.Join(dir, "flowtime.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}
