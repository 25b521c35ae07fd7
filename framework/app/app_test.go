package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type testModule struct {
	name    string
	rec     *recorder
	initErr error
	runErr  error
	quit    chan struct{}
}

func newModule(name string, rec *recorder) *testModule {
	return &testModule{name: name, rec: rec, quit: make(chan struct{})}
}

func (m *testModule) OnInit() error {
	m.rec.add("init " + m.name)
	return m.initErr
}

func (m *testModule) Destroy() {
	m.rec.add("destroy " + m.name)
	close(m.quit)
}

func (m *testModule) Run(ctx context.Context) error {
	if m.runErr != nil {
		return m.runErr
	}
	<-m.quit
	return nil
}

func (m *testModule) Name() string { return m.name }

func TestRunStop(t *testing.T) {
	rec := &recorder{}
	a := New()
	go func() {
		time.Sleep(20 * time.Millisecond)
		assert.EqualValues(t, AppStateRun, a.GetState())
		a.Stop()
	}()
	err := a.Run(context.Background(), newModule("a", rec), newModule("b", rec))
	require.NoError(t, err)
	assert.Equal(t, []string{"init a", "init b", "destroy b", "destroy a"}, rec.list())
	assert.EqualValues(t, AppStateNone, a.GetState())
}

func TestRunContextDone(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, New().Run(ctx, newModule("a", rec)))
	assert.Equal(t, []string{"init a", "destroy a"}, rec.list())
}

func TestInitFailure(t *testing.T) {
	rec := &recorder{}
	bad := newModule("b", rec)
	bad.initErr = errors.New("boom")
	err := New().Run(context.Background(), newModule("a", rec), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module b init")
	assert.Equal(t, []string{"init a", "init b", "destroy a"}, rec.list())
}

func TestModuleRunError(t *testing.T) {
	rec := &recorder{}
	bad := newModule("b", rec)
	bad.runErr = errors.New("broken")
	err := New().Run(context.Background(), newModule("a", rec), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
