package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/multierr"

	"github.com/fixkme/flowtime/mlog"
)

// 节点全局状态
const (
	AppStateNone = iota // 未开始或已停止
	AppStateInit        // 正在初始化中
	AppStateRun         // 正在运行中
	AppStateStop        // 正在停止中
)

type Module interface {
	OnInit() error                 // 初始化
	Destroy()                      // 销毁, 需让 Run 返回
	Run(ctx context.Context) error // 启动, 阻塞到结束
	Name() string                  // 名字
}

// mod 模块
type mod struct {
	mi  Module
	err error
}

// App 中的 modules 在 Run 之后不能变更
type App struct {
	mods   []*mod
	state  int32
	stopCh chan struct{}
	once   sync.Once
	wg     *sync.WaitGroup
}

func New() *App {
	return &App{stopCh: make(chan struct{})}
}

func (app *App) setState(s int32) {
	atomic.StoreInt32(&app.state, s)
}

func (app *App) GetState() int32 {
	return atomic.LoadInt32(&app.state)
}

func (app *App) start(ctx context.Context, mods ...Module) error {
	// 单个app不能启动两次
	if app.GetState() != AppStateNone || len(app.mods) != 0 {
		return fmt.Errorf("app mods cannot start twice")
	}
	mlog.Info("app starting up")
	for _, mi := range mods {
		app.mods = append(app.mods, &mod{mi: mi})
	}
	app.setState(AppStateInit)
	// 模块初始化, 失败时销毁已初始化的模块
	for i, m := range app.mods {
		if err := m.mi.OnInit(); err != nil {
			for j := i - 1; j >= 0; j-- {
				destroy(app.mods[j])
			}
			app.mods = nil
			app.setState(AppStateNone)
			return fmt.Errorf("module %s init: %w", m.mi.Name(), err)
		}
	}
	// 模块启动
	app.wg = &sync.WaitGroup{}
	for _, m := range app.mods {
		app.wg.Add(1)
		go app.run(ctx, m)
	}
	app.setState(AppStateRun)
	mlog.Info("app started")
	return nil
}

func (app *App) stop() error {
	mlog.Info("app stop begin")
	app.setState(AppStateStop)
	// 先进后出
	for i := len(app.mods) - 1; i >= 0; i-- {
		m := app.mods[i]
		mlog.Infof("app stop module %s", m.mi.Name())
		destroy(m)
	}
	app.wg.Wait()
	var err error
	for _, m := range app.mods {
		err = multierr.Append(err, m.err)
	}
	app.setState(AppStateNone)
	mlog.Info("app stopped")
	return err
}

// run 模块出错时整个 app 退出
func (app *App) run(ctx context.Context, m *mod) {
	defer app.wg.Done()
	if err := m.mi.Run(ctx); err != nil {
		m.err = fmt.Errorf("module %s: %w", m.mi.Name(), err)
		mlog.Errorf("%v", m.err)
		app.Stop()
	}
}

func destroy(m *mod) {
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module destroy panic: %v\n%s", m.mi.Name(), r, debug.Stack())
		}
	}()

	m.mi.Destroy()
}

// Run 启动所有模块, 直到收到退出信号、ctx 结束或 Stop, 然后逆序销毁.
// 返回初始化错误或各模块 Run 的错误.
func (app *App) Run(ctx context.Context, mods ...Module) error {
	if err := app.start(ctx, mods...); err != nil {
		return err
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sig)
	for loop := true; loop; {
		select {
		case s := <-sig:
			mlog.Infof("server closing down (signal: %v)", s)
			loop = s == syscall.SIGHUP
		case <-ctx.Done():
			loop = false
		case <-app.stopCh:
			loop = false
		}
	}
	return app.stop()
}

func (app *App) Stop() {
	app.once.Do(func() { close(app.stopCh) })
}
