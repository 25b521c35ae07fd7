package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fixkme/flowtime/errs"
	"github.com/fixkme/flowtime/framework/app"
	"github.com/fixkme/flowtime/framework/config"
	"github.com/fixkme/flowtime/metrics"
	"github.com/fixkme/flowtime/mlog"
)

var (
	configFile  string
	metricsAddr string
	intervalArg time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "flowtime",
	Short:         "Drift-compensating tickers and time signals",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Print tick on every interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("interval") {
			conf.IntervalMs = intervalArg.Milliseconds()
		}
		if err := conf.Validate(); err != nil {
			return err
		}
		jitter := metrics.NewJitter()
		err = runModules(cmd, conf, func(tm *metrics.Ticker) app.Module {
			return newTickModule(conf, tm, jitter, cmd.OutOrStdout())
		})
		if jitter.Count() > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "ticks=%d p50=%s p99=%s max=%s\n",
				jitter.Count()+1, jitter.Quantile(50), jitter.Quantile(99), jitter.Max())
		}
		return err
	},
}

var integrateCmd = &cobra.Command{
	Use:   "integrate",
	Short: "Print the running integral of the current time in seconds",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("interval") {
			conf.IntegrateIntervalMs = intervalArg.Milliseconds()
		}
		if err := conf.Validate(); err != nil {
			return err
		}
		return runModules(cmd, conf, func(tm *metrics.Ticker) app.Module {
			return newIntegrateModule(conf, tm, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (.json or .toml)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	tickCmd.Flags().DurationVar(&intervalArg, "interval", time.Second, "tick interval")
	integrateCmd.Flags().DurationVar(&intervalArg, "interval", 20*time.Millisecond, "integration step")
	rootCmd.AddCommand(tickCmd, integrateCmd)
}

func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	conf, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("metrics-addr") {
		conf.MetricsAddr = metricsAddr
	}
	return conf, nil
}

func setupLog(ctx context.Context, wg *sync.WaitGroup, conf *config.AppConfig) error {
	if conf.LogPath == "" {
		return mlog.UseStdLogger(conf.Level())
	}
	return mlog.UseDefaultLogger(ctx, wg, conf.LogPath, conf.LogName, conf.Level(), conf.LogStdOut)
}

func runModules(cmd *cobra.Command, conf *config.AppConfig, build func(tm *metrics.Ticker) app.Module) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	logWg := &sync.WaitGroup{}
	defer func() {
		cancel()
		logWg.Wait()
	}()
	if err := setupLog(ctx, logWg, conf); err != nil {
		return err
	}
	mlog.Infof("flowtime %s run_id=%s config=%s", cmd.Name(), uuid.NewString(), conf.JsonFormat())

	reg := prometheus.NewRegistry()
	tm := metrics.NewTicker(reg)
	eg, egCtx := errgroup.WithContext(ctx)
	runCtx, stopRun := context.WithCancel(egCtx)
	eg.Go(func() error {
		defer stopRun()
		return app.New().Run(runCtx, build(tm))
	})
	if conf.MetricsAddr != "" {
		eg.Go(func() error {
			return serveMetrics(runCtx, conf.MetricsAddr, reg)
		})
	}
	return eg.Wait()
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		mlog.Infof("metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// exitCode 取错误码作为进程退出码, 非 CodeError 为 1
func exitCode(err error) int {
	code := int(errs.WrapError(err).Code())
	if code <= 0 || code > 255 {
		return errs.ErrCode_Unknown
	}
	return code
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
