package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/gh_release_notes/internal/config"
	"github.com/iWorld-y/gh_release_notes/internal/engine"
	"github.com/iWorld-y/gh_release_notes/internal/github"
	"github.com/iWorld-y/gh_release_notes/internal/logger"
	"github.com/iWorld-y/gh_release_notes/internal/prescription"
	"github.com/iWorld-y/gh_release_notes/internal/solver"
	"github.com/iWorld-y/gh_release_notes/internal/solver/factory"
	"github.com/iWorld-y/gh_release_notes/internal/storage"
)

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	window, err := solver.NewWindow(viper.GetString("start_date"), viper.GetString("end_date"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库连接，只有 solver 来源依赖数据库时才是致命错误
	store, err := openStorage(cfg)
	if err != nil {
		if cfg.Solver.Provider == "db" {
			return err
		}
		logger.Log.Errorf("无法连接数据库: %v. 将不记录运行历史。", err)
	}
	if store != nil {
		defer store.Close()
	}

	source, err := factory.NewSource(cfg.Solver, store)
	if err != nil {
		return err
	}

	var recorder engine.Recorder
	if store != nil {
		recorder = store
	}

	eng := engine.NewEngine(cfg, source, github.NewClient(cfg.GitHub, newLimiter(cfg.Concurrency)), recorder)
	res, err := eng.Run(ctx, engine.RunOptions{Window: window})
	if err != nil {
		return err
	}

	if err := prescription.Write(cfg.Prescription.Output, res.Prescription); err != nil {
		return err
	}
	if out := cfg.Prescription.Output; out != "" && out != "-" {
		logger.Log.Infof("✅ prescription 已写入: %s", out)
	}
	return nil
}

// openStorage 未配置数据库时返回 nil, nil
func openStorage(cfg *config.Config) (*storage.Storage, error) {
	if !cfg.DB.Enabled() {
		logger.Log.Info("未配置数据库信息，跳过数据库连接")
		return nil, nil
	}
	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("已成功连接到数据库")
	return store, nil
}

// newLimiter Limit 设置为 RPM/60，Burst 设置为 QPS
func newLimiter(c config.ConcurrencyConfig) *rate.Limiter {
	limit := rate.Limit(float64(c.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, c.QPS)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", limit, c.QPS)
	return limiter
}

func requireStorage(cfg *config.Config) (*storage.Storage, error) {
	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("this command requires a database, configure the db section")
	}
	return store, nil
}
