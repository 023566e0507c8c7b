package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/gh_release_notes/internal/logger"
	"github.com/iWorld-y/gh_release_notes/internal/solver"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Load solver documents from a directory into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := requireStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var saved int
	err = solver.NewDirSource(args[0]).Walk(ctx, func(doc *solver.Document, raw []byte) error {
		var ts *time.Time
		if t, ok := doc.Time(); ok {
			ts = &t
		} else {
			logger.Log.Warnf("文档缺少时间 [%s]，只会出现在不限日期的查询中", doc.ID())
		}
		if err := store.SaveSolverResult(ctx, doc.ID(), ts, raw); err != nil {
			return err
		}
		saved++
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Infof("✅ 已导入 %d 份 solver 文档", saved)
	return nil
}
