package cmd

import (
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/gh_release_notes/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history and generated prescriptions over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := requireStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, _ := os.Hostname()
	klog := log.With(log.NewStdLogger(os.Stderr),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", rootCmd.Name(),
		"service.version", Version,
	)

	hs := server.NewHTTPServer(cfg.Server, store, klog)
	app := kratos.New(
		kratos.ID(id),
		kratos.Name(rootCmd.Name()),
		kratos.Version(Version),
		kratos.Logger(klog),
		kratos.Server(hs),
	)

	// kratos 自行处理 SIGINT/SIGTERM
	return app.Run()
}
