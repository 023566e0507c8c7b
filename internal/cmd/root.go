package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iWorld-y/gh_release_notes/internal/config"
	"github.com/iWorld-y/gh_release_notes/internal/logger"
)

// Version 通过 -ldflags "-X github.com/iWorld-y/gh_release_notes/internal/cmd.Version=x.y.z" 注入
var Version = "0.0.0"

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "THOTH_PRESCRIPTIONS_GH_RELEASE_NOTES_"
	// 历史版本里拼错的前缀，保持兼容
	legacyEnvPrefix = "THOHT_PRESCRIPTIONS_GH_RELEASE_NOTES_"
)

var rootCmd = &cobra.Command{
	Use:   "gh-release-notes",
	Short: "Aggregate GitHub release notes prescriptions for GitHub hosted projects on PyPI",
	Long: `gh-release-notes reads thoth-solver results, checks which package versions
have a matching release on GitHub and writes a wrap.GitHubReleaseNotes
prescription consumed by the adviser.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGenerate,
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "config file (default is "+defaultConfigPath+" when present)")
	pf.BoolP("verbose", "v", false, "Be verbose about what's going on.")
	_ = viper.BindPFlag("config", pf.Lookup("config"))
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindEnv("verbose", envPrefix+"DEBUG")

	f := rootCmd.Flags()
	f.String("start-date", "", "Use solver results starting the given date (YYYY-MM-DD).")
	f.String("end-date", "", "Upper bound for solver results listing (YYYY-MM-DD).")
	f.String("output", "", "Store result to a file or print to stdout (-).")
	for key, flag := range map[string]string{
		"start_date": "start-date",
		"end_date":   "end-date",
		"output":     "output",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
		_ = viper.BindEnv(key, envName(envPrefix, key), envName(legacyEnvPrefix, key))
	}

	rootCmd.AddCommand(ingestCmd, serveCmd)
}

func envName(prefix, key string) string {
	return prefix + strings.ToUpper(key)
}

// loadConfig 读取配置文件并应用命令行与环境变量覆盖，随后初始化日志
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, fmt.Errorf("load config: %w", err)
	}

	if viper.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	if out := viper.GetString("output"); out != "" {
		cfg.Prescription.Output = out
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Log.Debug("Debug mode is on")
	logger.Log.Infof("Version: %s", Version)

	return cfg, nil
}
