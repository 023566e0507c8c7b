package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	Log          LogConfig          `yaml:"log"`
	Solver       SolverConfig       `yaml:"solver"`
	DB           DBConfig           `yaml:"db"`
	GitHub       GitHubConfig       `yaml:"github"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	Prescription PrescriptionConfig `yaml:"prescription"`
	Server       ServerConfig       `yaml:"server"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SolverConfig solver 结果来源配置
type SolverConfig struct {
	Provider string `yaml:"provider"` // dir or db
	Dir      string `yaml:"dir"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Driver   string `yaml:"driver"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"` // sqlite 数据库文件
}

// Enabled 是否配置了数据库
func (c DBConfig) Enabled() bool {
	switch c.Driver {
	case "sqlite":
		return c.Path != ""
	default:
		return c.Host != ""
	}
}

// GitHubConfig GitHub 探测配置
type GitHubConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	UserAgent string `yaml:"user_agent"`
	Timeout   int    `yaml:"timeout"` // 秒
	Retries   int    `yaml:"retries"`
	Backoff   string `yaml:"backoff"`
}

// BackoffDuration 解析重试退避基数，非法值回退到 2s
func (c GitHubConfig) BackoffDuration() time.Duration {
	d, err := time.ParseDuration(c.Backoff)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS     int `yaml:"qps"`
	RPM     int `yaml:"rpm"`
	Workers int `yaml:"workers"`
}

// PrescriptionConfig 输出配置
type PrescriptionConfig struct {
	IndexURL string `yaml:"index_url"`
	Output   string `yaml:"output"`
}

// ServerConfig 状态服务配置
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		DB: DBConfig{
			Driver:  "postgres",
			Port:    5432,
			SSLMode: "disable",
		},
		GitHub: GitHubConfig{
			BaseURL:   "https://github.com",
			UserAgent: "thoth-prescriptions-gh-release-notes",
			Timeout:   30,
			Retries:   3,
			Backoff:   "2s",
		},
		Concurrency: ConcurrencyConfig{
			QPS:     5,
			RPM:     300,
			Workers: 8,
		},
		Prescription: PrescriptionConfig{
			IndexURL: "https://pypi.org/simple",
			Output:   "-",
		},
		Server: ServerConfig{
			Addr:    "0.0.0.0:8080",
			Timeout: "5s",
		},
	}
}

// LoadConfig 从指定路径加载配置，未出现的字段保留默认值
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error

	switch c.Solver.Provider {
	case "", "dir", "db":
	default:
		errs = append(errs, fmt.Errorf("unknown solver provider: %s", c.Solver.Provider))
	}
	if c.Solver.Provider == "dir" && c.Solver.Dir == "" {
		errs = append(errs, errors.New("solver.dir is required for the dir provider"))
	}
	if c.Solver.Provider == "db" && !c.DB.Enabled() {
		errs = append(errs, errors.New("db is not configured for the db provider"))
	}

	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown db driver: %s", c.DB.Driver))
	}

	if c.GitHub.BaseURL == "" {
		errs = append(errs, errors.New("github.base_url is required"))
	}
	if c.GitHub.Retries < 0 {
		errs = append(errs, errors.New("github.retries must not be negative"))
	}
	if c.Concurrency.RPM <= 0 || c.Concurrency.QPS <= 0 {
		errs = append(errs, errors.New("concurrency.rpm and concurrency.qps must be positive"))
	}
	if c.Concurrency.Workers <= 0 {
		errs = append(errs, errors.New("concurrency.workers must be positive"))
	}
	if c.Prescription.IndexURL == "" {
		errs = append(errs, errors.New("prescription.index_url is required"))
	}

	return errors.Join(errs...)
}
