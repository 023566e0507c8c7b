package prescription

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Name 生成的 wrap 单元名称
	Name = "PyPIGitHubReleaseNotesWrap"
	// Type adviser 中对应的单元类型
	Type = "wrap.GitHubReleaseNotes"
	// DefaultIndexURL 默认的 Python 包索引
	DefaultIndexURL = "https://pypi.org/simple"
	// VersionPrefix GitHub tag 的版本前缀
	VersionPrefix = "v"
)

// 字段按字母顺序排列，输出与按 key 排序的 YAML 一致

// Prescription 发布说明 wrap 单元
type Prescription struct {
	Name          string        `yaml:"name"`
	Run           Run           `yaml:"run"`
	ShouldInclude ShouldInclude `yaml:"should_include"`
	Type          string        `yaml:"type"`
}

// Run 单元的运行参数
type Run struct {
	ReleaseNotes []ReleaseNote `yaml:"release_notes"`
}

// ShouldInclude 单元的启用条件
type ShouldInclude struct {
	AdviserPipeline bool `yaml:"adviser_pipeline"`
}

// ReleaseNote 一个包版本到 GitHub 发布页的链接规则
type ReleaseNote struct {
	Organization     string         `yaml:"organization" json:"organization"`
	PackageVersion   PackageVersion `yaml:"package_version" json:"package_version"`
	Repository       string         `yaml:"repository" json:"repository"`
	TagVersionPrefix string         `yaml:"tag_version_prefix,omitempty" json:"tag_version_prefix,omitempty"`
}

// PackageVersion 锁定的包版本
type PackageVersion struct {
	IndexURL string `yaml:"index_url" json:"index_url"`
	Name     string `yaml:"name" json:"name"`
	Version  string `yaml:"version" json:"version"`
}

var separatorRe = regexp.MustCompile(`[-_.]+`)

// Canonicalize 按 PEP 503 规范化包名
func Canonicalize(name string) string {
	return strings.ToLower(separatorRe.ReplaceAllString(name, "-"))
}

// NewReleaseNote 创建一条发布说明规则
func NewReleaseNote(org, repo, name, version, indexURL string, vPrefix bool) ReleaseNote {
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	note := ReleaseNote{
		Organization: org,
		Repository:   repo,
		PackageVersion: PackageVersion{
			Name:     Canonicalize(name),
			Version:  "===" + version,
			IndexURL: indexURL,
		},
	}
	if vPrefix {
		note.TagVersionPrefix = VersionPrefix
	}
	return note
}

// New 由发布说明规则组装 prescription
func New(notes []ReleaseNote) *Prescription {
	if notes == nil {
		notes = []ReleaseNote{}
	}
	return &Prescription{
		Name:          Name,
		Type:          Type,
		ShouldInclude: ShouldInclude{AdviserPipeline: true},
		Run:           Run{ReleaseNotes: notes},
	}
}

// Encode 以 YAML 写出 prescription
func Encode(w io.Writer, p *Prescription) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode prescription: %w", err)
	}
	return enc.Close()
}

// Write 写到文件，path 为空或 "-" 时写到 stdout
func Write(path string, p *Prescription) error {
	if path == "" || path == "-" {
		return Encode(os.Stdout, p)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := Encode(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
