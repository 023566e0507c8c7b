package solver

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Document solver 结果文档，只解析用到的字段
type Document struct {
	Metadata DocumentMetadata `json:"metadata"`
	Result   Result           `json:"result"`
}

// DocumentMetadata 文档元信息
type DocumentMetadata struct {
	DocumentID string `json:"document_id"`
	Datetime   string `json:"datetime"`
}

// Result solver 解析结果
type Result struct {
	Tree []TreeEntry `json:"tree"`
}

// TreeEntry 依赖树中的单个包
type TreeEntry struct {
	PackageName       string            `json:"package_name"`
	PackageVersion    string            `json:"package_version"`
	ImportlibMetadata ImportlibMetadata `json:"importlib_metadata"`
}

// ImportlibMetadata importlib.metadata 导出的包信息
type ImportlibMetadata struct {
	Metadata Metadata `json:"metadata"`
}

// Metadata 包的核心元数据
type Metadata struct {
	Name       string   `json:"Name"`
	Version    string   `json:"Version"`
	HomePage   string   `json:"Home-page"`
	ProjectURL []string `json:"Project-URL"`
}

var datetimeLayouts = []string{
	"2006-01-02T15:04:05.999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// DecodeDocument 解析一个 solver 文档
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode solver document: %w", err)
	}
	return &doc, nil
}

// ID 文档 ID
func (d *Document) ID() string {
	return d.Metadata.DocumentID
}

// Time 解析文档的生成时间
func (d *Document) Time() (time.Time, bool) {
	s := strings.TrimSpace(d.Metadata.Datetime)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PackageMetadata 取依赖树第一项的元数据。
// solver 对每个包只运行一次，所以第一项就是被解析的包本身。
func (d *Document) PackageMetadata() (*Metadata, bool) {
	if len(d.Result.Tree) == 0 {
		return nil, false
	}
	md := d.Result.Tree[0].ImportlibMetadata.Metadata
	return &md, true
}

// URLCandidates 返回可能指向源码仓库的 URL，Home-page 优先
func (m *Metadata) URLCandidates() []string {
	var urls []string
	if u := strings.TrimSpace(m.HomePage); u != "" {
		urls = append(urls, u)
	}
	for _, entry := range m.ProjectURL {
		// 形如 "Source Code, https://github.com/org/repo"
		u := entry
		if i := strings.LastIndex(entry, ","); i >= 0 {
			u = entry[i+1:]
		}
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
