package solver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iWorld-y/gh_release_notes/internal/logger"
)

// ErrNoSource 没有可用的 solver 结果来源
var ErrNoSource = errors.New("solver source not configured")

// Source 定义通用的 solver 结果来源
type Source interface {
	// Iterate 按顺序遍历窗口内的文档，fn 返回错误时停止
	Iterate(ctx context.Context, w Window, fn func(*Document) error) error
}

// DirSource 从本地目录读取 solver 文档
type DirSource struct {
	root string
}

var _ Source = (*DirSource)(nil)

// NewDirSource 创建目录来源
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Iterate 遍历目录下窗口内的文档，按路径排序
func (s *DirSource) Iterate(ctx context.Context, w Window, fn func(*Document) error) error {
	return s.Walk(ctx, func(doc *Document, _ []byte) error {
		if !w.Includes(doc) {
			return nil
		}
		return fn(doc)
	})
}

// Walk 遍历目录下的所有文档，fn 同时拿到文件原始内容
func (s *DirSource) Walk(ctx context.Context, fn func(doc *Document, raw []byte) error) error {
	paths, err := s.list()
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read solver document %s: %w", path, err)
		}

		doc, err := DecodeDocument(data)
		if err != nil {
			logger.Log.Warnf("跳过无法解析的文档 [%s]: %v", path, err)
			continue
		}
		if doc.Metadata.DocumentID == "" {
			doc.Metadata.DocumentID = s.relID(path)
		}

		if err := fn(doc, data); err != nil {
			return err
		}
	}

	return nil
}

// relID 没有 document_id 的文档使用相对根目录的路径作为 ID
func (s *DirSource) relID(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func (s *DirSource) list() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != s.root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list solver documents in %s: %w", s.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
