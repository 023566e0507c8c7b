package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/gh_release_notes/internal/config"
	"github.com/iWorld-y/gh_release_notes/internal/github"
	"github.com/iWorld-y/gh_release_notes/internal/logger"
	"github.com/iWorld-y/gh_release_notes/internal/prescription"
	"github.com/iWorld-y/gh_release_notes/internal/solver"
	"github.com/iWorld-y/gh_release_notes/internal/storage"
)

// Recorder 保存运行记录，*storage.Storage 实现了该接口
type Recorder interface {
	CreateRun(ctx context.Context, w solver.Window) (string, error)
	SaveReleaseNotes(ctx context.Context, runID string, notes []prescription.ReleaseNote) error
	FinishRun(ctx context.Context, runID string, res storage.RunResult) error
}

// Engine 核心处理引擎
type Engine struct {
	source   solver.Source
	prober   github.Prober
	recorder Recorder
	workers  int
	indexURL string
}

// NewEngine 创建引擎实例，recorder 可以为 nil
func NewEngine(cfg *config.Config, source solver.Source, prober github.Prober, recorder Recorder) *Engine {
	workers := cfg.Concurrency.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		source:   source,
		prober:   prober,
		recorder: recorder,
		workers:  workers,
		indexURL: cfg.Prescription.IndexURL,
	}
}

// RunOptions 运行选项
type RunOptions struct {
	Window solver.Window
}

// Stats 本次运行的统计
type Stats struct {
	Documents  int
	Skipped    int
	Duplicates int
	Candidates int
	Found      int
}

// Result 运行结果
type Result struct {
	Prescription *prescription.Prescription
	Stats        Stats
	RunID        string
}

// candidate 待探测的包版本
type candidate struct {
	documentID string
	name       string
	version    string
	urls       []string
}

// Run 执行一次 prescription 生成任务
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	logger.Log.Infof("开始聚合 solver 结果，日期范围: %s", opts.Window)
	started := time.Now()

	var runID string
	if e.recorder != nil {
		rid, err := e.recorder.CreateRun(ctx, opts.Window)
		if err != nil {
			logger.Log.Errorf("无法创建运行记录: %v", err)
		} else {
			runID = rid
		}
	}

	res, err := e.run(ctx, opts)
	if err != nil {
		e.finish(ctx, runID, storage.RunResult{Status: storage.RunFailed, Err: err}, nil)
		return nil, err
	}
	res.RunID = runID

	e.finish(ctx, runID, storage.RunResult{
		Status:    storage.RunSucceeded,
		Documents: res.Stats.Documents,
		Entries:   res.Stats.Found,
	}, res.Prescription.Run.ReleaseNotes)

	logger.Log.Infof("聚合完成: 文档 %d, 跳过 %d, 重复 %d, 候选 %d, 找到发布说明 %d, 耗时 %v",
		res.Stats.Documents, res.Stats.Skipped, res.Stats.Duplicates,
		res.Stats.Candidates, res.Stats.Found, time.Since(started).Round(time.Millisecond))
	return res, nil
}

func (e *Engine) run(ctx context.Context, opts RunOptions) (*Result, error) {
	var stats Stats

	// 1. 遍历 solver 结果
	candidates, err := e.collect(ctx, opts.Window, &stats)
	if err != nil {
		return nil, err
	}
	stats.Candidates = len(candidates)

	// 2. 并发探测发布页，结果按文档顺序写回
	found := make([]*prescription.ReleaseNote, len(candidates))
	var probed atomic.Int64

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i, c := range candidates {
		eg.Go(func() error {
			note, err := e.probe(egCtx, c)
			if err != nil {
				return err
			}
			found[i] = note
			if n := probed.Add(1); n%100 == 0 {
				logger.Log.Infof("已探测 %d/%d 个包", n, len(candidates))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	notes := make([]prescription.ReleaseNote, 0, len(candidates))
	for _, note := range found {
		if note != nil {
			notes = append(notes, *note)
		}
	}
	stats.Found = len(notes)

	return &Result{
		Prescription: prescription.New(notes),
		Stats:        stats,
	}, nil
}

func (e *Engine) collect(ctx context.Context, w solver.Window, stats *Stats) ([]candidate, error) {
	var candidates []candidate
	seen := make(map[string]struct{})

	err := e.source.Iterate(ctx, w, func(doc *solver.Document) error {
		stats.Documents++

		md, ok := doc.PackageMetadata()
		if !ok {
			stats.Skipped++
			return nil
		}
		logger.Log.Debugf("处理 solver 文档 [%s]", doc.ID())

		if md.Version == "" || md.Name == "" {
			stats.Skipped++
			return nil
		}

		key := prescription.Canonicalize(md.Name) + "==" + md.Version
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			return nil
		}
		seen[key] = struct{}{}

		candidates = append(candidates, candidate{
			documentID: doc.ID(),
			name:       md.Name,
			version:    md.Version,
			urls:       md.URLCandidates(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate solver results: %w", err)
	}

	return candidates, nil
}

// probe 按顺序尝试候选 URL，第一个存在发布页的仓库胜出
func (e *Engine) probe(ctx context.Context, c candidate) (*prescription.ReleaseNote, error) {
	tried := make(map[string]struct{})

	for _, u := range c.urls {
		if !github.IsGitHubURL(u) {
			logger.Log.Debugf("跳过非 GitHub 仓库链接 [%s]: %s", c.name, u)
			continue
		}

		org, repo, ok := github.ParseRepoURL(u)
		if !ok {
			logger.Log.Warnf("无法从链接解析 GitHub 组织和仓库 [%s]: %s", c.name, u)
			continue
		}

		key := strings.ToLower(org + "/" + repo)
		if _, dup := tried[key]; dup {
			continue
		}
		tried[key] = struct{}{}

		release, ok, err := e.prober.Resolve(ctx, org, repo, c.version)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Log.Warnf("探测发布页失败 [%s %s, 文档 %s] %s/%s: %v", c.name, c.version, c.documentID, org, repo, err)
			continue
		}
		if !ok {
			continue
		}

		logger.Log.Infof("找到 GitHub 发布说明: %s", release.URL)
		note := prescription.NewReleaseNote(org, repo, c.name, c.version, e.indexURL, release.VPrefix)
		return &note, nil
	}

	return nil, nil
}

// finish 写回运行结果，记录失败只打日志
func (e *Engine) finish(ctx context.Context, runID string, res storage.RunResult, notes []prescription.ReleaseNote) {
	if e.recorder == nil || runID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if res.Status == storage.RunSucceeded {
		if err := e.recorder.SaveReleaseNotes(ctx, runID, notes); err != nil {
			logger.Log.Errorf("保存发布说明失败 [%s]: %v", runID, err)
			res.Status = storage.RunFailed
			res.Err = err
		}
	}
	if err := e.recorder.FinishRun(ctx, runID, res); err != nil {
		logger.Log.Errorf("更新运行记录失败 [%s]: %v", runID, err)
	}
}
