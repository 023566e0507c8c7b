package server

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/gh_release_notes/internal/config"
	"github.com/iWorld-y/gh_release_notes/internal/prescription"
	"github.com/iWorld-y/gh_release_notes/internal/storage"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// RunRepo 运行记录仓库接口
type RunRepo interface {
	// ListRuns 分页获取运行记录
	ListRuns(ctx context.Context, limit, offset int) ([]*storage.Run, error)
	// GetRun 根据ID获取运行记录及其规则
	GetRun(ctx context.Context, id string) (*storage.Run, error)
}

// NewHTTPServer 创建状态服务
func NewHTTPServer(c config.ServerConfig, repo RunRepo, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)
	h := &handler{repo: repo, log: log.NewHelper(logger)}

	r := srv.Route("/")
	r.GET("/healthz", h.health)
	r.GET("/runs", h.listRuns)
	r.GET("/runs/{id}", h.getRun)
	r.GET("/runs/{id}/prescription", h.getPrescription)

	return srv
}

type handler struct {
	repo RunRepo
	log  *log.Helper
}

func (h *handler) health(ctx http.Context) error {
	return ctx.JSON(200, map[string]string{"status": "ok"})
}

func (h *handler) listRuns(ctx http.Context) error {
	q := ctx.Query()
	limit := atoiDefault(q.Get("limit"), defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := atoiDefault(q.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	runs, err := h.repo.ListRuns(ctx, limit, offset)
	if err != nil {
		h.log.Errorf("list runs: %v", err)
		return kerrors.InternalServer("LIST_RUNS", "failed to list runs")
	}
	return ctx.JSON(200, map[string]any{"runs": runs})
}

func (h *handler) getRun(ctx http.Context) error {
	run, err := h.lookup(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(200, run)
}

func (h *handler) getPrescription(ctx http.Context) error {
	run, err := h.lookup(ctx)
	if err != nil {
		return err
	}
	if run.Status != storage.RunSucceeded {
		return kerrors.Conflict("RUN_NOT_SUCCEEDED", "run has status "+run.Status)
	}

	var buf bytes.Buffer
	if err := prescription.Encode(&buf, prescription.New(run.ReleaseNotes)); err != nil {
		h.log.Errorf("encode prescription %s: %v", run.ID, err)
		return kerrors.InternalServer("ENCODE", "failed to encode prescription")
	}
	return ctx.Blob(200, "application/yaml", buf.Bytes())
}

func (h *handler) lookup(ctx http.Context) (*storage.Run, error) {
	id := ctx.Vars().Get("id")
	run, err := h.repo.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			return nil, kerrors.NotFound("RUN_NOT_FOUND", "run "+id+" not found")
		}
		h.log.Errorf("get run %s: %v", id, err)
		return nil, kerrors.InternalServer("GET_RUN", "failed to get run")
	}
	return run, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
