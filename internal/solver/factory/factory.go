package factory

import (
	"fmt"

	"github.com/iWorld-y/gh_release_notes/internal/config"
	"github.com/iWorld-y/gh_release_notes/internal/solver"
	"github.com/iWorld-y/gh_release_notes/internal/storage"
)

// NewSource 根据配置创建 solver 结果来源，store 可以为 nil
func NewSource(cfg config.SolverConfig, store *storage.Storage) (solver.Source, error) {
	provider := cfg.Provider
	if provider == "" {
		// 默认回退逻辑：优先本地目录，其次数据库
		switch {
		case cfg.Dir != "":
			provider = "dir"
		case store != nil:
			provider = "db"
		default:
			return nil, solver.ErrNoSource
		}
	}

	switch provider {
	case "dir":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("solver dir is missing")
		}
		return solver.NewDirSource(cfg.Dir), nil

	case "db":
		if store == nil {
			return nil, fmt.Errorf("solver provider db requires a database connection")
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown solver provider: %s", provider)
	}
}
