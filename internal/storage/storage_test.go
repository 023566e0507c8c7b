package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/gh_release_notes/internal/config"
	"github.com/iWorld-y/gh_release_notes/internal/prescription"
	"github.com/iWorld-y/gh_release_notes/internal/solver"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(config.DBConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func solverDoc(id, name string) []byte {
	return []byte(fmt.Sprintf(`{"metadata": {"document_id": %q},
		"result": {"tree": [{"importlib_metadata": {"metadata": {"Name": %q, "Version": "1.0"}}}]}}`, id, name))
}

func at(day int) *time.Time {
	t := time.Date(2021, 5, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func TestNewStorageUnknownDriver(t *testing.T) {
	_, err := NewStorage(config.DBConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestSolverResults(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSolverResult(ctx, "doc-3", at(9), solverDoc("doc-3", "c")))
	require.NoError(t, s.SaveSolverResult(ctx, "doc-1", at(1), solverDoc("doc-1", "a")))
	require.NoError(t, s.SaveSolverResult(ctx, "doc-2", at(2), solverDoc("", "b")))
	require.NoError(t, s.SaveSolverResult(ctx, "doc-4", nil, solverDoc("doc-4", "d")))
	// 覆盖写入
	require.NoError(t, s.SaveSolverResult(ctx, "doc-1", at(1), solverDoc("doc-1", "a2")))

	collect := func(w solver.Window) ([]string, []string) {
		var ids, names []string
		err := s.Iterate(ctx, w, func(doc *solver.Document) error {
			md, ok := doc.PackageMetadata()
			require.True(t, ok)
			ids = append(ids, doc.ID())
			names = append(names, md.Name)
			return nil
		})
		require.NoError(t, err)
		return ids, names
	}

	w, err := solver.NewWindow("2021-05-01", "2021-05-02")
	require.NoError(t, err)
	ids, names := collect(w)
	assert.Equal(t, []string{"doc-1", "doc-2"}, ids, "end date is inclusive and missing ids fall back to the row id")
	assert.Equal(t, []string{"a2", "b"}, names)

	ids, _ = collect(solver.Window{})
	assert.Len(t, ids, 4)

	w, err = solver.NewWindow("2021-05-05", "")
	require.NoError(t, err)
	ids, _ = collect(w)
	assert.Equal(t, []string{"doc-3"}, ids)
}

func TestSolverResultsStopOnError(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSolverResult(ctx, "doc-1", at(1), solverDoc("doc-1", "a")))
	require.NoError(t, s.SaveSolverResult(ctx, "doc-2", at(2), solverDoc("doc-2", "b")))

	stop := errors.New("stop")
	err := s.Iterate(ctx, solver.Window{}, func(*solver.Document) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestRuns(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	w, err := solver.NewWindow("2021-05-01", "2021-05-07")
	require.NoError(t, err)

	runID, err := s.CreateRun(ctx, w)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)
	assert.Equal(t, "2021-05-01", run.StartDate)
	assert.Equal(t, "2021-05-07", run.EndDate)
	assert.Nil(t, run.FinishedAt)

	notes := []prescription.ReleaseNote{
		prescription.NewReleaseNote("psf", "requests", "requests", "2.25.1", "", false),
		prescription.NewReleaseNote("pallets", "flask", "Flask", "1.1.2", "", true),
	}
	require.NoError(t, s.SaveReleaseNotes(ctx, runID, notes))
	require.NoError(t, s.FinishRun(ctx, runID, RunResult{Status: RunSucceeded, Documents: 10, Entries: 2}))

	run, err = s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, run.Status)
	assert.Equal(t, 10, run.Documents)
	assert.Equal(t, 2, run.Entries)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, notes, run.ReleaseNotes)

	other, err := s.CreateRun(ctx, solver.Window{})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, other, RunResult{Status: RunFailed, Err: errors.New("boom\x00")}))

	runs, err := s.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{runID, other}, ids)

	failed, err := s.GetRun(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "boom", failed.Error)
	assert.Empty(t, failed.StartDate)

	runs, err = s.ListRuns(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunNotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = s.FinishRun(ctx, "missing", RunResult{Status: RunSucceeded})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "abc", sanitize("a\x00bc"))
	assert.Equal(t, "ab", sanitize("a\xffb"))
	assert.Equal(t, "中文", sanitize("中文"))
}

func TestRebind(t *testing.T) {
	pg := &Storage{driver: "postgres"}
	lite := &Storage{driver: "sqlite"}
	q := "SELECT * FROM runs WHERE id = $1 AND status = $2"
	assert.Equal(t, q, pg.rebind(q))
	assert.Equal(t, "SELECT * FROM runs WHERE id = ? AND status = ?", lite.rebind(q))
}
