package logger

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2021, 5, 7, 10, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "hello",
		Data:    logrus.Fields{"run": "r1", "doc": "d1"},
		Caller:  &runtime.Frame{File: "/src/engine/engine.go", Line: 42},
	}
	entry.Logger.SetReportCaller(true)

	out, err := (&CustomFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2021-05-07 10:30:00] [WARN] [engine.go:42] hello doc=d1 run=r1\n", string(out))
}

func TestInitLogger(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "logs", "job.log")
	require.NoError(t, InitLogger("not-a-level", path))
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())

	Log.Info("written to file")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "written to file"))

	require.NoError(t, InitLogger("debug", ""))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
}
