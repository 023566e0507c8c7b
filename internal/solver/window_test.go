package solver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDate("2021-05-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 5, 7, 0, 0, 0, 0, time.UTC), *d)

	_, err = ParseDate("07/05/2021")
	assert.Error(t, err)
}

func TestNewWindow(t *testing.T) {
	_, err := NewWindow("2021-05-07", "2021-05-01")
	assert.Error(t, err)

	_, err = NewWindow("bogus", "")
	assert.Error(t, err)

	w, err := NewWindow("", "")
	require.NoError(t, err)
	assert.True(t, w.Unbounded())
	assert.Equal(t, "-..-", w.String())
}

func TestWindowContains(t *testing.T) {
	w, err := NewWindow("2021-05-01", "2021-05-07")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before start", time.Date(2021, 4, 30, 23, 59, 59, 0, time.UTC), false},
		{"at start", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"middle", time.Date(2021, 5, 3, 12, 0, 0, 0, time.UTC), true},
		{"end date is inclusive", time.Date(2021, 5, 7, 23, 59, 59, 0, time.UTC), true},
		{"day after end", time.Date(2021, 5, 8, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.at))
		})
	}
}

func TestWindowIncludesUndatedDocument(t *testing.T) {
	doc := &Document{}

	assert.True(t, Window{}.Includes(doc))

	w, err := NewWindow("2021-05-01", "")
	require.NoError(t, err)
	assert.False(t, w.Includes(doc))
}
