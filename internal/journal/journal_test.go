package journal

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndFormat(t *testing.T) {
	var buf bytes.Buffer
	j := New(zerolog.New(&buf))
	j.now = func() time.Time { return time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC) }

	var seen []Entry
	j.Subscribe(func(e Entry) { seen = append(seen, e) })

	j.Info("Simulation started.")
	j.Warn("No configuration selected for deletion.")
	j.Error("cannot reach simulator")

	entries := j.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "[14:03:09] [INFO] Simulation started.", entries[0].Format())
	assert.Equal(t, "[14:03:09] [WARN] No configuration selected for deletion.", entries[1].Format())
	assert.Equal(t, "[14:03:09] [ERROR] cannot reach simulator", entries[2].Format())
	assert.Equal(t, entries, seen)
	assert.Contains(t, buf.String(), `"level":"error"`)

	last, ok := j.Last()
	require.True(t, ok)
	assert.Equal(t, Error, last.Level)
}

func TestLimit(t *testing.T) {
	j := New(zerolog.Nop())
	j.limit = 3
	for i := 0; i < 5; i++ {
		j.Info(fmt.Sprintf("line %d", i))
	}
	entries := j.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "line 2", entries[0].Message)
	assert.Equal(t, "line 4", entries[2].Message)
}

func TestLastEmpty(t *testing.T) {
	_, ok := New(zerolog.Nop()).Last()
	assert.False(t, ok)
}

func TestSubscriberMayAppend(t *testing.T) {
	j := New(zerolog.Nop())
	j.Subscribe(func(e Entry) {
		if e.Level == Error {
			j.Info("recovering")
		}
	})
	j.Error("boom")
	entries := j.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "recovering", entries[1].Message)
}
