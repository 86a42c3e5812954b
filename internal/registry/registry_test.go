package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsim-ctl/internal/simclient"
)

func profiles(ids ...string) []simclient.ConfigProfile {
	out := make([]simclient.ConfigProfile, 0, len(ids))
	for _, id := range ids {
		out = append(out, simclient.ConfigProfile{ID: id, Note: "note-" + id})
	}
	return out
}

func TestReplaceKeepsExistingSelection(t *testing.T) {
	r := New()
	r.Replace(profiles("1", "2"))
	require.NoError(t, r.Select("2"))

	v := r.Replace(profiles("2", "3"))
	assert.Equal(t, "2", v.Selected)

	p, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, "note-2", p.Note)
}

func TestReplaceDropsVanishedSelection(t *testing.T) {
	r := New()
	r.Replace(profiles("1", "2"))
	require.NoError(t, r.Select("1"))

	v := r.Replace(profiles("2"))
	assert.Empty(t, v.Selected)
	_, ok := r.Selected()
	assert.False(t, ok)
}

func TestSelectUnknown(t *testing.T) {
	r := New()
	r.Replace(profiles("1"))
	require.Error(t, r.Select("9"))
	assert.Empty(t, r.View().Selected)
}

func TestClearAndEmpty(t *testing.T) {
	r := New()
	assert.True(t, r.View().Empty())
	r.Replace(profiles("1"))
	require.NoError(t, r.Select("1"))
	r.Clear()
	assert.Empty(t, r.View().Selected)
	assert.False(t, r.View().Empty())
}

func TestViewIsDetachedFromInput(t *testing.T) {
	r := New()
	in := profiles("1")
	r.Replace(in)
	in[0].Note = "changed"
	assert.Equal(t, "note-1", r.View().Profiles[0].Note)
}

func TestSubscribe(t *testing.T) {
	r := New()
	var got []View
	r.Subscribe(func(v View) { got = append(got, v) })
	r.Replace(profiles("1"))
	require.NoError(t, r.Select("1"))
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[1].Selected)
}

func TestSubscribeFromCallback(t *testing.T) {
	r := New()
	late := 0
	r.Subscribe(func(View) {
		if late == 0 {
			r.Subscribe(func(View) { late++ })
		}
	})
	r.Replace(profiles("1"))
	assert.Zero(t, late, "a subscriber added during delivery waits for the next change")
	r.Replace(profiles("1", "2"))
	assert.Equal(t, 1, late)
}
