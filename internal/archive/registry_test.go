package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_NewAndTags(t *testing.T) {
	reg := testRegistry()

	obj, err := reg.New("pin")
	require.NoError(t, err)
	_, ok := obj.(*pin)
	assert.True(t, ok)

	tag, err := reg.TagOf(&board{})
	require.NoError(t, err)
	assert.Equal(t, "board", tag)

	tag, err = TagFor[*pin](reg)
	require.NoError(t, err)
	assert.Equal(t, "pin", tag)

	assert.Equal(t, []string{"Dictionary", "board", "broken", "noted", "pin"}, reg.Tags())

	_, err = reg.New("missing")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRegistry_NewReturnsDistinctInstances(t *testing.T) {
	reg := testRegistry()
	a, err := reg.New("pin")
	require.NoError(t, err)
	b, err := reg.New("pin")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	reg := testRegistry()
	assert.Panics(t, func() {
		Register(reg, "pin", func() *board { return &board{} })
	}, "duplicate tag")
	assert.Panics(t, func() {
		Register(reg, "pin2", func() *pin { return &pin{} })
	}, "duplicate type")
	assert.Panics(t, func() {
		Register(reg, "", func() *broken { return &broken{} })
	}, "empty tag")
}

func TestRegistry_UnknownType(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.TagOf(&pin{})
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = TagFor[*board](reg)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestReferences(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(testRegistry())

	p1, p2, unsaved := &pin{}, &pin{}, &pin{}
	require.NoError(t, s.Insert(ctx, p1))
	require.NoError(t, s.Insert(ctx, p2))

	refs := NewReferences(p1, unsaved, nil)
	assert.Equal(t, 1, refs.Len())
	assert.Equal(t, []ID{p1.ID()}, refs.IDs())

	more := refs.Append(p2)
	assert.Equal(t, 1, refs.Len(), "Append does not modify the receiver")
	assert.Equal(t, []ID{p1.ID(), p2.ID()}, more.IDs())
	assert.True(t, more.Contains(p2.ID()))
	assert.False(t, more.Contains(99))

	ids := more.IDs()
	ids[0] = 42
	assert.Equal(t, p1.ID(), more.IDs()[0], "IDs returns a copy")

	assert.Equal(t, []ID{5, 3}, ReferencesFromIDs[*pin](5, 3).IDs())
}

func TestReferences_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(testRegistry())

	p1, p2 := &pin{Label: "a"}, &pin{Label: "b"}
	require.NoError(t, s.Insert(ctx, p1))
	require.NoError(t, s.Insert(ctx, p2))

	b := &board{Title: "refs", Refs: NewReferences(p2, p1)}
	require.NoError(t, s.Insert(ctx, b))

	s.forgetAll()
	obj, err := s.load(ctx, b.ID())
	require.NoError(t, err)
	got := obj.(*board)
	assert.Equal(t, []ID{p2.ID(), p1.ID()}, got.Refs.IDs())
	assert.Len(t, s.cache, 1, "references do not load their targets")
}

func TestDictionary(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(testRegistry())

	d, err := CreateDictionary(ctx, s)
	require.NoError(t, err)
	d.Set("name", "sheet")
	d.Set("width", 640)
	d.Set("scale", 1.5)
	d.Set("visible", true)
	d.Set("gone", "x")
	d.Delete("gone")
	require.NoError(t, s.Save(ctx, d))

	assert.Equal(t, 4, d.Len())
	assert.Equal(t, []string{"name", "scale", "visible", "width"}, d.Keys())

	s.forgetAll()
	obj, err := s.load(ctx, d.ID())
	require.NoError(t, err)
	got, ok := obj.(*Dictionary)
	require.True(t, ok)

	assert.Equal(t, d.Keys(), got.Keys())
	for _, k := range d.Keys() {
		want, _ := d.Get(k)
		v, ok := got.Get(k)
		require.True(t, ok, k)
		assert.Equal(t, want, v, k)
	}
	_, ok = got.Get("gone")
	assert.False(t, ok)
}

func TestDictionary_ZeroValue(t *testing.T) {
	ctx := context.Background()
	var d Dictionary
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.Keys())
	_, ok := d.Get("missing")
	assert.False(t, ok)
	d.Delete("missing")

	d.Set("pages", 3)
	v, ok := d.Get("pages")
	require.True(t, ok)
	assert.Equal(t, int64(3), v)

	s := newMemStore(testRegistry())
	empty := &Dictionary{}
	require.NoError(t, s.Insert(ctx, empty))
	s.forgetAll()
	obj, err := s.load(ctx, empty.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, obj.(*Dictionary).Len())
}
