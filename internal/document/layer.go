package document

import (
	"context"
	"slices"

	"github.com/roach88/zobject/internal/archive"
)

// Layer holds shapes in drawing order, bottom first.
type Layer struct {
	archive.Base
	Shapes []Shape
	Hidden bool
}

// NewLayer creates a layer holding shapes and inserts it into store.
func NewLayer(ctx context.Context, store archive.Store, shapes ...Shape) (*Layer, error) {
	l := &Layer{Shapes: shapes}
	if err := store.Insert(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Add appends shapes on top of the layer.
func (l *Layer) Add(shapes ...Shape) {
	l.Shapes = append(l.Shapes, shapes...)
}

// HitTest returns the topmost shape containing p, or nil. Hidden layers
// never hit.
func (l *Layer) HitTest(p Point) Shape {
	if l.Hidden {
		return nil
	}
	for i := len(l.Shapes) - 1; i >= 0; i-- {
		if l.Shapes[i].HitTest(p) {
			return l.Shapes[i]
		}
	}
	return nil
}

// Trash removes the given shape instances from the layer.
func (l *Layer) Trash(shapes ...Shape) {
	l.Shapes = slices.DeleteFunc(l.Shapes, func(s Shape) bool {
		return slices.Contains(shapes, s)
	})
}

// Bounds returns the union of the shapes' bounds.
func (l *Layer) Bounds() (Rect, bool) {
	if len(l.Shapes) == 0 {
		return Rect{}, false
	}
	r := l.Shapes[0].Bounds()
	for _, s := range l.Shapes[1:] {
		r = r.Union(s.Bounds())
	}
	return r, true
}

func (l *Layer) EncodeArchive(enc *archive.Encoder) error {
	archive.PutList(enc, "shapes", l.Shapes)
	enc.Put("hidden", l.Hidden)
	return nil
}

func (l *Layer) DecodeArchive(dec *archive.Decoder) error {
	l.Shapes = archive.DecodeList[Shape](dec, "shapes")
	l.Hidden = dec.Bool("hidden")
	return dec.Err()
}

// Contents is the root object of a document.
// It always holds at least one layer.
type Contents struct {
	archive.Base
	Layers []*Layer
}

// NewContents creates document contents and inserts it into store. With no
// layers, an empty layer is created first.
func NewContents(ctx context.Context, store archive.Store, layers ...*Layer) (*Contents, error) {
	if len(layers) == 0 {
		l, err := NewLayer(ctx, store)
		if err != nil {
			return nil, err
		}
		layers = []*Layer{l}
	}
	c := &Contents{Layers: layers}
	if err := store.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Shapes returns every shape of every layer, bottom layer first.
func (c *Contents) Shapes() []Shape {
	var out []Shape
	for _, l := range c.Layers {
		out = append(out, l.Shapes...)
	}
	return out
}

// HitTest returns the topmost visible shape containing p, or nil.
func (c *Contents) HitTest(p Point) Shape {
	for i := len(c.Layers) - 1; i >= 0; i-- {
		if s := c.Layers[i].HitTest(p); s != nil {
			return s
		}
	}
	return nil
}

func (c *Contents) EncodeArchive(enc *archive.Encoder) error {
	archive.PutList(enc, "layers", c.Layers)
	return nil
}

// DecodeArchive restores the layers. Stored contents without layers get a
// new empty layer. It is inserted into the decoding store, and the contents
// saved, only after the whole decode has succeeded.
func (c *Contents) DecodeArchive(dec *archive.Decoder) error {
	c.Layers = archive.DecodeList[*Layer](dec, "layers")
	if err := dec.Err(); err != nil {
		return err
	}
	if len(c.Layers) == 0 && dec.Store() != nil {
		l := &Layer{}
		c.Layers = []*Layer{l}
		st := dec.Store()
		dec.AfterDecode(func(ctx context.Context) error {
			if err := st.Insert(ctx, l); err != nil {
				return err
			}
			return st.Save(ctx, c)
		})
	}
	return nil
}
