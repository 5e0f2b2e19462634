package document

import (
	"context"
	"math"

	"github.com/roach88/zobject/internal/archive"
)

// Shape is a drawable object held by a Layer.
type Shape interface {
	archive.Object
	Bounds() Rect
	HitTest(p Point) bool
	Offset(dx, dy float64)
}

// Rectangle is an axis-aligned rectangle shape.
type Rectangle struct {
	archive.Base
	Origin Point
	Size   Size
}

// NewRectangle creates a rectangle and inserts it into store.
func NewRectangle(ctx context.Context, store archive.Store, origin Point, size Size) (*Rectangle, error) {
	r := &Rectangle{Origin: origin, Size: size}
	if err := store.Insert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rectangle) Bounds() Rect { return Rect{Origin: r.Origin, Size: r.Size} }

func (r *Rectangle) HitTest(p Point) bool { return r.Bounds().Contains(p) }

func (r *Rectangle) Offset(dx, dy float64) {
	r.Origin.X += dx
	r.Origin.Y += dy
}

func (r *Rectangle) String() string { return describe(TagRectangle, r.Bounds()) }

func (r *Rectangle) EncodeArchive(enc *archive.Encoder) error {
	enc.Put("origin", r.Origin)
	enc.Put("size", r.Size)
	return nil
}

func (r *Rectangle) DecodeArchive(dec *archive.Decoder) error {
	dec.Value("origin", &r.Origin)
	dec.Value("size", &r.Size)
	return dec.Err()
}

// Oval is an ellipse inscribed in Rect.
type Oval struct {
	archive.Base
	Rect Rect
}

// NewOval creates an oval and inserts it into store.
func NewOval(ctx context.Context, store archive.Store, rect Rect) (*Oval, error) {
	o := &Oval{Rect: rect}
	if err := store.Insert(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Oval) Bounds() Rect { return o.Rect }

func (o *Oval) Offset(dx, dy float64) { o.Rect = o.Rect.Offset(dx, dy) }

func (o *Oval) String() string { return describe(TagOval, o.Rect) }

// HitTest reports whether p lies inside the ellipse.
func (o *Oval) HitTest(p Point) bool {
	c := o.Rect.Center()
	rx := (o.Rect.MaxX() - o.Rect.MinX()) / 2
	ry := (o.Rect.MaxY() - o.Rect.MinY()) / 2
	if rx == 0 || ry == 0 {
		return false
	}
	dx, dy := (p.X-c.X)/rx, (p.Y-c.Y)/ry
	return dx*dx+dy*dy <= 1
}

func (o *Oval) EncodeArchive(enc *archive.Encoder) error {
	enc.Put("rect", o.Rect)
	return nil
}

func (o *Oval) DecodeArchive(dec *archive.Decoder) error {
	dec.Value("rect", &o.Rect)
	return dec.Err()
}

// Circle is a circle shape.
type Circle struct {
	archive.Base
	Center Point
	Radius float64
}

// NewCircle creates a circle and inserts it into store.
func NewCircle(ctx context.Context, store archive.Store, center Point, radius float64) (*Circle, error) {
	c := &Circle{Center: center, Radius: radius}
	if err := store.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Circle) Bounds() Rect {
	return RectOf(c.Center.X-c.Radius, c.Center.Y-c.Radius, 2*c.Radius, 2*c.Radius)
}

func (c *Circle) HitTest(p Point) bool {
	return math.Hypot(p.X-c.Center.X, p.Y-c.Center.Y) <= c.Radius
}

func (c *Circle) Offset(dx, dy float64) {
	c.Center.X += dx
	c.Center.Y += dy
}

func (c *Circle) String() string { return describe(TagCircle, c.Bounds()) }

func (c *Circle) EncodeArchive(enc *archive.Encoder) error {
	enc.Put("center", c.Center)
	enc.Put("radius", c.Radius)
	return nil
}

func (c *Circle) DecodeArchive(dec *archive.Decoder) error {
	dec.Value("center", &c.Center)
	c.Radius = dec.Float("radius")
	return dec.Err()
}
