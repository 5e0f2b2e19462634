package document

import "math"

// Point is a location in document coordinates.
type Point struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

// Size is a width and height.
type Size struct {
	Width  float64 `bson:"width" json:"width"`
	Height float64 `bson:"height" json:"height"`
}

// Rect is an axis-aligned rectangle. A negative size is normalized by the
// Min/Max accessors.
type Rect struct {
	Origin Point `bson:"origin" json:"origin"`
	Size   Size  `bson:"size" json:"size"`
}

// RectOf returns the rectangle at (x, y) with the given width and height.
func RectOf(x, y, width, height float64) Rect {
	return Rect{Origin: Point{X: x, Y: y}, Size: Size{Width: width, Height: height}}
}

func (r Rect) MinX() float64 { return math.Min(r.Origin.X, r.Origin.X+r.Size.Width) }
func (r Rect) MaxX() float64 { return math.Max(r.Origin.X, r.Origin.X+r.Size.Width) }
func (r Rect) MinY() float64 { return math.Min(r.Origin.Y, r.Origin.Y+r.Size.Height) }
func (r Rect) MaxY() float64 { return math.Max(r.Origin.Y, r.Origin.Y+r.Size.Height) }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: (r.MinX() + r.MaxX()) / 2, Y: (r.MinY() + r.MaxY()) / 2}
}

// Contains reports whether p lies inside r. The max edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX() && p.X < r.MaxX() && p.Y >= r.MinY() && p.Y < r.MaxY()
}

// Offset returns r moved by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	r.Origin.X += dx
	r.Origin.Y += dy
	return r
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	minX, minY := math.Min(r.MinX(), o.MinX()), math.Min(r.MinY(), o.MinY())
	maxX, maxY := math.Max(r.MaxX(), o.MaxX()), math.Max(r.MaxY(), o.MaxY())
	return RectOf(minX, minY, maxX-minX, maxY-minY)
}

// Handles returns the four 9x9 corner handles of r used for selection.
func (r Rect) Handles() [4]Rect {
	corners := [4]Point{
		{X: r.MinX(), Y: r.MinY()},
		{X: r.MaxX(), Y: r.MinY()},
		{X: r.MinX(), Y: r.MaxY()},
		{X: r.MaxX(), Y: r.MaxY()},
	}
	var out [4]Rect
	for i, c := range corners {
		out[i] = RectOf(c.X-4, c.Y-4, 9, 9)
	}
	return out
}
