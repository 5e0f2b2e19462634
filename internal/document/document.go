// Package document holds the drawing objects persisted through a store:
// shapes, the layers that order them and the contents that own the layers.
package document

import (
	"fmt"

	"github.com/roach88/zobject/internal/archive"
)

// Registry tags.
const (
	TagRectangle = "Rectangle"
	TagOval      = "Oval"
	TagCircle    = "Circle"
	TagLayer     = "Layer"
	TagContents  = "Contents"
)

// Register adds the document types to reg.
func Register(reg *archive.Registry) {
	archive.Register(reg, TagRectangle, func() *Rectangle { return &Rectangle{} })
	archive.Register(reg, TagOval, func() *Oval { return &Oval{} })
	archive.Register(reg, TagCircle, func() *Circle { return &Circle{} })
	archive.Register(reg, TagLayer, func() *Layer { return &Layer{} })
	archive.Register(reg, TagContents, func() *Contents { return &Contents{} })
}

// NewRegistry returns a registry holding the built-in archive types and the
// document types.
func NewRegistry() *archive.Registry {
	reg := archive.NewRegistry()
	Register(reg)
	return reg
}

func describe(tag string, r Rect) string {
	return fmt.Sprintf("%s{origin=(%g,%g) size=(%g,%g)}", tag, r.Origin.X, r.Origin.Y, r.Size.Width, r.Size.Height)
}
