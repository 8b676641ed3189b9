// Package asset parses glTF/GLB models into scene nodes.
package asset

import (
	"errors"
	"fmt"

	"github.com/woozymasta/geoanchor/internal/animation"
	"github.com/woozymasta/geoanchor/internal/scene"
)

// Parse error categories.
const (
	CategoryGLTF = "gltf"
	CategoryIO   = "io"
)

// ErrEmptyScene is returned when a document has no nodes to place.
var ErrEmptyScene = errors.New("scene has no nodes")

// ParseError describes a failed asset load.
type ParseError struct {
	Name     string
	Category string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one load attempt. Either Err is set, or Scene
// holds the parsed root whose children are the model's top level nodes.
type Result struct {
	Name       string
	Scene      *scene.Node
	Animations []animation.Clip
	Textures   []*scene.Texture

	// Warnings lists non fatal problems, such as textures that failed to decode.
	Warnings []string
	Err      error
}

// OK reports whether the load succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Scene != nil
}

func failed(name, category string, err error) Result {
	return Result{Name: name, Err: &ParseError{Name: name, Category: category, Err: err}}
}
