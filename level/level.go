// Package level builds static walls from room bitmaps.
//
// A room is a PNG where every opaque black pixel is one square wall. Any
// other color is open floor.
package level

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/jakecoffman/arena"
)

// Load reads the room at path. size is the side of one wall.
func Load(path string, size float64) ([]arena.PlacedShape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open level: %w", err)
	}
	defer f.Close()

	return Decode(f, size)
}

func Decode(r io.Reader, size float64) ([]arena.PlacedShape, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode level: %w", err)
	}
	return Walls(img, size), nil
}

// Walls places a wall on every opaque black pixel of img, in row order.
// Pixel (x, y) covers [x*size, (x+1)*size) on both axes.
func Walls(img image.Image, size float64) []arena.PlacedShape {
	var walls []arena.PlacedShape
	shape := arena.NewSquare(size)

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !isWall(img.At(x, y)) {
				continue
			}
			center := arena.Vector{
				X: (float64(x-bounds.Min.X) + 0.5) * size,
				Y: (float64(y-bounds.Min.Y) + 0.5) * size,
			}
			walls = append(walls, shape.Place(center))
		}
	}
	return walls
}

func isWall(c color.Color) bool {
	p := color.NRGBAModel.Convert(c).(color.NRGBA)
	return p.R == 0 && p.G == 0 && p.B == 0 && p.A == 255
}

// Box is a closed rectangular room of w by h walls, used when no level
// file is available.
func Box(w, h int, size float64) []arena.PlacedShape {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	black := color.NRGBA{A: 255}
	for x := 0; x < w; x++ {
		img.SetNRGBA(x, 0, black)
		img.SetNRGBA(x, h-1, black)
	}
	for y := 0; y < h; y++ {
		img.SetNRGBA(0, y, black)
		img.SetNRGBA(w-1, y, black)
	}
	return Walls(img, size)
}

// Register adds walls to world as static bodies with consecutive ids
// starting at firstID, and returns the next free id.
func Register(world *arena.World, walls []arena.PlacedShape, firstID arena.BodyID) (arena.BodyID, error) {
	id := firstID
	for _, wall := range walls {
		if err := world.Register(id, wall, arena.Static{}); err != nil {
			return id, fmt.Errorf("failed to register wall at %v: %w", wall.Pos, err)
		}
		id++
	}
	return id, nil
}
