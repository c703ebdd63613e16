// Core frame data structures shared by the capture and render sides
package core

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"
)

// Frame is one captured image plus the coordinate space it lives in.
//
// Frames are immutable once published: the capture side MUST NOT modify
// Image after handing the frame to a FrameBuffer, and readers MUST NOT
// modify it either. Coordinates follow Go image space (origin top-left,
// y pointing down) and are bounded by Image.Bounds().
type Frame struct {
	Image       image.Image
	Seq         uint64
	Timestamp   time.Time
	Orientation Orientation
}

// NewFrame wraps an image into a frame
func NewFrame(img image.Image, seq uint64, ts time.Time, orientation Orientation) *Frame {
	return &Frame{
		Image:       img,
		Seq:         seq,
		Timestamp:   ts,
		Orientation: orientation,
	}
}

// Bounds returns the frame extent
func (f *Frame) Bounds() image.Rectangle {
	if f == nil || f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// Width returns the frame width in pixels
func (f *Frame) Width() int {
	return f.Bounds().Dx()
}

// Height returns the frame height in pixels
func (f *Frame) Height() int {
	return f.Bounds().Dy()
}

// WithImage returns a copy of the frame metadata carrying a different image
func (f *Frame) WithImage(img image.Image) *Frame {
	return &Frame{
		Image:       img,
		Seq:         f.Seq,
		Timestamp:   f.Timestamp,
		Orientation: f.Orientation,
	}
}

// Point is a position in a frame's coordinate space. Fractional values are valid.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the euclidean distance between two points
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y)
}

// EyePositions holds both eye centers of the primary face. A nil
// *EyePositions means no usable face in the frame.
type EyePositions struct {
	Left  Point
	Right Point
}

// Distance returns the inter-eye distance
func (e EyePositions) Distance() float64 {
	return e.Left.Distance(e.Right)
}

// Orientation is the rotation of the device relative to its natural
// portrait position, in clockwise degrees.
type Orientation int

const (
	Portrait           Orientation = 0
	LandscapeRight     Orientation = 90
	PortraitUpsideDown Orientation = 180
	LandscapeLeft      Orientation = 270
)

var orientationNames = map[Orientation]string{
	Portrait:           "portrait",
	LandscapeRight:     "landscape-right",
	PortraitUpsideDown: "portrait-upside-down",
	LandscapeLeft:      "landscape-left",
}

func (o Orientation) String() string {
	if name, ok := orientationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// Valid reports whether o is one of the four supported orientations
func (o Orientation) Valid() bool {
	_, ok := orientationNames[o]
	return ok
}

// Next returns the orientation one quarter turn clockwise from o
func (o Orientation) Next() Orientation {
	return Orientation((int(o) + 90) % 360)
}

// ParseOrientation parses names such as "portrait" or "landscape-left"
func ParseOrientation(s string) (Orientation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for o, n := range orientationNames {
		if n == name {
			return o, nil
		}
	}
	return Portrait, fmt.Errorf("unknown orientation: %q", s)
}

// Rotation is a number of clockwise quarter turns applied to pixel data
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// RotationBetween returns the clockwise rotation that makes content
// captured while the device was in orientation from appear upright when
// the display is in orientation to.
func RotationBetween(from, to Orientation) Rotation {
	turns := ((int(from)-int(to))%360 + 360) % 360
	return Rotation(turns / 90)
}

// Degrees returns the rotation in clockwise degrees
func (r Rotation) Degrees() int {
	return int(r) * 90
}
