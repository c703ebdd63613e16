package distort

import (
	"image"

	"golang.org/x/image/draw"

	"eyebump/internal/core"
)

// BumpSource returns the point sampled for output position p by a radial
// bump of the given radius and scale centered at center. Points at or beyond
// the radius map to themselves. A positive scale magnifies the area under
// the bump, a negative scale pinches it.
func BumpSource(p, center core.Point, radius, scale float64) core.Point {
	d := p.Distance(center)
	if d >= radius || radius <= 0 {
		return p
	}

	f := 1 - ((radius-d)/radius)*scale
	f *= f

	return core.Point{
		X: center.X + (p.X-center.X)*f,
		Y: center.Y + (p.Y-center.Y)*f,
	}
}

// BumpBounds returns the integer pixel rectangle touched by a bump,
// clipped to extent.
func BumpBounds(center core.Point, radius float64, extent image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(center.X-radius)-1,
		int(center.Y-radius)-1,
		int(center.X+radius)+2,
		int(center.Y+radius)+2,
	)
	return r.Intersect(extent)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop restores img to exactly rect. Images already at rect are returned as
// is, sliceable images are cut with SubImage, anything else is copied onto a
// new RGBA canvas.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	if img.Bounds() == rect {
		return img
	}

	if sub, ok := img.(subImager); ok && rect.In(img.Bounds()) {
		return sub.SubImage(rect)
	}

	dst := image.NewRGBA(rect)
	draw.Draw(dst, rect, img, rect.Min, draw.Src)
	return dst
}
