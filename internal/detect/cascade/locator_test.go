package cascade

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"eyebump/internal/core"
)

func TestExpand(t *testing.T) {
	r := expand(image.Rect(100, 100, 200, 160), 0.5)
	assert.Equal(t, image.Rect(50, 70, 250, 190), r)
}

func TestScaleRect(t *testing.T) {
	r := image.Rect(10, 20, 30, 40)
	assert.Equal(t, r, scaleRect(r, 1))
	assert.Equal(t, image.Rect(20, 40, 60, 80), scaleRect(r, 2))
}

func TestSortByArea(t *testing.T) {
	rects := []image.Rectangle{
		image.Rect(0, 0, 10, 10),
		image.Rect(0, 0, 50, 50),
		image.Rect(0, 0, 20, 20),
	}
	sortByArea(rects)

	assert.Equal(t, image.Rect(0, 0, 50, 50), rects[0])
	assert.Equal(t, image.Rect(0, 0, 20, 20), rects[1])
	assert.Equal(t, image.Rect(0, 0, 10, 10), rects[2])
}

func TestCenter(t *testing.T) {
	assert.Equal(t, core.Pt(15, 25.5), center(image.Rect(10, 20, 20, 31)))
}
