// Package cascade locates faces and eyes with OpenCV Haar cascades.
package cascade

import (
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"eyebump/internal/core"
	"eyebump/internal/detect"
)

// Files names the Haar cascade files. Files are looked up in Dir
// first, then in the usual OpenCV install locations. Defaults live in the
// detection section of the application config.
type Files struct {
	Dir  string
	Face string
	Eye  string
}

var cascadeSearchDirs = []string{
	"",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// trackingMargin widens the previous face box by this fraction per side
const trackingMargin = 0.5

// Locator finds faces and eyes with OpenCV Haar cascades
type Locator struct {
	mu     sync.Mutex
	cfg    detect.Config
	face   gocv.CascadeClassifier
	eye    gocv.CascadeClassifier
	last   image.Rectangle // previous primary face, in detection space
	logger *logrus.Logger
}

// NewLocator loads both cascades; it fails when either cannot be found
func NewLocator(cfg detect.Config, files Files, logger *logrus.Logger) (*Locator, error) {
	if cfg.Downscale < 1 {
		cfg.Downscale = 1
	}

	l := &Locator{
		cfg:    cfg,
		face:   gocv.NewCascadeClassifier(),
		eye:    gocv.NewCascadeClassifier(),
		logger: logger,
	}

	facePath, err := loadCascade(&l.face, files.Dir, files.Face)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("face cascade: %w", err)
	}
	eyePath, err := loadCascade(&l.eye, files.Dir, files.Eye)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("eye cascade: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"face_cascade": facePath,
		"eye_cascade":  eyePath,
		"accuracy":     cfg.Accuracy.String(),
		"tracking":     cfg.Tracking,
		"downscale":    cfg.Downscale,
	}).Info("Face locator ready")

	return l, nil
}

func loadCascade(c *gocv.CascadeClassifier, dir, name string) (string, error) {
	candidates := []string{filepath.Join(dir, name)}
	for _, d := range cascadeSearchDirs {
		candidates = append(candidates, filepath.Join(d, name))
	}

	for _, path := range candidates {
		if c.Load(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("failed to load %s from %s or alternative paths", name, dir)
}

func (l *Locator) searchParams() (float64, int) {
	if l.cfg.Accuracy == detect.AccuracyHigh {
		return 1.05, 6
	}
	return 1.2, 3
}

// Locate returns the faces in img, largest first. Only the primary face
// gets eye landmarks.
func (l *Locator) Locate(img image.Image) ([]detect.Face, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert to mat: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("convert to gray: %w", err)
	}

	search := gray
	scale := 1.0
	if l.cfg.Downscale > 1 {
		small := gocv.NewMat()
		defer small.Close()
		gocv.Resize(gray, &small, image.Point{}, 1/l.cfg.Downscale, 1/l.cfg.Downscale, gocv.InterpolationLinear)
		search = small
		scale = l.cfg.Downscale
	}
	gocv.EqualizeHist(search, &search)

	rects := l.findFaces(search)
	if len(rects) == 0 {
		l.last = image.Rectangle{}
		return nil, nil
	}
	if l.cfg.Tracking {
		l.last = rects[0]
	}

	origin := img.Bounds().Min
	faces := make([]detect.Face, len(rects))
	for i, r := range rects {
		faces[i] = detect.Face{Bounds: scaleRect(r, scale).Add(origin)}
	}
	l.findEyes(search, rects[0], scale, origin, &faces[0])

	return faces, nil
}

func (l *Locator) findFaces(gray gocv.Mat) []image.Rectangle {
	scaleFactor, neighbors := l.searchParams()
	minSize := image.Pt(int(float64(l.cfg.MinFaceSize)/l.cfg.Downscale), int(float64(l.cfg.MinFaceSize)/l.cfg.Downscale))
	bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())

	var rects []image.Rectangle
	if l.cfg.Tracking && !l.last.Empty() {
		window := expand(l.last, trackingMargin).Intersect(bounds)
		if !window.Empty() {
			region := gray.Region(window)
			for _, r := range l.face.DetectMultiScaleWithParams(region, scaleFactor, neighbors, 0, minSize, image.Point{}) {
				rects = append(rects, r.Add(window.Min))
			}
			region.Close()
		}
	}

	if len(rects) == 0 {
		rects = l.face.DetectMultiScaleWithParams(gray, scaleFactor, neighbors, 0, minSize, image.Point{})
	}

	sortByArea(rects)
	return rects
}

func (l *Locator) findEyes(gray gocv.Mat, face image.Rectangle, scale float64, origin image.Point, out *detect.Face) {
	h := face.Dy()
	zone := image.Rect(face.Min.X, face.Min.Y+h/6, face.Max.X, face.Min.Y+h*3/5)
	zone = zone.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if zone.Empty() {
		return
	}

	region := gray.Region(zone)
	defer region.Close()

	scaleFactor, neighbors := l.searchParams()
	w := face.Dx()
	eyes := l.eye.DetectMultiScaleWithParams(region, scaleFactor, neighbors, 0, image.Pt(w/10, w/10), image.Pt(w/2, w/2))
	sortByArea(eyes)

	midX := float64(face.Min.X+face.Max.X) / 2
	for _, e := range eyes {
		c := center(e.Add(zone.Min))
		p := core.Pt(c.X*scale+float64(origin.X), c.Y*scale+float64(origin.Y))
		if c.X < midX {
			if !out.HasLeftEye {
				out.LeftEye, out.HasLeftEye = p, true
			}
		} else if !out.HasRightEye {
			out.RightEye, out.HasRightEye = p, true
		}
		if out.HasLeftEye && out.HasRightEye {
			break
		}
	}

	l.logger.WithFields(logrus.Fields{
		"face":       out.Bounds,
		"candidates": len(eyes),
		"left_eye":   out.HasLeftEye,
		"right_eye":  out.HasRightEye,
	}).Trace("Eye search done")
}

// Close releases both cascades
func (l *Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.face.Close(); err != nil {
		return err
	}
	return l.eye.Close()
}

func center(r image.Rectangle) core.Point {
	return core.Pt(float64(r.Min.X+r.Max.X)/2, float64(r.Min.Y+r.Max.Y)/2)
}

func expand(r image.Rectangle, margin float64) image.Rectangle {
	dx := int(float64(r.Dx()) * margin)
	dy := int(float64(r.Dy()) * margin)
	return image.Rect(r.Min.X-dx, r.Min.Y-dy, r.Max.X+dx, r.Max.Y+dy)
}

func scaleRect(r image.Rectangle, scale float64) image.Rectangle {
	if scale == 1 {
		return r
	}
	return image.Rect(
		int(float64(r.Min.X)*scale),
		int(float64(r.Min.Y)*scale),
		int(float64(r.Max.X)*scale),
		int(float64(r.Max.Y)*scale),
	)
}

func sortByArea(rects []image.Rectangle) {
	sort.SliceStable(rects, func(i, j int) bool {
		return rects[i].Dx()*rects[i].Dy() > rects[j].Dx()*rects[j].Dy()
	})
}
