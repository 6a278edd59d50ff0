package capture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/desertthunder/spotigest/internal/detector"
	"github.com/desertthunder/spotigest/internal/models"
)

const keyEscape = 27

var (
	boneColor  = color.RGBA{R: 0, G: 200, B: 255, A: 0}
	jointColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	tipColor   = color.RGBA{R: 30, G: 215, B: 96, A: 0}
	labelColor = color.RGBA{R: 30, G: 215, B: 96, A: 0}
)

// Overlay shows annotated frames. Show reports false once the user asks to close it.
type Overlay interface {
	Show(frame *gocv.Mat, hands []detector.Hand, action models.GestureAction) bool
	Close() error
}

// WindowOverlay draws into a native OpenCV window. It must be used from a single goroutine.
type WindowOverlay struct {
	window *gocv.Window
	last   models.GestureAction
}

// NewWindowOverlay opens a window titled title.
func NewWindowOverlay(title string) *WindowOverlay {
	return &WindowOverlay{window: gocv.NewWindow(title)}
}

// Show annotates frame in place and displays it. The label keeps showing the last
// non-NONE action so short-lived gestures stay visible.
func (o *WindowOverlay) Show(frame *gocv.Mat, hands []detector.Hand, action models.GestureAction) bool {
	if !action.IsNone() {
		o.last = action
	}
	Annotate(frame, hands, o.last)
	o.window.IMShow(*frame)

	key := o.window.WaitKey(1)
	return key != keyEscape && key != 'q'
}

func (o *WindowOverlay) Close() error {
	return o.window.Close()
}

// Annotate draws every hand skeleton and the action label onto frame.
func Annotate(frame *gocv.Mat, hands []detector.Hand, action models.GestureAction) {
	cols, rows := frame.Cols(), frame.Rows()

	for _, h := range hands {
		for _, c := range detector.Connections {
			a := ToPixel(h.At(c[0]), cols, rows)
			b := ToPixel(h.At(c[1]), cols, rows)
			gocv.Line(frame, a, b, boneColor, 2)
		}
		for i := range detector.NumLandmarks {
			gocv.Circle(frame, ToPixel(h.At(i), cols, rows), 3, jointColor, -1)
		}
		for _, tip := range detector.FingerTips {
			gocv.Circle(frame, ToPixel(h.At(tip), cols, rows), 6, tipColor, 2)
		}
	}

	if !action.IsNone() {
		gocv.PutText(frame, action.String(), image.Pt(16, 36), gocv.FontHersheySimplex, 1.0, labelColor, 2)
	}
}

// ToPixel maps a normalized landmark onto a cols x rows frame, clamped to its bounds.
func ToPixel(l detector.Landmark, cols, rows int) image.Point {
	x := int(l.X * float64(cols))
	y := int(l.Y * float64(rows))
	return image.Pt(clamp(x, 0, cols-1), clamp(y, 0, rows-1))
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
