package capture

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/desertthunder/spotigest/internal/detector"
	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
)

func TestNewCamera(t *testing.T) {
	t.Run("Default FPS", func(t *testing.T) {
		cam := NewCamera(0, 0)
		if got := cam.FPS(); got != DefaultFPS {
			t.Errorf("FPS() = %d, want %d", got, DefaultFPS)
		}
		if cam.IsOpen() {
			t.Error("new camera should not be open")
		}
	})

	t.Run("Set FPS", func(t *testing.T) {
		cam := NewCamera(1, 30)
		cam.SetFPS(-1)
		if cam.FPS() != 30 {
			t.Errorf("non-positive FPS should be ignored, got %d", cam.FPS())
		}
		cam.SetFPS(10)
		if cam.FPS() != 10 {
			t.Errorf("FPS() = %d, want 10", cam.FPS())
		}
	})

	t.Run("Read Before Open", func(t *testing.T) {
		cam := NewCamera(0, 0)
		if _, err := cam.ReadFrame(); !errors.Is(err, shared.ErrCameraUnavailable) {
			t.Errorf("expected ErrCameraUnavailable, got %v", err)
		}
		if err := cam.Close(); err != nil {
			t.Errorf("closing an unopened camera should succeed: %v", err)
		}
	})
}

func TestMockCamera(t *testing.T) {
	t.Run("Frames", func(t *testing.T) {
		cam := NewMockCamera()
		if _, err := cam.ReadFrame(); err == nil {
			t.Fatal("expected error before Open")
		}
		if err := cam.Open(); err != nil {
			t.Fatal(err)
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		defer frame.Close()
		if frame.Rows() != DefaultHeight || frame.Cols() != DefaultWidth {
			t.Errorf("unexpected frame size %dx%d", frame.Cols(), frame.Rows())
		}
	})

	t.Run("Scripted Failures", func(t *testing.T) {
		cam := NewMockCamera()
		cam.Open()
		boom := errors.New("boom")
		cam.FailReads(boom)

		if _, err := cam.ReadFrame(); !errors.Is(err, boom) {
			t.Errorf("expected scripted error, got %v", err)
		}
		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("second read should succeed: %v", err)
		}
		frame.Close()
		if cam.Reads() != 2 {
			t.Errorf("Reads() = %d", cam.Reads())
		}

		cam.FailAlways()
		if _, err := cam.ReadFrame(); !errors.Is(err, shared.ErrCameraUnavailable) {
			t.Errorf("expected ErrCameraUnavailable, got %v", err)
		}
	})

	t.Run("Open Failure", func(t *testing.T) {
		cam := NewMockCamera()
		cam.FailOpen(shared.ErrCameraUnavailable)
		if err := cam.Open(); !errors.Is(err, shared.ErrCameraUnavailable) {
			t.Errorf("expected open error, got %v", err)
		}
	})
}

func TestToPixel(t *testing.T) {
	tests := []struct {
		name string
		l    detector.Landmark
		want image.Point
	}{
		{"center", detector.Landmark{X: 0.5, Y: 0.5}, image.Pt(320, 240)},
		{"origin", detector.Landmark{}, image.Pt(0, 0)},
		{"clamped high", detector.Landmark{X: 1.2, Y: 1.0}, image.Pt(639, 479)},
		{"clamped low", detector.Landmark{X: -0.1, Y: -3}, image.Pt(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToPixel(tt.l, DefaultWidth, DefaultHeight); got != tt.want {
				t.Errorf("ToPixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()

	Annotate(&frame, []detector.Hand{detector.OpenHand()}, models.VolumeSet(40))

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	if gocv.CountNonZero(gray) == 0 {
		t.Error("expected drawing on a blank frame")
	}
}
