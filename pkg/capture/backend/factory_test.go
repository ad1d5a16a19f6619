package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-webcam/pkg/camera"
	"github.com/teslashibe/go-webcam/pkg/capture"
)

func TestResolve(t *testing.T) {
	if Resolve(camera.BackendAuto) != camera.BackendOpenCV {
		t.Error("auto should resolve to opencv")
	}
	if Resolve("") != camera.BackendOpenCV {
		t.Error("empty should resolve to opencv")
	}
	if Resolve(camera.BackendScreen) != camera.BackendScreen {
		t.Error("explicit backends should pass through")
	}
}

func TestOpen_Mock(t *testing.T) {
	dev, err := Open(camera.MockConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	if dev.Name() != "mock" {
		t.Errorf("Expected mock device, got %s", dev.Name())
	}

	raw, err := dev.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if raw.Width != 320 || raw.Height != 240 {
		t.Errorf("Expected 320x240, got %dx%d", raw.Width, raw.Height)
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := camera.MockConfig()
	cfg.Framerate = 0

	_, err := Open(cfg, nil)
	if !errors.Is(err, capture.ErrDeviceOpen) {
		t.Fatalf("Expected ErrDeviceOpen, got %v", err)
	}

	var openErr *capture.DeviceOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("Expected *DeviceOpenError, got %T", err)
	}
	if openErr.Backend != "mock" {
		t.Errorf("Expected backend mock, got %s", openErr.Backend)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := camera.DefaultConfig()
	cfg.Backend = "v4l3"

	if _, err := Open(cfg, nil); !errors.Is(err, capture.ErrDeviceOpen) {
		t.Errorf("Expected ErrDeviceOpen, got %v", err)
	}
}

func TestStart_Mock(t *testing.T) {
	w, err := Start(context.Background(), camera.MockConfig(), capture.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	f, err := w.Frames().GetLatestBlocking(ctx)
	if err != nil {
		t.Fatalf("GetLatestBlocking failed: %v", err)
	}
	if len(f.Pix) != 320*240*4 {
		t.Errorf("Expected %d bytes, got %d", 320*240*4, len(f.Pix))
	}
	if f.Pix[3] != 255 {
		t.Errorf("Expected opaque alpha, got %d", f.Pix[3])
	}
}
