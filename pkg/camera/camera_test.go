package camera

import (
	"strings"
	"testing"
)

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("Preset %q missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("Preset %q invalid: %v", name, errs)
		}
	}

	if GetPreset("nope") != nil {
		t.Error("Unknown preset should return nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"bad backend", func(c *Config) { c.Backend = "v4l3" }, false},
		{"width without height", func(c *Config) { c.Width = 640 }, false},
		{"too wide", func(c *Config) { c.Width, c.Height = 10000, 480 }, false},
		{"zero fps", func(c *Config) { c.Framerate = 0 }, false},
		{"gstreamer explicit pipeline", func(c *Config) {
			c.Backend = BackendGStreamer
			c.Device = "videotestsrc ! appsink"
			c.Pipeline = Pipeline{}
		}, true},
		{"gstreamer generated bad flip", func(c *Config) {
			c.Backend = BackendGStreamer
			c.Device = ""
			c.Pipeline.FlipMethod = 9
		}, false},
		{"gstreamer sensor index bad flip", func(c *Config) {
			c.Backend = BackendGStreamer
			c.Device = "0"
			c.Pipeline.FlipMethod = 9
		}, false},
		{"gstreamer sensor index empty pipeline", func(c *Config) {
			c.Backend = BackendGStreamer
			c.Device = "1"
			c.Pipeline = Pipeline{}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if tt.ok && len(errs) > 0 {
				t.Errorf("Expected valid, got %v", errs)
			}
			if !tt.ok && len(errs) == 0 {
				t.Error("Expected validation errors")
			}
		})
	}
}

func TestConfig_DeviceIndex(t *testing.T) {
	cfg := DefaultConfig()
	if idx, ok := cfg.DeviceIndex(); !ok || idx != 0 {
		t.Errorf("Expected index 0, got %d ok=%v", idx, ok)
	}

	cfg.Device = "/dev/video2"
	if _, ok := cfg.DeviceIndex(); ok {
		t.Error("Path should not parse as an index")
	}
}

func TestPipeline_String(t *testing.T) {
	p := DefaultPipeline()
	s := p.String()

	for _, want := range []string{
		"nvarguscamerasrc sensor-id=0",
		"width=(int)1920, height=(int)1080, framerate=(fraction)30/1",
		"nvvidconv flip-method=0",
		"width=(int)480, height=(int)360, format=(string)BGRx",
		"format=(string)BGR ! appsink",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Pipeline %q missing %q", s, want)
		}
	}
}

func TestConfig_PipelineString(t *testing.T) {
	cfg := JetsonConfig()
	if cfg.PipelineString() != cfg.Pipeline.String() {
		t.Error("Empty selector should generate the pipeline")
	}

	cfg.Device = "v4l2src ! videoconvert ! appsink"
	if cfg.PipelineString() != cfg.Device {
		t.Error("Explicit selector should pass through unmodified")
	}

	cfg.Device = "1"
	if !strings.Contains(cfg.PipelineString(), "sensor-id=1") {
		t.Errorf("Numeric selector should pick the sensor, got %q", cfg.PipelineString())
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager()

	err := m.UpdateConfig(map[string]interface{}{
		"preset":    Preset720p,
		"framerate": float64(60),
		"device":    "1",
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("Expected 720p, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Framerate != 60 {
		t.Errorf("Expected 60 fps override, got %d", cfg.Framerate)
	}
	if cfg.Device != "1" {
		t.Errorf("Expected device 1, got %q", cfg.Device)
	}
}

func TestManager_RejectsInvalid(t *testing.T) {
	m := NewManager()

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("Expected error for unknown preset")
	}
	if err := m.UpdateConfig(map[string]interface{}{"framerate": 0}); err == nil {
		t.Error("Expected validation error")
	}
	if err := m.UpdateConfig(map[string]interface{}{"zoom": 2}); err == nil {
		t.Error("Expected error for unknown setting")
	}

	if m.GetConfig().Framerate != DefaultConfig().Framerate {
		t.Error("Rejected update should not change the config")
	}
}

func TestManager_GetConfigJSON(t *testing.T) {
	m := NewManager()
	m.UpdateConfig(map[string]interface{}{"preset": PresetMock})

	out := m.GetConfigJSON()
	if out["backend"] != "mock" {
		t.Errorf("Expected backend mock, got %v", out["backend"])
	}
	if out["width"] != float64(320) {
		t.Errorf("Expected width 320, got %v", out["width"])
	}
}
