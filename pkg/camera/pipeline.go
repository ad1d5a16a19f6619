package camera

import "fmt"

// Pipeline describes a CSI camera pipeline for NVIDIA Jetson boards:
// nvarguscamerasrc scaled by nvvidconv and delivered to appsink as BGR.
type Pipeline struct {
	SensorID      int `json:"sensor_id" yaml:"sensor_id"`
	CaptureWidth  int `json:"capture_width" yaml:"capture_width"`
	CaptureHeight int `json:"capture_height" yaml:"capture_height"`
	DisplayWidth  int `json:"display_width" yaml:"display_width"`
	DisplayHeight int `json:"display_height" yaml:"display_height"`
	Framerate     int `json:"framerate" yaml:"framerate"`

	// FlipMethod is nvvidconv's flip-method (0-7).
	FlipMethod int `json:"flip_method" yaml:"flip_method"`
}

// DefaultPipeline captures 1080p from sensor 0 and scales to 480x360.
func DefaultPipeline() Pipeline {
	return Pipeline{
		SensorID:      0,
		CaptureWidth:  1920,
		CaptureHeight: 1080,
		DisplayWidth:  480,
		DisplayHeight: 360,
		Framerate:     30,
		FlipMethod:    0,
	}
}

// String renders the GStreamer pipeline description.
func (p Pipeline) String() string {
	return fmt.Sprintf(
		"nvarguscamerasrc sensor-id=%d ! "+
			"video/x-raw(memory:NVMM), width=(int)%d, height=(int)%d, framerate=(fraction)%d/1 ! "+
			"nvvidconv flip-method=%d ! "+
			"video/x-raw, width=(int)%d, height=(int)%d, format=(string)BGRx ! "+
			"videoconvert ! video/x-raw, format=(string)BGR ! appsink",
		p.SensorID, p.CaptureWidth, p.CaptureHeight, p.Framerate,
		p.FlipMethod, p.DisplayWidth, p.DisplayHeight,
	)
}

// Validate returns a list of validation errors, or nil if valid.
func (p Pipeline) Validate() []string {
	var errors []string
	if p.SensorID < 0 {
		errors = append(errors, "pipeline sensor_id must not be negative")
	}
	if p.CaptureWidth <= 0 || p.CaptureHeight <= 0 {
		errors = append(errors, "pipeline capture size must be positive")
	}
	if p.DisplayWidth <= 0 || p.DisplayHeight <= 0 {
		errors = append(errors, "pipeline display size must be positive")
	}
	if p.Framerate < 1 || p.Framerate > MaxFramerate {
		errors = append(errors, "pipeline framerate must be between 1 and 240")
	}
	if p.FlipMethod < 0 || p.FlipMethod > 7 {
		errors = append(errors, "pipeline flip_method must be between 0 and 7")
	}
	return errors
}

// PipelineString returns the GStreamer description to open. An explicit
// Device pipeline wins; an empty or numeric Device builds one from Pipeline,
// with a numeric Device selecting the sensor.
func (c *Config) PipelineString() string {
	if c.Device == "" {
		return c.Pipeline.String()
	}
	if idx, ok := c.DeviceIndex(); ok {
		p := c.Pipeline
		p.SensorID = idx
		return p.String()
	}
	return c.Device
}
