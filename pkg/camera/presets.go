package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLegacy  = "legacy"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetJetson  = "jetson"
	PresetScreen  = "screen"
	PresetMock    = "mock"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLegacy:  LegacyConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		PresetJetson:  JetsonConfig(),
		PresetScreen:  ScreenConfig(),
		PresetMock:    MockConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLegacy,
		Preset720p,
		Preset1080p,
		PresetJetson,
		PresetScreen,
		PresetMock,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LegacyConfig returns a 640x480 webcam configuration.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// JetsonConfig returns the CSI camera pipeline used on Jetson boards.
// The selector is left empty so the pipeline is generated.
func JetsonConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendGStreamer
	cfg.Device = ""
	return cfg
}

// ScreenConfig captures the primary display at 15 FPS.
func ScreenConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendScreen
	cfg.Device = ""
	cfg.Framerate = 15
	return cfg
}

// MockConfig returns a synthetic 320x240 source.
func MockConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	cfg.Device = ""
	cfg.Width = 320
	cfg.Height = 240
	return cfg
}
