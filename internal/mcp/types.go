package mcp

// LaunchAppInput is the input for the launch_app tool.
type LaunchAppInput struct {
	Executable string   `json:"executable" jsonschema:"required,Path or name of the program to launch. Resolved against PATH."`
	Args       []string `json:"args,omitempty" jsonschema:"Command line arguments passed to the program"`
}

// LaunchAppOutput is the output for the launch_app tool.
type LaunchAppOutput struct {
	SurfaceID uint64 `json:"surface_id"`
	PID       int    `json:"pid"`
}

// ScreenshotInput is the input for the screenshot tool.
type ScreenshotInput struct {
	Filename string `json:"filename,omitempty" jsonschema:"Optional file path. When set, the PNG is also written to this path on the compositor host."`
}

// ScreenshotOutput is the output for the screenshot tool.
type ScreenshotOutput struct {
	PNGBase64 string `json:"png_base64"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SavedTo   string `json:"saved_to,omitempty"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowInfo describes a single window.
type WindowInfo struct {
	SurfaceID uint64 `json:"surface_id"`
	PID       int    `json:"pid"`
	Ready     bool   `json:"ready"`
	Focused   bool   `json:"focused"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// LastScreenshotInput is the input for the last_screenshot tool.
type LastScreenshotInput struct{}

// LastScreenshotOutput is the output for the last_screenshot tool.
type LastScreenshotOutput struct {
	PNGBase64  string `json:"png_base64"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	CapturedAt string `json:"captured_at"`
}
