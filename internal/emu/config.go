package emu

// Config selects optional Machine behavior at construction time.
type Config struct {
	// UseFetcherBG rasterizes the BG/window layers into the framebuffer
	// once per StepFrame; when false the framebuffer holds a placeholder
	// gradient instead.
	UseFetcherBG bool
}
