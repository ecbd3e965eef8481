package types

// Story is returned by POST /generate_story.
type Story struct {
	Success bool `json:"success" example:"true"`
	// Generated story text.
	Story string `json:"story"`
	// Vision model description the story was built from.
	ImageDescription string `json:"image_description"`
}

// Frame is returned by POST /generate_frame.
type Frame struct {
	Success bool `json:"success" example:"true"`
	// Data URI of the generated illustration.
	// example: data:image/png;base64,iVBORw0KGgo...
	Image string `json:"image" example:"data:image/png;base64,iVBORw0KGgo..."`
	// True when served from the frame cache.
	Cached bool `json:"cached"`
}

// Narration is returned by POST /narrate.
type Narration struct {
	Success bool `json:"success" example:"true"`
	// Data URI of the MP3 audio.
	Audio string `json:"audio"`
}

// ImageURL echoes the active image server address.
type ImageURL struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}
