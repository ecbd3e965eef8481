package types

// StoryRequest is the payload for POST /generate_story.
type StoryRequest struct {
	// Base64 image or data URI. Either Image or Images is required.
	// example: data:image/png;base64,iVBORw0KGgo...
	Image string `json:"image,omitempty" example:"data:image/png;base64,iVBORw0KGgo..."`
	// Several images for one story; descriptions are joined in order.
	Images []string `json:"images,omitempty"`
	// Story genre. Unknown genres fall back to a generic theme.
	// example: adventure
	Genre string `json:"genre,omitempty" example:"adventure"`
	// Target story length in words, clamped to [50, 2000].
	// example: 500
	Length int `json:"length,omitempty" example:"500"`
}

// FrameRequest is the payload for POST /generate_frame.
type FrameRequest struct {
	// Scene description to illustrate.
	// example: a small dragon reading a book under a tree
	Prompt string `json:"prompt" example:"a small dragon reading a book under a tree"`
}

// NarrateRequest is the payload for POST /narrate.
type NarrateRequest struct {
	// Text to speak, at most 5000 characters.
	// example: Once upon a time...
	Text string `json:"text" example:"Once upon a time..."`
	// Language code for the voice.
	// example: en
	Lang string `json:"lang,omitempty" example:"en"`
}

// ImageURLRequest replaces the self-hosted image server address (debug only).
type ImageURLRequest struct {
	// example: https://example.loca.lt
	URL string `json:"url" example:"https://example.loca.lt"`
}
