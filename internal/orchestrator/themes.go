package orchestrator

import (
	"fmt"
	"strings"
)

const fallbackTheme = "engaging storytelling"

var genreThemes = map[string]string{
	"fantasy":     "magical adventures, friendly creatures, and noble quests",
	"adventure":   "exploration, discovery, and overcoming challenges",
	"romance":     "friendship, kindness, and family relationships",
	"horror":      "mild mystery, spooky (but not scary) situations, and courage",
	"mystery":     "solving puzzles, helping others, and uncovering secrets",
	"moral story": "learning life lessons, making good choices, and personal growth",
}

// Genres lists the genres with a dedicated theme.
func Genres() []string {
	return []string{"fantasy", "adventure", "romance", "horror", "mystery", "moral story"}
}

func normalizeGenre(g string) string {
	g = strings.TrimSpace(g)
	if g == "" {
		return defaultGenre
	}
	return g
}

func themeFor(genre string) string {
	if t, ok := genreThemes[strings.ToLower(genre)]; ok {
		return t
	}
	return fallbackTheme
}

func clampLength(n int) int {
	switch {
	case n == 0:
		return defaultStoryLength
	case n < minStoryLength:
		return minStoryLength
	case n > maxStoryLength:
		return maxStoryLength
	}
	return n
}

func visionPrompt(genre string) string {
	return fmt.Sprintf("Describe this image in detail for creating a %s story.", genre)
}

func storyPrompt(genre, description string, length int) string {
	return fmt.Sprintf("Create a %s story based on this image description: %s\n"+
		"The story should be approximately %d words long and suitable for all ages.\n"+
		"Focus on %s.", genre, description, length, themeFor(genre))
}

func safePrompt(prompt string) string {
	return safePromptPrefix + prompt
}
