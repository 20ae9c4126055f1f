package core

import "sort"

// Scene is one of the four ordered story segments. Immutable once loaded.
type Scene struct {
	ID            int    `json:"id"`
	StoryID       int    `json:"story_id"`
	SceneNumber   int    `json:"scene_number"`
	Description   string `json:"description"`
	NarrationText string `json:"scene_story"`
	ImageRef      string `json:"image_path"`
	AudioRef      string `json:"audio_path"`
}

// StoryCharacter is the single persona associated with a story.
type StoryCharacter struct {
	StoryID           int    `json:"story_id"`
	Title             string `json:"title"`
	CharacterName     string `json:"character_name"`
	CharacterImageRef string `json:"character_image_path"`
	Moral             string `json:"moral"`
	SceneCount        int    `json:"scene_count"`
	Date              string `json:"date"`
	VoiceID           string `json:"voice_id,omitempty"`
}

// StoryData is the atomic unit fetched for one calendar date.
type StoryData struct {
	Date       string           `json:"date"`
	Characters []StoryCharacter `json:"characters"`
	Scenes     []Scene          `json:"scenes"`
}

// LatestCharacter returns the character used for playback and conversation,
// or nil when the payload carries none.
func (d *StoryData) LatestCharacter() *StoryCharacter {
	if len(d.Characters) == 0 {
		return nil
	}
	return &d.Characters[0]
}

// ScenesForStory returns the story's scenes sorted by scene number. The raw
// payload does not guarantee contiguous numbering, so positional lookups must
// go through this ordering.
func (d *StoryData) ScenesForStory(storyID int) []Scene {
	var scenes []Scene
	for _, s := range d.Scenes {
		if s.StoryID == storyID {
			scenes = append(scenes, s)
		}
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].SceneNumber < scenes[j].SceneNumber
	})
	return scenes
}
