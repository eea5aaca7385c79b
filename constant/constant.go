// Package constant holds application-wide identifiers.
package constant

const (
	// App is the application name used for paths, env vars and CLI branding
	App = "kplay"

	Version = "0.2.0"
)

// Extensions the player will open or list as siblings
var MediaExtensions = []string{
	".mp4", ".mkv", ".webm", ".mov", ".avi", ".m4v", ".flv", ".ts",
	".mp3", ".flac", ".wav", ".ogg", ".opus", ".m4a", ".aac",
}

// Subtitle files burned into the picture when found next to the media
var SubtitleExtensions = []string{".srt", ".ass", ".ssa", ".vtt"}
