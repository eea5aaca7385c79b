// Package key lists the configuration keys.
package key

// Playback engine
const (
	PlayerVideoPacketQueue = "player.video_packet_queue"
	PlayerAudioPacketQueue = "player.audio_packet_queue"
	PlayerVideoFrameQueue  = "player.video_frame_queue"
	PlayerAudioFrameQueue  = "player.audio_frame_queue"
	PlayerLookaheadFrames  = "player.lookahead_frames"
	PlayerLoop             = "player.loop"
	PlayerSubtitles        = "player.subtitles"
)

// Audio device
const (
	AudioSampleRate     = "audio.sample_rate"
	AudioBufferSamples  = "audio.buffer_samples"
	AudioDeviceBufferMs = "audio.device_buffer_ms"
	AudioVolume         = "audio.volume"
	AudioVolumeStep     = "audio.volume_step"
	AudioMuted          = "audio.muted"
)

// Video output
const (
	VideoMaxWidth  = "video.max_width"
	VideoMaxHeight = "video.max_height"
	VideoShm       = "video.shm"
)

const (
	ControlsSkipMs = "controls.skip_ms"
)

const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)
