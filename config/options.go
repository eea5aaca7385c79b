package config

import (
	"github.com/njyeung/kplay/filesystem"
	"github.com/njyeung/kplay/key"
	"github.com/njyeung/kplay/player"
	"github.com/spf13/viper"
)

// PlayerOptions builds the engine options from the loaded configuration
func PlayerOptions() player.Options {
	opts := player.Options{
		VideoPacketQueue: viper.GetInt(key.PlayerVideoPacketQueue),
		AudioPacketQueue: viper.GetInt(key.PlayerAudioPacketQueue),
		VideoFrameQueue:  viper.GetInt(key.PlayerVideoFrameQueue),
		AudioFrameQueue:  viper.GetInt(key.PlayerAudioFrameQueue),
		LookaheadFrames:  viper.GetInt(key.PlayerLookaheadFrames),
		RingSamples:      viper.GetInt(key.AudioBufferSamples),
		Volume:           viper.GetFloat64(key.AudioVolume),
		Muted:            viper.GetBool(key.AudioMuted),
		Loop:             viper.GetBool(key.PlayerLoop),
		MaxWidth:         viper.GetInt(key.VideoMaxWidth),
		MaxHeight:        viper.GetInt(key.VideoMaxHeight),
		Subtitles:        viper.GetBool(key.PlayerSubtitles),
	}
	if opts.Subtitles {
		opts.SubtitleLookup = filesystem.Subtitle
	}
	return opts
}
