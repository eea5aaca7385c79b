package ffmpeg

import (
	"github.com/njyeung/kplay/player"
)

// ProbeInfo describes a media file without decoding it
type ProbeInfo struct {
	Path     string
	Duration int64 // microseconds
	Streams  []player.StreamInfo

	// Best stream index per media type, -1 when absent
	BestVideo    int
	BestAudio    int
	BestSubtitle int
}

// Probe opens path, reads its stream layout and closes it again
func Probe(path string) (ProbeInfo, error) {
	d, err := NewDemuxer(path)
	if err != nil {
		return ProbeInfo{}, err
	}
	defer d.Close()

	info := ProbeInfo{
		Path:     path,
		Duration: d.Duration(),
		Streams:  d.Streams(),
	}
	info.BestVideo = bestIndex(d, player.MediaVideo)
	info.BestAudio = bestIndex(d, player.MediaAudio)
	info.BestSubtitle = bestIndex(d, player.MediaSubtitle)
	return info, nil
}

func bestIndex(src player.Source, mt player.MediaType) int {
	if s, ok := src.BestStream(mt); ok {
		return s.Index
	}
	return -1
}
