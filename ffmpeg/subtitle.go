package ffmpeg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/asticode/go-astiav"
)

// getFrameRetries bounds the buffersink pulls for one pushed frame
const getFrameRetries = 3

// subtitleSource names the subtitle track burned into the picture
type subtitleSource struct {
	// file is a subtitle file, or the media file itself for embedded streams
	file string
	// stream is the ordinal among the file's subtitle streams, -1 for the default
	stream int
}

// content returns the filter description for the subtitles filter
func (s subtitleSource) content() string {
	var b strings.Builder
	b.WriteString("subtitles=filename='")
	b.WriteString(escapeFilterValue(s.file))
	b.WriteString("'")
	if s.stream >= 0 {
		b.WriteString(":si=")
		b.WriteString(strconv.Itoa(s.stream))
	}
	return b.String()
}

var filterValueEscaper = strings.NewReplacer(`'`, `'\''`)

// escapeFilterValue escapes a value for a single-quoted filter argument
func escapeFilterValue(v string) string {
	return filterValueEscaper.Replace(v)
}

// subtitleFilter is a buffer -> subtitles -> buffersink graph
type subtitleFilter struct {
	graph *astiav.FilterGraph
	src   *astiav.BuffersrcFilterContext
	sink  *astiav.BuffersinkFilterContext
	out   *astiav.Frame
}

// newSubtitleFilter builds the graph for frames shaped like f
func newSubtitleFilter(f *astiav.Frame, timeBase astiav.Rational, sub subtitleSource) (sf *subtitleFilter, err error) {
	sf = &subtitleFilter{graph: astiav.AllocFilterGraph()}
	if sf.graph == nil {
		return nil, errors.New("failed to allocate filter graph")
	}
	defer func() {
		if err != nil {
			sf.close()
			sf = nil
		}
	}()

	buffersrc := astiav.FindFilterByName("buffer")
	buffersink := astiav.FindFilterByName("buffersink")
	if buffersrc == nil || buffersink == nil {
		return nil, errors.New("buffer filters not found")
	}

	args := astiav.FilterArgs{
		"height":    strconv.Itoa(f.Height()),
		"pix_fmt":   strconv.Itoa(int(f.PixelFormat())),
		"sar":       "1/1",
		"time_base": timeBase.String(),
		"width":     strconv.Itoa(f.Width()),
	}
	if sf.src, err = sf.graph.NewBuffersrcFilterContext(buffersrc, "in", args); err != nil {
		return nil, fmt.Errorf("creating buffersrc context failed: %w", err)
	}
	if sf.sink, err = sf.graph.NewBuffersinkFilterContext(buffersink, "out", nil); err != nil {
		return nil, fmt.Errorf("creating buffersink context failed: %w", err)
	}

	inputs := astiav.AllocFilterInOut()
	defer inputs.Free()
	inputs.SetName("out")
	inputs.SetFilterContext(sf.sink.FilterContext())
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	outputs := astiav.AllocFilterInOut()
	defer outputs.Free()
	outputs.SetName("in")
	outputs.SetFilterContext(sf.src.FilterContext())
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	if err = sf.graph.Parse(sub.content(), inputs, outputs); err != nil {
		return nil, fmt.Errorf("parsing %q failed: %w", sub.content(), err)
	}
	if err = sf.graph.Configure(); err != nil {
		return nil, fmt.Errorf("configuring graph failed: %w", err)
	}

	sf.out = astiav.AllocFrame()
	return sf, nil
}

// apply pushes f through the graph. The returned frame stays valid until
// the next call.
func (sf *subtitleFilter) apply(f *astiav.Frame) (*astiav.Frame, error) {
	if err := sf.src.AddFrame(f, astiav.NewBuffersrcFlags(astiav.BuffersrcFlagKeepRef)); err != nil {
		return nil, fmt.Errorf("adding frame failed: %w", err)
	}

	var err error
	for range getFrameRetries {
		sf.out.Unref()
		if err = sf.sink.GetFrame(sf.out, astiav.NewBuffersinkFlags()); err == nil {
			return sf.out, nil
		}
		if !errors.Is(err, astiav.ErrEagain) {
			break
		}
	}
	return nil, fmt.Errorf("getting frame failed: %w", err)
}

func (sf *subtitleFilter) close() {
	if sf.out != nil {
		sf.out.Free()
		sf.out = nil
	}
	if sf.graph != nil {
		// the graph frees its filter contexts
		sf.graph.Free()
		sf.graph = nil
	}
}
