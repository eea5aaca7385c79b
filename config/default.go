package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/njyeung/kplay/constant"
	"github.com/njyeung/kplay/key"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field is a registered configuration field
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty renders the field with its current value for the config command
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable bound to the field
func (f *Field) Env() string {
	return strings.ToUpper(constant.App + "_" + EnvKeyReplacer.Replace(f.Key))
}

func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        reflect.TypeOf(f.Value).String(),
	})
}

// Default holds every registered field by key
var Default = make(map[string]Field)

// EnvExposed holds the keys bound to environment variables
var EnvExposed []string

// Keys returns the registered keys in sorted order
func Keys() []string {
	keys := lo.Keys(Default)
	slices.Sort(keys)
	return keys
}

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.PlayerVideoPacketQueue, 12, "Video packets buffered between the reader and the decoder")
	register(key.PlayerAudioPacketQueue, 2, "Audio packets buffered between the reader and the decoder")
	register(key.PlayerVideoFrameQueue, 1, "Decoded video frames buffered before display")
	register(key.PlayerAudioFrameQueue, 10, "Decoded audio frames buffered before the ring buffer")
	register(key.PlayerLookaheadFrames, 4, "Audio frames of lookahead the video is synced against")
	register(key.PlayerLoop, false, "Play the file again when it ends")
	register(key.PlayerSubtitles, true, "Burn subtitles into the picture.\nSibling .srt/.ass/.ssa/.vtt files win over embedded streams")

	register(key.AudioSampleRate, 44100, "Output sample rate in Hz")
	register(key.AudioBufferSamples, 17640, "Ring buffer capacity in interleaved samples")
	register(key.AudioDeviceBufferMs, 50, "Audio device buffer in milliseconds")
	register(key.AudioVolume, 1.0, "Initial volume, from 0 to 1")
	register(key.AudioVolumeStep, 0.05, "Volume change per key press")
	register(key.AudioMuted, false, "Start muted")

	register(key.VideoMaxWidth, 0, "Maximum picture width in pixels.\n0 fits the terminal")
	register(key.VideoMaxHeight, 0, "Maximum picture height in pixels.\n0 fits the terminal")
	register(key.VideoShm, false, "Send frames through shared memory when the terminal supports it")

	register(key.ControlsSkipMs, 5000, "Milliseconds skipped by the arrow keys")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
}

var (
	faint  = lipgloss.NewStyle().Faint(true)
	blue   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	purple = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    faint.Render,
	"blue":     blue.Render,
	"purple":   purple.Render,
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			if value {
				return green.Render("true")
			}
			return red.Render("false")
		case string:
			return yellow.Render(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
