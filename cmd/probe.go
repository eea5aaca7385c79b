package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/njyeung/kplay/ffmpeg"
	"github.com/njyeung/kplay/player"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
}

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Show the streams and duration of a media file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info, err := ffmpeg.Probe(args[0])
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			handleErr(enc.Encode(info))
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), formatProbe(info))
	},
}

var (
	probeTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	probeFaint = lipgloss.NewStyle().Faint(true)
	probeBest  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func formatProbe(info ffmpeg.ProbeInfo) string {
	var b strings.Builder

	b.WriteString(probeTitle.Render(info.Path) + "\n")
	fmt.Fprintf(&b, "duration %s\n", player.FormatDuration(info.Duration/1000))

	best := map[player.MediaType]int{
		player.MediaVideo:    info.BestVideo,
		player.MediaAudio:    info.BestAudio,
		player.MediaSubtitle: info.BestSubtitle,
	}

	for _, s := range info.Streams {
		line := fmt.Sprintf("#%d %-8s %-10s tb=%s", s.Index, s.Type, s.Codec, s.TimeBase)
		switch s.Type {
		case player.MediaVideo:
			line += fmt.Sprintf(" %dx%d %.2ffps", s.Width, s.Height, s.FrameRate.Float64())
		case player.MediaAudio:
			line += fmt.Sprintf(" %dHz %s", s.SampleRate, s.Layout)
		}
		if best[s.Type] == s.Index {
			line += " " + probeBest.Render("(best)")
		}
		b.WriteString(line + "\n")
	}
	if len(info.Streams) == 0 {
		b.WriteString(probeFaint.Render("no playable streams") + "\n")
	}
	return b.String()
}
