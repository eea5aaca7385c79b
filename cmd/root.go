// Package cmd implements the command-line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/kplay/config"
	"github.com/njyeung/kplay/constant"
	"github.com/njyeung/kplay/ffmpeg"
	"github.com/njyeung/kplay/filesystem"
	"github.com/njyeung/kplay/key"
	"github.com/njyeung/kplay/log"
	"github.com/njyeung/kplay/output"
	"github.com/njyeung/kplay/player"
	"github.com/njyeung/kplay/tui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.Flags().BoolP("loop", "L", false, "Play the file again when it ends")
	lo.Must0(viper.BindPFlag(key.PlayerLoop, rootCmd.Flags().Lookup("loop")))

	rootCmd.Flags().BoolP("mute", "m", false, "Start muted")
	lo.Must0(viper.BindPFlag(key.AudioMuted, rootCmd.Flags().Lookup("mute")))

	rootCmd.Flags().Float64P("volume", "V", 1, "Initial volume, from 0 to 1")
	lo.Must0(viper.BindPFlag(key.AudioVolume, rootCmd.Flags().Lookup("volume")))

	rootCmd.Flags().Bool("no-subs", false, "Do not burn subtitles into the picture")

	rootCmd.Flags().Bool("shm", false, "Send frames through shared memory when the terminal supports it")
	lo.Must0(viper.BindPFlag(key.VideoShm, rootCmd.Flags().Lookup("shm")))
}

var rootCmd = &cobra.Command{
	Use:   constant.App + " [file]",
	Short: "Play video and audio files in a kitty graphics terminal",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("version")) {
			versionCmd.Run(versionCmd, args)
			return
		}
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		if lo.Must(cmd.Flags().GetBool("no-subs")) {
			viper.Set(key.PlayerSubtitles, false)
		}
		handleErr(run(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the application version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", constant.App, constant.Version)
	},
}

// Execute runs the command line
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.For("cmd").Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s: %s\n", constant.App, strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}

// run plays path in the terminal UI until the user quits
func run(path string) error {
	logger := log.For("cmd")

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if ok, err := filesystem.API().Exists(abs); err != nil || !ok {
		return fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}

	// the probe talks to the terminal, so it has to run before the UI starts
	useShm := viper.GetBool(key.VideoShm) && output.ShmSupported()

	out := output.NewLockedWriter(os.Stdout)
	renderer := output.NewKittyRenderer(out)
	renderer.SetUseShm(useShm)

	var audio player.AudioOutput
	speaker := output.NewSpeaker(
		viper.GetInt(key.AudioSampleRate),
		time.Duration(viper.GetInt(key.AudioDeviceBufferMs))*time.Millisecond,
	)
	if err := speaker.Init(); err != nil {
		logger.WithError(err).Warn("no audio device, playing video only")
	} else {
		audio = speaker
	}

	p := player.NewAVPlayer(ffmpeg.Opener{}, audio, renderer, config.PlayerOptions())
	defer p.Close()

	model := tui.NewModel(p, renderer, tui.Config{
		Path:       abs,
		SkipMs:     viper.GetInt64(key.ControlsSkipMs),
		VolumeStep: viper.GetFloat64(key.AudioVolumeStep),
		Loop:       viper.GetBool(key.PlayerLoop),
	})

	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(out))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
