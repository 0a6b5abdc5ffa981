package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kinoplay/kinoplay/color"
	"github.com/kinoplay/kinoplay/filesystem"
	"github.com/kinoplay/kinoplay/icon"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/style"
	"github.com/kinoplay/kinoplay/subtitle"
	"github.com/kinoplay/kinoplay/util"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(subsCmd)

	subsCmd.Flags().Float64P("at", "a", -1, "Only print the cues active at this many seconds")
	subsCmd.Flags().BoolP("json", "j", false, "Print the cues as JSON")
	subsCmd.Flags().IntP("wrap", "w", 0, "Wrap cue text at this column")
	lo.Must0(viper.BindPFlag(key.SubtitlesWrap, subsCmd.Flags().Lookup("wrap")))
}

// subsCmd parses a subtitle file the way the player does and prints its cues.
var subsCmd = &cobra.Command{
	Use:     "subs [file | url]",
	Short:   "Parse an SRT or WebVTT file and print its cues",
	Args:    cobra.ExactArgs(1),
	Example: "  kinoplay subs episode.en.srt --at 754.2",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			cues []subtitle.Cue
			err  error
		)
		if isURL(args[0]) {
			cues, err = subtitle.Fetch(cmd.Context(), nil, args[0])
		} else {
			cues, err = subtitle.Load(filesystem.Fs(), args[0])
		}
		handleErr(err)

		if at := lo.Must(cmd.Flags().GetFloat64("at")); at >= 0 {
			cues = subtitle.NewTimeline(cues).At(at)
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(cues))
			return
		}

		width := viper.GetInt(key.SubtitlesWrap)
		for _, c := range cues {
			cmd.Println(style.Faint(fmt.Sprintf("%s --> %s", cueClock(c.Start), cueClock(c.End))))
			text := c.Text
			if width > 0 {
				text = wordwrap.String(text, width)
			}
			cmd.Println(indent.String(style.Fg(color.Yellow)(text), 2))
		}

		cmd.Printf("%s %s\n", icon.Get(icon.Subtitle), util.Quantify(len(cues), "cue", "cues"))
	},
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// cueClock renders seconds as HH:MM:SS.mmm.
func cueClock(seconds float64) string {
	ms := int64(seconds*1000 + 0.5)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
