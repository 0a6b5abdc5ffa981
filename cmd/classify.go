package cmd

import (
	"encoding/json"
	"strings"

	"github.com/kinoplay/kinoplay/codecerr"
	"github.com/kinoplay/kinoplay/color"
	"github.com/kinoplay/kinoplay/icon"
	"github.com/kinoplay/kinoplay/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().BoolP("json", "j", false, "Treat the argument as a JSON error payload and print the report as JSON")
}

// classifyCmd shows how an engine error message would be handled.
var classifyCmd = &cobra.Command{
	Use:   "classify [message]",
	Short: "Tell whether an engine error would trigger the fallback engine",
	Example: `  kinoplay classify "MediaCodecException: decoder init failed"
  kinoplay classify --json '{"error": {"errorString": "DECODING_FAILED"}}'`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		input := strings.Join(args, " ")

		if lo.Must(cmd.Flags().GetBool("json")) {
			var payload any
			if err := json.Unmarshal([]byte(input), &payload); err != nil {
				payload = input
			}
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(codecerr.Classify(payload)))
			return
		}

		report := codecerr.Classify(input)
		if report.Fallback {
			cmd.Printf("%s %s\n", icon.Get(icon.Switch), style.Fg(color.Yellow)("switches to the fallback engine"))
		} else {
			cmd.Printf("%s %s\n", icon.Get(icon.Fail), style.Fg(color.Red)("fatal, playback stops"))
		}
		cmd.Println(style.Faint(report.Normalized))
	},
}
