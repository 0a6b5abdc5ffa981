package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kinoplay/kinoplay/color"
	"github.com/kinoplay/kinoplay/history"
	"github.com/kinoplay/kinoplay/icon"
	"github.com/kinoplay/kinoplay/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolP("json", "j", false, "Print the records as JSON")
	historyCmd.Flags().StringP("remove", "r", "", "Forget the record with this key")
}

// historyCmd lists the saved resume positions.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved resume positions",
	Run: func(cmd *cobra.Command, args []string) {
		if k := lo.Must(cmd.Flags().GetString("remove")); k != "" {
			handleErr(history.Remove(k))
			cmd.Printf("%s removed %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Purple)(k))
			return
		}

		saved, err := history.Get()
		handleErr(err)

		records := lo.Values(saved)
		sort.Slice(records, func(i, j int) bool {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(records))
			return
		}

		if len(records) == 0 {
			cmd.Println(style.Faint("nothing watched yet"))
			return
		}

		for _, r := range records {
			cmd.Printf("%s %s\n", r.String(), style.Faint(fmt.Sprintf("%.0f%%", r.Progress())))
			cmd.Println(style.Faint("  " + r.Key))
		}
	},
}
