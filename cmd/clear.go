// Package cmd implements the command-line interface for kinoplay.
package cmd

import (
	"fmt"

	"github.com/kinoplay/kinoplay/engine/mpv"
	"github.com/kinoplay/kinoplay/filesystem"
	"github.com/kinoplay/kinoplay/history"
	"github.com/kinoplay/kinoplay/icon"
	"github.com/kinoplay/kinoplay/util"
	"github.com/kinoplay/kinoplay/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget is something clear can reset. run returns what was done.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	run      func() (string, error)
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), clearCache},
	{"resume history", "history", mo.Some("r"), clearHistory},
	{"stale engine sockets", "sockets", mo.Some("s"), clearSockets},
}

func clearCache() (string, error) {
	return "cache directory cleared", filesystem.API().RemoveAll(where.Cache())
}

func clearHistory() (string, error) {
	records, err := history.Get()
	if err != nil {
		// unreadable history is removed all the same
		records = nil
	}
	if err := filesystem.API().RemoveAll(where.History()); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s forgotten", util.Quantify(len(records), "resume position", "resume positions")), nil
}

// clearSockets removes only sockets no running engine listens on.
func clearSockets() (string, error) {
	n, err := mpv.RemoveStaleSockets(where.Sockets())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s removed", util.Quantify(n, "stale socket", "stale sockets")), nil
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

// clearCmd resets cached state and engine leftovers.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the cache, the resume history or sockets left by crashed engines",
	Run: func(cmd *cobra.Command, args []string) {
		selected := lo.Filter(clearTargets, func(t clearTarget, _ int) bool {
			return lo.Must(cmd.Flags().GetBool(t.argLong))
		})
		if len(selected) == 0 {
			handleErr(cmd.Help())
			return
		}

		for _, target := range selected {
			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			msg, err := target.run()
			e()
			handleErr(err)
			fmt.Printf("%s %s\n", icon.Get(icon.Success), util.Capitalize(msg))
		}
	},
}
