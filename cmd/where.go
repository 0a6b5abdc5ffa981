// Package cmd implements the command-line interface for kinoplay.
package cmd

import (
	"os"
	"os/exec"

	"github.com/kinoplay/kinoplay/color"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/style"
	"github.com/kinoplay/kinoplay/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// whereTarget is a resource whose location where can print.
type whereTarget struct {
	name     string
	locate   func() (string, error)
	argLong  string
	argShort mo.Option[string]
	hidden   bool
}

func fixedPath(f func() string) func() (string, error) {
	return func() (string, error) { return f(), nil }
}

// engineBinary resolves the configured engine binary the way play launches it.
func engineBinary(configKey string) func() (string, error) {
	return func() (string, error) {
		return exec.LookPath(viper.GetString(configKey))
	}
}

var wherePaths = []*whereTarget{
	{"Config", fixedPath(where.Config), "config", mo.Some("c"), false},
	{"History", fixedPath(where.History), "history", mo.Some("r"), false},
	{"Logs", fixedPath(where.Logs), "logs", mo.Some("l"), false},
	{"Primary engine", engineBinary(key.PlayerPrimary), "primary", mo.Some("p"), false},
	{"Fallback engine", engineBinary(key.PlayerFallback), "fallback", mo.Some("f"), false},
	{"Cache", fixedPath(where.Cache), "cache", mo.None[string](), true},
	{"Sockets", fixedPath(where.Sockets), "sockets", mo.None[string](), true},
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, n := range wherePaths {
		if n.argShort.IsPresent() {
			whereCmd.Flags().BoolP(n.argLong, n.argShort.MustGet(), false, n.name+" path")
		} else {
			whereCmd.Flags().Bool(n.argLong, false, n.name+" path")
		}

		if n.hidden {
			lo.Must0(whereCmd.Flags().MarkHidden(n.argLong))
		}
	}

	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(wherePaths, func(t *whereTarget, _ int) string {
		return t.argLong
	})...)

	whereCmd.SetOut(os.Stdout)
}

// whereCmd prints where kinoplay keeps its files and which engine binaries it runs.
var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Display the paths of kinoplay files and of the playback engines",
	Run: func(cmd *cobra.Command, args []string) {
		headerStyle := style.New().Bold(true).Foreground(color.HiPurple).Render

		for _, n := range wherePaths {
			if lo.Must(cmd.Flags().GetBool(n.argLong)) {
				path, err := n.locate()
				handleErr(err)
				cmd.Println(path)
				return
			}
		}

		shown := lo.Filter(wherePaths, func(t *whereTarget, _ int) bool {
			return !t.hidden
		})

		for i, n := range shown {
			cmd.Printf("%s %s\n", headerStyle(n.name+"?"), style.Fg(color.Yellow)("--"+n.argLong))
			if path, err := n.locate(); err != nil {
				cmd.Println(style.Fg(color.Red)("not found: " + err.Error()))
			} else {
				cmd.Println(path)
			}

			if i < len(shown)-1 {
				cmd.Println()
			}
		}
	},
}
