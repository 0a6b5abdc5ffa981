// Package cmd implements the command-line interface for kinoplay.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kinoplay/kinoplay/color"
	"github.com/kinoplay/kinoplay/config"
	"github.com/kinoplay/kinoplay/style"
	"github.com/kinoplay/kinoplay/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Display only environment variables that are currently defined")
	envCmd.Flags().BoolP("unset-only", "u", false, "Display only environment variables that are currently undefined")

	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

// envVar is one environment variable kinoplay reads.
type envVar struct {
	name, section string
	fallback      string
}

// envVars lists the config path override followed by every config field,
// ordered by key so fields of a section stay together.
func envVars() []envVar {
	keys := lo.Keys(config.Default)
	slices.Sort(keys)

	vars := []envVar{{name: where.EnvConfigPath, section: "paths", fallback: where.Config()}}
	for _, k := range keys {
		field := config.Default[k]
		section, _, _ := strings.Cut(k, ".")
		vars = append(vars, envVar{
			name:     field.Env(),
			section:  section,
			fallback: fmt.Sprint(field.Value),
		})
	}
	return vars
}

// envCmd shows, section by section, which variables override the config.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Display the collection of supported environment variables",
	Long:  `Display the collection of supported environment variables, their current process values and the defaults they override.`,
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))

		vars := lo.Filter(envVars(), func(v envVar, _ int) bool {
			_, present := os.LookupEnv(v.name)
			return !(setOnly && !present) && !(unsetOnly && present)
		})

		sectionStyle := style.New().Bold(true).Foreground(color.HiPurple).Render
		nameStyle := style.New().Bold(true).Foreground(color.Purple).Render

		var section string
		for _, v := range vars {
			if v.section != section {
				if section != "" {
					cmd.Println()
				}
				section = v.section
				cmd.Println(sectionStyle("# " + section))
			}

			cmd.Print(nameStyle(v.name), "=")
			if value, ok := os.LookupEnv(v.name); ok {
				cmd.Println(style.Fg(color.Green)(value))
			} else {
				cmd.Println(style.Fg(color.Red)("unset"), style.Faint("(default "+v.fallback+")"))
			}
		}
	},
}
