package cmd

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kinoplay/kinoplay/codecerr"
	"github.com/kinoplay/kinoplay/history"
	"github.com/kinoplay/kinoplay/playback"
	"github.com/kinoplay/kinoplay/subtitle"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// schemaTargets are the JSON documents kinoplay produces, by name.
var schemaTargets = map[string]any{
	"load":     &playback.LoadEvent{},
	"progress": &playback.ProgressEvent{},
	"error":    &playback.ErrorEvent{},
	"tracks":   &playback.TracksEvent{},
	"engine":   &playback.EngineEvent{},
	"report":   &codecerr.Report{},
	"cues":     []subtitle.Cue{},
	"history":  map[string]*history.Record{},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringP("target", "t", "progress", "Document to describe: "+strings.Join(schemaNames(), ", "))
	lo.Must0(schemaCmd.RegisterFlagCompletionFunc("target", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return schemaNames(), cobra.ShellCompDirectiveNoFileComp
	}))
}

func schemaNames() []string {
	names := lo.Keys(schemaTargets)
	sort.Strings(names)
	return names
}

// schemaCmd prints JSON schemas for the notification payloads and the other JSON outputs.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of playback notifications and other JSON outputs",
	Run: func(cmd *cobra.Command, args []string) {
		name := lo.Must(cmd.Flags().GetString("target"))
		target, ok := schemaTargets[name]
		if !ok {
			handleErr(fmt.Errorf("unknown schema target %q, expected one of %s", name, strings.Join(schemaNames(), ", ")))
		}

		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			return t.Name()
		}

		handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(reflector.Reflect(target)))
	},
}
