package cmd

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"strings"
	"text/template"

	"github.com/kinoplay/kinoplay/color"
	"github.com/kinoplay/kinoplay/constant"
	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/style"
	"github.com/kinoplay/kinoplay/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Display only the kinoplay version")
	versionCmd.Flags().Bool("json", false, "Print the report as JSON")
}

// engineReport is one engine row of the version report.
type engineReport struct {
	Role     string `json:"role"`
	Binary   string `json:"binary"`
	Path     string `json:"path,omitempty"`
	Version  string `json:"version,omitempty"`
	Minimum  string `json:"minimum"`
	Outdated bool   `json:"outdated"`
	Error    string `json:"error,omitempty"`
}

type versionReport struct {
	App      string         `json:"app"`
	Version  string         `json:"version"`
	Revision string         `json:"revision"`
	BuiltAt  string         `json:"built_at"`
	BuiltBy  string         `json:"built_by"`
	Platform string         `json:"platform"`
	Engines  []engineReport `json:"engines"`
}

// engineVersion asks the configured binary of kind for its version.
func engineVersion(ctx context.Context, kind engine.Kind) engineReport {
	r := engineReport{Role: kind.String(), Binary: viper.GetString(key.PlayerPrimary), Minimum: constant.MinPrimaryVersion}
	if kind == engine.Fallback {
		r.Binary, r.Minimum = viper.GetString(key.PlayerFallback), constant.MinFallbackVersion
	}

	info, err := version.Engine(ctx, r.Binary)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Path = info.Path
	r.Version = info.Version.String()
	r.Outdated = info.Outdated(r.Minimum)
	return r
}

var versionTemplate = lo.Must(template.New("version").Funcs(template.FuncMap{
	"faint":   style.Faint,
	"bold":    style.Bold,
	"magenta": style.Fg(color.Purple),
	"green":   style.Fg(color.Green),
	"yellow":  style.Fg(color.Yellow),
	"red":     style.Fg(color.Red),
}).Parse(`{{ magenta "▇▇▇" }} {{ magenta .App }}

  {{ faint "Version" }}      {{ bold .Version }}
  {{ faint "Git Commit" }}   {{ bold .Revision }}
  {{ faint "Build Date" }}   {{ bold .BuiltAt }}
  {{ faint "Built By" }}     {{ bold .BuiltBy }}
  {{ faint "Platform" }}     {{ bold .Platform }}

{{ magenta "▇▇▇" }} {{ magenta "engines" }}
{{ range .Engines }}
  {{ faint .Role }}  {{ bold .Binary }} {{ if .Error }}{{ red .Error }}{{ else }}{{ green .Version }}{{ if .Outdated }} {{ yellow (printf "older than %s, upgrade recommended" .Minimum) }}{{ end }}
  {{ faint .Path }}{{ end }}
{{ end }}`))

// versionCmd displays the application build and the engines it would launch.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the kinoplay version and the versions of its playback engines",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		ctx := cmd.Context()
		if ctx == nil {
			// root --version runs this without executing the command
			ctx = context.Background()
		}

		report := versionReport{
			App:      constant.App,
			Version:  constant.Version,
			Revision: constant.Revision,
			BuiltAt:  strings.TrimSpace(constant.BuiltAt),
			BuiltBy:  constant.BuiltBy,
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
			Engines: lo.Map([]engine.Kind{engine.Primary, engine.Fallback}, func(k engine.Kind, _ int) engineReport {
				return engineVersion(ctx, k)
			}),
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			handleErr(enc.Encode(report))
			return
		}

		defer version.Notify()
		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), report))
	},
}
