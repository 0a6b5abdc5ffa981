// Package cmd implements the command-line interface for kinoplay.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/kinoplay/kinoplay/color"
	"github.com/kinoplay/kinoplay/constant"
	"github.com/kinoplay/kinoplay/engine/mpv"
	"github.com/kinoplay/kinoplay/icon"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/style"
	"github.com/kinoplay/kinoplay/version"
	"github.com/kinoplay/kinoplay/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, square)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().String("server", "", "Base URL of the torrent-stream server")
	lo.Must0(viper.BindPFlag(key.StreamServer, rootCmd.PersistentFlags().Lookup("server")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})

	// leftover sockets of crashed engines
	go func() {
		_, _ = mpv.RemoveStaleSockets(where.Sockets())
	}()
}

// rootCmd defines the entry point for kinoplay.
var rootCmd = &cobra.Command{
	Use:   constant.App,
	Short: "Adaptive video player with automatic software-decoding fallback",
	Long: style.New().Bold(true).Foreground(color.HiPurple).Render(constant.Logo) + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Plays streams on mpv and switches to VLC when hardware decoding fails"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
