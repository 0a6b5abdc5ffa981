package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/engine/mpv"
	"github.com/kinoplay/kinoplay/engine/vlc"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/metrics"
	"github.com/kinoplay/kinoplay/playback"
	"github.com/kinoplay/kinoplay/stream"
	"github.com/kinoplay/kinoplay/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntP("index", "i", -1, "File index inside the torrent (-1 lets the stream server choose)")
	playCmd.Flags().StringP("title", "t", "", "Title shown by the engine window")
	playCmd.Flags().StringSliceP("sub", "s", []string{}, "External subtitle file or URL, may be repeated")
	playCmd.Flags().StringArrayP("header", "H", []string{}, `HTTP header sent with the stream, as "Name: value"`)
	playCmd.Flags().BoolP("pick-tracks", "p", false, "Choose audio and subtitle tracks once the engine reports them")
	playCmd.Flags().Bool("no-resume", false, "Start from the beginning even if a position was saved")

	playCmd.Flags().Int("sub-delay", 0, "Subtitle delay in milliseconds")
	lo.Must0(viper.BindPFlag(key.SubtitlesOffset, playCmd.Flags().Lookup("sub-delay")))

	playCmd.Flags().String("metrics", "", "Serve prometheus metrics on this address while playing")
	lo.Must0(viper.BindPFlag(key.MetricsListen, playCmd.Flags().Lookup("metrics")))
}

// playCmd plays one stream, switching engines when the primary cannot decode it.
var playCmd = &cobra.Command{
	Use:   "play [url | magnet | info hash]",
	Short: "Play a stream on the primary engine with automatic fallback",
	Long: `Play a direct URL, or a torrent resolved through the local stream server.
Playback starts on mpv with hardware decoding and moves to VLC with software
decoding at the same position when mpv reports a codec failure.`,
	Example: "  kinoplay play https://example.org/episode.mkv --sub episode.en.srt\n  kinoplay play 'magnet:?xt=urn:btih:...' --index 2",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !CheckDependencies() {
			os.Exit(1)
		}

		if lo.Must(cmd.Flags().GetBool("no-resume")) {
			viper.Set(key.PlayerResume, false)
		}

		src, err := sourceFromArgs(cmd, args[0])
		handleErr(err)

		stopMetrics := serveMetrics(viper.GetString(key.MetricsListen))
		defer stopMetrics()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ui := newPlayerUI(cmd.OutOrStdout(), lo.Must(cmd.Flags().GetBool("pick-tracks")))
		resolver := stream.NewHTTPResolver(
			viper.GetString(key.StreamServer),
			stream.WithSeekHintRate(viper.GetFloat64(key.StreamSeekHintRate)),
		)

		session, err := playback.Start(ctx, engineFactory(), resolver, src, playback.WithListener(ui.listener()))
		handleErr(err)

		result := ui.run(ctx, session.Controller())
		ui.clear()

		handleErr(session.Close())
		handleErr(result)
	},
}

func sourceFromArgs(cmd *cobra.Command, target string) (playback.Source, error) {
	headers, err := parseHeaders(lo.Must(cmd.Flags().GetStringArray("header")))
	if err != nil {
		return playback.Source{}, err
	}

	src := playback.Source{
		FileIndex: lo.Must(cmd.Flags().GetInt("index")),
		Title:     lo.Must(cmd.Flags().GetString("title")),
		Headers:   headers,
		Subtitles: lo.Must(cmd.Flags().GetStringSlice("sub")),
	}

	if _, err := stream.InfoHash(target); err == nil {
		src.InfoHash = target
	} else {
		src.URL = target
	}
	return src, nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// engineFactory builds adapters from the configured binaries.
func engineFactory() engine.Factory {
	return func(kind engine.Kind) (engine.Adapter, error) {
		switch kind {
		case engine.Primary:
			return mpv.New(mpv.Options{
				Binary:    viper.GetString(key.PlayerPrimary),
				HWDec:     viper.GetString(key.PlayerHWDec),
				SocketDir: where.Sockets(),
			}), nil
		case engine.Fallback:
			binary := viper.GetString(key.PlayerFallback)
			if _, err := exec.LookPath(binary); err != nil {
				return nil, fmt.Errorf("fallback engine unavailable: %w", err)
			}
			return vlc.New(vlc.Options{Binary: binary}), nil
		default:
			return nil, fmt.Errorf("unknown engine %s", kind)
		}
	}
}

// serveMetrics exposes /metrics on addr until the returned func is called.
// An empty addr disables it.
func serveMetrics(addr string) (stop func()) {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("metrics endpoint %s: %v", addr, err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
