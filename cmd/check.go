package cmd

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/kinoplay/kinoplay/constant"
	"github.com/kinoplay/kinoplay/icon"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/style"
	"github.com/spf13/viper"
)

// dependency is an engine binary the player launches.
type dependency struct {
	binary   string
	pkg      string
	required bool
}

func dependencies() []dependency {
	return []dependency{
		{binary: viper.GetString(key.PlayerPrimary), pkg: "mpv", required: true},
		{binary: viper.GetString(key.PlayerFallback), pkg: "vlc", required: false},
	}
}

// CheckDependencies verifies that the engine binaries are in PATH. A
// missing primary engine is fatal; a missing fallback only disables the
// switch.
func CheckDependencies() bool {
	ok := true
	for _, dep := range dependencies() {
		if _, err := exec.LookPath(dep.binary); err != nil {
			printMissingDependency(dep)
			if dep.required {
				ok = false
			}
		}
	}
	return ok
}

func installHint(pkg string) string {
	switch runtime.GOOS {
	case constant.Darwin:
		return "brew install " + pkg
	case constant.Linux:
		return "sudo apt install " + pkg
	case constant.Windows:
		return "scoop install " + pkg
	default:
		return ""
	}
}

func printMissingDependency(dep dependency) {
	accent := style.HiRed
	heading := "Error: Missing Dependency"
	consequence := "Playback cannot start without it."
	if !dep.required {
		accent = style.AccentColor
		heading = "Warning: Missing Fallback Engine"
		consequence = "Streams the primary engine cannot decode will fail instead of switching."
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(accent).Render(fmt.Sprintf("%s %s", icon.Get(icon.Fail), heading))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("'%s' was not found in your PATH. %s", dep.binary, consequence))

	suggestion := ""
	if hint := installHint(dep.pkg); hint != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(hint))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
