// Package icon provides a flexible multi-variant rendering engine for UI symbols and feedback indicators.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII, kaomoji,
// or Unicode squares depending on user preference.
package icon

import (
	"github.com/kinoplay/kinoplay/key"
	"github.com/spf13/viper"
)

// Variants, in the order the config help lists them.
const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns the accepted values of the icons variant setting.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// glyphs maps a variant to the rendering of one icon.
type glyphs map[string]string

// Get renders i in the configured variant. An unknown variant renders plain
// so status lines keep their marker.
func Get(i Icon) string {
	g, ok := icons[i]
	if !ok {
		return ""
	}
	if s, ok := g[viper.GetString(key.IconsVariant)]; ok {
		return s
	}
	return g[plain]
}

// Icon identifies a UI symbol in the registry.
type Icon int

// Registered icons.
const (
	Success Icon = iota
	Fail
	Progress
	Play
	Switch
	Subtitle
	Audio
)

var icons = map[Icon]glyphs{
	Success: {
		emoji:   "✅",
		nerd:    "",
		plain:   "✓",
		kaomoji: "(ᵔ◡ᵔ)",
		squares: "🟩",
	},
	Fail: {
		emoji:   "❌",
		nerd:    "",
		plain:   "✗",
		kaomoji: "(╥﹏╥)",
		squares: "🟥",
	},
	Progress: {
		emoji:   "⏳",
		nerd:    "",
		plain:   "…",
		kaomoji: "(・_・ヾ",
		squares: "🟨",
	},
	Play: {
		emoji:   "▶️",
		nerd:    "",
		plain:   ">",
		kaomoji: "ᕕ( ᐛ )ᕗ",
		squares: "🟦",
	},
	Switch: {
		emoji:   "🔀",
		nerd:    "",
		plain:   "~>",
		kaomoji: "(ﾉ◕ヮ◕)ﾉ",
		squares: "🟪",
	},
	Subtitle: {
		emoji:   "💬",
		nerd:    "",
		plain:   "cc",
		kaomoji: "(￣▽￣)ノ",
		squares: "🟫",
	},
	Audio: {
		emoji:   "🔊",
		nerd:    "",
		plain:   "♪",
		kaomoji: "♪(´▽｀)",
		squares: "🟧",
	},
}
