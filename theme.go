package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type ThemeMode string

const (
	ThemeAuto  ThemeMode = "auto"
	ThemeDark  ThemeMode = "dark"
	ThemeLight ThemeMode = "light"
)

type SurfaceMode string

const (
	SurfaceSolid       SurfaceMode = "solid"
	SurfaceTransparent SurfaceMode = "transparent"
)

type Palette string

const (
	PaletteDraculaSoft Palette = "dracula-soft"
	PaletteClassic     Palette = "classic"
)

// ThemeConfig is the theme section of the configuration.
type ThemeConfig struct {
	Mode     string `yaml:"mode" toml:"mode"`
	Surfaces string `yaml:"surfaces" toml:"surfaces"`
	Palette  string `yaml:"palette" toml:"palette"`
}

// ThemeChoice is a validated ThemeConfig.
type ThemeChoice struct {
	Mode     ThemeMode
	Surfaces SurfaceMode
	Palette  Palette
}

func (c ThemeConfig) resolve() (ThemeChoice, error) {
	var tc ThemeChoice
	switch ThemeMode(strings.ToLower(strings.TrimSpace(c.Mode))) {
	case ThemeAuto, "":
		tc.Mode = ThemeAuto
	case ThemeDark:
		tc.Mode = ThemeDark
	case ThemeLight:
		tc.Mode = ThemeLight
	default:
		return ThemeChoice{}, fmt.Errorf("unknown theme mode %q (want auto, dark or light)", c.Mode)
	}
	switch SurfaceMode(strings.ToLower(strings.TrimSpace(c.Surfaces))) {
	case SurfaceTransparent, "":
		tc.Surfaces = SurfaceTransparent
	case SurfaceSolid:
		tc.Surfaces = SurfaceSolid
	default:
		return ThemeChoice{}, fmt.Errorf("unknown theme surfaces %q (want solid or transparent)", c.Surfaces)
	}
	p := Palette(strings.ToLower(strings.TrimSpace(c.Palette)))
	if p == "" {
		p = PaletteDraculaSoft
	}
	if _, ok := palettes[p]; !ok {
		return ThemeChoice{}, fmt.Errorf("unknown palette %q (want dracula-soft or classic)", c.Palette)
	}
	tc.Palette = p
	return tc, nil
}

// shade is one color for light and dark terminal backgrounds.
type shade struct {
	light, dark string
}

type paletteColors struct {
	muted, strong, onAccent, dim shade
	accent, border               shade
	surface, surfaceAlt          shade
	selectionBg, selectionFg     shade

	pink, cyan, orange, green, blue, danger string
	searchBg, searchFg                      string
}

var palettes = map[Palette]paletteColors{
	// Dracula on dark backgrounds; the light side follows the classic palette.
	PaletteDraculaSoft: {
		muted:       shade{"#6B7394", "#B6B8C9"},
		strong:      shade{"#0B0D19", "#F8F8F2"},
		onAccent:    shade{"#F8FBFF", "#282A36"},
		dim:         shade{"#8890A8", "#7D8297"},
		accent:      shade{"#6C63FF", "#A78BFA"},
		border:      shade{"#D7DBF5", "#44475A"},
		surface:     shade{"#F7F8FE", "#282A36"},
		surfaceAlt:  shade{"#FFFFFF", "#2F3344"},
		selectionBg: shade{"#E6E9F6", "#44475A"},
		selectionFg: shade{"#0B0D19", "#F8F8F2"},
		pink:        "#FF79C6",
		cyan:        "#8BE9FD",
		orange:      "#FFB86C",
		green:       "#50FA7B",
		blue:        "#6EA8FE",
		danger:      "#FF5555",
		searchBg:    "#F1FA8C",
		searchFg:    "#282A36",
	},
	PaletteClassic: {
		muted:       shade{"#6B7394", "#9BA3BC"},
		strong:      shade{"#0B0D19", "#F8FBFF"},
		onAccent:    shade{"#F8FBFF", "#0B0D19"},
		dim:         shade{"#8890A8", "#7E869E"},
		accent:      shade{"#6C63FF", "#A8A0FF"},
		border:      shade{"#D7DBF5", "#454B66"},
		surface:     shade{"#F7F8FE", "#11121C"},
		surfaceAlt:  shade{"#FFFFFF", "#1A1C28"},
		selectionBg: shade{"#E6E9F6", "#3B3F5C"},
		selectionFg: shade{"#0B0D19", "#F5F7FF"},
		pink:        "#F06A9B",
		cyan:        "#4DD0E1",
		orange:      "#FFB347",
		green:       "#2BD19F",
		blue:        "#5D9CFF",
		danger:      "#FF5F6D",
		searchBg:    "#FFD54F",
		searchFg:    "#1A1A1A",
	},
}

// Theme is the resolved set of colors the styles are built from. The
// State* colors tint job states in badges, stats chips and the legend.
type Theme struct {
	TextMuted    lipgloss.TerminalColor
	TextStrong   lipgloss.TerminalColor
	TextOnAccent lipgloss.TerminalColor
	TextDim      lipgloss.TerminalColor

	Accent     lipgloss.TerminalColor
	Border     lipgloss.TerminalColor
	Surface    lipgloss.TerminalColor
	SurfaceAlt lipgloss.TerminalColor

	SelectionBg lipgloss.TerminalColor
	SelectionFg lipgloss.TerminalColor
	SearchBg    lipgloss.TerminalColor
	SearchFg    lipgloss.TerminalColor

	Alert   lipgloss.TerminalColor
	Notice  lipgloss.TerminalColor
	Paused  lipgloss.TerminalColor
	Neutral lipgloss.TerminalColor

	StateRunning   lipgloss.TerminalColor
	StatePending   lipgloss.TerminalColor
	StateCompleted lipgloss.TerminalColor
	StateCancelled lipgloss.TerminalColor
	StateFailed    lipgloss.TerminalColor
}

func newTheme(tc ThemeChoice) Theme {
	p := palettes[tc.Palette]
	pick := func(s shade) lipgloss.TerminalColor {
		return pickColor(tc.Mode, s.light, s.dark)
	}
	surface := func(s shade) lipgloss.TerminalColor {
		if tc.Surfaces == SurfaceTransparent {
			return lipgloss.NoColor{}
		}
		return pick(s)
	}
	return Theme{
		TextMuted:    pick(p.muted),
		TextStrong:   pick(p.strong),
		TextOnAccent: pick(p.onAccent),
		TextDim:      pick(p.dim),
		Accent:       pick(p.accent),
		Border:       pick(p.border),
		Surface:      surface(p.surface),
		SurfaceAlt:   surface(p.surfaceAlt),
		SelectionBg:  pick(p.selectionBg),
		SelectionFg:  pick(p.selectionFg),
		SearchBg:     lipgloss.Color(p.searchBg),
		SearchFg:     lipgloss.Color(p.searchFg),

		Alert:   lipgloss.Color(p.pink),
		Notice:  lipgloss.Color(p.green),
		Paused:  lipgloss.Color(p.orange),
		Neutral: lipgloss.Color(p.cyan),

		StateRunning:   lipgloss.Color(p.green),
		StatePending:   lipgloss.Color(p.orange),
		StateCompleted: lipgloss.Color(p.blue),
		StateCancelled: lipgloss.Color(p.pink),
		StateFailed:    lipgloss.Color(p.danger),
	}
}

func pickColor(mode ThemeMode, light, dark string) lipgloss.TerminalColor {
	switch mode {
	case ThemeDark:
		return lipgloss.Color(dark)
	case ThemeLight:
		return lipgloss.Color(light)
	default:
		return lipgloss.AdaptiveColor{Light: light, Dark: dark}
	}
}

var defaultThemeChoice = ThemeChoice{Mode: ThemeAuto, Surfaces: SurfaceTransparent, Palette: PaletteDraculaSoft}

func init() {
	useTheme(defaultThemeChoice)
}

// useTheme makes tc the active theme and rebuilds every style from it.
func useTheme(tc ThemeChoice) {
	switch tc.Mode {
	case ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	case ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	}
	theme = newTheme(tc)
	buildStyles(theme)
}
