package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestThemeConfigResolve(t *testing.T) {
	tc, err := ThemeConfig{}.resolve()
	if err != nil {
		t.Fatalf("empty config: %v", err)
	}
	if tc != defaultThemeChoice {
		t.Fatalf("empty config = %+v, want %+v", tc, defaultThemeChoice)
	}

	tc, err = ThemeConfig{Mode: " Dark ", Surfaces: "SOLID", Palette: "classic"}.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tc.Mode != ThemeDark || tc.Surfaces != SurfaceSolid || tc.Palette != PaletteClassic {
		t.Fatalf("unexpected choice %+v", tc)
	}

	bad := []struct {
		cfg  ThemeConfig
		want string
	}{
		{ThemeConfig{Mode: "sepia"}, "theme mode"},
		{ThemeConfig{Surfaces: "glass"}, "surfaces"},
		{ThemeConfig{Palette: "solarized"}, "palette"},
	}
	for _, tt := range bad {
		if _, err := tt.cfg.resolve(); err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("resolve(%+v) error = %v, want mention of %q", tt.cfg, err, tt.want)
		}
	}
}

func TestNewThemeModes(t *testing.T) {
	dark := newTheme(ThemeChoice{Mode: ThemeDark, Surfaces: SurfaceSolid, Palette: PaletteDraculaSoft})
	if dark.Surface != lipgloss.Color("#282A36") {
		t.Fatalf("dark solid surface = %v", dark.Surface)
	}
	light := newTheme(ThemeChoice{Mode: ThemeLight, Surfaces: SurfaceSolid, Palette: PaletteDraculaSoft})
	if light.Surface != lipgloss.Color("#F7F8FE") {
		t.Fatalf("light solid surface = %v", light.Surface)
	}
	auto := newTheme(ThemeChoice{Mode: ThemeAuto, Surfaces: SurfaceTransparent, Palette: PaletteClassic})
	if _, ok := auto.Accent.(lipgloss.AdaptiveColor); !ok {
		t.Fatalf("auto mode accent should adapt, got %T", auto.Accent)
	}
	if _, ok := auto.Surface.(lipgloss.NoColor); !ok {
		t.Fatalf("transparent surface should have no color, got %T", auto.Surface)
	}
}

func TestUseThemeRecolorsStates(t *testing.T) {
	t.Cleanup(func() { useTheme(defaultThemeChoice) })

	useTheme(ThemeChoice{Mode: ThemeDark, Surfaces: SurfaceSolid, Palette: PaletteClassic})
	if got := stateColor(StateFailed); got != lipgloss.Color("#FF5F6D") {
		t.Fatalf("failed color = %v", got)
	}
	if got := stateColor(StateRunning); got != lipgloss.Color("#2BD19F") {
		t.Fatalf("running color = %v", got)
	}

	useTheme(defaultThemeChoice)
	if got := stateColor(StateFailed); got != lipgloss.Color("#FF5555") {
		t.Fatalf("failed color after reset = %v", got)
	}
	if stateColor(StateHeader) != theme.TextMuted || stateColor(StateUnknown) != theme.TextDim {
		t.Fatal("header and unknown states use the muted colors")
	}
}
