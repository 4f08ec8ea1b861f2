package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`  _       _        _         __ _`,
	` (_)_ __ | |_ __ _| | _____ / _| | _____      __`,
	` | | '_ \| __/ _' | |/ / _ \ |_| |/ _ \ \ /\ / /`,
	` | | | | | || (_| |   <  __/  _| | (_) \ V  V /`,
	` |_|_| |_|\__\__,_|_|\_\___|_| |_|\___/ \_/\_/`,
}

// Teal to blue.
var bannerColors = []string{"#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa", "#818cf8"}

// PrintBanner writes the intakeflow banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
