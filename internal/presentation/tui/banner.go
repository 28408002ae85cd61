package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _          _   _   _          ", "#34d399"},
	{" | |    __ _| |_| |_(_) ___ ___ ", "#2dd4bf"},
	{" | |   / _` | __| __| |/ __/ _ \\", "#22d3ee"},
	{" | |__| (_| | |_| |_| | (_|  __/", "#38bdf8"},
	{" |_____\\__,_|\\__|\\__|_|\\___\\___|", "#60a5fa"},
}

// PrintBanner writes the Lattice banner and version to w.
// Colors degrade to the profile of the terminal behind w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  graph manifest compiler "+version).Faint())
	}
	fmt.Fprintln(w)
}
