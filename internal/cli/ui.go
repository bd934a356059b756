package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorBlue   = lipgloss.Color("75")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleKey     = lipgloss.NewStyle().Width(16).Foreground(colorDim)
	styleLink    = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleNew     = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// field prints one "Key  value" line. Empty values print as "None" the way
// pacman -Qi does.
func field(w io.Writer, key, value string) {
	if value == "" {
		value = styleDim.Render("None")
	}
	fmt.Fprintf(w, "%s %s\n", styleKey.Render(key), value)
}

func listField(w io.Writer, key string, values []string) {
	field(w, key, strings.Join(values, "  "))
}

func linkField(w io.Writer, key, url string) {
	if url != "" {
		url = styleLink.Render(url)
	}
	field(w, key, url)
}
