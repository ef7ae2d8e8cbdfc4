package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent  = lipgloss.Color("205")
	colorText    = lipgloss.Color("252")
	colorTextDim = lipgloss.Color("240")
	colorError   = lipgloss.Color("196")
	colorMark    = lipgloss.Color("220")

	headerStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	botLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(colorText)

	markStyle = lipgloss.NewStyle().
			Foreground(colorMark).
			Underline(true)

	refStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	loadingStyle = lipgloss.NewStyle().
			Foreground(colorAccent)
)

// AnsiWrap marks a cited span in terminal output and tags it with its footer
// number.
func AnsiWrap(excerpt string, index int) string {
	return markStyle.Render(excerpt) + refStyle.Render(fmt.Sprintf("[%d]", index))
}
