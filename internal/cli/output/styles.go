package output

import "github.com/charmbracelet/lipgloss"

// Styles are the text-mode styles, bound to the renderer's color profile.
type Styles struct {
	Header        lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Error         lipgloss.Style
	Warning       lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

func newStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:        lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Bold:          lr.NewStyle().Bold(true),
		Muted:         lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success:       lr.NewStyle().Foreground(lipgloss.Color("10")),
		Error:         lr.NewStyle().Foreground(lipgloss.Color("9")),
		Warning:       lr.NewStyle().Foreground(lipgloss.Color("11")),
		StatusSuccess: lr.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		StatusFailed:  lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}
