// Package ui provides terminal styling for svn-resolve CLI output.
// Uses adaptive colors so output stays readable in light and dark terminals.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorResolved = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorConflict = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	ResolvedStyle = lipgloss.NewStyle().Foreground(ColorResolved)
	ConflictStyle = lipgloss.NewStyle().Foreground(ColorConflict)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)

	// HeaderStyle for section headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconResolved = "✓"
	IconConflict = "✗"
)

// RenderResolved renders text with resolved (green) styling.
func RenderResolved(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return ResolvedStyle.Render(s)
}

// RenderConflict renders text with conflict (red) styling.
func RenderConflict(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return ConflictStyle.Render(s)
}

// RenderMuted renders text with muted (gray) styling.
func RenderMuted(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return MutedStyle.Render(s)
}

// RenderHeader renders a section header.
func RenderHeader(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return HeaderStyle.Render(s)
}
