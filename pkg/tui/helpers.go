package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

// formatSize formats byte counts with KB/MB suffixes.
func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// truncateText shortens text to at most maxLen terminal cells, ending in
// "..." when cut.
func truncateText(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return truncate.String(text, uint(maxLen))
	}
	return truncate.StringWithTail(text, uint(maxLen), "...")
}

// cleanPath normalizes a typed or pasted path: terminals wrap dropped files
// in quotes, and "~" is expanded to the home directory.
func cleanPath(raw string) string {
	p := strings.TrimSpace(raw)
	if len(p) >= 2 && (p[0] == '"' || p[0] == '\'') && p[len(p)-1] == p[0] {
		p = p[1 : len(p)-1]
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
