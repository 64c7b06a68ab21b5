package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/notebooklm-cli/internal/application"
	"github.com/bnema/notebooklm-cli/internal/domain"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(status application.AuthStatus, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("NotebookLM Session"),
		stateLine(status.State, s),
	}

	if status.CookieCount > 0 {
		lines = append(lines, keyValue(s, "cookies", fmt.Sprintf("%d stored", status.CookieCount)))
	}
	if len(status.MissingCookies) > 0 {
		lines = append(lines, s.warn.Render("missing: "+strings.Join(status.MissingCookies, ", ")))
	}
	if status.CookieCount > 0 {
		token := "absent (refreshed on first call)"
		if status.HasCSRFToken {
			token = "present"
		}
		lines = append(lines, keyValue(s, "request token", token))
	}
	if status.CapturedAt != "" {
		lines = append(lines, keyValue(s, "captured", status.CapturedAt))
	}
	if status.Detail != "" && status.State != application.AuthStateAuthenticated {
		lines = append(lines, s.faint.Render(status.Detail))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func stateLine(state application.AuthState, s styles) string {
	switch state {
	case application.AuthStateAuthenticated:
		return s.good.Render("● authenticated")
	case application.AuthStateExpired:
		return s.warn.Render("● expired")
	default:
		return s.bad.Render("● not authenticated")
	}
}

func keyValue(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(key+": "), s.value.Render(value))
}

// RenderNotebooks draws the notebook listing for the terminal.
func RenderNotebooks(notebooks []domain.Notebook, opts RenderOptions) string {
	s := newStyles()

	lines := []string{
		s.title.Render("Notebooks"),
		s.header.Render(fmt.Sprintf("count: %d", len(notebooks))),
	}
	if len(notebooks) == 0 {
		lines = append(lines, s.faint.Render("No notebooks found."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, nb := range notebooks {
		lines = append(lines, s.section.Render(renderNotebook(nb, opts, s)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderNotebook(nb domain.Notebook, opts RenderOptions, s styles) string {
	meta := []string{fmt.Sprintf("%d sources", len(nb.Sources))}
	if !nb.IsOwned {
		meta = append(meta, "shared with you")
	} else if nb.IsShared {
		meta = append(meta, "shared")
	}
	if !nb.ModifiedAt.IsZero() {
		meta = append(meta, "modified "+formatRelative(nb.ModifiedAt, opts.Now))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		s.notebook.Render(nb.Title),
		s.faint.Render(string(nb.ID)),
		s.value.Render(strings.Join(meta, " · ")),
	)
}

// RenderSources draws the source listing of one notebook.
func RenderSources(sources []domain.Source) string {
	s := newStyles()

	lines := []string{s.header.Render(fmt.Sprintf("sources: %d", len(sources)))}
	for _, src := range sources {
		entry := lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.value.Render(src.Title),
			s.faint.Render("  ["+src.TypeName+"]"),
		)
		lines = append(lines, entry, s.faint.Render("  "+string(src.ID)))
		if src.URL != "" {
			lines = append(lines, s.faint.Render("  "+src.URL))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatRelative(t, now time.Time) string {
	if now.IsZero() {
		return t.Format("2006-01-02")
	}

	age := now.Sub(t)
	switch {
	case age < time.Hour:
		return "just now"
	case age < 24*time.Hour:
		hours := int(age.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case age < 14*24*time.Hour:
		days := int(age.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
