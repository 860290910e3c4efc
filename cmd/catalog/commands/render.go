package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/product"
)

var (
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F848E"))
	detailStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#61AFEF")).
			Padding(0, 1)
)

func statusBadge(s catalog.Status) string {
	label := "[" + strings.ToUpper(s.String()) + "]"
	switch s {
	case catalog.StatusLoading:
		return loadingStyle.Render(label)
	case catalog.StatusSuccess:
		return successStyle.Render(label)
	default:
		return errorStyle.Render(label)
	}
}

func renderError(out io.Writer, status catalog.Status, message string, code int) {
	line := statusBadge(status) + " " + message
	if code != 0 {
		line += mutedStyle.Render(fmt.Sprintf(" (code %d)", code))
	}
	_, _ = fmt.Fprintln(out, line)
}

func renderList(out io.Writer, s catalog.ListState) {
	products, ok := s.Get()
	if !ok {
		if s.IsError() {
			renderError(out, s.Status, s.Message, s.Code)
			return
		}
		_, _ = fmt.Fprintln(out, statusBadge(s.Status))
		return
	}

	_, _ = fmt.Fprintf(out, "%s %d products\n", statusBadge(s.Status), len(products))
	for _, p := range products {
		_, _ = fmt.Fprintf(out, "  %s %s  %s  %s\n",
			mutedStyle.Render(fmt.Sprintf("#%-3d", p.ID)),
			titleStyle.Render(p.Title),
			priceLine(p),
			mutedStyle.Render("★ "+p.Rating.StringFixed(2)),
		)
	}
}

func renderDetail(out io.Writer, s catalog.DetailState) {
	p, ok := s.Get()
	if !ok {
		if s.IsError() {
			renderError(out, s.Status, s.Message, s.Code)
			return
		}
		_, _ = fmt.Fprintln(out, statusBadge(s.Status))
		return
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Title))
	b.WriteString("\n")
	if p.Description != "" {
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Price:    %s\n", priceLine(p))
	fmt.Fprintf(&b, "Rating:   %s\n", p.Rating.StringFixed(2))
	fmt.Fprintf(&b, "Stock:    %d\n", p.Stock)
	fmt.Fprintf(&b, "Brand:    %s\n", orDash(p.Brand))
	fmt.Fprintf(&b, "Category: %s\n", orDash(p.Category))
	fmt.Fprintf(&b, "Images:   %d", len(p.Images))

	_, _ = fmt.Fprintln(out, statusBadge(s.Status))
	_, _ = fmt.Fprintln(out, detailStyle.Render(b.String()))
}

func priceLine(p product.Product) string {
	if !p.HasDiscount() {
		return "$" + p.Price.StringFixed(2)
	}
	return fmt.Sprintf("$%s %s",
		p.DiscountedPrice().StringFixed(2),
		mutedStyle.Render(fmt.Sprintf("($%s -%s%%)", p.Price.StringFixed(2), p.DiscountPercentage.String())),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
