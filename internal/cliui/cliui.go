// Package cliui holds terminal presentation helpers for cmd/docstore:
// lipgloss-styled tables, a huh interactive init wizard and a
// glamour-rendered Markdown schema report. None of it is reachable from
// the docstore facade or internal/{keycodec,model,maintain,planner,schema,kvs}
// — it exists purely for the CLI (SPEC_FULL.md §6).
package cliui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/object-layer/document-store/internal/schema"
	"github.com/object-layer/document-store/internal/storeconfig"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// RenderStatistics renders a store's statistics as a small styled table.
func RenderStatistics(name string, stats schema.Statistics) string {
	rows := [][2]string{
		{"store", name},
		{"key/value pairs", fmt.Sprintf("%d", stats.PairsCount)},
		{"collections", fmt.Sprintf("%d", stats.CollectionsCount)},
		{"removed collections", fmt.Sprintf("%d", stats.RemovedCollectionsCount)},
		{"indexes", fmt.Sprintf("%d", stats.IndexesCount)},
	}

	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("docstore statistics"))
	b.WriteString("\n")
	b.WriteString(borderStyle.Render(strings.Repeat("─", width+20)))
	b.WriteString("\n")
	for _, r := range rows {
		label := cellStyle.Render(fmt.Sprintf("%-*s", width, r[0]))
		b.WriteString(label)
		b.WriteString(cellStyle.Render(r[1]))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderDescription renders a Markdown summary of cfg's declared shape
// through glamour, for `docstore describe`.
func RenderDescription(cfg *storeconfig.StoreConfig) (string, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", cfg.Name)
	fmt.Fprintf(&md, "backend: `%s`\n\n", cfg.URL)
	if len(cfg.Collections) == 0 {
		md.WriteString("_no collections declared_\n")
	}
	for _, c := range cfg.Collections {
		fmt.Fprintf(&md, "## %s\n\n", c.Name)
		if len(c.Indexes) == 0 {
			md.WriteString("_no indexes declared_\n\n")
			continue
		}
		for _, ix := range c.Indexes {
			fmt.Fprintf(&md, "- `%s`", strings.Join(ix.Properties, "+"))
			if len(ix.Projection) > 0 {
				fmt.Fprintf(&md, " — projects `%s`", strings.Join(ix.Projection, ", "))
			}
			md.WriteString("\n")
		}
		md.WriteString("\n")
	}

	out, err := glamour.Render(md.String(), "dark")
	if err != nil {
		return "", fmt.Errorf("cliui: rendering description: %w", err)
	}
	return out, nil
}

// RunInitWizard interactively collects a new StoreConfig through a huh form,
// for `docstore init`.
func RunInitWizard() (*storeconfig.StoreConfig, error) {
	cfg := &storeconfig.StoreConfig{Version: storeconfig.CurrentVersion}
	var collectionsCSV string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Store name").
				Value(&cfg.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a store name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Backend URL").
				Description("sqlite://path, mysql://dsn, or dolt://path").
				Value(&cfg.URL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a backend URL is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Collections").
				Description("comma-separated collection names, e.g. users, orders").
				Value(&collectionsCSV),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("cliui: running init wizard: %w", err)
	}

	for _, name := range strings.Split(collectionsCSV, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cfg.Collections = append(cfg.Collections, storeconfig.CollectionConfig{Name: name})
	}
	return cfg, nil
}
