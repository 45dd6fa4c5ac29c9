package format

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/franckalain/plantcare/internal/models"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // Fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ParseMode maps a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "table", "ascii":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return ASCII, fmt.Errorf("unknown output format %q (want table or markdown)", s)
}

const detailsWidth = 60

// Outcome is the result of one CLI scan, successful or not.
type Outcome struct {
	Image  string
	Result *models.ClassificationResult
	Err    error
}

func newWriter(m Mode) table.Writer {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return w
}

func render(w table.Writer, m Mode) string {
	if m == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// Outcomes renders scan outcomes in input order.
func Outcomes(m Mode, outcomes []Outcome) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"Image", "Plant", "Health", "Details"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: detailsWidth},
	})
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			w.AppendRow(table.Row{o.Image, "-", "-", "error: " + o.Err.Error()})
			continue
		}
		w.AppendRow(table.Row{o.Image, o.Result.Name, HealthMark(o.Result.Healthy()), o.Result.Details})
	}
	w.AppendFooter(table.Row{"", fmt.Sprintf("%d ok", len(outcomes)-failed), fmt.Sprintf("%d failed", failed), ""})
	return render(w, m)
}

// History renders stored scans, newest first.
func History(m Mode, scans []*models.Scan) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"When", "Kind", "Plant", "Health", "Details"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: detailsWidth},
	})
	for _, s := range scans {
		w.AppendRow(table.Row{
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(s.Kind),
			s.Name,
			HealthMark(s.Healthy()),
			Truncate(s.Details, 120),
		})
	}
	return render(w, m)
}

// Garden renders the garden listing.
func Garden(m Mode, plants []models.GardenPlant) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"#", "Plant", "Health"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	for i, p := range plants {
		w.AppendRow(table.Row{i + 1, p.Name, HealthMark(p.Health)})
	}
	return render(w, m)
}

// Care renders a care guide as a requirements table followed by the steps.
func Care(m Mode, name string, guide *models.CareGuide) string {
	var b strings.Builder

	req := newWriter(m)
	req.SetTitle("Care for " + name)
	req.AppendHeader(table.Row{"Requirement"})
	for _, r := range guide.Requirements {
		req.AppendRow(table.Row{r})
	}
	b.WriteString(render(req, m))
	b.WriteString("\n\n")

	steps := newWriter(m)
	steps.AppendHeader(table.Row{"Step", "Title", "Description"})
	steps.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, WidthMax: detailsWidth},
	})
	for i, s := range guide.Process {
		steps.AppendRow(table.Row{i + 1, s.Title, s.Description})
	}
	b.WriteString(render(steps, m))
	return b.String()
}

// HealthMark returns a short health label.
func HealthMark(healthy bool) string {
	if healthy {
		return "✓ healthy"
	}
	return "✗ unhealthy"
}

// Truncate shortens s to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
