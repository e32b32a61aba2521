// Package report renders experiment history and insights as console tables.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/liftstack/lift-engine/internal/models"
)

// Writer renders workflow results to a console-like output.
type Writer struct {
	out io.Writer
}

// NewWriter creates a report writer; nil defaults to stdout.
func NewWriter(out io.Writer) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{out: out}
}

// Experiments prints the experiment history, newest first.
func (w *Writer) Experiments(records []models.ExperimentRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w.out, "no experiments recorded")
		return
	}

	table := tablewriter.NewWriter(w.out)
	table.Header("#", "When", "Treatment", "Lift", "P(T>C)", "CI 95%", "Method", "Decision")

	for i, record := range records {
		table.Append(
			fmt.Sprintf("%d", i+1),
			record.CreatedAt.Format("01-02 15:04"),
			variantLabel(record.Design.Treatment),
			fmt.Sprintf("%+.4f", record.Posterior.LiftMean),
			fmt.Sprintf("%.3f", record.Posterior.ProbTreatmentBetter),
			fmt.Sprintf("[%+.4f, %+.4f]", record.Posterior.CI95[0], record.Posterior.CI95[1]),
			string(record.Posterior.Method),
			string(record.Decision),
		)
	}

	table.Render()
}

// Insights prints mined attribute insights.
func (w *Writer) Insights(insights []models.AttributeInsight) {
	if len(insights) == 0 {
		fmt.Fprintln(w.out, "no insights mined yet")
		return
	}

	table := tablewriter.NewWriter(w.out)
	table.Header("Attribute", "Runs", "Ships", "Ship rate", "Mean lift")

	for _, insight := range insights {
		table.Append(
			insight.Attribute,
			fmt.Sprintf("%d", insight.Experiments),
			fmt.Sprintf("%d", insight.Ships),
			fmt.Sprintf("%.0f%%", insight.ShipRate*100),
			fmt.Sprintf("%+.4f", insight.MeanLift),
		)
	}

	table.Render()
}

func variantLabel(variant models.Variant) string {
	color := variant.CTAColor()
	if color == "" {
		color = "?"
	}
	return fmt.Sprintf("cta=%s discount=%.0f", color, variant.Discount())
}
