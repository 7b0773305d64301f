// Package report renders calibration results and experiment sweeps as Markdown,
// with an HTML conversion for the API and CLI.
package report

import (
	"fmt"
	"strings"

	"gocalib/domain/calibration"
	"gocalib/internal/experiment"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderResult summarizes a single calibration
func RenderResult(priorLabel string, r *calibration.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Calibration report\n\n")
	fmt.Fprintf(&b, "%d successes out of %d observations (empirical rate %.4f).\n\n",
		r.Successes(), r.SampleSize(), r.EmpiricalRate())

	b.WriteString("| Quantity | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Prior | %s %s |\n", priorLabel, r.PriorParameters())
	fmt.Fprintf(&b, "| Posterior | %s |\n", r.PosteriorParameters())
	fmt.Fprintf(&b, "| Confidence | %.2f%% |\n", r.ConfidenceLevel().Float64()*100)
	fmt.Fprintf(&b, "| Lower bound | %.6f |\n", r.LowerBound().Float64())
	fmt.Fprintf(&b, "| Upper bound | %.6f |\n", r.UpperBound().Float64())
	fmt.Fprintf(&b, "| Interval width | %.6f |\n", r.Width())
	fmt.Fprintf(&b, "| Posterior mean | %.6f |\n", r.MeanProbability().Float64())
	if median, ok := r.MedianProbability(); ok {
		fmt.Fprintf(&b, "| Posterior median (approx.) | %.6f |\n", median.Float64())
	} else {
		b.WriteString("| Posterior median (approx.) | n/a |\n")
	}

	fmt.Fprintf(&b, "\nThe true rate lies in [%.4f, %.4f] with %.0f%% posterior probability.\n",
		r.LowerBound().Float64(), r.UpperBound().Float64(), r.ConfidenceLevel().Float64()*100)
	return b.String()
}

// RenderTrials tabulates a trials experiment, one row per sample size
func RenderTrials(title string, records []experiment.TrialRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(records) > 0 {
		fmt.Fprintf(&b, "True probability %.4f, prior %s, confidence %.2f.\n\n",
			records[0].TrueProbability, records[0].PriorLabel, records[0].Confidence)
	}

	b.WriteString("| n | EMV | Posterior mean | Lower | Upper | Width | Covers truth |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|:---:|\n")
	for _, rec := range records {
		covers := "no"
		if rec.CoversTruth {
			covers = "yes"
		}
		fmt.Fprintf(&b, "| %d | %.4f | %.4f | %.4f | %.4f | %.4f | %s |\n",
			rec.Size, rec.EMV, rec.Calibrated, rec.LowerBound, rec.UpperBound, rec.UpperBound-rec.LowerBound, covers)
	}
	return b.String()
}

// RenderConvergence tabulates a convergence sweep with its summary
func RenderConvergence(title string, points []experiment.ConvergencePoint, summary experiment.ConvergenceSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Mean gap %.4f, max gap %.4f, final gap %.4f.\n\n", summary.MeanGap, summary.MaxGap, summary.FinalGap)

	b.WriteString("| n | EMV | Posterior mean | Gap |\n|---:|---:|---:|---:|\n")
	for _, p := range points {
		fmt.Fprintf(&b, "| %d | %.4f | %.4f | %.4f |\n", p.Size, p.EMV, p.Calibrated, p.Gap)
	}
	return b.String()
}

// ToHTML converts Markdown into a complete HTML page
func ToHTML(md string, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}
