package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gocalib/domain/calibration"
	"gocalib/internal"
	"gocalib/internal/errors"
	"gocalib/internal/experiment"
	"gocalib/internal/metrics"
	"gocalib/internal/plotting"
	"gocalib/internal/report"
)

// ExperimentService runs experiment definitions and writes their outputs
type ExperimentService struct {
	runner *experiment.Runner
	logger *internal.Logger
}

// TrialsReport is the outcome of a trials experiment
type TrialsReport struct {
	Name    string                   `json:"name"`
	Records []experiment.TrialRecord `json:"records"`
}

// ConvergenceReport is the outcome of a convergence experiment
type ConvergenceReport struct {
	Name    string                        `json:"name"`
	Points  []experiment.ConvergencePoint `json:"points"`
	Summary experiment.ConvergenceSummary `json:"summary"`
}

// Execution lists what a definition produced
type Execution struct {
	Definition  *experiment.Definition `json:"definition"`
	Trials      *TrialsReport          `json:"trials,omitempty"`
	Convergence *ConvergenceReport     `json:"convergence,omitempty"`
	Files       []string               `json:"files"`
}

// NewExperimentService creates an experiment service around a runner
func NewExperimentService(runner *experiment.Runner, logger *internal.Logger) *ExperimentService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ExperimentService{runner: runner, logger: logger}
}

// RunTrials normalizes def and runs it as a trials experiment
func (s *ExperimentService) RunTrials(ctx context.Context, def *experiment.Definition) (*TrialsReport, error) {
	def.Kind = experiment.KindTrials
	if err := def.Normalize(); err != nil {
		return nil, errors.FromDomain(err)
	}
	cfg, err := def.TrialsConfig()
	if err != nil {
		return nil, errors.FromDomain(err)
	}

	records, err := s.runner.RunTrials(ctx, cfg)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	metrics.ExperimentRuns.WithLabelValues(string(experiment.KindTrials)).Inc()
	return &TrialsReport{Name: def.Name, Records: records}, nil
}

// RunConvergence normalizes def and runs it as a convergence experiment
func (s *ExperimentService) RunConvergence(ctx context.Context, def *experiment.Definition) (*ConvergenceReport, error) {
	def.Kind = experiment.KindConvergence
	def.Sizes = nil
	if err := def.Normalize(); err != nil {
		return nil, errors.FromDomain(err)
	}
	cfg, err := def.ConvergenceConfig()
	if err != nil {
		return nil, errors.FromDomain(err)
	}

	points, err := s.runner.RunConvergence(ctx, cfg)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	summary, err := experiment.SummarizeConvergence(points)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	metrics.ExperimentRuns.WithLabelValues(string(experiment.KindConvergence)).Inc()
	return &ConvergenceReport{Name: def.Name, Points: points, Summary: summary}, nil
}

// Execute runs def by kind and writes every configured output.
// Relative output paths are resolved against baseDir.
func (s *ExperimentService) Execute(ctx context.Context, def *experiment.Definition, baseDir string) (*Execution, error) {
	exec := &Execution{Definition: def, Files: []string{}}

	switch def.Kind {
	case experiment.KindConvergence:
		rep, err := s.RunConvergence(ctx, def)
		if err != nil {
			return nil, err
		}
		exec.Convergence = rep
		if err := s.writeConvergence(def, rep, baseDir, exec); err != nil {
			return nil, err
		}
	default:
		rep, err := s.RunTrials(ctx, def)
		if err != nil {
			return nil, err
		}
		exec.Trials = rep
		if err := s.writeTrials(def, rep, baseDir, exec); err != nil {
			return nil, err
		}
	}

	s.logger.Info("experiment %q finished, wrote %d file(s)", def.Name, len(exec.Files))
	return exec, nil
}

func (s *ExperimentService) writeTrials(def *experiment.Definition, rep *TrialsReport, baseDir string, exec *Execution) error {
	out := def.Output
	results := make([]*calibration.Result, len(rep.Records))
	for i, rec := range rep.Records {
		results[i] = rec.Result
	}

	return writeOutputs(baseDir, exec, []output{
		{out.CSV, func(p string) error { return experiment.WriteTrialsCSV(p, rep.Records) }},
		{out.XLSX, func(p string) error { return experiment.WriteTrialsXLSX(p, rep.Records) }},
		{out.Figure, func(p string) error { return plotting.PlotTrials(results, def.Name, def.TrueProbability, p) }},
		{out.Report, func(p string) error { return writeReport(p, def.Name, report.RenderTrials(def.Name, rep.Records)) }},
	})
}

func (s *ExperimentService) writeConvergence(def *experiment.Definition, rep *ConvergenceReport, baseDir string, exec *Execution) error {
	out := def.Output
	return writeOutputs(baseDir, exec, []output{
		{out.CSV, func(p string) error { return experiment.WriteConvergenceCSV(p, rep.Points) }},
		{out.XLSX, func(p string) error { return experiment.WriteConvergenceXLSX(p, rep.Points) }},
		{out.Figure, func(p string) error { return plotting.PlotConvergence(rep.Points, def.TrueProbability, p) }},
		{out.Report, func(p string) error {
			return writeReport(p, def.Name, report.RenderConvergence(def.Name, rep.Points, rep.Summary))
		}},
	})
}

type output struct {
	path  string
	write func(path string) error
}

func writeOutputs(baseDir string, exec *Execution, outputs []output) error {
	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		path := o.path
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return errors.ExportFailed(path, err)
		}
		if err := o.write(path); err != nil {
			return errors.ExportFailed(path, err)
		}
		exec.Files = append(exec.Files, path)
	}
	return nil
}

// writeReport stores Markdown, or a full HTML page when path ends in .html
func writeReport(path, title, md string) error {
	body := []byte(md)
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".html" || ext == ".htm" {
		body = report.ToHTML(md, title)
	}
	return os.WriteFile(path, body, 0o644)
}
