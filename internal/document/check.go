package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultReportName is the file FinalCheck results are written to.
const DefaultReportName = "mermaid_final_check_report.json"

// DefaultWorkers is the number of files validated concurrently.
const DefaultWorkers = 4

// Collect returns the sorted .md and .mmd files under root. root may also
// be a single file. Directories whose base name is in exclude are skipped.
func Collect(root string, exclude []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if !Handles(root) {
			return nil, fmt.Errorf("%s is not a .md or .mmd file", root)
		}
		return []string{root}, nil
	}

	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if Handles(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Report summarizes a FinalCheck run.
type Report struct {
	RunID       string       `json:"run_id"`
	Root        string       `json:"root"`
	Renderer    string       `json:"renderer,omitempty"`
	AutoFix     bool         `json:"auto_fix"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	TotalFiles  int          `json:"total_files"`
	ValidFiles  int          `json:"valid_files"`
	FixedFiles  int          `json:"fixed_files"`
	FailedFiles int          `json:"failed_files"`
	Files       []FileResult `json:"files"`
}

// OK reports whether every file is valid.
func (r *Report) OK() bool {
	return r.FailedFiles == 0
}

// FinalCheckOptions configures FinalCheck.
type FinalCheckOptions struct {
	AutoFix  bool
	Workers  int
	Exclude  []string
	Renderer string
	// Progress, when set, is called once per file in path order.
	Progress func(FileResult)
}

// FinalCheck validates every diagram file under root with a bounded number
// of workers. Results are reported in path order.
func (p *Processor) FinalCheck(ctx context.Context, root string, opts FinalCheckOptions) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Root:      root,
		Renderer:  opts.Renderer,
		AutoFix:   opts.AutoFix,
		StartedAt: time.Now().UTC(),
	}

	files, err := Collect(root, opts.Exclude)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			res, err := p.ValidateFile(gctx, path, opts.AutoFix)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("final check of %s: %w", root, err)
	}

	for _, res := range results {
		report.TotalFiles++
		if res.Valid {
			report.ValidFiles++
			if res.Fixed {
				report.FixedFiles++
			}
		} else {
			report.FailedFiles++
		}
		if opts.Progress != nil {
			opts.Progress(res)
		}
	}
	report.Files = results
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// ReportPath returns where the report for root is stored: inside root when
// it is a directory, next to it otherwise.
func ReportPath(root, name string) string {
	if name == "" {
		name = DefaultReportName
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return filepath.Join(filepath.Dir(root), name)
	}
	return filepath.Join(root, name)
}

// WriteReport stores r as indented JSON at path.
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by WriteReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &r, nil
}
