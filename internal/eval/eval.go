// Package eval is the offline evaluation harness: a data-driven set of
// queries with expected document paths, run against a real search.Engine to
// catch retrieval regressions without a human in the loop.
package eval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mr-nozko/rag-mcp/internal/search"
)

// QuerySpec is one evaluation query with its expected results.
type QuerySpec struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Query     string   `yaml:"query"`
	Namespace string   `yaml:"namespace"`
	Expected  []string `yaml:"expected"`
	Notes     string   `yaml:"notes"`
	Tier      int      `yaml:"-"`
}

// Suite holds every query loaded from testdata/queries.yaml, grouped by tier.
// Tier 1 queries must pass; Tier 2 queries are a quality-tracking signal;
// Negative queries must not error or crash.
type Suite struct {
	Tier1    []QuerySpec `yaml:"tier1"`
	Tier2    []QuerySpec `yaml:"tier2"`
	Negative []QuerySpec `yaml:"negative"`
}

var (
	suiteOnce sync.Once
	suite     *Suite
	suiteErr  error
)

// LoadSuite loads and caches the query suite from testdata/queries.yaml,
// resolved relative to this source file so it works regardless of the
// caller's working directory.
func LoadSuite() (*Suite, error) {
	suiteOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			suiteErr = fmt.Errorf("resolve eval package source path")
			return
		}
		path := filepath.Join(filepath.Dir(filename), "testdata", "queries.yaml")

		data, err := os.ReadFile(path)
		if err != nil {
			suiteErr = fmt.Errorf("read %s: %w", path, err)
			return
		}

		var s Suite
		if err := yaml.Unmarshal(data, &s); err != nil {
			suiteErr = fmt.Errorf("parse queries.yaml: %w", err)
			return
		}
		for i := range s.Tier1 {
			s.Tier1[i].Tier = 1
		}
		for i := range s.Tier2 {
			s.Tier2[i].Tier = 2
		}
		for i := range s.Negative {
			s.Negative[i].Tier = 0
		}
		suite = &s
	})
	return suite, suiteErr
}

// ResetSuite clears the cached suite; exported for tests that load a
// different testdata fixture than the package default.
func ResetSuite() {
	suiteOnce = sync.Once{}
	suite = nil
	suiteErr = nil
}

// QueryResult is the outcome of running one QuerySpec.
type QueryResult struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ms"`
	TopResults []string      `json:"top_results"`
	MatchedAt  int           `json:"matched_at"`
	Error      string        `json:"error,omitempty"`
}

// Report is the result of a full Run across all tiers.
type Report struct {
	Timestamp  time.Time     `json:"timestamp"`
	Tier1      []QueryResult `json:"tier1"`
	Tier2      []QueryResult `json:"tier2"`
	Negative   []QueryResult `json:"negative"`
	Tier1Pass  int           `json:"tier1_pass"`
	Tier1Total int           `json:"tier1_total"`
	Tier2Pass  int           `json:"tier2_pass"`
	Tier2Total int           `json:"tier2_total"`
	NegPass    int           `json:"negative_pass"`
	NegTotal   int           `json:"negative_total"`
}

// Runner executes evaluation queries against a live search engine.
type Runner struct {
	engine *search.Engine
}

func NewRunner(engine *search.Engine) *Runner {
	return &Runner{engine: engine}
}

// RunQuery executes a single query and scores whether any expected path
// appears among the returned results. A query with no Expected entries is a
// negative test: it passes unless the engine itself errors.
func (r *Runner) RunQuery(ctx context.Context, spec QuerySpec) QueryResult {
	start := time.Now()
	result := QueryResult{Spec: spec, MatchedAt: -1}

	results, err := r.engine.Search(ctx, search.Query{
		Text:      spec.Query,
		K:         10,
		Namespace: spec.Namespace,
	})
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.TopResults = make([]string, len(results))
	for i, res := range results {
		result.TopResults[i] = res.DocPath
	}

	if len(spec.Expected) == 0 {
		result.Passed = true
		return result
	}

	result.Passed, result.MatchedAt = matchExpected(result.TopResults, spec.Expected)
	return result
}

// RunAll runs every query in the suite and tallies pass counts per tier.
func (r *Runner) RunAll(ctx context.Context, s *Suite) *Report {
	report := &Report{Timestamp: time.Now()}

	for _, spec := range s.Tier1 {
		qr := r.RunQuery(ctx, spec)
		report.Tier1 = append(report.Tier1, qr)
		report.Tier1Total++
		if qr.Passed {
			report.Tier1Pass++
		}
	}
	for _, spec := range s.Tier2 {
		qr := r.RunQuery(ctx, spec)
		report.Tier2 = append(report.Tier2, qr)
		report.Tier2Total++
		if qr.Passed {
			report.Tier2Pass++
		}
	}
	for _, spec := range s.Negative {
		qr := r.RunQuery(ctx, spec)
		report.Negative = append(report.Negative, qr)
		report.NegTotal++
		if qr.Passed {
			report.NegPass++
		}
	}
	return report
}

func matchExpected(results, expected []string) (bool, int) {
	for i, path := range results {
		for _, exp := range expected {
			if strings.HasPrefix(path, exp) || strings.Contains(path, exp) {
				return true, i
			}
		}
	}
	return false, -1
}
