package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Summary aggregates a batch run.
type Summary struct {
	Total     int      `json:"total" yaml:"total"`
	Succeeded int      `json:"succeeded" yaml:"succeeded"`
	Failed    []Result `json:"failed,omitempty" yaml:"failed,omitempty"`
	Missing   []string `json:"missing,omitempty" yaml:"missing,omitempty"` // union over all roots, sorted

	// Diagnostics lists the format errors of every root, converted or not.
	Diagnostics []string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Summarize counts results and collects every failure, missing part and
// diagnostic.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	missing := make(map[string]struct{})
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed = append(s.Failed, r)
		}
		for _, m := range r.Missing {
			missing[m] = struct{}{}
		}
		s.Diagnostics = append(s.Diagnostics, r.Diagnostics...)
	}
	for m := range missing {
		s.Missing = append(s.Missing, m)
	}
	sort.Strings(s.Missing)
	return s
}

// Manifest is the document written after a run.
type Manifest struct {
	Summary Summary  `json:"summary" yaml:"summary"`
	Results []Result `json:"results" yaml:"results"`
}

// WriteManifest writes results to path as YAML when the extension is .yaml
// or .yml, JSON otherwise.
func WriteManifest(path string, results []Result) error {
	m := Manifest{Summary: Summarize(results), Results: results}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("batch: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: write manifest: %w", err)
	}
	return nil
}
