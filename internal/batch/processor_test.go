package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ldraw2stl/internal/partstore"
	"ldraw2stl/internal/preview"
	"ldraw2stl/internal/resolve"
	"ldraw2stl/internal/stlmesh"
)

var parts = partstore.Memory{
	"plate.dat": "0 plate\n4 16 0 0 0 10 0 0 10 0 10 0 0 10\n",
	"tri.dat":   "3 16 1 0 0 2 0 0 1 1 0\n",
	"broken.dat": "1 16 0 0 0 1 0 0 0 1 0 0 0 1 nope.dat\n" +
		"3 16 0 0 0 1 0 0 0 1 0\n",
	"bad.dat": "3 16 0 0 0 1 0 0 0 1 0\n7 what\n",
}

type storeFetcher struct {
	store partstore.Memory
	files map[string]string
}

func (f *storeFetcher) FetchMissing(_ context.Context, names []string) error {
	for _, n := range names {
		if c, ok := f.files[n]; ok {
			f.store[n] = c
		}
	}
	return nil
}

func TestRunConverts(t *testing.T) {
	out := t.TempDir()
	cfg := Config{
		OutputDir: out,
		Resolver:  resolve.New(parts),
		Workers:   3,
	}

	results := Run(context.Background(), cfg, []string{"plate.dat", "tri.dat", "broken.dat", "bad.dat"})
	require.Len(t, results, 4)

	assert.True(t, results[0].Success)
	assert.Equal(t, "plate.dat", results[0].Name)
	assert.Equal(t, 2, results[0].Triangles)
	assert.Equal(t, filepath.Join(out, "plate.stl"), results[0].Output)
	assert.FileExists(t, results[0].Output)

	assert.True(t, results[1].Success)
	assert.Equal(t, 1, results[1].Triangles)

	assert.False(t, results[2].Success)
	assert.Equal(t, []string{"nope.dat"}, results[2].Missing)
	assert.Contains(t, results[2].Error, "nope.dat")
	assert.NoFileExists(t, filepath.Join(out, "broken.stl"))

	assert.True(t, results[3].Success)
	require.Len(t, results[3].Diagnostics, 1)
	assert.Contains(t, results[3].Diagnostics[0], "bad.dat:2")
}

func TestRunFetchesMissing(t *testing.T) {
	store := partstore.Memory{"root.dat": "1 16 0 0 0 1 0 0 0 1 0 0 0 1 sub.dat\n"}
	f := &storeFetcher{store: store, files: map[string]string{"sub.dat": "3 16 0 0 0 1 0 0 0 1 0\n"}}

	results := Run(context.Background(), Config{
		OutputDir: t.TempDir(),
		Resolver:  resolve.New(store),
		Fetcher:   f,
		Workers:   1,
	}, []string{"root.dat"})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success, results[0].Error)
	assert.Empty(t, results[0].Missing)
	assert.Equal(t, 1, results[0].Triangles)
}

func TestRunScalesAndPreviews(t *testing.T) {
	out := t.TempDir()
	results := Run(context.Background(), Config{
		OutputDir:   out,
		Resolver:    resolve.New(parts),
		Workers:     1,
		ScaleFactor: 0.5,
		Preview:     &preview.Options{Size: 16, Supersample: 1},
	}, []string{"tri.dat"})

	require.True(t, results[0].Success, results[0].Error)
	assert.Equal(t, filepath.Join(out, "tri.webp"), results[0].Preview)
	assert.FileExists(t, results[0].Preview)

	solid, err := stlmesh.Read(results[0].Output)
	require.NoError(t, err)
	require.Len(t, solid.Triangles, 1)
	v := solid.Triangles[0].Vertices
	assert.InDelta(t, 0.5, v[0][0], 1e-6)
	assert.InDelta(t, 1.0, v[1][0], 1e-6)
	assert.InDelta(t, 0.5, v[2][1], 1e-6)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Run(ctx, Config{
		OutputDir: t.TempDir(),
		Resolver:  resolve.New(parts),
		Workers:   2,
	}, []string{"plate.dat", "tri.dat"})

	for _, r := range results {
		assert.False(t, r.Success)
		assert.Equal(t, context.Canceled.Error(), r.Error)
	}
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "3001.stl", OutputName("3001.dat"))
	assert.Equal(t, "3001s01.stl", OutputName("s/3001s01.dat"))
	assert.Equal(t, "3001s01.stl", OutputName(`s\3001s01.dat`))
	assert.Equal(t, "model.stl", OutputName("model.ldr"))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		{Name: "a.dat", Success: true},
		{Name: "b.dat", Missing: []string{"y.dat", "x.dat"}, Error: "missing"},
		{Name: "c.dat", Missing: []string{"x.dat"}, Error: "missing"},
		{Name: "d.dat", Success: true, Diagnostics: []string{"ldraw: d.dat:2: bad number"}},
	})
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	require.Len(t, s.Failed, 2)
	assert.Equal(t, "b.dat", s.Failed[0].Name)
	assert.Equal(t, []string{"x.dat", "y.dat"}, s.Missing)
	assert.Equal(t, []string{"ldraw: d.dat:2: bad number"}, s.Diagnostics)
}

func TestWriteManifest(t *testing.T) {
	results := []Result{
		{Name: "a.dat", Success: true, Output: "STL/a.stl", Triangles: 12, Duration: time.Second},
		{Name: "b.dat", Error: "boom", Missing: []string{"x.dat"}},
	}
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, WriteManifest(jsonPath, results))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var jm Manifest
	require.NoError(t, json.Unmarshal(raw, &jm))
	assert.Equal(t, 1, jm.Summary.Succeeded)
	assert.Equal(t, results, jm.Results)

	yamlPath := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, WriteManifest(yamlPath, results))
	raw, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var ym Manifest
	require.NoError(t, yaml.Unmarshal(raw, &ym))
	assert.Equal(t, []string{"x.dat"}, ym.Summary.Missing)
	assert.Equal(t, "boom", ym.Results[1].Error)
}
