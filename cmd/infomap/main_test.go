package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-infomap/pkg/infomap"
)

const twoTriangles = `# two triangles joined by a bridge
1 2
2 3
3 1
4 5
5 6
6 4
3 4 0.1
`

func writeNetwork(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(ctx, args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunWritesReports(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "triangles.txt", twoTriangles)
	out := filepath.Join(dir, "out")

	stdout, err := runCLI(t, context.Background(), "-out", out, "-formats", "tree,clu,rank,flow", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Codelength")

	for _, ext := range []string{"tree", "clu", "rank", "flow"} {
		assert.FileExists(t, filepath.Join(out, "triangles."+ext))
	}

	clu, err := os.ReadFile(filepath.Join(out, "triangles.clu"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(clu)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "*Vertices 6", lines[0])
}

func TestRunCompressedInputAndOutput(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	_, err := w.Write([]byte(twoTriangles))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	input := writeNetwork(t, dir, "net.txt.snappy", buf.String())

	_, err = runCLI(t, context.Background(), "-out", dir, "-compress", "-quiet", "-input", input)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "net.tree.snappy"))
}

func TestRunFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "net.txt", twoTriangles)
	config := writeNetwork(t, dir, "run.yaml", "num_trials: 3\nseed: 7\n")

	stdout, err := runCLI(t, context.Background(), "-config", config, "-out", dir, input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "of 3")

	stdout, err = runCLI(t, context.Background(), "-config", config, "-trials", "2", "-out", dir, input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "of 2")
}

func TestRunMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "net.txt", twoTriangles)
	metricsPath := filepath.Join(dir, "infomap.prom")

	_, err := runCLI(t, context.Background(), "-out", dir, "-quiet", "-metrics", metricsPath, input)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "infomap_runs_total")
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "net.txt", twoTriangles)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing input", []string{"-out", dir}, nil},
		{"unknown format", []string{"-out", dir, "-formats", "xml", input}, nil},
		{"unknown dynamics", []string{"-out", dir, "-dynamics", "sideways", input}, infomap.ErrInvalidConfig},
		{"invalid trials", []string{"-out", dir, "-trials", "0", input}, infomap.ErrInvalidConfig},
		{"recorded without directed", []string{"-out", dir, "-recorded", input}, infomap.ErrInvalidConfig},
		{"unreadable network", []string{"-out", dir, filepath.Join(dir, "missing.txt")}, os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, context.Background(), tt.args...)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestRunSeedRange(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "net.txt", twoTriangles)

	for _, seed := range []string{"4294967296", "4294967297"} {
		_, err := runCLI(t, context.Background(), "-out", dir, "-quiet", "-seed", seed, input)
		require.Error(t, err, "seed %s", seed)
		assert.Contains(t, err.Error(), "cli.seed")
		assert.NoFileExists(t, filepath.Join(dir, "net.tree"))
	}

	_, err := runCLI(t, context.Background(), "-out", dir, "-quiet", "-seed", "4294967295", input)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "net.tree"))
}

func TestRunHelp(t *testing.T) {
	_, err := runCLI(t, context.Background(), "-h")
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "net.txt", twoTriangles)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runCLI(t, ctx, "-out", dir, input)
	assert.ErrorIs(t, err, infomap.ErrAborted)
	assert.NoFileExists(t, filepath.Join(dir, "net.tree"))
}

func TestParseFormats(t *testing.T) {
	formats, err := parseFormats("tree, clu,tree,.rank")
	require.NoError(t, err)
	assert.Len(t, formats, 3)

	_, err = parseFormats(" , ")
	assert.Error(t, err)
}

func TestReportBase(t *testing.T) {
	assert.Equal(t, "karate", reportBase("/data/karate.net"))
	assert.Equal(t, "karate", reportBase("karate.net.snappy"))
	assert.Equal(t, "edges", reportBase("edges"))
}
