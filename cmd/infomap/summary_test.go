package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-infomap/pkg/infomap"
	"github.com/dd0wney/cluso-infomap/pkg/logging"
)

func runTriangles(t *testing.T) *infomap.Result {
	t.Helper()
	net, err := readLinkList(strings.NewReader(twoTriangles), false)
	require.NoError(t, err)
	engine, err := infomap.NewEngine(infomap.DefaultConfig(),
		infomap.WithLogger(logging.NewJSONLogger(io.Discard, logging.ErrorLevel)))
	require.NoError(t, err)
	res, err := engine.Run(context.Background(), net)
	require.NoError(t, err)
	return res
}

func TestRenderSummary(t *testing.T) {
	res := runTriangles(t)
	out := renderSummary("triangles.txt", res, []string{"out/triangles.tree"})

	assert.Contains(t, out, "triangles.txt")
	assert.Contains(t, out, "6 / 7")
	assert.Contains(t, out, "Module 1")
	assert.Contains(t, out, "Module 2")
	assert.Contains(t, out, "wrote out/triangles.tree")
	assert.NotContains(t, out, "did not converge")
}

func TestRenderSummaryTruncatesModules(t *testing.T) {
	var b strings.Builder
	for k := 0; k < 12; k++ {
		fmt.Fprintf(&b, "t%d-0 t%d-1\nt%d-1 t%d-2\nt%d-2 t%d-0\n", k, k, k, k, k, k)
	}
	net, err := readLinkList(strings.NewReader(b.String()), false)
	require.NoError(t, err)
	res, err := infomap.Run(context.Background(), net, infomap.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 12, res.NumModules())

	out := renderSummary("triangles", res, nil)
	assert.Contains(t, out, "... 2 more")
}

func TestFormatLevels(t *testing.T) {
	assert.Equal(t, "[1.0000, 0.5000]", formatLevels([]float64{1, 0.5}))
	assert.Equal(t, "[]", formatLevels(nil))
}
