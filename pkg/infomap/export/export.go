// Package export writes the reports of an Infomap run: the module tree, the
// cluster vector, node ranks and the flow network. Report files ending in
// .snappy are written with snappy stream framing.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-infomap/pkg/infomap"
)

// Format identifies a report type by its file extension.
type Format string

const (
	FormatTree Format = "tree"
	FormatClu  Format = "clu"
	FormatRank Format = "rank"
	FormatFlow Format = "flow"
)

// AllFormats lists every report type.
var AllFormats = []Format{FormatTree, FormatClu, FormatRank, FormatFlow}

// ErrUnknownFormat is returned for a report type without a writer.
var ErrUnknownFormat = errors.New("export: unknown format")

// ParseFormat parses a report type name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	for _, known := range AllFormats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Write writes the report of type f for res to w.
func Write(w io.Writer, f Format, res *infomap.Result) error {
	switch f {
	case FormatTree:
		return WriteTree(w, res)
	case FormatClu:
		return WriteClu(w, res)
	case FormatRank:
		return WriteRank(w, res)
	case FormatFlow:
		return WriteFlow(w, res)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteTree writes the module hierarchy, one line per vertex in tree order:
// its 1-based path, flow, quoted name and vertex index.
func WriteTree(w io.Writer, res *infomap.Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Codelength %f bits. Network size: %d nodes and %d links.\n",
		res.Codelength, res.NumVertices(), len(res.Links))

	var walk func(id int, prefix string)
	walk = func(id int, prefix string) {
		for i, c := range res.Tree[id].Children {
			node := res.Tree[c]
			path := prefix + strconv.Itoa(i+1)
			if node.IsLeaf() {
				fmt.Fprintf(bw, "%s %g %q %d\n", path, node.Flow, res.VertexName(node.Vertex), node.Vertex)
				continue
			}
			walk(c, path+":")
		}
	}
	if len(res.Tree) > 0 {
		walk(0, "")
	}
	return bw.Flush()
}

// WriteClu writes the top-level module of every vertex, numbered from 1.
func WriteClu(w io.Writer, res *infomap.Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "*Vertices %d\n", res.NumVertices())
	for v, label := range res.Labels() {
		fmt.Fprintf(bw, "%d %d %d\n", v, v, label+1)
	}
	return bw.Flush()
}

// WriteRank writes the flow of every vertex.
func WriteRank(w io.Writer, res *infomap.Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#node-flow")
	for v := 0; v < res.NumVertices(); v++ {
		fmt.Fprintf(bw, "%f\n", res.Flow(v))
	}
	return bw.Flush()
}

// WriteFlow writes the flow network: the flow data of every vertex, then
// the links with their weight and flow.
func WriteFlow(w io.Writer, res *infomap.Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "*Vertices %d\n", res.NumVertices())
	for v := 0; v < res.NumVertices(); v++ {
		leaf := res.Tree[res.LeafNode(v)]
		fmt.Fprintf(bw, "%d %q %g %g %g\n", v, res.VertexName(v), leaf.Flow, leaf.EnterFlow, leaf.ExitFlow)
	}
	fmt.Fprintf(bw, "*Links %d\n", len(res.Links))
	for _, l := range res.Links {
		fmt.Fprintf(bw, "%d %d %g %g\n", l.Source, l.Target, l.Weight, l.Flow)
	}
	return bw.Flush()
}

// WriteFiles writes one report per format to dir, named base.<format>, or
// base.<format>.snappy when compress is set. It returns the paths written.
func WriteFiles(dir, base string, res *infomap.Result, formats []Format, compress bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		name := base + "." + string(f)
		if compress {
			name += ".snappy"
		}
		path := filepath.Join(dir, name)
		if err := writeFile(path, f, res); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, f Format, res *infomap.Result) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	var w io.Writer = file
	if IsCompressed(path) {
		cw := NewCompressedWriter(file)
		defer func() {
			if cerr := cw.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to flush %s: %w", path, cerr)
			}
		}()
		w = cw
	}

	if err := Write(w, f, res); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
