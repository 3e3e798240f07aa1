package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-infomap/pkg/infomap"
)

type rawLink struct {
	source, target int
	weight         float64
}

// readLinkList parses a link list: one "source target [weight]" per line.
// Vertex tokens are names, numbered in order of first appearance. Blank
// lines, lines starting with # or %, and section headers starting with *
// are skipped.
func readLinkList(r io.Reader, directed bool) (*infomap.Network, error) {
	index := make(map[string]int)
	var names []string
	vertex := func(token string) int {
		if v, ok := index[token]; ok {
			return v
		}
		v := len(names)
		index[token] = v
		names = append(names, token)
		return v
	}

	var links []rawLink
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "*") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("line %d: expected \"source target [weight]\", got %q", lineNo, line)
		}
		weight := 1.0
		if len(fields) == 3 {
			w, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid weight %q: %w", lineNo, fields[2], err)
			}
			weight = w
		}
		links = append(links, rawLink{source: vertex(fields[0]), target: vertex(fields[1]), weight: weight})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read link list: %w", err)
	}

	net := infomap.NewNetwork(len(names))
	for v, name := range names {
		if err := net.SetVertexName(v, name); err != nil {
			return nil, err
		}
	}
	for _, l := range links {
		if err := net.AddTransaction(l.source, l.target, l.weight, directed); err != nil {
			return nil, err
		}
	}
	return net, nil
}
