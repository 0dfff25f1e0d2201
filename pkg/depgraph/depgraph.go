// Package depgraph renders the pod dependency graph of a resolution run.
//
// Nodes are root pods; subspec references collapse onto their root. Pods
// awaiting manual placement are drawn dashed and failed top-level pods red.
//
//	dot := depgraph.FromRun(state, report)
//	svg, err := depgraph.RenderSVG(dot)
//
// Rendering uses [github.com/goccy/go-graphviz] in-process, so no Graphviz
// installation is required.
package depgraph

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/podkit/pkg/deps"
	"github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/podspec"
)

// Options controls node styling.
type Options struct {
	Manual []string // Pods drawn dashed
	Failed []string // Pods drawn red
}

// FromRun builds the DOT source for the pods visited by a run.
func FromRun(st *deps.State, report *deps.Report) string {
	var opts Options
	for _, m := range st.ManualPackages() {
		opts.Manual = append(opts.Manual, m.Name)
	}
	if report != nil {
		for _, f := range report.Failures {
			opts.Failed = append(opts.Failed, f.Name)
		}
	}
	return ToDOT(st.Edges(), RootNodes(st), opts)
}

// RootNodes returns the root pod names in the seen set.
func RootNodes(st *deps.State) []string {
	var out []string
	for _, name := range st.SortedSeen() {
		if root, _ := podspec.SplitName(name); root == name {
			out = append(out, name)
		}
	}
	return out
}

// ToDOT converts edges and nodes to Graphviz DOT source. Nodes referenced
// only by edges or options are added.
func ToDOT(edges []deps.Edge, nodes []string, opts Options) string {
	all := slices.Clone(nodes)
	for _, e := range edges {
		all = append(all, e.From, e.To)
	}
	all = append(all, opts.Failed...)
	slices.Sort(all)
	all = slices.Compact(all)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range all {
		fmt.Fprintf(&buf, "  %q [%s];\n", n, strings.Join(nodeAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(name string, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", name)}
	switch {
	case slices.Contains(opts.Failed, name):
		attrs = append(attrs, "fillcolor=\"#f8d7da\"", "color=\"#c0392b\"")
	case slices.Contains(opts.Manual, name):
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// WriteFile writes dot to path, rendering it to SVG when path ends in .svg.
// Any other extension than .dot or .svg is an INVALID_INPUT error.
func WriteFile(path, dot string) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dot", ".gv":
		data = []byte(dot)
	case ".svg":
		svg, err := RenderSVG(dot)
		if err != nil {
			return err
		}
		data = svg
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unsupported graph format %q (want .dot or .svg)", filepath.Ext(path))
	}
	return os.WriteFile(path, data, 0o644)
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the graph scales from its
// origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
