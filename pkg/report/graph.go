package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	"github.com/matzehuels/licensecrawl/pkg/deps/license"
)

// GraphOptions configures dependency graph rendering.
type GraphOptions struct {
	// Policy fills rejected packages red. Nil allows all.
	Policy *license.Policy
}

// ToDOT converts the records and edges of res to Graphviz DOT. Nodes are
// labelled "name@version (license)"; unknown licenses are filled yellow and
// policy violations red.
func ToDOT(res *deps.Result, opts GraphOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph licenses {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=12];\n")
	buf.WriteString("\n")

	for _, rec := range res.Records {
		attrs := []string{fmt.Sprintf("label=%q", label(rec))}
		switch {
		case !opts.Policy.Allowed(rec.License):
			attrs = append(attrs, "fillcolor=\"#f8b4b4\"")
		case rec.License == deps.UnknownLicense:
			attrs = append(attrs, "fillcolor=\"#fde68a\"")
		}
		if rec.Status.Degraded() {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", rec.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range res.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Parent.String(), e.Child.String())
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
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
	return buf.Bytes(), nil
}

// WriteGraph writes the dependency graph of res to path. The extension
// picks the format: ".dot" or ".gv" for DOT source, ".svg" for a rendered
// image.
func WriteGraph(ctx context.Context, path string, res *deps.Result, opts GraphOptions) error {
	dot := ToDOT(res, opts)
	var data []byte
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".dot", ".gv":
		data = []byte(dot)
	case ".svg":
		svg, err := RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		data = svg
	default:
		return fmt.Errorf("unsupported graph format %q (want .dot or .svg)", ext)
	}
	return os.WriteFile(path, data, 0o644)
}
