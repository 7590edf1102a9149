package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
	"github.com/Sumatoshi-tech/gitshare/pkg/dirtree"
)

const (
	treeMapWidth     = "100%"
	treeMapHeight    = "800px"
	treeMapLeafDepth = 2
	borderWidth1     = 1
	borderWidth2     = 2
)

// WritePlot renders an HTML treemap of the directory tree. Rectangle size is
// the line count; labels carry the targets' share or the top author.
func WritePlot(w io.Writer, files contrib.Files, o Options) error {
	root := dirtree.Build(files)

	tm := charts.NewTreeMap()
	tm.SetGlobalOptions(
		charts.WithTitleOpts(plotTitle(root, o)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "gitshare",
			Width:     treeMapWidth,
			Height:    treeMapHeight,
		}),
	)
	tm.AddSeries("Lines", treeMapChildren(root, o, o.MaxDepth), charts.WithTreeMapOpts(opts.TreeMapChart{
		Animation:      opts.Bool(true),
		Roam:           opts.Bool(true),
		LeafDepth:      treeMapLeafDepth,
		ColorMappingBy: "value",
		Label:          &opts.Label{Show: opts.Bool(true), Formatter: "{b}"},
		UpperLabel:     &opts.UpperLabel{Show: opts.Bool(true)},
		Levels: &[]opts.TreeMapLevel{
			{
				ItemStyle:  &opts.ItemStyle{BorderColor: "#555", BorderWidth: borderWidth2, GapWidth: borderWidth2},
				UpperLabel: &opts.UpperLabel{Show: opts.Bool(false)},
			},
			{
				ItemStyle:       &opts.ItemStyle{BorderColor: "#999", BorderWidth: borderWidth1, GapWidth: borderWidth1},
				ColorSaturation: []float32{0.3, 0.6},
			},
		},
		Left: "1%", Right: "1%", Top: "60", Bottom: "1%",
	}))

	err := tm.Render(w)
	if err != nil {
		return fmt.Errorf("render treemap: %w", err)
	}

	return nil
}

func plotTitle(root *dirtree.Node, o Options) opts.Title {
	title := opts.Title{Title: "Code ownership"}

	if !o.ShowAuthors && len(o.Targets) > 0 && root.Record().Total() > 0 {
		title.Subtitle = fmt.Sprintf("%.1f%% of %d lines written by the selected authors",
			root.RatioBy(o.Targets)*percent, root.Record().Total())
	} else {
		title.Subtitle = fmt.Sprintf("%d lines", root.Record().Total())
	}

	return title
}

func treeMapChildren(n *dirtree.Node, o Options, depth int) []opts.TreeMapNode {
	if depth == 0 {
		return nil
	}

	children := n.Children()
	out := make([]opts.TreeMapNode, 0, len(children))

	for _, child := range children {
		out = append(out, opts.TreeMapNode{
			Name:     treeMapLabel(child, o),
			Value:    child.Record().Total(),
			Children: treeMapChildren(child, o, depth-1),
		})
	}

	return out
}

func treeMapLabel(n *dirtree.Node, o Options) string {
	if !o.ShowAuthors && len(o.Targets) > 0 {
		return fmt.Sprintf("%s (%.1f%%)", n.Name(), n.RatioBy(o.Targets)*percent)
	}

	top := n.TopAuthors(1)
	if len(top) == 0 {
		return n.Name()
	}

	return fmt.Sprintf("%s (%s %.1f%%)", n.Name(), top[0].Author, top[0].Ratio*percent)
}
