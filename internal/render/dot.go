package render

import (
	"io"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/phylobench/pkg/tree"
)

//nolint:lll //this is a template
const dotTemplate = `digraph tree {
	{{range $k, $v := .Attributes}}{{$k}}="{{$v}}";
	{{end}}
	{{- range .Nodes}}
	"{{.ID}}" [ {{range $k, $v := .Attributes}}{{$k}}="{{$v}}", {{end}}];
	{{- end}}
	{{- range .Edges}}
	"{{.Source}}" -> "{{.Target}}" [ {{range $k, $v := .Attributes}}{{$k}}="{{$v}}", {{end}}];
	{{- end}}
}
`

var dotTpl = template.Must(template.New("dotTemplate").Parse(dotTemplate))

type dotDescription struct {
	Attributes map[string]string
	Nodes      []dotStatement
	Edges      []dotStatement
}

type dotStatement struct {
	ID         int
	Source     int
	Target     int
	Attributes map[string]string
}

const maxRGB = 240

// depthColour goes from blue at the root to red at the deepest clades.
func depthColour(depth, maxDepth int) (string, error) {
	fraction := 1.0
	if maxDepth > 0 {
		fraction = float64(depth) / float64(maxDepth)
	}

	red := maxRGB * fraction
	blue := maxRGB - red

	rgb, err := colors.RGB(uint8(red), 0, uint8(blue))
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return rgb.ToHEX().String(), nil
}

func writeDOT(wrt io.Writer, root *tree.Node, opts Options) error {
	view, err := tree.NewView(root)
	if err != nil {
		return errors.Wrap(err, "unable to build tree view")
	}

	desc := dotDescription{
		Attributes: map[string]string{"rankdir": "LR"},
	}

	if opts.RightToLeft {
		desc.Attributes["rankdir"] = "RL"
	}

	maxDepth := 0
	for _, clade := range view.Clades {
		maxDepth = max(maxDepth, clade.Depth)
	}

	for _, clade := range view.Clades {
		_, properties, err := view.Graph.VertexWithProperties(clade.ID)
		if err != nil {
			return errors.Wrapf(err, "unable to get properties of clade %d", clade.ID)
		}

		attributes := map[string]string{"shape": "point"}
		if name := properties.Attributes["name"]; name != "" && clade.Node.IsLeaf() && opts.ShowLabels {
			attributes = map[string]string{"shape": "plaintext", "label": escapeDOT(name)}
		}

		desc.Nodes = append(desc.Nodes, dotStatement{ID: clade.ID, Attributes: attributes})

		children, err := view.Children(clade.ID)
		if err != nil {
			return err //nolint:wrapcheck // already wrapped by the view
		}

		for _, child := range children {
			edge, err := view.Graph.Edge(clade.ID, child)
			if err != nil {
				return errors.Wrapf(err, "unable to get edge from %d to %d", clade.ID, child)
			}

			colour, err := depthColour(clade.Depth+1, maxDepth)
			if err != nil {
				return err
			}

			attributes := map[string]string{"color": colour, "arrowhead": "none"}
			if length, ok := edge.Properties.Attributes["length"]; ok && opts.ShowLengths {
				attributes["label"] = length
			}

			desc.Edges = append(desc.Edges, dotStatement{Source: clade.ID, Target: child, Attributes: attributes})
		}
	}

	err = dotTpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// escapeDOT escapes s for a double quoted DOT string. Other runes, non-ASCII included, are
// written as they are.
func escapeDOT(s string) string {
	return dotEscaper.Replace(s)
}
