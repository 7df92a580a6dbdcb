package render

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<rect width="100%" height="100%" fill="white"/>
<g stroke="black" stroke-width="{{.LineWidth}}" stroke-linecap="square">
{{- range .Segments}}
<line x1="{{num .X1}}" y1="{{num .Y1}}" x2="{{num .X2}}" y2="{{num .Y2}}"/>
{{- end}}
</g>
<g font-family="monospace" font-size="12" fill="black">
{{- range .Labels}}
<text x="{{num .X}}" y="{{num .Y}}" textLength="{{num .Width}}" xml:space="preserve">{{escape .Text}}</text>
{{- end}}
</g>
<g font-family="monospace" font-size="12" fill="#3333aa">
{{- range .Lengths}}
<text x="{{num .X}}" y="{{num .Y}}">{{escape .Text}}</text>
{{- end}}
</g>
</svg>
`

var svgTpl = template.Must(template.New("svg").Funcs(template.FuncMap{
	"num":    func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	"escape": escapeXML,
}).Parse(svgTemplate))

type svgData struct {
	Width     int
	Height    int
	LineWidth int
	Segments  []Segment
	Labels    []Label
	Lengths   []Label
}

func writeSVG(wrt io.Writer, lay *Layout, opts Options) error {
	data := svgData{
		Width:     lay.Width,
		Height:    lay.Height,
		LineWidth: max(opts.LineWidth, 1),
		Segments:  append([]Segment(nil), lay.Segments...),
		Labels:    append([]Label(nil), lay.Leaves...),
		Lengths:   lay.Lengths,
	}

	if lay.ScaleShown {
		data.Segments = append(data.Segments, lay.Scale)
		data.Labels = append(data.Labels, lay.ScaleLabel)
	}

	err := svgTpl.Execute(wrt, data)
	if err != nil {
		return errors.Wrap(err, "unable to execute svg template")
	}

	return nil
}

func escapeXML(s string) string {
	var sb strings.Builder

	// EscapeText only fails on writer errors
	_ = xml.EscapeText(&sb, []byte(s))

	return sb.String()
}
