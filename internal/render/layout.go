package render

import (
	"math"
	"strconv"
	"unicode/utf8"

	"golang.org/x/image/font/basicfont"

	"github.com/askiada/phylobench/pkg/tree"
)

const (
	defaultTreeWidth = 640
	minTreeWidth     = 120
	rowHeight        = 24
	labelPadding     = 6
	scaleBarHeight   = 32
	// baselineOffset moves the baseline of a label so that the text is centred on its branch.
	baselineOffset = 4
)

var (
	charWidth  = basicfont.Face7x13.Advance
	lineHeight = basicfont.Face7x13.Height
)

// Segment is an axis aligned line of the drawing.
type Segment struct {
	X1, Y1, X2, Y2 float64
	Depth          int
}

// Label is a text of the drawing. X and Y locate the left end of its baseline.
type Label struct {
	X, Y  float64
	Text  string
	Width float64
}

// Layout is a rectangular phylogram: x follows the cumulative branch lengths, or the depth when the
// tree has no lengths, and y follows the leaf order.
type Layout struct {
	Width    int
	Height   int
	MaxDepth int
	Segments []Segment
	Leaves   []Label
	Lengths  []Label
	// Scale is drawn only when ScaleShown is set.
	Scale      Segment
	ScaleLabel Label
	ScaleShown bool
}

type placed struct {
	node     *tree.Node
	x, y     float64
	depth    int
	children []*placed
}

func textWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s) * charWidth)
}

// Compute lays out the tree rooted at root.
func Compute(root *tree.Node, opts Options) *Layout {
	useLengths := root.HasLengths()
	leaves := root.Leaves()

	labelWidth := 0.0

	if opts.ShowLabels {
		for _, leaf := range leaves {
			labelWidth = math.Max(labelWidth, textWidth(leaf.Name))
		}

		if labelWidth > 0 {
			labelWidth += labelPadding
		}
	}

	margin := float64(opts.Margin)
	treeWidth := float64(defaultTreeWidth)

	if opts.Width > 0 {
		treeWidth = math.Max(float64(opts.Width)-2*margin-labelWidth, minTreeWidth)
	}

	showScale := opts.ScaleBar && opts.ShowLengths && useLengths

	rows := float64(rowHeight)
	height := 2*margin + float64(len(leaves))*rows
	if showScale {
		height += scaleBarHeight
	}

	if opts.Height > 0 && float64(opts.Height) > height {
		extra := float64(opts.Height) - height
		rows += extra / float64(len(leaves))
		height = float64(opts.Height)
	}

	lay := &Layout{
		Width:      int(math.Ceil(math.Max(float64(opts.Width), 2*margin+treeWidth+labelWidth))),
		Height:     int(math.Ceil(height)),
		ScaleShown: showScale,
	}

	// first pass in tree units
	leafIndex := 0
	maxX := 0.0

	var place func(node *tree.Node, x float64, depth int) *placed

	place = func(node *tree.Node, x float64, depth int) *placed {
		if depth > 0 {
			if useLengths {
				if node.HasLength {
					x += math.Max(node.Length, 0)
				}
			} else {
				x++
			}
		}

		p := &placed{node: node, x: x, depth: depth}
		maxX = math.Max(maxX, x)

		if depth > lay.MaxDepth {
			lay.MaxDepth = depth
		}

		if node.IsLeaf() {
			p.y = margin + (float64(leafIndex)+0.5)*rows
			leafIndex++

			return p
		}

		sum := 0.0

		for _, child := range node.Children {
			c := place(child, x, depth+1)
			p.children = append(p.children, c)
			sum += c.y
		}

		p.y = sum / float64(len(p.children))

		return p
	}

	top := place(root, 0, 0)

	if maxX == 0 {
		maxX = 1
	}

	scale := treeWidth / maxX
	toPixel := func(x float64) float64 {
		px := margin + x*scale
		if opts.RightToLeft {
			px = float64(lay.Width) - px
		}

		return px
	}

	var emit func(p *placed, parentX float64)

	emit = func(p *placed, parentX float64) {
		px := toPixel(p.x)

		if p.depth > 0 {
			lay.Segments = append(lay.Segments, Segment{X1: parentX, Y1: p.y, X2: px, Y2: p.y, Depth: p.depth})

			if opts.ShowLengths && p.node.HasLength {
				text := strconv.FormatFloat(p.node.Length, 'f', -1, 64)
				width := textWidth(text)
				lay.Lengths = append(lay.Lengths, Label{
					X:     (parentX+px)/2 - width/2,
					Y:     p.y - float64(opts.LineWidth) - 2,
					Text:  text,
					Width: width,
				})
			}
		}

		if p.node.IsLeaf() {
			if opts.ShowLabels && p.node.Name != "" {
				width := textWidth(p.node.Name)
				x := px + labelPadding
				if opts.RightToLeft {
					x = px - labelPadding - width
				}

				lay.Leaves = append(lay.Leaves, Label{X: x, Y: p.y + baselineOffset, Text: p.node.Name, Width: width})
			}

			return
		}

		first, last := p.children[0].y, p.children[len(p.children)-1].y
		lay.Segments = append(lay.Segments, Segment{X1: px, Y1: first, X2: px, Y2: last, Depth: p.depth})

		for _, child := range p.children {
			emit(child, px)
		}
	}

	emit(top, toPixel(0))

	if showScale {
		unit := niceUnit(maxX / 5)
		y := float64(lay.Height) - margin - scaleBarHeight/2
		x1 := toPixel(0)
		x2 := toPixel(unit)
		lay.Scale = Segment{X1: x1, Y1: y, X2: x2, Y2: y}

		text := strconv.FormatFloat(unit, 'f', -1, 64)
		width := textWidth(text)
		lay.ScaleLabel = Label{X: (x1+x2)/2 - width/2, Y: y + float64(lineHeight) + 2, Text: text, Width: width}
	}

	return lay
}

// niceUnit rounds v down to one significant digit among 1, 2 and 5.
func niceUnit(v float64) float64 {
	if v <= 0 {
		return 1
	}

	exp := math.Pow(10, math.Floor(math.Log10(v)))

	for _, step := range []float64{5, 2, 1} {
		if v >= step*exp {
			return step * exp
		}
	}

	return exp
}
