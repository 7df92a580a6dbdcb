package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var (
	branchColour = color.Black
	lengthColour = color.RGBA{R: 0x33, G: 0x33, B: 0xaa, A: 0xff}
)

func writePNG(wrt io.Writer, lay *Layout, opts Options) error {
	img := image.NewRGBA(image.Rect(0, 0, lay.Width, lay.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	lineWidth := float64(max(opts.LineWidth, 1))
	raster := vector.NewRasterizer(lay.Width, lay.Height)

	segments := append([]Segment(nil), lay.Segments...)
	if lay.ScaleShown {
		segments = append(segments, lay.Scale)
	}

	for _, seg := range segments {
		addSegment(raster, seg, lineWidth)
	}

	raster.Draw(img, img.Bounds(), image.NewUniform(branchColour), image.Point{})

	drawer := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13}
	for _, label := range lay.Leaves {
		drawLabel(drawer, label)
	}

	if lay.ScaleShown {
		drawLabel(drawer, lay.ScaleLabel)
	}

	drawer.Src = image.NewUniform(lengthColour)
	for _, label := range lay.Lengths {
		drawLabel(drawer, label)
	}

	err := png.Encode(wrt, img)
	if err != nil {
		return errors.Wrap(err, "unable to encode png")
	}

	return nil
}

// addSegment adds the rectangle covering an axis aligned segment of the given thickness.
func addSegment(raster *vector.Rasterizer, seg Segment, width float64) {
	half := width / 2
	x1, x2 := math.Min(seg.X1, seg.X2)-half, math.Max(seg.X1, seg.X2)+half
	y1, y2 := math.Min(seg.Y1, seg.Y2)-half, math.Max(seg.Y1, seg.Y2)+half

	raster.MoveTo(float32(x1), float32(y1))
	raster.LineTo(float32(x2), float32(y1))
	raster.LineTo(float32(x2), float32(y2))
	raster.LineTo(float32(x1), float32(y2))
	raster.ClosePath()
}

func drawLabel(drawer *font.Drawer, label Label) {
	drawer.Dot = fixed.P(int(math.Round(label.X)), int(math.Round(label.Y)))
	drawer.DrawString(label.Text)
}
