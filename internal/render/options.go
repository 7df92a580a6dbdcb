package render

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownFormat = errors.New("unknown image format")

// Format is the output format of a rendering.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
	DOT Format = "dot"
)

// ParseFormat returns the format named s, a leading dot is accepted.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case PNG, SVG, DOT:
		return f, nil
	case "":
		return PNG, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
	}
}

// Extension returns the file extension of the format, dot included.
func (f Format) Extension() string {
	return "." + string(f)
}

// MIMEType returns the media type of the format.
func (f Format) MIMEType() string {
	switch f {
	case SVG:
		return "image/svg+xml"
	case DOT:
		return "text/vnd.graphviz"
	default:
		return "image/png"
	}
}

// Options controls the rendering of a tree.
type Options struct {
	Format Format `yaml:"format"`
	// Width and Height are the canvas size in pixels. Zero computes them from the tree.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Margin int `yaml:"margin"`
	// LineWidth is the branch thickness in pixels.
	LineWidth int `yaml:"line_width"`
	// ShowLabels draws leaf names. Topology only images are rendered without them.
	ShowLabels bool `yaml:"show_labels"`
	// ShowLengths draws branch lengths above branches.
	ShowLengths bool `yaml:"show_lengths"`
	// ScaleBar draws a scale bar below the tree when lengths are shown.
	ScaleBar bool `yaml:"scale_bar"`
	// RightToLeft puts the root on the right side of the image.
	RightToLeft bool `yaml:"right_to_left"`
}

// DefaultOptions renders a PNG with labels, lengths and a scale bar.
func DefaultOptions() Options {
	return Options{
		Format:      PNG,
		Margin:      20,
		LineWidth:   2,
		ShowLabels:  true,
		ShowLengths: true,
		ScaleBar:    true,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	_, err := ParseFormat(string(o.Format))
	if err != nil {
		return err
	}

	if o.Width < 0 || o.Height < 0 || o.Margin < 0 || o.LineWidth < 0 {
		return errors.New("sizes cannot be negative")
	}

	return nil
}
