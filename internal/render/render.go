package render

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/tree"
)

// Render draws the tree rooted at root into wrt in the format of opts.
func Render(wrt io.Writer, root *tree.Node, opts Options) error {
	if root == nil {
		return errors.New("tree must be set")
	}

	err := opts.Validate()
	if err != nil {
		return err
	}

	format, _ := ParseFormat(string(opts.Format))

	switch format {
	case DOT:
		return writeDOT(wrt, root, opts)
	case SVG:
		return writeSVG(wrt, Compute(root, opts), opts)
	default:
		return writePNG(wrt, Compute(root, opts), opts)
	}
}

// Bytes renders the tree in memory.
func Bytes(root *tree.Node, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	err := Render(&buf, root, opts)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
