package inference

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/tree"
)

var (
	hierarchyName   = regexp.MustCompile(`name=['"](.*)['"]\s*\)`)
	hierarchyLength = regexp.MustCompile(`branch_length=\s*(\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`)
)

const hierarchyIndent = 4

// ParseHierarchy reads an indented clade listing such as the one printed by Bio.Phylo:
//
//	Clade()
//	    Clade(branch_length=1.5)
//	        Clade(branch_length=0.5, name='A')
//	        Clade(branch_length=0.7, name='B')
//	    Clade(branch_length=2, name='C')
func ParseHierarchy(text string) (*tree.Node, error) {
	var stack []*tree.Node

	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		expanded := strings.ReplaceAll(line, "\t", strings.Repeat(" ", hierarchyIndent))
		content := strings.TrimLeft(expanded, " ")
		level := (len(expanded) - len(content)) / hierarchyIndent

		if !strings.HasPrefix(content, "Clade(") {
			return nil, errors.Errorf("line %d: expected a clade, got %q", i+1, content)
		}

		node := &tree.Node{}

		if match := hierarchyName.FindStringSubmatch(content); match != nil {
			node.Name = match[1]
		}

		if match := hierarchyLength.FindStringSubmatch(content); match != nil {
			length, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: invalid branch length", i+1)
			}

			node.SetLength(length)
		}

		if stack == nil {
			if level != 0 {
				return nil, errors.Errorf("line %d: the root cannot be indented", i+1)
			}

			stack = []*tree.Node{node}

			continue
		}

		if level < 1 || level > len(stack) {
			return nil, errors.Errorf("line %d: unexpected indentation level %d", i+1, level)
		}

		stack = stack[:level]
		stack[level-1].AddChild(node)
		stack = append(stack, node)
	}

	if stack == nil {
		return nil, errors.New("no clade found")
	}

	return stack[0], nil
}
