package inference

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/newick"
	"github.com/askiada/phylobench/pkg/tree"
)

// CleanOptions controls the cleanup of model answers.
type CleanOptions struct {
	// UnderscoreToSpace reads underscores of unquoted names as spaces.
	UnderscoreToSpace bool
}

// Clean turns a model answer into a normalized Newick description. When the answer cannot be parsed
// the returned string is the best candidate found and the error wraps ErrInvalidNewick.
func Clean(raw string, approach Approach, opts CleanOptions) (string, error) {
	text := stripFences(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}

	var (
		root *tree.Node
		err  error
	)

	if approach == ApproachHierarchy {
		root, err = ParseHierarchy(text)
		if err != nil {
			return text, errors.Wrap(ErrInvalidNewick, err.Error())
		}
	} else {
		text = extractNewick(text)

		root, err = newick.ParseWith(text, newick.ParseOptions{UnderscoreToSpace: opts.UnderscoreToSpace})
		if err != nil {
			return text, errors.Wrap(ErrInvalidNewick, err.Error())
		}
	}

	newick.RemoveSupportValues(root)

	writeOpts := newick.DefaultWriteOptions
	writeOpts.OmitInternalNames = true

	switch approach {
	case ApproachTaxaOnly:
		writeOpts.OmitLengths = true
	case ApproachTopologyOnly:
		writeOpts.OmitLengths = true
		writeOpts.OmitNames = true
	}

	return newick.Format(root, writeOpts), nil
}

// stripFences removes markdown code fences and backticks.
func stripFences(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	kept := lines[:0]

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}

		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.ReplaceAll(strings.Join(kept, "\n"), "`", ""))
}

// extractNewick keeps the first line holding a parenthesis, from that parenthesis to the last
// semicolon, then terminates and balances it.
func extractNewick(text string) string {
	candidate := text

	for _, line := range strings.Split(text, "\n") {
		if idx := strings.Index(line, "("); idx >= 0 {
			candidate = line[idx:]

			break
		}
	}

	candidate = strings.TrimSpace(candidate)
	if idx := strings.LastIndex(candidate, ";"); idx >= 0 {
		candidate = candidate[:idx+1]
	} else {
		candidate += ";"
	}

	if !newick.IsBalanced(candidate) {
		candidate = newick.BalanceParentheses(candidate)
	}

	return candidate
}
