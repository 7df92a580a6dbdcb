package inference

import (
	"strings"

	"github.com/pkg/errors"
)

// Approach selects what the model is asked to describe.
type Approach string

const (
	// ApproachNewick asks for names, topology and branch lengths.
	ApproachNewick Approach = "newick"
	// ApproachTaxaOnly asks for names and topology.
	ApproachTaxaOnly Approach = "taxa-only"
	// ApproachTopologyOnly asks for the bare topology.
	ApproachTopologyOnly Approach = "topology-only"
	// ApproachHierarchy asks for an indented clade listing that is converted to Newick locally.
	ApproachHierarchy Approach = "hierarchy"
)

// ParseApproach returns the approach named s.
func ParseApproach(s string) (Approach, error) {
	switch a := Approach(strings.ToLower(strings.TrimSpace(s))); a {
	case ApproachNewick, ApproachTaxaOnly, ApproachTopologyOnly, ApproachHierarchy:
		return a, nil
	case "", "regular":
		return ApproachNewick, nil
	default:
		return "", errors.Errorf("unknown approach %q", s)
	}
}

const newickGuidelines = `
Guidelines:
- Reply with the Newick string only: no explanation, no prefix, no suffix.
- Do not wrap the Newick string in backticks or code blocks.
- Write the Newick string on a single line.
- The topology must be exactly the one drawn in the image.`

const namesGuideline = `
- Taxon names must be spelled exactly as they appear in the image, spaces included.`

const lengthsGuideline = `
- Every branch must carry its length, read from the branch labels or measured against the scale bar.`

var instructions = map[Approach]string{
	ApproachNewick: `You are shown an image of a phylogenetic tree. The tree may contain multifurcations.
Output the tree in valid Newick format, keeping every taxon, every branch length and the topology.
When branches carry no length label, infer lengths from the scale bar drawn in a corner of the image.
` + newickGuidelines + namesGuideline + lengthsGuideline + `

Examples:
((A:2.37,B:1.55):4.58,((C:1.43,D:3.63):0.27,E:1.66):4.07);
((A:4.24,B:2.21,C:9.11):3.31,(D:2.22,E:1.02):1.21,((F:4.26,G:6.66):5.01,H:1.32):3.21);
`,
	ApproachTaxaOnly: `You are shown an image of a phylogenetic tree. The tree may contain multifurcations.
Output the tree in valid Newick format with taxon names and topology, without branch lengths.
` + newickGuidelines + namesGuideline + `

Examples:
((A,B),((C,D),E));
((A,B,C),(D,E),((F,G),H));
`,
	ApproachTopologyOnly: `You are shown an image of a phylogenetic tree. The tree may contain multifurcations.
Output the topology only in valid Newick format: leave every taxon name empty and omit branch lengths.
` + newickGuidelines + `

Examples:
((,),((,),));
((,,),(,),((,),));
`,
	ApproachHierarchy: `You are shown an image of a phylogenetic tree. Describe the tree as an indented list of clades,
one clade per line, the way Bio.Phylo prints a tree.

Guidelines:
- Reply with the list only: no explanation, no prefix, no suffix.
- The first line is the root and has no indentation.
- Every level of depth adds four spaces of indentation.
- Write internal clades as Clade(branch_length=<length>) and leaves as Clade(branch_length=<length>, name='<taxon>').
- Read lengths from the branch labels or measure them against the scale bar.

Example:
Clade()
    Clade(branch_length=3.54)
        Clade(branch_length=4.88, name='Crassulaceae')
        Clade(branch_length=3.53, name='Calycanthus chinensis')
    Clade(branch_length=1.8, name='Verruciconidia persicina')
`,
}

var prompts = map[Approach]string{
	ApproachNewick:       "Give me the Newick description of this phylogenetic tree with taxa, branch lengths and topology.",
	ApproachTaxaOnly:     "Give me the Newick description of this phylogenetic tree with taxa and topology.",
	ApproachTopologyOnly: "Give me the topology of this phylogenetic tree in Newick format.",
	ApproachHierarchy:    "Give me the indented clade listing of this phylogenetic tree.",
}

// Instructions returns the system instructions of the approach.
func Instructions(a Approach) string {
	if s, ok := instructions[a]; ok {
		return s
	}

	return instructions[ApproachNewick]
}

// Prompt returns the user prompt of the approach.
func Prompt(a Approach) string {
	if s, ok := prompts[a]; ok {
		return s
	}

	return prompts[ApproachNewick]
}

const repairInstructions = `You are shown an image of a phylogenetic tree and a Newick string describing it that may
be malformed or misspelled. Fix the Newick string so that it is valid and matches the image.
` + newickGuidelines + `
- Every opening parenthesis must have a matching closing parenthesis.
- Remove parentheses that group a single subtree.
- Missing names or lengths are not errors, keep them missing.`

// RepairRequest builds a request asking the model to fix an unparseable answer.
func RepairRequest(image []byte, mime, answer string) Request {
	return Request{
		Image:        image,
		MIMEType:     mime,
		Instructions: repairInstructions,
		Prompt:       "This Newick string describes the tree of the image but may contain errors: " + answer + "\nGive me the corrected Newick string.",
	}
}
