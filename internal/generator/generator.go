package generator

import (
	"context"
	"math"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/taxonomy"
	"github.com/askiada/phylobench/pkg/newick"
	"github.com/askiada/phylobench/pkg/tree"
)

var (
	ErrZeroTaxa      = errors.New("at least one taxon is required")
	ErrNegativeTaxa  = errors.New("taxa count cannot be negative")
	ErrNotEnoughTaxa = errors.New("not enough valid taxa in range")
	ErrInvalidRange  = errors.New("invalid taxon identifier range")
)

// Topology selects how the generator connects the sampled taxa.
type Topology string

const (
	// TopologyRandom repeatedly joins random groups of two to four subtrees.
	TopologyRandom Topology = "random"
	// TopologyBinary repeatedly joins random pairs of subtrees.
	TopologyBinary Topology = "binary"
	// TopologyTaxonomy uses the pruned taxonomy of the sampled taxa.
	TopologyTaxonomy Topology = "taxonomy"
)

// ParseTopology returns the topology named s.
func ParseTopology(s string) (Topology, error) {
	switch t := Topology(strings.ToLower(strings.TrimSpace(s))); t {
	case TopologyRandom, TopologyBinary, TopologyTaxonomy:
		return t, nil
	case "":
		return TopologyRandom, nil
	default:
		return "", errors.Errorf("unknown topology %q", s)
	}
}

const maxGroupSize = 4

// Params describes a tree to generate.
type Params struct {
	// Count is the number of taxa. With RandomizeCount it is the upper bound of the drawn count.
	Count          int
	RandomizeCount bool
	// MinID and MaxID bound the sampled taxon identifiers, both included.
	MinID taxonomy.ID
	MaxID taxonomy.ID
	// MaxAttempts bounds the number of identifier draws. Zero means 1000 draws per taxon.
	MaxAttempts int
	Topology    Topology
	// ResolvePolytomies makes the tree strictly binary whatever the topology.
	ResolvePolytomies bool
	// MaxDistance randomizes every branch length in [0, MaxDistance]. Zero gives unit lengths.
	MaxDistance float64
	// NoDistances drops every branch length.
	NoDistances   bool
	MaxNameLength int
	// SanitizeNames removes Newick metacharacters from taxon names.
	SanitizeNames bool
}

// DefaultParams returns the parameters of a ten taxa random tree with unit lengths.
func DefaultParams() Params {
	return Params{
		Count:         10,
		MinID:         1,
		MaxID:         10000,
		Topology:      TopologyRandom,
		MaxNameLength: taxonomy.DefaultMaxNameLength,
		SanitizeNames: true,
	}
}

// Validate checks that p describes a tree that can be generated.
func (p Params) Validate() error {
	if p.Count < 0 {
		return ErrNegativeTaxa
	}

	if p.Count == 0 {
		return ErrZeroTaxa
	}

	if p.MinID < 1 || p.MaxID < p.MinID {
		return errors.Wrapf(ErrInvalidRange, "[%d, %d]", p.MinID, p.MaxID)
	}

	if p.MaxDistance < 0 {
		return errors.Errorf("max distance cannot be negative, got %g", p.MaxDistance)
	}

	_, err := ParseTopology(string(p.Topology))

	return err
}

// Result is a generated tree.
type Result struct {
	// IDs are the sampled identifiers in draw order.
	IDs []taxonomy.ID
	// Names maps every identifier to the taxon name used in the tree.
	Names map[taxonomy.ID]string
	Tree  *tree.Node
	// IDTree is the tree before translation, leaves are named by identifier.
	IDTree *tree.Node
	Newick string
}

// Generator draws random trees over the taxa of a taxonomy. It is not safe for concurrent use.
type Generator struct {
	src    taxonomy.Source
	rnd    *rand.Rand
	logger *zap.Logger
}

// New creates a generator drawing from src with the randomness of rnd.
func New(src taxonomy.Source, rnd *rand.Rand, logger *zap.Logger) *Generator {
	return &Generator{src: src, rnd: rnd, logger: logger}
}

// Generate draws a tree with the parameters p.
func (g *Generator) Generate(ctx context.Context, p Params) (*Result, error) {
	ids, names, err := g.SampleIDs(ctx, p)
	if err != nil {
		return nil, err
	}

	topology, _ := ParseTopology(string(p.Topology))

	var root *tree.Node

	switch topology {
	case TopologyTaxonomy:
		root, err = taxonomy.Topology(ctx, g.src, ids)
		if err != nil {
			return nil, errors.Wrap(err, "unable to build taxonomy topology")
		}
	case TopologyBinary:
		root = g.join(ids, 2)
	default:
		root = g.join(ids, maxGroupSize)
	}

	g.assignDistances(root, p)

	if p.ResolvePolytomies {
		var lengthFn func() float64
		if p.MaxDistance > 0 && !p.NoDistances {
			lengthFn = func() float64 { return g.distance(p.MaxDistance) }
		}

		root.ResolvePolytomies(lengthFn)
	}

	if p.NoDistances {
		newick.StripLengths(root)
	}

	idTree := root.Clone()

	translate(root, names, p.SanitizeNames)

	res := &Result{
		IDs:    ids,
		Names:  names,
		Tree:   root,
		IDTree: idTree,
		Newick: newick.String(root),
	}

	g.logger.Debug("tree generated",
		zap.Int("taxa", len(ids)),
		zap.String("topology", string(topology)),
		zap.String("newick", res.Newick))

	return res, nil
}

// SampleIDs draws distinct valid identifiers and returns them along with their names.
func (g *Generator) SampleIDs(ctx context.Context, p Params) ([]taxonomy.ID, map[taxonomy.ID]string, error) {
	err := p.Validate()
	if err != nil {
		return nil, nil, err
	}

	count := p.Count
	if p.RandomizeCount {
		count = 1 + g.rnd.Intn(p.Count)
	}

	span := int(p.MaxID-p.MinID) + 1
	if span < count {
		return nil, nil, errors.Wrapf(ErrNotEnoughTaxa, "%d taxa requested from %d identifiers", count, span)
	}

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1000 * count
	}

	ids := make([]taxonomy.ID, 0, count)
	names := make(map[taxonomy.ID]string, count)
	rejected := make(map[taxonomy.ID]struct{})
	labels := make(map[string]struct{}, count)

	for i := 0; i < attempts && len(ids) < count; i++ {
		if i%100 == 0 && ctx.Err() != nil {
			return nil, nil, errors.Wrap(ctx.Err(), "sampling interrupted")
		}

		id := p.MinID + taxonomy.ID(g.rnd.Intn(span))
		if _, ok := names[id]; ok {
			continue
		}

		if _, ok := rejected[id]; ok {
			continue
		}

		name, ok, err := g.src.Name(ctx, id)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "unable to resolve taxon %d", id)
		}

		label := name
		if p.SanitizeNames {
			label = Sanitize(name)
		}

		// leaf labels must stay valid and distinct once written into the tree
		_, taken := labels[label]
		if !ok || taken || !taxonomy.Valid(label, p.MaxNameLength) {
			rejected[id] = struct{}{}

			continue
		}

		labels[label] = struct{}{}
		ids = append(ids, id)
		names[id] = name
	}

	if len(ids) < count {
		return nil, nil, errors.Wrapf(ErrNotEnoughTaxa, "found %d of %d taxa after %d draws", len(ids), count, attempts)
	}

	return ids, names, nil
}

// join connects the identifiers by joining random groups of at most maxGroup subtrees until one is left.
func (g *Generator) join(ids []taxonomy.ID, maxGroup int) *tree.Node {
	pool := make([]*tree.Node, len(ids))
	for i, id := range ids {
		pool[i] = tree.NewLeaf(id.String())
	}

	for len(pool) > 1 {
		size := 2
		if upper := min(maxGroup, len(pool)); upper > 2 {
			size += g.rnd.Intn(upper - 1)
		}

		g.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

		group := make([]*tree.Node, size)
		copy(group, pool[len(pool)-size:])
		pool = append(pool[:len(pool)-size], tree.NewInternal(group...))
	}

	return pool[0]
}

func (g *Generator) assignDistances(root *tree.Node, p Params) {
	root.Walk(func(node *tree.Node, depth int) bool {
		if depth == 0 {
			node.ClearLength()

			return true
		}

		if p.MaxDistance > 0 {
			node.SetLength(g.distance(p.MaxDistance))
		} else {
			node.SetLength(1)
		}

		return true
	})
}

// distance draws a length in [0, maxDistance] rounded to two decimals.
func (g *Generator) distance(maxDistance float64) float64 {
	return math.Round(g.rnd.Float64()*maxDistance*100) / 100
}

func translate(root *tree.Node, names map[taxonomy.ID]string, sanitize bool) {
	byLabel := make(map[string]string, len(names))
	for id, name := range names {
		if sanitize {
			name = Sanitize(name)
		}

		byLabel[id.String()] = name
	}

	for _, leaf := range root.Leaves() {
		if name, ok := byLabel[leaf.Name]; ok {
			leaf.Name = name
		}
	}
}

var specialChars = strings.NewReplacer(
	"[", "", "]", "", "(", "", ")", "", ",", "", ";", "", ":", "", "'", "", `"`, "", `\`, "",
)

// Sanitize removes the characters that have a meaning in Newick or in prompts from a taxon name.
func Sanitize(name string) string {
	return strings.TrimSpace(specialChars.Replace(name))
}
