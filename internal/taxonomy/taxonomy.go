package taxonomy

import (
	"context"
	"fmt"
	"strconv"
	"unicode"

	"github.com/pkg/errors"
)

// ID is a taxon identifier of an external taxonomy.
type ID int

func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// RootID is the identifier of the root of the NCBI taxonomy.
const RootID ID = 1

// DefaultMaxNameLength rejects very long names that would malform rendered images.
const DefaultMaxNameLength = 35

var (
	ErrUnknownTaxon = errors.New("unknown taxon")
	ErrLineageLoop  = errors.New("lineage does not reach the root")
)

// Source resolves taxon identifiers against a taxonomy.
type Source interface {
	// Name returns the scientific name of id. ok is false when the taxonomy does not know id.
	Name(ctx context.Context, id ID) (name string, ok bool, err error)
	// Parent returns the parent of id. ok is false for the root and for unknown identifiers.
	Parent(ctx context.Context, id ID) (parent ID, ok bool, err error)
}

// Valid reports whether a taxon name can be used in a generated tree: it must be non empty,
// not made only of digits and not longer than maxLength runes.
func Valid(name string, maxLength int) bool {
	if name == "" {
		return false
	}

	if maxLength > 0 && len([]rune(name)) > maxLength {
		return false
	}

	for _, r := range name {
		if !unicode.IsDigit(r) {
			return true
		}
	}

	return false
}

// Names resolves every identifier of ids. Unknown identifiers are an error.
func Names(ctx context.Context, src Source, ids []ID) (map[ID]string, error) {
	res := make(map[ID]string, len(ids))

	for _, id := range ids {
		name, ok, err := src.Name(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to get name of taxon %d", id)
		}

		if !ok {
			return nil, errors.Wrapf(ErrUnknownTaxon, "taxon %d", id)
		}

		res[id] = name
	}

	return res, nil
}

const maxLineageDepth = 256

// Lineage returns the identifiers from id up to the root of the taxonomy, both included.
func Lineage(ctx context.Context, src Source, id ID) ([]ID, error) {
	lineage := []ID{id}
	current := id

	for i := 0; i < maxLineageDepth; i++ {
		parent, ok, err := src.Parent(ctx, current)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to get parent of taxon %d", current)
		}

		if !ok || parent == current {
			return lineage, nil
		}

		lineage = append(lineage, parent)
		current = parent
	}

	return nil, errors.Wrapf(ErrLineageLoop, "taxon %d", id)
}

// Synthetic is a taxonomy that knows every identifier of [1, Max]. Names are "Taxon <id>" and the
// parent of an identifier is the identifier with its last decimal digit removed, so the hierarchy
// follows decimal prefixes. It is used when no taxonomy database is configured.
type Synthetic struct {
	Max ID
}

func (s Synthetic) Name(_ context.Context, id ID) (string, bool, error) {
	if id < 1 || id > s.Max {
		return "", false, nil
	}

	return fmt.Sprintf("Taxon %d", id), true, nil
}

func (s Synthetic) Parent(_ context.Context, id ID) (ID, bool, error) {
	if id <= 1 || id > s.Max {
		return 0, false, nil
	}

	parent := id / 10
	if parent < 1 {
		parent = RootID
	}

	return parent, true, nil
}

// Memory is an in-memory taxonomy.
type Memory struct {
	names   map[ID]string
	parents map[ID]ID
}

// NewMemory creates an empty in-memory taxonomy.
func NewMemory() *Memory {
	return &Memory{
		names:   make(map[ID]string),
		parents: make(map[ID]ID),
	}
}

// Add registers a taxon. A parent equal to id marks the root.
func (m *Memory) Add(id, parent ID, name string) {
	m.names[id] = name
	m.parents[id] = parent
}

func (m *Memory) Name(_ context.Context, id ID) (string, bool, error) {
	name, ok := m.names[id]

	return name, ok, nil
}

func (m *Memory) Parent(_ context.Context, id ID) (ID, bool, error) {
	parent, ok := m.parents[id]
	if !ok || parent == id {
		return 0, false, nil
	}

	return parent, true, nil
}

var (
	_ Source = Synthetic{}
	_ Source = (*Memory)(nil)
)
