package bundle

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Meta describes how the content of a bundle was produced.
type Meta struct {
	ID        string         `yaml:"id"`
	CreatedAt time.Time      `yaml:"created_at"`
	Generator *GeneratorMeta `yaml:"generator,omitempty"`
	Inference *InferenceMeta `yaml:"inference,omitempty"`
}

// GeneratorMeta records the parameters of the generated tree.
type GeneratorMeta struct {
	RequestedTaxa       int        `yaml:"requested_taxa"`
	Taxa                int        `yaml:"taxa"`
	RandomizedCount     bool       `yaml:"randomized_count"`
	Topology            string     `yaml:"topology"`
	RandomizedDistances bool       `yaml:"randomized_distances"`
	MaxDistance         float64    `yaml:"max_distance"`
	NoDistances         bool       `yaml:"no_distances"`
	Seed                int64      `yaml:"seed"`
	TaxonIDs            []int      `yaml:"taxon_ids"`
	Render              RenderMeta `yaml:"render"`
}

// RenderMeta records how the image was drawn.
type RenderMeta struct {
	Format      string `yaml:"format"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	ShowLabels  bool   `yaml:"show_labels"`
	ShowLengths bool   `yaml:"show_lengths"`
	RightToLeft bool   `yaml:"right_to_left"`
}

// InferenceMeta records the inference call that produced the predicted description.
type InferenceMeta struct {
	Backend  string        `yaml:"backend"`
	Model    string        `yaml:"model"`
	Approach string        `yaml:"approach"`
	At       time.Time     `yaml:"at"`
	Duration time.Duration `yaml:"duration"`
	// Valid is false when the cleaned response could not be parsed.
	Valid bool `yaml:"valid"`
	// Raw is the response before cleanup.
	Raw string `yaml:"raw,omitempty"`
}

// NewMeta creates metadata with a fresh bundle ID.
func NewMeta() *Meta {
	return &Meta{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// Meta decodes the metadata entry. A bundle without metadata gets fresh metadata.
func (b *Bundle) Meta() (*Meta, error) {
	data, ok := b.entries[MetaFile]
	if !ok {
		return NewMeta(), nil
	}

	meta := &Meta{}

	err := yaml.Unmarshal(data, meta)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode bundle metadata")
	}

	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}

	return meta, nil
}

// SetMeta encodes meta into the metadata entry.
func (b *Bundle) SetMeta(meta *Meta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "unable to encode bundle metadata")
	}

	b.Put(MetaFile, data)

	return nil
}
