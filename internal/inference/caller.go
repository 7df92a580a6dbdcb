package inference

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/bundle"
)

// DefaultCallTimeout bounds a single model call.
const DefaultCallTimeout = 2 * time.Minute

// Outcome is the result of an inference over a bundle.
type Outcome struct {
	Raw      string
	Newick   string
	Valid    bool
	Repaired bool
	Duration time.Duration
}

// Caller runs the inference stage: it sends the image of a bundle to a model and stores the
// cleaned answer back into the bundle.
type Caller struct {
	client       Client
	backend      string
	model        string
	approach     Approach
	timeout      time.Duration
	allowInvalid bool
	repair       bool
	clean        CleanOptions
	logger       *zap.Logger
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithApproach selects the instructions sent to the model.
func WithApproach(approach Approach) CallerOption {
	return func(c *Caller) {
		c.approach = approach
	}
}

// WithCallTimeout bounds every model call.
func WithCallTimeout(d time.Duration) CallerOption {
	return func(c *Caller) {
		c.timeout = d
	}
}

// WithAllowInvalid stores unparseable answers without failing.
func WithAllowInvalid(allow bool) CallerOption {
	return func(c *Caller) {
		c.allowInvalid = allow
	}
}

// WithRepair sends unparseable answers back to the model once for correction.
func WithRepair(repair bool) CallerOption {
	return func(c *Caller) {
		c.repair = repair
	}
}

// WithCleanOptions sets the cleanup options of answers.
func WithCleanOptions(opts CleanOptions) CallerOption {
	return func(c *Caller) {
		c.clean = opts
	}
}

// WithModelInfo records the backend and model names in the bundle metadata.
func WithModelInfo(backend, model string) CallerOption {
	return func(c *Caller) {
		c.backend = backend
		c.model = model
	}
}

// NewCaller creates a caller sending requests through client.
func NewCaller(client Client, logger *zap.Logger, opts ...CallerOption) *Caller {
	c := &Caller{
		client:   client,
		approach: ApproachNewick,
		timeout:  DefaultCallTimeout,
		clean:    CleanOptions{UnderscoreToSpace: true},
		logger:   logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Infer sends the image of the bundle at path to the model and writes the predicted description
// into the bundle. Unparseable answers are stored and reported with ErrInvalidNewick unless
// invalid answers are allowed.
func (c *Caller) Infer(ctx context.Context, path string) (*Outcome, error) {
	b, err := bundle.Open(path)
	if err != nil {
		return nil, err
	}

	name, mime, image, err := b.Image()
	if err != nil {
		return nil, errors.Wrapf(err, "bundle %s", path)
	}

	start := time.Now()

	raw, err := c.call(ctx, Request{
		Image:        image,
		MIMEType:     mime,
		Instructions: Instructions(c.approach),
		Prompt:       Prompt(c.approach),
	})
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Raw: raw}

	cleaned, cleanErr := Clean(raw, c.approach, c.clean)
	if errors.Is(cleanErr, ErrInvalidNewick) && c.repair {
		c.logger.Info("answer is not a valid newick, asking for a repair", zap.String("bundle", path), zap.Error(cleanErr))

		repaired, err := c.call(ctx, RepairRequest(image, mime, cleaned))
		if err != nil {
			return nil, errors.Wrap(err, "repair request failed")
		}

		outcome.Repaired = true
		// the repaired answer is plain Newick whatever the approach
		approach := c.approach
		if approach == ApproachHierarchy {
			approach = ApproachNewick
		}

		cleaned, cleanErr = Clean(repaired, approach, c.clean)
	}

	if cleanErr != nil && !errors.Is(cleanErr, ErrInvalidNewick) {
		return nil, errors.Wrapf(cleanErr, "bundle %s", path)
	}

	outcome.Newick = cleaned
	outcome.Valid = cleanErr == nil
	outcome.Duration = time.Since(start)

	err = c.store(b, path, outcome)
	if err != nil {
		return nil, err
	}

	c.logger.Info("inference done",
		zap.String("bundle", path),
		zap.String("image", name),
		zap.String("approach", string(c.approach)),
		zap.Bool("valid", outcome.Valid),
		zap.Duration("duration", outcome.Duration))

	if !outcome.Valid && !c.allowInvalid {
		return outcome, errors.Wrapf(cleanErr, "raw answer %q", raw)
	}

	return outcome, nil
}

func (c *Caller) call(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Extract(callCtx, req)
	if err != nil {
		return "", errors.Wrap(err, "model call failed")
	}

	return raw, nil
}

func (c *Caller) store(b *bundle.Bundle, path string, outcome *Outcome) error {
	meta, err := b.Meta()
	if err != nil {
		return err
	}

	meta.Inference = &bundle.InferenceMeta{
		Backend:  c.backend,
		Model:    c.model,
		Approach: string(c.approach),
		At:       time.Now().UTC().Truncate(time.Second),
		Duration: outcome.Duration,
		Valid:    outcome.Valid,
		Raw:      outcome.Raw,
	}

	err = b.SetMeta(meta)
	if err != nil {
		return err
	}

	b.SetPredicted(outcome.Newick)

	return errors.Wrapf(b.Save(path), "unable to save bundle %s", path)
}
