// Package semantic scores still-undecided tails by embedding
// similarity to their seed. It is the last automatic stage: whatever
// stays grey here goes to the external judge or to a human.
package semantic

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/pkg/embeddings"
)

// StageName identifies this stage in verdicts and outcome records.
const StageName = "semantic"

// Combine policies for the two per-tail similarity votes.
const (
	PolicyConservative = "conservative"
	PolicyAnyTrash     = "any_trash"
	PolicyWeighted     = "weighted"
)

// Config tunes the refiner thresholds.
type Config struct {
	// ValidThreshold and TrashThreshold cut each cosine score into a
	// vote: above the first is valid, below the second is trash,
	// between is grey.
	ValidThreshold float64 `mapstructure:"valid_threshold"`
	TrashThreshold float64 `mapstructure:"trash_threshold"`

	Policy string `mapstructure:"policy"`

	// CombinedWeight is the weight of the combined score under the
	// weighted policy; the direct score gets the remainder.
	CombinedWeight float64 `mapstructure:"combined_weight"`
	// WeightedValid and WeightedTrash cut the blended score under the
	// weighted policy.
	WeightedValid float64 `mapstructure:"weighted_valid"`
	WeightedTrash float64 `mapstructure:"weighted_trash"`

	// BatchSize bounds how many tails go into one embedding call.
	BatchSize int `mapstructure:"batch_size"`
}

// DefaultConfig returns the shipped thresholds.
func DefaultConfig() Config {
	return Config{
		ValidThreshold: 0.62,
		TrashThreshold: 0.35,
		Policy:         PolicyConservative,
		CombinedWeight: 0.6,
		WeightedValid:  0.58,
		WeightedTrash:  0.4,
		BatchSize:      64,
	}
}

// Request is one undecided tail plus the negative signals earlier
// stages attached to it.
type Request struct {
	Tail           string
	PriorNegatives []model.Signal
}

// Refiner votes tails valid or trash by cosine similarity. It never
// fails a batch: when the embedder is missing or errors, every tail
// stays grey and the condition is logged once per process.
type Refiner struct {
	embedder embeddings.Embedder
	cache    Cache
	cfg      Config

	unavailableOnce sync.Once
}

// NewRefiner builds a refiner. A nil embedder is allowed and turns the
// stage into a grey pass-through. A nil cache falls back to an
// in-memory one.
func NewRefiner(embedder embeddings.Embedder, cache Cache, cfg Config) *Refiner {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Refiner{embedder: embedder, cache: cache, cfg: cfg}
}

// Refine scores every request against the seed and returns one verdict
// per request, in input order.
func (r *Refiner) Refine(ctx context.Context, seed string, reqs []Request) []model.Verdict {
	out := make([]model.Verdict, len(reqs))

	// serve cache hits first, collect the rest
	var missIdx []int
	for i, req := range reqs {
		if e, ok := r.cache.Get(seed, req.Tail); ok {
			out[i] = r.applyVeto(verdictFrom(e), reqs[i])
			continue
		}
		missIdx = append(missIdx, i)
	}
	if len(missIdx) == 0 {
		return out
	}

	if r.embedder == nil {
		r.logUnavailable(nil)
		for _, i := range missIdx {
			out[i] = unavailableVerdict()
		}
		return out
	}

	seedVec, err := r.embedder.Embed(ctx, seed)
	if err != nil {
		r.logUnavailable(err)
		for _, i := range missIdx {
			out[i] = unavailableVerdict()
		}
		return out
	}

	for start := 0; start < len(missIdx); start += r.cfg.BatchSize {
		end := min(start+r.cfg.BatchSize, len(missIdx))
		batch := missIdx[start:end]

		// two texts per tail: seed+tail concatenation and the bare tail
		texts := make([]string, 0, 2*len(batch))
		for _, i := range batch {
			texts = append(texts, seed+" "+reqs[i].Tail, reqs[i].Tail)
		}

		vecs, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			r.logUnavailable(err)
			for _, i := range batch {
				out[i] = unavailableVerdict()
			}
			continue
		}

		for n, i := range batch {
			combined := cosine(seedVec, vecs[2*n])
			direct := cosine(seedVec, vecs[2*n+1])
			e := r.combine(combined, direct)
			r.cache.Put(seed, reqs[i].Tail, e)
			out[i] = r.applyVeto(verdictFrom(e), reqs[i])
		}
	}
	return out
}

// vote cuts one cosine score into a label.
func (r *Refiner) vote(score float64) model.Label {
	switch {
	case score >= r.cfg.ValidThreshold:
		return model.LabelValid
	case score <= r.cfg.TrashThreshold:
		return model.LabelTrash
	default:
		return model.LabelGrey
	}
}

func (r *Refiner) combine(combined, direct float64) Entry {
	cv, dv := r.vote(combined), r.vote(direct)

	var label model.Label
	switch r.cfg.Policy {
	case PolicyAnyTrash:
		switch {
		case cv == model.LabelTrash || dv == model.LabelTrash:
			label = model.LabelTrash
		case cv == model.LabelValid && dv == model.LabelValid:
			label = model.LabelValid
		default:
			label = model.LabelGrey
		}
	case PolicyWeighted:
		blended := r.cfg.CombinedWeight*combined + (1-r.cfg.CombinedWeight)*direct
		switch {
		case blended >= r.cfg.WeightedValid:
			label = model.LabelValid
		case blended <= r.cfg.WeightedTrash:
			label = model.LabelTrash
		default:
			label = model.LabelGrey
		}
	default: // conservative
		if cv == dv {
			label = cv
		} else {
			label = model.LabelGrey
		}
	}

	conf := 0.5
	if label != model.LabelGrey {
		// scale with how far the stronger score sits from the midline
		conf = 0.55 + 0.4*math.Abs(max(combined, direct)-0.5)
		if conf > 0.9 {
			conf = 0.9
		}
	}
	return Entry{
		Label:      label,
		Confidence: conf,
		Reason:     detailReason(label, combined, direct),
	}
}

// applyVeto downgrades a semantic valid back to grey when earlier
// stages attached negative signals: structural evidence cannot be
// overridden by embedding similarity.
func (r *Refiner) applyVeto(v model.Verdict, req Request) model.Verdict {
	if v.Label == model.LabelValid && len(req.PriorNegatives) > 0 {
		v.Label = model.LabelGrey
		v.Confidence = 0.5
		v.Reason = "semantic valid vetoed by earlier negative signals"
		v.Negative = append(v.Negative, req.PriorNegatives...)
	}
	return v
}

func (r *Refiner) logUnavailable(err error) {
	r.unavailableOnce.Do(func() {
		zap.L().Warn("semantic: embedder unavailable, tails stay grey", zap.Error(err))
	})
}

func verdictFrom(e Entry) model.Verdict {
	return model.Verdict{
		Stage:      StageName,
		Label:      e.Label,
		Confidence: e.Confidence,
		Reason:     e.Reason,
	}
}

func unavailableVerdict() model.Verdict {
	return model.Verdict{
		Stage:      StageName,
		Label:      model.LabelGrey,
		Confidence: 0.5,
		Reason:     "embedder unavailable",
	}
}

func detailReason(label model.Label, combined, direct float64) string {
	return fmt.Sprintf("%s by similarity: combined=%.3f direct=%.3f", label, combined, direct)
}

// cosine returns the cosine similarity of two vectors, 0 when either
// is empty or zero-length in magnitude.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
