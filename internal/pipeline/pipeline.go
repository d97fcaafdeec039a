// Package pipeline orchestrates the staged classification of
// suggestion candidates: tail extraction, geo conflict resolution,
// signal classification, semantic refinement and the optional judge.
// Candidates are independent; stages share only read-only batch inputs
// and the synchronized semantic cache.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adscope/suggest-triage/internal/geodict"
	"github.com/adscope/suggest-triage/internal/georesolve"
	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/semantic"
	"github.com/adscope/suggest-triage/internal/signals"
	"github.com/adscope/suggest-triage/internal/tail"
	"github.com/adscope/suggest-triage/internal/textnorm"
	"github.com/adscope/suggest-triage/pkg/judge"
)

// Stage names for outcomes decided by orchestration itself rather than
// by one of the classifier packages.
const (
	stageTail     = "tail"
	stageGeo      = "geo"
	stageJudge    = "judge"
	stagePipeline = "pipeline"
)

// Config tunes the orchestrator.
type Config struct {
	Language string `mapstructure:"language"`
	// Workers bounds the classification fan-out. Zero means one worker
	// per available CPU is fine, errgroup handles it.
	Workers int `mapstructure:"workers"`
}

// Pipeline classifies batches of candidates against a seed.
type Pipeline struct {
	dict       *geodict.Dictionaries
	analyzer   morph.Analyzer
	resolver   *georesolve.Resolver
	classifier *signals.Classifier
	refiner    *semantic.Refiner
	judge      judge.Client
	cfg        Config
}

// New wires a pipeline. The judge client may be nil, in which case
// grey tails stay grey.
func New(
	dict *geodict.Dictionaries,
	analyzer morph.Analyzer,
	resolver *georesolve.Resolver,
	classifier *signals.Classifier,
	refiner *semantic.Refiner,
	judgeClient judge.Client,
	cfg Config,
) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &Pipeline{
		dict:       dict,
		analyzer:   analyzer,
		resolver:   resolver,
		classifier: classifier,
		refiner:    refiner,
		judge:      judgeClient,
		cfg:        cfg,
	}
}

// BuildSeed derives the read-only per-batch seed state: tokens,
// lemmas, the head noun and the target-country geo entities mentioned
// in the seed.
func (p *Pipeline) BuildSeed(text, country string) *model.Seed {
	words := textnorm.Tokenize(textnorm.Normalize(text))
	s := &model.Seed{
		Text:     text,
		Language: p.cfg.Language,
		Country:  country,
		Words:    words,
		Lemmas:   make([]string, len(words)),
	}
	for i, w := range words {
		a := p.analyzer.Analyze(w, p.cfg.Language)
		s.Lemmas[i] = a.Lemma
		if s.HeadNoun == "" && a.Tag == morph.TagNoun {
			s.HeadNoun = w
		}
	}
	s.Cities = p.dict.SeedCities(s.Words, s.Lemmas, country)
	return s
}

// greyItem tracks a candidate waiting on semantic refinement.
type greyItem struct {
	idx int
	req semantic.Request
}

// Classify runs the full pipeline over a batch. The returned outcomes
// preserve candidate order. The error is reserved for future stages
// that can fail the whole batch; per-candidate failures never surface
// here, they route the candidate to grey.
func (p *Pipeline) Classify(ctx context.Context, seedText, country string, candidates []string) ([]model.Outcome, *model.BatchStats, error) {
	start := time.Now()
	seed := p.BuildSeed(seedText, country)
	extractor := tail.NewExtractor(p.analyzer, p.cfg.Language)

	cands := make([]*model.Candidate, len(candidates))
	var (
		mu    sync.Mutex
		greys []greyItem
	)

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)

	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("pipeline: candidate classification panicked",
						zap.String("candidate", cand),
						zap.Any("panic", r),
					)
					cands[i] = &model.Candidate{
						Raw:        cand,
						Normalized: textnorm.Normalize(cand),
						Verdicts: []model.Verdict{{
							Stage:      stagePipeline,
							Label:      model.LabelGrey,
							Confidence: 0.5,
							Reason:     "internal error, deferred",
						}},
					}
				}
			}()

			c, grey := p.classifyOne(seed, extractor, cand)
			cands[i] = c
			if grey != nil {
				mu.Lock()
				greys = append(greys, greyItem{idx: i, req: *grey})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	p.refineGreys(ctx, seed, cands, greys)

	outcomes := make([]model.Outcome, len(cands))
	for i, c := range cands {
		outcomes[i] = finalize(c)
	}

	stats := collectStats(outcomes, time.Since(start))
	zap.L().Info("pipeline: batch classified",
		zap.String("seed", seedText),
		zap.String("country", country),
		zap.Int("total", stats.Total),
		zap.Int("valid", stats.Valid),
		zap.Int("trash", stats.Trash),
		zap.Int("grey", stats.Grey),
		zap.Int("dropped", stats.Dropped),
		zap.Int64("duration_ms", stats.DurationMS),
	)
	return outcomes, stats, nil
}

// classifyOne runs the synchronous stages for a single candidate,
// building its derived fields and appending one verdict per deciding
// stage. A non-nil grey request means the candidate needs semantic
// refinement.
func (p *Pipeline) classifyOne(seed *model.Seed, extractor *tail.Extractor, cand string) (*model.Candidate, *semantic.Request) {
	c := &model.Candidate{Raw: cand, Normalized: textnorm.Normalize(cand)}
	if c.Normalized == "" {
		// nothing to object to
		c.Verdicts = append(c.Verdicts, model.Verdict{
			Stage:      stageTail,
			Label:      model.LabelValid,
			Confidence: 0.97,
			Reason:     "empty candidate",
		})
		return c, nil
	}

	c.Words = textnorm.Tokenize(c.Normalized)
	c.Lemmas = make([]string, len(c.Words))
	for i, w := range c.Words {
		c.Lemmas[i] = p.analyzer.Analyze(w, p.cfg.Language).Lemma
	}

	tailStr, err := extractor.Extract(cand, seed.Text)
	if err != nil {
		c.Verdicts = append(c.Verdicts, model.Verdict{
			Stage:      stageTail,
			Label:      model.LabelTrash,
			Confidence: 0.9,
			Reason:     "seed not found in candidate",
		})
		return c, nil
	}
	c.Tail = tailStr
	c.TailWords = textnorm.Tokenize(tailStr)

	geo := p.resolver.Resolve(c.Normalized, seed.Country, seed.Cities)
	if !geo.Allowed {
		v := model.Verdict{
			Stage:      stageGeo,
			Label:      model.LabelTrash,
			Confidence: 0.95,
			Reason:     geo.Reason,
		}
		if geo.Kind != "" {
			v.Negative = []model.Signal{{
				Name:     "geo_" + string(geo.Kind),
				Weight:   0.95,
				Polarity: model.PolarityNegative,
				Detail:   geo.Reason,
			}}
		}
		c.Verdicts = append(c.Verdicts, v)
		return c, nil
	}

	v := p.classifier.Classify(tailStr, seed, seed.Country)
	c.Verdicts = append(c.Verdicts, v)
	if v.Label != model.LabelGrey {
		return c, nil
	}
	return c, &semantic.Request{Tail: tailStr, PriorNegatives: v.Negative}
}

// refineGreys runs the semantic stage over the undecided tails and the
// judge over whatever stays grey after it. Only deciding verdicts are
// appended; a stage that defers leaves the trail untouched so the last
// verdict always names the stage that settled the label.
func (p *Pipeline) refineGreys(ctx context.Context, seed *model.Seed, cands []*model.Candidate, greys []greyItem) {
	if len(greys) == 0 {
		return
	}

	reqs := make([]semantic.Request, len(greys))
	for n, gi := range greys {
		reqs[n] = gi.req
	}
	verdicts := p.refiner.Refine(ctx, seed.Text, reqs)

	for n, gi := range greys {
		v := verdicts[n]
		if v.Label != model.LabelGrey {
			cands[gi.idx].Verdicts = append(cands[gi.idx].Verdicts, v)
			continue
		}
		p.consultJudge(ctx, seed, cands[gi.idx])
	}
}

func (p *Pipeline) consultJudge(ctx context.Context, seed *model.Seed, c *model.Candidate) {
	if p.judge == nil {
		return
	}
	d, err := p.judge.Judge(ctx, seed.Text, c.Tail, seed.Country)
	if err != nil {
		zap.L().Warn("pipeline: judge call failed, keeping grey",
			zap.String("tail", c.Tail),
			zap.Error(err),
		)
		return
	}
	c.Verdicts = append(c.Verdicts, model.Verdict{
		Stage:      stageJudge,
		Label:      d.Label,
		Confidence: 0.8,
		Reason:     d.Reason,
	})
}

// finalize flattens a candidate's verdict trail into the per-candidate
// outcome record. The last verdict carries the label; signals are the
// union over all stages, deduplicated by name and polarity so a veto
// that restates prior negatives does not double-count them.
func finalize(c *model.Candidate) model.Outcome {
	last := c.Verdicts[len(c.Verdicts)-1]

	var sigs []model.Signal
	seen := make(map[string]struct{})
	add := func(s model.Signal) {
		key := string(s.Polarity) + "\x1f" + s.Name
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		sigs = append(sigs, s)
	}
	for _, v := range c.Verdicts {
		for _, s := range v.Positive {
			add(s)
		}
		for _, s := range v.Negative {
			add(s)
		}
	}

	return model.Outcome{
		Candidate:  c.Raw,
		Tail:       c.Tail,
		Label:      last.Label,
		Stage:      last.Stage,
		Reason:     last.Reason,
		Confidence: last.Confidence,
		Signals:    sigs,
		Dropped:    last.Stage == stageTail && last.Label == model.LabelTrash,
	}
}

func collectStats(outcomes []model.Outcome, elapsed time.Duration) *model.BatchStats {
	stats := &model.BatchStats{
		Total:      len(outcomes),
		Reasons:    make(map[string]int),
		DurationMS: elapsed.Milliseconds(),
	}
	for _, o := range outcomes {
		switch o.Label {
		case model.LabelValid:
			stats.Valid++
		case model.LabelTrash:
			stats.Trash++
		case model.LabelGrey:
			stats.Grey++
		}
		if o.Dropped {
			stats.Dropped++
		}
		stats.Reasons[o.Stage]++
	}
	return stats
}
