package signals

import (
	"strings"

	"github.com/adscope/suggest-triage/internal/model"
)

// DictGrounded names the positive signals backed by a curated
// dictionary rather than a heuristic. In mixed evidence they outrank
// any soft negative.
var DictGrounded = map[string]struct{}{
	"geo_entity":    {},
	"brand":         {},
	"marketplace":   {},
	"verb_modifier": {},
	"conjunction":   {},
}

// Hard names the negative signals describing structural defects that
// positive evidence cannot talk away.
var Hard = map[string]struct{}{
	"duplicate_word":         {},
	"meta_question":          {},
	"disallowed_marketplace": {},
	"tech_garbage":           {},
	"mixed_alphabet":         {},
}

// arbitration margins. Evidence inside the parity band decides
// nothing and the tail stays grey.
const (
	hardOverrideMargin = 1.5
	decisionMargin     = 1.2
)

func confidence(sum float64) float64 {
	c := 0.5 + 0.45*sum
	if c > 0.97 {
		c = 0.97
	}
	return c
}

// arbitrate turns the collected signals into a verdict. The order of
// the rules is the contract: dictionary evidence beats heuristic
// evidence, hard negatives beat soft positives, and near-parity always
// defers rather than guesses.
func (c *Classifier) arbitrate(v model.Verdict) model.Verdict {
	sumPos := v.SumWeights(model.PolarityPositive)
	sumNeg := v.SumWeights(model.PolarityNegative)

	switch {
	case len(v.Positive) > 0 && len(v.Negative) == 0:
		v.Label = model.LabelValid
		v.Confidence = confidence(sumPos)
		v.Reason = "positive signals only: " + strings.Join(v.SignalNames(model.PolarityPositive), ", ")
		return v

	case len(v.Negative) > 0 && len(v.Positive) == 0:
		v.Label = model.LabelTrash
		v.Confidence = confidence(sumNeg)
		v.Reason = "negative signals only: " + strings.Join(v.SignalNames(model.PolarityNegative), ", ")
		return v

	case len(v.Positive) == 0 && len(v.Negative) == 0:
		v.Label = model.LabelGrey
		v.Confidence = 0.5
		v.Reason = "no signals fired"
		return v
	}

	grounded := anyNamed(v.Positive, DictGrounded)
	hard := anyNamed(v.Negative, Hard)

	switch {
	case grounded != "" && hard == "":
		v.Label = model.LabelValid
		v.Confidence = reduced(sumPos)
		v.Reason = detail("dictionary-grounded %s outweighs heuristic doubt", grounded)

	case hard != "":
		if sumPos > hardOverrideMargin*sumNeg {
			v.Label = model.LabelGrey
			v.Confidence = 0.5
			v.Reason = detail("hard negative %s contested by strong positives", hard)
		} else {
			v.Label = model.LabelTrash
			v.Confidence = 0.7
			v.Reason = detail("hard negative %s", hard)
		}

	case sumPos >= decisionMargin*sumNeg:
		v.Label = model.LabelValid
		v.Confidence = reduced(sumPos)
		v.Reason = "positive weight prevails"

	case sumNeg >= decisionMargin*sumPos:
		v.Label = model.LabelTrash
		v.Confidence = reduced(sumNeg)
		v.Reason = "negative weight prevails"

	default:
		v.Label = model.LabelGrey
		v.Confidence = 0.5
		v.Reason = "signals near parity"
	}
	return v
}

// reduced is the confidence curve for contested decisions, capped well
// below the uncontested ceiling.
func reduced(sum float64) float64 {
	c := 0.45 + 0.25*sum
	if c > 0.85 {
		c = 0.85
	}
	return c
}

func anyNamed(signals []model.Signal, set map[string]struct{}) string {
	for _, s := range signals {
		if _, ok := set[s.Name]; ok {
			return s.Name
		}
	}
	return ""
}
