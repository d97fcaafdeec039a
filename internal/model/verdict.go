package model

// Label is the classification outcome of a candidate or a stage.
type Label string

const (
	// LabelValid marks a candidate confirmed as a genuine extension of
	// the seed's search intent.
	LabelValid Label = "valid"
	// LabelTrash marks a candidate that is off-topic or malformed.
	LabelTrash Label = "trash"
	// LabelGrey marks a candidate deferred to costlier judgment.
	LabelGrey Label = "grey"
)

// Polarity says which label a signal argues for.
type Polarity string

const (
	PolarityPositive Polarity = "positive" // supports valid
	PolarityNegative Polarity = "negative" // supports trash
)

// Signal is a named, weighted fact about a tail. Signals are stateless:
// they are recomputed per tail and never cached across tails.
type Signal struct {
	Name     string   `json:"name"`
	Weight   float64  `json:"weight"`
	Polarity Polarity `json:"polarity"`
	Detail   string   `json:"detail,omitempty"`
}

// Verdict is the decision of a single stage. Once a stage produces a
// trash verdict, later stages are skipped.
type Verdict struct {
	Stage      string   `json:"stage"`
	Label      Label    `json:"label"`
	Confidence float64  `json:"confidence"`
	Positive   []Signal `json:"positive,omitempty"`
	Negative   []Signal `json:"negative,omitempty"`
	Reason     string   `json:"reason"`
}

// SignalNames returns the names of a verdict's signals with the given
// polarity, in emission order.
func (v Verdict) SignalNames(p Polarity) []string {
	src := v.Positive
	if p == PolarityNegative {
		src = v.Negative
	}
	names := make([]string, 0, len(src))
	for _, s := range src {
		names = append(names, s.Name)
	}
	return names
}

// SumWeights returns the summed weight of the verdict's signals with
// the given polarity.
func (v Verdict) SumWeights(p Polarity) float64 {
	src := v.Positive
	if p == PolarityNegative {
		src = v.Negative
	}
	var sum float64
	for _, s := range src {
		sum += s.Weight
	}
	return sum
}
