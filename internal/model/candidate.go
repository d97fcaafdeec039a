// Package model defines the shared domain types of the candidate
// classification pipeline: seeds, candidates, signals, verdicts and
// per-batch outcome records.
package model

// Seed is the base search phrase a batch is classified against. It is
// built once per batch and read-only afterwards.
type Seed struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Country  string `json:"country"`

	Words  []string `json:"words"`
	Lemmas []string `json:"lemmas"`

	// HeadNoun is the first noun of the seed, used for type-agreement
	// checks against tail adjectives. Empty when the seed has no noun.
	HeadNoun string `json:"head_noun,omitempty"`

	// Cities holds the normalized names of geo entities found inside
	// the seed that belong to the target country. Entities of other
	// countries are never added, even when present in the seed text.
	Cities map[string]struct{} `json:"-"`
}

// Candidate is a single suggestion string plus everything derived from
// it. Derived fields are filled once; verdicts are appended by the
// stages and never mutated afterwards.
type Candidate struct {
	Raw        string   `json:"raw"`
	Normalized string   `json:"normalized"`
	Words      []string `json:"words"`
	Lemmas     []string `json:"lemmas"`

	Tail      string   `json:"tail"`
	TailWords []string `json:"tail_words,omitempty"`

	Verdicts []Verdict `json:"verdicts,omitempty"`
}

// Outcome is the final per-candidate record handed to reporting.
type Outcome struct {
	Candidate  string   `json:"candidate"`
	Tail       string   `json:"tail"`
	Label      Label    `json:"label"`
	Stage      string   `json:"stage"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
	Signals    []Signal `json:"signals,omitempty"`

	// Dropped marks candidates the seed was never found in; they carry
	// a trash label but never entered tail-based classification.
	Dropped bool `json:"dropped,omitempty"`
}

// BatchStats aggregates counters for one classified batch.
type BatchStats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Trash   int `json:"trash"`
	Grey    int `json:"grey"`
	Dropped int `json:"dropped"`

	Reasons    map[string]int `json:"reasons,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}
