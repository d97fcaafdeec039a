// Package judge sends still-grey tails to a language model for a final
// call. It is the costliest stage and therefore strictly optional: the
// pipeline runs it only when an API key is configured.
package judge

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/model"
)

// DefaultModel is used when config leaves the model empty.
const DefaultModel = "claude-haiku-4-5-20251001"

// Decision is the judge's call on one tail.
type Decision struct {
	Label  model.Label
	Reason string
}

// Client defines the judge operations used by the pipeline.
type Client interface {
	Judge(ctx context.Context, seed, tail, country string) (Decision, error)
}

const systemPrompt = `You review autocomplete suggestions for search advertising.
Given a seed query and the extra words a suggestion adds (the tail), decide whether
the tail is a genuine refinement of the seed's intent.

Answer with exactly one word on the first line: VALID, TRASH, or GREY.
On the second line give a one-sentence reason.

VALID: the tail narrows or extends the seed's commercial intent.
TRASH: the tail is off-topic, malformed, or changes the intent entirely.
GREY: you genuinely cannot tell.`

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
	model  string
}

// NewClient creates a judge backed by the Anthropic API.
func NewClient(apiKey, modelID string) Client {
	if modelID == "" {
		modelID = DefaultModel
	}
	return &sdkClient{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  modelID,
	}
}

func (c *sdkClient) Judge(ctx context.Context, seed, tail, country string) (Decision, error) {
	prompt := fmt.Sprintf("Seed: %q\nTail: %q\nTarget country: %s", seed, tail, country)

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 128,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Decision{}, eris.Wrap(err, "judge: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	d, err := parseDecision(text.String())
	if err != nil {
		zap.L().Warn("judge: unparseable response", zap.String("text", text.String()))
		return Decision{}, err
	}
	return d, nil
}

// parseDecision reads the two-line verdict format. Unknown labels are
// an error so a drifting prompt fails loudly instead of mislabeling.
func parseDecision(text string) (Decision, error) {
	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	if len(lines) == 0 || lines[0] == "" {
		return Decision{}, eris.New("judge: empty response")
	}

	var label model.Label
	switch strings.ToUpper(strings.TrimSpace(lines[0])) {
	case "VALID":
		label = model.LabelValid
	case "TRASH":
		label = model.LabelTrash
	case "GREY", "GRAY":
		label = model.LabelGrey
	default:
		return Decision{}, eris.Errorf("judge: unknown label %q", lines[0])
	}

	reason := "judge decision"
	if len(lines) == 2 {
		reason = strings.TrimSpace(lines[1])
	}
	return Decision{Label: label, Reason: reason}, nil
}
