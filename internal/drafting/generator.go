package drafting

import (
	"errors"
	"fmt"
	"time"

	"github.com/broker-one/core/internal/database/models"
	"github.com/broker-one/core/internal/functions/ai"
)

// ErrGenerationFailed indicates the completion call errored or returned empty text
var ErrGenerationFailed = errors.New("draft generation failed")

// Generation parameters for drafting calls
const (
	draftTemperature = 0.7
	draftMaxTokens   = 1000
)

// CompletionClient is the slice of the AI client the generator needs
type CompletionClient interface {
	Complete(system, user string, temperature float64, maxTokens int) (*ai.Completion, error)
}

// GeneratedDraft is the output of one generation or refinement call
type GeneratedDraft struct {
	Body       string
	Confidence int
	Reasoning  models.Reasoning
	Metadata   models.GenerationMetadata
}

// Generator produces draft bodies through a completion client and derives
// confidence and reasoning from the result.
type Generator struct {
	client CompletionClient
}

// NewGenerator creates a new Generator instance
func NewGenerator(client CompletionClient) *Generator {
	return &Generator{client: client}
}

// Generate produces a fresh draft reply for the given context
func (g *Generator) Generate(ctx EmailContext) (*GeneratedDraft, error) {
	structured := BuildStructuredContext(ctx)
	prompt := BuildEmailPrompt(structured)

	completion, err := g.client.Complete(SystemPrompt(structured.AgentName), prompt, draftTemperature, draftMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return g.assemble(completion, structured), nil
}

// Refine regenerates a draft, given the previous body and the reviewer's
// instruction, prompting the model to preserve prior answers.
func (g *Generator) Refine(ctx EmailContext, previousBody, instruction string, versionNumber int) (*GeneratedDraft, error) {
	structured := BuildStructuredContext(ctx)
	prompt := BuildRefinePrompt(structured, previousBody, instruction, versionNumber)

	completion, err := g.client.Complete(RefineSystemPrompt(structured.AgentName), prompt, draftTemperature, draftMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return g.assemble(completion, structured), nil
}

func (g *Generator) assemble(completion *ai.Completion, structured StructuredContext) *GeneratedDraft {
	return &GeneratedDraft{
		Body:       completion.Text,
		Confidence: CalculateConfidence(completion.Text, structured),
		Reasoning:  AnalyzeDraft(completion.Text, structured),
		Metadata: models.GenerationMetadata{
			Model:       completion.Model,
			TokensUsed:  completion.TokensUsed,
			GeneratedAt: time.Now(),
		},
	}
}
