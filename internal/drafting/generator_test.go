package drafting

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/broker-one/core/internal/database/models"
	"gorm.io/datatypes"
)

func emailContextFixture() EmailContext {
	return EmailContext{
		Deal: models.Deal{
			ID:            1,
			SeekerName:    "Jordan",
			SeekerEmail:   "jordan@acme.example",
			CompanyName:   "Acme Robotics",
			TeamSize:      8,
			MonthlyBudget: 5000,
		},
		Spaces: []models.Space{
			{
				ID:          1,
				Name:        "The Annex",
				Address:     "101 Market St",
				HostCompany: "Hosted Inc",
				MonthlyRate: 4000,
				Amenities:   datatypes.NewJSONType(models.SpaceAmenities{Parking: true}),
			},
		},
		InboundEmail: models.Email{
			ID:       42,
			DealID:   1,
			FromAddr: "jordan@acme.example",
			ToAddr:   "broker@broker.example",
			Subject:  "Office space questions",
			Body:     "Does the Annex have parking?",
			SentAt:   time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		AgentName: "Alex",
	}
}

func TestGenerator_Generate(t *testing.T) {
	client := &stubCompletionClient{
		text:       "Hi Jordan, yes The Annex has parking. Best, Alex",
		tokensUsed: 350,
	}
	g := NewGenerator(client)

	draft, err := g.Generate(emailContextFixture())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if draft.Body != client.text {
		t.Errorf("body = %q", draft.Body)
	}
	if draft.Confidence < 50 || draft.Confidence > 95 {
		t.Errorf("confidence out of range: %d", draft.Confidence)
	}
	if draft.Metadata.Model != "stub-model" || draft.Metadata.TokensUsed != 350 {
		t.Errorf("metadata = %+v", draft.Metadata)
	}
	if draft.Metadata.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not stamped")
	}
	if len(draft.Reasoning.QuestionsAddressed) != 1 {
		t.Errorf("expected the inbound question in reasoning, got %+v", draft.Reasoning.QuestionsAddressed)
	}

	// The prompt carries the deal and space data
	for _, want := range []string{"Acme Robotics", "The Annex", "101 Market St", "Does the Annex have parking?"} {
		if !strings.Contains(client.lastUser, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(client.lastSystem, "Alex") {
		t.Errorf("system prompt missing agent name: %q", client.lastSystem)
	}
}

func TestGenerator_GenerateError(t *testing.T) {
	client := &stubCompletionClient{err: errors.New("rate limited")}
	g := NewGenerator(client)

	_, err := g.Generate(emailContextFixture())
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_Refine(t *testing.T) {
	client := &stubCompletionClient{
		text:       "Hi Jordan, quick follow-up: The Annex has parking and we can tour Tuesday. Best, Alex",
		tokensUsed: 280,
	}
	g := NewGenerator(client)

	previous := "Hi Jordan, yes The Annex has parking. Best, Alex"
	instruction := "Make it shorter and propose a tour"
	draft, err := g.Refine(emailContextFixture(), previous, instruction, 1)
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}

	if draft.Body != client.text {
		t.Errorf("body = %q", draft.Body)
	}
	// The refine prompt carries the previous draft and the instruction
	if !strings.Contains(client.lastUser, previous) {
		t.Error("refine prompt missing previous draft body")
	}
	if !strings.Contains(client.lastUser, instruction) {
		t.Error("refine prompt missing instruction")
	}
	if !strings.Contains(client.lastUser, "Version 0") {
		t.Error("refine prompt missing previous version label")
	}
}
