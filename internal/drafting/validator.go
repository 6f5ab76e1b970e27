package drafting

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/broker-one/core/internal/database/models"
)

// Validation parameters. Low temperature keeps the verdict consistent; the
// response format is short and fixed.
const (
	validationTemperature = 0.1
	validationMaxTokens   = 300

	warningsAdjustment = -10
	failedAdjustment   = -25
)

var statusPattern = regexp.MustCompile(`(?i)STATUS:\s*(PASSED|WARNINGS|FAILED)`)

// ValidationResult is the outcome of the fact-check pass
type ValidationResult struct {
	Status               models.ValidationStatus
	Issues               []string
	ConfidenceAdjustment int
	TokensUsed           int
	CheckedAt            time.Time
}

// Validator fact-checks generated drafts against source data through a second
// completion call.
type Validator struct {
	client CompletionClient
}

// NewValidator creates a new Validator instance
func NewValidator(client CompletionClient) *Validator {
	return &Validator{client: client}
}

// Validate checks a draft body against the space data. A failure of the
// check call itself does not block drafting: the result degrades to a neutral
// warnings verdict with no confidence adjustment.
func (v *Validator) Validate(emailBody string, ctx StructuredContext) ValidationResult {
	system := "You are a strict fact-checker. Your job is to catch any information in the draft that is not explicitly in the provided data."
	prompt := buildValidationPrompt(emailBody, ctx)

	completion, err := v.client.Complete(system, prompt, validationTemperature, validationMaxTokens)
	if err != nil {
		return ValidationResult{
			Status:    models.ValidationWarnings,
			Issues:    []string{"Validation check could not be completed"},
			CheckedAt: time.Now(),
		}
	}

	result := ParseValidationResponse(completion.Text)
	result.TokensUsed = completion.TokensUsed
	result.CheckedAt = time.Now()
	return result
}

// ParseValidationResponse parses the fixed STATUS/ISSUES response format
func ParseValidationResponse(response string) ValidationResult {
	status := models.ValidationWarnings
	if match := statusPattern.FindStringSubmatch(response); match != nil {
		status = models.ValidationStatus(strings.ToLower(match[1]))
	}

	var issues []string
	if _, after, found := strings.Cut(response, "ISSUES:"); found {
		for _, line := range strings.Split(after, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "-") {
				continue
			}
			issue := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if issue == "" || strings.EqualFold(issue, "none") {
				continue
			}
			issues = append(issues, issue)
		}
	}

	adjustment := 0
	switch status {
	case models.ValidationWarnings:
		adjustment = warningsAdjustment
	case models.ValidationFailed:
		adjustment = failedAdjustment
	}

	return ValidationResult{
		Status:               status,
		Issues:               issues,
		ConfidenceAdjustment: adjustment,
	}
}

// buildValidationPrompt builds the fact-check prompt against the space data
func buildValidationPrompt(emailBody string, ctx StructuredContext) string {
	var b strings.Builder

	b.WriteString("You are a fact-checker. Review this email draft for accuracy against the provided data.\n\n")
	fmt.Fprintf(&b, "EMAIL DRAFT:\n%s\n\nAVAILABLE DATA:\n", emailBody)

	var validPrices []string
	for i, space := range ctx.Spaces {
		validPrices = append(validPrices, fmt.Sprintf("$%d", space.MonthlyRate))
		fmt.Fprintf(&b, "\nSpace %d: %s\n", i+1, space.Name)
		fmt.Fprintf(&b, "- Address: %s\n", space.Address)
		fmt.Fprintf(&b, "- Monthly Rate: $%d\n", space.MonthlyRate)
		fmt.Fprintf(&b, "- Amenities: %s\n", toJSON(space.Amenities))
		fmt.Fprintf(&b, "- Detailed Amenities: %s\n", toJSON(space.DetailedAmenities))
	}

	fmt.Fprintf(&b, `
VALIDATION CHECKLIST:
1. Are all prices mentioned in the draft exactly matching the data? (Valid prices: %s)
2. Are all amenities mentioned in the draft explicitly listed in the space data?
3. Are all addresses mentioned correctly?
4. Are there any claims about features not in the data?

Respond in this exact format:
STATUS: [PASSED/WARNINGS/FAILED]
ISSUES:
- [List each issue found, or write "None" if passed]

Be strict. If the draft mentions "parking" but the data doesn't explicitly show parking details, that's an issue.`,
		strings.Join(validPrices, ", "))

	return b.String()
}
