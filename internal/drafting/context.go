package drafting

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/broker-one/core/internal/database/models"
)

// EmailContext is the raw material for one generation: the deal, its candidate
// spaces, the full thread, and the specific inbound email to answer.
type EmailContext struct {
	Deal         models.Deal
	Spaces       []models.Space
	EmailThread  []models.Email
	InboundEmail models.Email
	AgentName    string
}

// StructuredContext is the normalized view handed to prompt building and to
// the pure analysis functions.
type StructuredContext struct {
	DealInfo     DealInfo
	Spaces       []SpaceInfo
	EmailHistory []EmailInfo
	InboundEmail EmailInfo
	AgentName    string
}

// DealInfo summarizes the deal for the prompt
type DealInfo struct {
	SeekerName    string
	CompanyName   string
	TeamSize      int
	MonthlyBudget int
	Requirements  models.DealRequirements
}

// SpaceInfo summarizes one candidate space for the prompt
type SpaceInfo struct {
	ID                uint
	Name              string
	Address           string
	Neighborhood      string
	HostCompany       string
	HostContext       string
	Amenities         models.SpaceAmenities
	Availability      models.SpaceAvailability
	MonthlyRate       int
	DetailedAmenities models.DetailedAmenities
}

// EmailInfo summarizes one thread message for the prompt
type EmailInfo struct {
	ID      uint
	From    string
	To      string
	Subject string
	Body    string
	SentAt  time.Time
}

// BuildStructuredContext extracts and structures context from database
// entities for AI processing.
func BuildStructuredContext(ctx EmailContext) StructuredContext {
	agentName := ctx.AgentName
	if agentName == "" {
		agentName = "Alex"
	}

	structured := StructuredContext{
		DealInfo: DealInfo{
			SeekerName:    ctx.Deal.SeekerName,
			CompanyName:   ctx.Deal.CompanyName,
			TeamSize:      ctx.Deal.TeamSize,
			MonthlyBudget: ctx.Deal.MonthlyBudget,
			Requirements:  ctx.Deal.Requirements.Data(),
		},
		InboundEmail: toEmailInfo(ctx.InboundEmail),
		AgentName:    agentName,
	}

	for _, space := range ctx.Spaces {
		structured.Spaces = append(structured.Spaces, SpaceInfo{
			ID:                space.ID,
			Name:              space.Name,
			Address:           space.Address,
			Neighborhood:      space.Neighborhood,
			HostCompany:       space.HostCompany,
			HostContext:       space.HostContext,
			Amenities:         space.Amenities.Data(),
			Availability:      space.Availability.Data(),
			MonthlyRate:       space.MonthlyRate,
			DetailedAmenities: space.DetailedAmenities.Data(),
		})
	}

	for _, email := range ctx.EmailThread {
		structured.EmailHistory = append(structured.EmailHistory, toEmailInfo(email))
	}

	return structured
}

func toEmailInfo(email models.Email) EmailInfo {
	return EmailInfo{
		ID:      email.ID,
		From:    email.FromAddr,
		To:      email.ToAddr,
		Subject: email.Subject,
		Body:    email.Body,
		SentAt:  email.SentAt,
	}
}

// BuildEmailPrompt builds the generation prompt from the structured context
func BuildEmailPrompt(ctx StructuredContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a professional real estate agent helping %s from %s find office space.\n\n",
		ctx.AgentName, ctx.DealInfo.SeekerName, ctx.DealInfo.CompanyName)

	fmt.Fprintf(&b, "DEAL CONTEXT:\n")
	fmt.Fprintf(&b, "- Company: %s\n", ctx.DealInfo.CompanyName)
	fmt.Fprintf(&b, "- Team size: %d people\n", ctx.DealInfo.TeamSize)
	fmt.Fprintf(&b, "- Budget: $%d/month\n", ctx.DealInfo.MonthlyBudget)
	fmt.Fprintf(&b, "- Requirements: %s\n\n", toJSON(ctx.DealInfo.Requirements))

	b.WriteString("AVAILABLE SPACES:\n")
	for i, space := range ctx.Spaces {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, space.Name)
		fmt.Fprintf(&b, "   - Address: %s\n", space.Address)
		fmt.Fprintf(&b, "   - Host: %s\n", space.HostCompany)
		if space.HostContext != "" {
			fmt.Fprintf(&b, "   - Context: %s\n", space.HostContext)
		}
		fmt.Fprintf(&b, "   - Rate: $%d/month\n", space.MonthlyRate)
		fmt.Fprintf(&b, "   - Amenities: %s\n", toJSON(space.Amenities))
		fmt.Fprintf(&b, "   - Availability: %s\n", toJSON(space.Availability))
	}

	fmt.Fprintf(&b, "\nINBOUND EMAIL TO RESPOND TO:\n")
	fmt.Fprintf(&b, "From: %s\n", ctx.InboundEmail.From)
	fmt.Fprintf(&b, "Subject: %s\n\n", ctx.InboundEmail.Subject)
	b.WriteString(ctx.InboundEmail.Body)

	fmt.Fprintf(&b, `

TASK:
Write a professional, helpful email response that:
1. Addresses ALL questions asked in the inbound email with clear, direct answers
2. Uses specific data from the spaces (amenities, availability, host context)
3. When a question asks "does X have Y?", answer YES or NO clearly if the data shows it
4. Use the host context to provide background on companies when asked
5. Proposes a concrete tour schedule based on the availability windows mentioned
6. Maintains a friendly, professional, enthusiastic tone
7. Signs off as "%s"

IMPORTANT CONSTRAINTS:
- Answer questions directly and positively when the answer is YES
- Only reference amenities/features that are explicitly listed in the space data
- Use actual availability windows from the data
- If proposing tours, consider travel time between locations (spaces in the same neighborhood are ~15 min apart)
- Be specific with times and addresses

Respond with ONLY the email body (no subject line, no metadata). Start with a greeting and end with a signature.`, ctx.AgentName)

	return b.String()
}

// SystemPrompt is the persona instruction for fresh generation
func SystemPrompt(agentName string) string {
	return fmt.Sprintf("You are %s, a professional and enthusiastic real estate agent. "+
		"Write helpful, accurate email responses based on specific property data. "+
		"When clients ask questions, answer them directly and positively. "+
		"Use the exact data provided - do not make assumptions or add information not in the data. "+
		"Be warm, professional, and solution-oriented.", agentName)
}

// RefineSystemPrompt is the persona instruction for refinement
func RefineSystemPrompt(agentName string) string {
	return fmt.Sprintf("You are %s, a professional and enthusiastic real estate agent. "+
		"You are refining an email draft based on user feedback. "+
		"Preserve the good parts of the previous draft while incorporating the requested changes. "+
		"Be warm, professional, and solution-oriented.", agentName)
}

// BuildRefinePrompt extends the generation prompt with the previous draft and
// the reviewer's instruction.
func BuildRefinePrompt(ctx StructuredContext, previousBody, instruction string, versionNumber int) string {
	var b strings.Builder

	b.WriteString(BuildEmailPrompt(ctx))
	fmt.Fprintf(&b, "\n\nPREVIOUS DRAFT (Version %d):\n%s\n", versionNumber-1, previousBody)
	fmt.Fprintf(&b, "\nUSER REFINEMENT INSTRUCTION:\n%s\n", instruction)
	b.WriteString(`
TASK:
Regenerate the email incorporating the user's refinement instruction while:
1. Preserving all answers to the original questions
2. Maintaining professional tone and accuracy
3. Keeping all factual information correct
4. Enhancing the draft based on the specific instruction

IMPORTANT: Do not remove or contradict information from the previous draft unless the instruction specifically asks you to. Build upon it.

Respond with ONLY the refined email body (no subject line, no metadata).`)

	return b.String()
}

func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
