package drafting

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/broker-one/core/internal/database/models"
)

// Confidence scoring increments. The score is a keyword-presence heuristic over
// the generated text, reproducible for the same body and space list.
const (
	confidenceBase      = 50
	confidenceCap       = 95
	parkingBonus        = 10
	afterHoursBonus     = 10
	schedulingBonus     = 10
	spaceMentionBonus   = 5
	greetingBonus       = 5
	signoffBonus        = 5
)

var (
	tourTimePattern = regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(am|pm)`)
	questionSplit   = regexp.MustCompile(`[.!?\n]`)
)

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// CalculateConfidence scores the generated body for completeness: base 50,
// fixed increments for addressed topics, capped at 95 (never fully confident).
func CalculateConfidence(emailBody string, ctx StructuredContext) int {
	score := confidenceBase
	lowerBody := strings.ToLower(emailBody)

	if strings.Contains(lowerBody, "parking") {
		score += parkingBonus
	}
	if strings.Contains(lowerBody, "after-hours") || strings.Contains(lowerBody, "24/7") {
		score += afterHoursBonus
	}
	if strings.Contains(lowerBody, "tour") || strings.Contains(lowerBody, "schedule") {
		score += schedulingBonus
	}

	for _, space := range ctx.Spaces {
		if strings.Contains(lowerBody, strings.ToLower(space.Name)) {
			score += spaceMentionBonus
		}
	}

	if strings.Contains(lowerBody, "hi ") || strings.Contains(lowerBody, "hello") {
		score += greetingBonus
	}
	if strings.Contains(lowerBody, "best") || strings.Contains(lowerBody, "regards") ||
		strings.Contains(lowerBody, strings.ToLower(ctx.AgentName)) {
		score += signoffBonus
	}

	if score > confidenceCap {
		score = confidenceCap
	}
	return score
}

// ExtractQuestions pulls the question sentences out of an inbound email body
func ExtractQuestions(emailBody string) []string {
	var questions []string
	start := 0
	for _, loc := range questionSplit.FindAllStringIndex(emailBody, -1) {
		sentence := strings.TrimSpace(emailBody[start:loc[0]])
		terminator := emailBody[loc[0]:loc[1]]
		if terminator == "?" && sentence != "" {
			questions = append(questions, sentence+"?")
		}
		start = loc[1]
	}
	return questions
}

// AnalyzeDraft derives the reasoning trace for a generated body: which inbound
// questions were addressed, which data sources were consulted (deduplicated by
// source), scheduling signals, CRM lookups, calendar checks, and a tour route.
// It is a pure function of its inputs.
func AnalyzeDraft(emailBody string, ctx StructuredContext) models.Reasoning {
	lowerBody := strings.ToLower(emailBody)

	reasoning := models.Reasoning{}

	// Questions from the inbound email, marked as addressed by the draft
	sourceText := ctx.InboundEmail.Body
	if len(sourceText) > 200 {
		sourceText = sourceText[:200]
	}
	for _, question := range ExtractQuestions(ctx.InboundEmail.Body) {
		reasoning.QuestionsAddressed = append(reasoning.QuestionsAddressed, models.QuestionAnswer{
			Question:      question,
			Answer:        "Addressed in draft",
			SourceEmailID: ctx.InboundEmail.ID,
			SourceText:    sourceText,
		})
	}

	// Track source documents, deduplicated by key (space-{id} / email-{id}).
	// Spaces are scanned in input order so the result is deterministic.
	seen := make(map[string]bool)
	for _, space := range ctx.Spaces {
		if !strings.Contains(lowerBody, strings.ToLower(space.Name)) {
			continue
		}
		key := fmt.Sprintf("space-%d", space.ID)
		if seen[key] {
			continue
		}
		seen[key] = true

		var dataPoints []string
		if strings.Contains(lowerBody, "parking") {
			dataPoints = append(dataPoints, "parking availability")
		}
		if strings.Contains(lowerBody, "after-hours") || strings.Contains(lowerBody, "24/7") ||
			strings.Contains(lowerBody, "access") {
			dataPoints = append(dataPoints, "24/7 access information")
		}
		if strings.Contains(lowerBody, strings.ToLower(space.Address)) {
			dataPoints = append(dataPoints, "location details")
		}
		if space.MonthlyRate > 0 && (strings.Contains(lowerBody, "rate") ||
			strings.Contains(lowerBody, "price") || strings.Contains(lowerBody, "$")) {
			dataPoints = append(dataPoints, "pricing information")
		}
		if len(dataPoints) == 0 {
			dataPoints = []string{"general space information"}
		}

		reasoning.DataUsed = append(reasoning.DataUsed, models.DataSource{
			SourceType:     "space",
			SourceID:       space.ID,
			SourceName:     space.Name,
			SourceTitle:    fmt.Sprintf("Space Listing: %s", space.Name),
			SourceSubtitle: fmt.Sprintf("CRM Record #%d", space.ID),
			Details: models.DataSourceDetails{
				Address:     space.Address,
				MonthlyRate: space.MonthlyRate,
				HostCompany: space.HostCompany,
			},
			DataPointsUsed: dataPoints,
		})
	}

	// The inbound email is a source if any of its questions were addressed
	if len(reasoning.QuestionsAddressed) > 0 {
		inbound := ctx.InboundEmail
		key := fmt.Sprintf("email-%d", inbound.ID)
		if !seen[key] {
			seen[key] = true
			var questionPoints []string
			for _, q := range reasoning.QuestionsAddressed {
				questionPoints = append(questionPoints, strings.ToLower(q.Question))
			}
			sentAt := inbound.SentAt
			reasoning.DataUsed = append(reasoning.DataUsed, models.DataSource{
				SourceType:     "email",
				SourceID:       inbound.ID,
				SourceName:     inbound.From,
				SourceTitle:    fmt.Sprintf("Email: %q", inbound.Subject),
				SourceSubtitle: fmt.Sprintf("From: %s • %s", inbound.From, sentAt.Format("Jan 2, 2006")),
				Details: models.DataSourceDetails{
					From:    inbound.From,
					To:      inbound.To,
					SentAt:  &sentAt,
					Subject: inbound.Subject,
				},
				DataPointsUsed: questionPoints,
			})
		}
	}

	// Scheduling signals
	for _, day := range weekdays {
		if strings.Contains(lowerBody, day) {
			reasoning.SchedulingLogic = append(reasoning.SchedulingLogic, "Used availability windows from space data")
			break
		}
	}
	if tourTimePattern.MatchString(emailBody) {
		reasoning.SchedulingLogic = append(reasoning.SchedulingLogic, "Proposed specific tour times")
	}

	reasoning.CRMLookups = buildCRMLookups(ctx.Spaces, lowerBody)
	reasoning.CalendarChecks = buildCalendarChecks(ctx.Spaces)
	reasoning.TourRoute = buildTourRoute(ctx.Spaces)

	return reasoning
}

// buildCRMLookups synthesizes the amenity-detail lookup trace from space records
func buildCRMLookups(spaces []SpaceInfo, lowerBody string) []models.CRMLookup {
	var lookups []models.CRMLookup
	for _, space := range spaces {
		lookup := models.CRMLookup{
			SpaceID:   space.ID,
			SpaceName: space.Name,
			Address:   space.Address,
			Details:   space.DetailedAmenities,
		}
		dogPolicy := space.DetailedAmenities.DogPolicy
		if dogPolicy != nil && !dogPolicy.Allowed && strings.Contains(lowerBody, "dog") {
			lookup.Excluded = true
			reason := dogPolicy.Reason
			if reason == "" {
				reason = "Building policy"
			}
			lookup.ExcludedReason = fmt.Sprintf("Dogs not allowed: %s", reason)
		}
		lookups = append(lookups, lookup)
	}
	return lookups
}

// buildCalendarChecks builds one availability check per weekday present in any
// space's tour windows.
func buildCalendarChecks(spaces []SpaceInfo) []models.CalendarCheck {
	var checks []models.CalendarCheck
	for _, day := range weekdays {
		seen := false
		for _, space := range spaces {
			if len(space.Availability[day]) > 0 {
				seen = true
				break
			}
		}
		if !seen {
			continue
		}

		check := models.CalendarCheck{Day: strings.ToUpper(day[:1]) + day[1:]}
		for _, space := range spaces {
			slots := space.Availability[day]
			check.Spaces = append(check.Spaces, models.SpaceWindowMatches{
				SpaceName: space.Name,
				Available: len(slots) > 0,
				Note:      strings.Join(slots, ", "),
			})
		}
		checks = append(checks, check)
	}
	return checks
}

// buildTourRoute suggests a visiting order when three or more candidate spaces
// have known neighborhoods.
func buildTourRoute(spaces []SpaceInfo) *models.TourRoute {
	var neighborhoods []string
	for _, space := range spaces {
		if space.Neighborhood != "" {
			neighborhoods = append(neighborhoods, space.Neighborhood)
		}
	}
	if len(neighborhoods) < 3 {
		return nil
	}

	return &models.TourRoute{
		Recommended: "Single tour window covering all spaces",
		Route:       strings.Join(neighborhoods, " -> "),
		TotalStops:  len(neighborhoods),
	}
}
