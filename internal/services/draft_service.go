package services

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/broker-one/core/internal/database/models"
	"github.com/broker-one/core/internal/drafting"
	"github.com/broker-one/core/internal/functions/mail"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrDraftNotFound indicates the draft was not found
	ErrDraftNotFound = errors.New("draft not found")
	// ErrInvalidState indicates the draft's status forbids the operation
	ErrInvalidState = errors.New("operation not allowed in current draft state")
	// ErrVersionNotFound indicates the requested version does not exist
	ErrVersionNotFound = errors.New("draft version not found")
	// ErrEmailDealMismatch indicates the inbound email does not belong to the deal
	ErrEmailDealMismatch = errors.New("inbound email does not belong to deal")
	// ErrSendNotConfirmed indicates send was requested without confirmation
	ErrSendNotConfirmed = errors.New("send requires explicit confirmation")
	// ErrInvalidInput indicates instruction or body length outside allowed bounds
	ErrInvalidInput = errors.New("invalid input")
)

// Regeneration quota: 3 uses per draft, then a 24-hour cooldown before the
// next one is permitted. A cost control on model spend, not a correctness
// mechanism.
const (
	maxRegenerations   = 3
	regenerationWindow = 24 * time.Hour

	minBodyLength        = 10
	maxBodyLength        = 10000
	minInstructionLength = 10
	maxInstructionLength = 500
)

// CooldownError signals that the regeneration quota is exhausted and carries
// the whole hours remaining until the next regeneration is allowed.
type CooldownError struct {
	HoursRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("regeneration limit reached: try again in %d hours", e.HoursRemaining)
}

// DraftGenerator produces and refines draft bodies
type DraftGenerator interface {
	Generate(ctx drafting.EmailContext) (*drafting.GeneratedDraft, error)
	Refine(ctx drafting.EmailContext, previousBody, instruction string, versionNumber int) (*drafting.GeneratedDraft, error)
}

// DraftFactChecker runs the optional validation pass over a generated body
type DraftFactChecker interface {
	Validate(emailBody string, ctx drafting.StructuredContext) drafting.ValidationResult
}

// Mailer delivers outbound email
type Mailer interface {
	Send(msg mail.Message) (*mail.SendResult, error)
}

// DraftService owns the draft lifecycle: creation, editing, bounded
// regeneration, version switching, and the review state machine.
type DraftService struct {
	db          *gorm.DB
	dealService *DealService
	userService *UserService
	logService  *LogService
	generator   DraftGenerator
	factChecker DraftFactChecker
	mailer      Mailer
	mailFrom    string

	// locks serializes mutating operations per draft id, so two concurrent
	// regenerations cannot both pass the quota check
	locks sync.Map
}

// NewDraftService creates a new DraftService instance
func NewDraftService(db *gorm.DB, dealService *DealService, userService *UserService,
	logService *LogService, generator DraftGenerator, factChecker DraftFactChecker,
	mailer Mailer, mailFrom string) *DraftService {
	return &DraftService{
		db:          db,
		dealService: dealService,
		userService: userService,
		logService:  logService,
		generator:   generator,
		factChecker: factChecker,
		mailer:      mailer,
		mailFrom:    mailFrom,
	}
}

// lockDraft returns the mutex serializing operations on one draft
func (s *DraftService) lockDraft(draftID uint) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(draftID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// getDraft loads a draft row or reports ErrDraftNotFound
func (s *DraftService) getDraft(draftID uint) (*models.Draft, error) {
	var draft models.Draft
	if err := s.db.First(&draft, draftID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return &draft, nil
}

// buildContext assembles the generation context for a deal and inbound email.
// The inbound email must belong to the deal; ids are not trusted.
func (s *DraftService) buildContext(dealID, inboundEmailID uint, agentName string) (*drafting.EmailContext, error) {
	deal, err := s.dealService.GetDeal(dealID)
	if err != nil {
		return nil, err
	}

	inbound, err := s.dealService.GetEmail(inboundEmailID)
	if err != nil {
		return nil, err
	}
	if inbound.DealID != dealID {
		return nil, ErrEmailDealMismatch
	}

	spaces, err := s.dealService.GetDealSpaces(dealID)
	if err != nil {
		return nil, err
	}

	thread, err := s.dealService.GetEmailThread(dealID)
	if err != nil {
		return nil, err
	}

	return &drafting.EmailContext{
		Deal:         *deal,
		Spaces:       spaces,
		EmailThread:  thread,
		InboundEmail: *inbound,
		AgentName:    agentName,
	}, nil
}

// agentNameFor returns the broker's configured signature name
func (s *DraftService) agentNameFor(userID uint) (string, bool) {
	settings, err := s.userService.GetSettings(userID)
	if err != nil {
		return "Alex", true
	}
	return settings.AgentName, settings.ValidateDrafts
}

// Create generates a fresh draft for a deal's inbound email and persists it
// with version 0 seeded atomically. If generation fails, nothing is written.
func (s *DraftService) Create(userID, dealID, inboundEmailID uint) (*models.Draft, error) {
	agentName, validate := s.agentNameFor(userID)

	ctx, err := s.buildContext(dealID, inboundEmailID, agentName)
	if err != nil {
		return nil, err
	}

	generated, err := s.generator.Generate(*ctx)
	if err != nil {
		return nil, err
	}

	confidence := generated.Confidence
	metadata := generated.Metadata
	var report models.ValidationReport
	if validate && s.factChecker != nil {
		result := s.factChecker.Validate(generated.Body, drafting.BuildStructuredContext(*ctx))
		report = models.ValidationReport{
			Status:    result.Status,
			Issues:    result.Issues,
			CheckedAt: result.CheckedAt,
		}
		metadata.ValidationTokensUsed = result.TokensUsed
		confidence += result.ConfidenceAdjustment
		if confidence < 0 {
			confidence = 0
		}
	}

	now := time.Now()
	draft := &models.Draft{
		DealID:          dealID,
		InboundEmailID:  inboundEmailID,
		AIGeneratedBody: generated.Body,
		FinalBody:       generated.Body,
		ConfidenceScore: confidence,
		Status:          string(models.DraftStatusPending),
		Reasoning:       datatypes.NewJSONType(generated.Reasoning),
		Metadata:        datatypes.NewJSONType(metadata),
		Validation:      datatypes.NewJSONType(report),
		CurrentVersion:  0,
		Versions: datatypes.JSONSlice[models.DraftVersion]{
			{
				Version:    0,
				Body:       generated.Body,
				Prompt:     nil,
				Confidence: confidence,
				Reasoning:  generated.Reasoning,
				Metadata:   metadata,
				CreatedAt:  now,
			},
		},
	}

	if err := s.db.Create(draft).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(userID, models.LogModuleDraft, "create",
		fmt.Sprintf("Generated draft %d for deal %d", draft.ID, dealID),
		map[string]interface{}{"confidence": confidence, "inbound_email_id": inboundEmailID})

	return draft, nil
}

// Update applies a human edit to the draft body. Edits are not versioned;
// only generations are.
func (s *DraftService) Update(draftID uint, editedBody string) (*models.Draft, error) {
	if n := utf8.RuneCountInString(editedBody); n < minBodyLength || n > maxBodyLength {
		return nil, fmt.Errorf("%w: body must be %d-%d characters", ErrInvalidInput, minBodyLength, maxBodyLength)
	}

	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}

	switch models.DraftStatus(draft.Status) {
	case models.DraftStatusSent:
		return nil, fmt.Errorf("%w: draft has already been sent", ErrInvalidState)
	case models.DraftStatusRejected:
		return nil, fmt.Errorf("%w: draft has been rejected", ErrInvalidState)
	}

	draft.EditedBody = editedBody
	draft.FinalBody = editedBody
	if err := s.db.Save(draft).Error; err != nil {
		return nil, err
	}

	return draft, nil
}

// RegenerateResult is the outcome of one successful regeneration
type RegenerateResult struct {
	Draft             *models.Draft
	NewVersion        models.DraftVersion
	VersionsRemaining int
}

// Regenerate produces a refined draft body from the reviewer's instruction,
// appending a new version snapshot. Bounded by the quota and cooldown.
func (s *DraftService) Regenerate(userID, draftID uint, instruction string) (*RegenerateResult, error) {
	if n := utf8.RuneCountInString(instruction); n < minInstructionLength || n > maxInstructionLength {
		return nil, fmt.Errorf("%w: instruction must be %d-%d characters", ErrInvalidInput, minInstructionLength, maxInstructionLength)
	}

	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}

	if err := checkRegenerationQuota(draft, time.Now()); err != nil {
		return nil, err
	}

	switch models.DraftStatus(draft.Status) {
	case models.DraftStatusSent:
		return nil, fmt.Errorf("%w: draft has already been sent", ErrInvalidState)
	case models.DraftStatusRejected:
		return nil, fmt.Errorf("%w: draft has been rejected", ErrInvalidState)
	}

	agentName, _ := s.agentNameFor(userID)
	ctx, err := s.buildContext(draft.DealID, draft.InboundEmailID, agentName)
	if err != nil {
		return nil, err
	}

	previousBody := draft.FinalBody
	if previousBody == "" {
		previousBody = draft.AIGeneratedBody
	}
	nextVersion := draft.RegenerationCount + 1

	generated, err := s.generator.Refine(*ctx, previousBody, instruction, nextVersion)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newVersion := models.DraftVersion{
		Version:    nextVersion,
		Body:       generated.Body,
		Prompt:     &instruction,
		Confidence: generated.Confidence,
		Reasoning:  generated.Reasoning,
		Metadata:   generated.Metadata,
		CreatedAt:  now,
	}

	draft.Versions = append(draft.Versions, newVersion)
	draft.RegenerationCount++
	draft.LastRegenerationAt = &now
	draft.CurrentVersion = nextVersion
	draft.FinalBody = generated.Body
	draft.ConfidenceScore = generated.Confidence
	draft.Reasoning = datatypes.NewJSONType(generated.Reasoning)
	draft.Metadata = datatypes.NewJSONType(generated.Metadata)

	if err := s.db.Save(draft).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(userID, models.LogModuleDraft, "regenerate",
		fmt.Sprintf("Regenerated draft %d to version %d", draft.ID, nextVersion),
		map[string]interface{}{"instruction": instruction})

	remaining := maxRegenerations - draft.RegenerationCount
	if remaining < 0 {
		remaining = 0
	}

	return &RegenerateResult{
		Draft:             draft,
		NewVersion:        newVersion,
		VersionsRemaining: remaining,
	}, nil
}

// checkRegenerationQuota enforces the 3-use quota and the 24-hour cooldown.
// Below the quota regeneration is always allowed; at or above it, 24 hours
// must have elapsed since the last regeneration.
func checkRegenerationQuota(draft *models.Draft, now time.Time) error {
	if draft.RegenerationCount < maxRegenerations {
		return nil
	}

	if draft.LastRegenerationAt == nil {
		// No timestamp to measure from; assert the full cooldown
		return &CooldownError{HoursRemaining: int(regenerationWindow.Hours())}
	}

	elapsed := now.Sub(*draft.LastRegenerationAt)
	if elapsed >= regenerationWindow {
		return nil
	}

	remaining := int(math.Ceil(regenerationWindow.Hours() - elapsed.Hours()))
	return &CooldownError{HoursRemaining: remaining}
}

// SwitchVersion selects an existing version snapshot as the draft's current
// content. Forward history is kept; no versions are deleted.
func (s *DraftService) SwitchVersion(draftID uint, targetVersion int) (*models.Draft, error) {
	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	return s.switchVersionLocked(draftID, targetVersion)
}

func (s *DraftService) switchVersionLocked(draftID uint, targetVersion int) (*models.Draft, error) {
	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}

	if models.DraftStatus(draft.Status) == models.DraftStatusSent {
		return nil, fmt.Errorf("%w: draft has already been sent", ErrInvalidState)
	}

	version, ok := draft.FindVersion(targetVersion)
	if !ok {
		return nil, fmt.Errorf("%w: version %d", ErrVersionNotFound, targetVersion)
	}

	draft.CurrentVersion = version.Version
	draft.FinalBody = version.Body
	draft.ConfidenceScore = version.Confidence
	draft.Reasoning = datatypes.NewJSONType(version.Reasoning)
	draft.Metadata = datatypes.NewJSONType(version.Metadata)

	if err := s.db.Save(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

// Undo steps the draft back one version
func (s *DraftService) Undo(draftID uint) (*models.Draft, error) {
	return s.step(draftID, -1)
}

// Redo steps the draft forward one version
func (s *DraftService) Redo(draftID uint) (*models.Draft, error) {
	return s.step(draftID, +1)
}

// step walks the linear version history one position in either direction
func (s *DraftService) step(draftID uint, delta int) (*models.Draft, error) {
	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}
	return s.switchVersionLocked(draftID, draft.CurrentVersion+delta)
}

// Approve marks a pending draft as reviewed and ready to send. An optional
// final body supplied at approval time replaces the draft's content.
func (s *DraftService) Approve(draftID uint, finalBody, reviewer string) (*models.Draft, error) {
	if finalBody != "" {
		if n := utf8.RuneCountInString(finalBody); n < minBodyLength || n > maxBodyLength {
			return nil, fmt.Errorf("%w: body must be %d-%d characters", ErrInvalidInput, minBodyLength, maxBodyLength)
		}
	}

	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}

	if models.DraftStatus(draft.Status) != models.DraftStatusPending {
		return nil, fmt.Errorf("%w: only pending drafts can be approved", ErrInvalidState)
	}

	now := time.Now()
	draft.Status = string(models.DraftStatusApproved)
	draft.ReviewedAt = &now
	draft.ReviewedBy = reviewer
	if finalBody != "" {
		draft.FinalBody = finalBody
	}

	if err := s.db.Save(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

// Unapprove reverts an approved draft to pending
func (s *DraftService) Unapprove(draftID uint) (*models.Draft, error) {
	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}

	if models.DraftStatus(draft.Status) != models.DraftStatusApproved {
		return nil, fmt.Errorf("%w: only approved drafts can be unapproved", ErrInvalidState)
	}

	draft.Status = string(models.DraftStatusPending)
	draft.ReviewedAt = nil
	draft.ReviewedBy = ""

	if err := s.db.Save(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

// Reject marks a pending or approved draft as rejected
func (s *DraftService) Reject(draftID uint, reason, reviewer string) (*models.Draft, error) {
	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}

	switch models.DraftStatus(draft.Status) {
	case models.DraftStatusPending, models.DraftStatusApproved:
	default:
		return nil, fmt.Errorf("%w: draft cannot be rejected from status %s", ErrInvalidState, draft.Status)
	}

	now := time.Now()
	draft.Status = string(models.DraftStatusRejected)
	draft.ReviewedAt = &now
	draft.ReviewedBy = reviewer

	if err := s.db.Save(draft).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(0, models.LogModuleDraft, "reject",
		fmt.Sprintf("Rejected draft %d", draft.ID),
		map[string]interface{}{"reason": reason, "reviewer": reviewer})

	return draft, nil
}

// Archive soft-retires a draft that has not been sent
func (s *DraftService) Archive(draftID uint, reason, archiver string) (*models.Draft, error) {
	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}

	switch models.DraftStatus(draft.Status) {
	case models.DraftStatusSent:
		return nil, fmt.Errorf("%w: sent drafts cannot be archived", ErrInvalidState)
	case models.DraftStatusArchived:
		return nil, fmt.Errorf("%w: draft is already archived", ErrInvalidState)
	}

	if reason == "" {
		reason = "No reason provided"
	}

	now := time.Now()
	draft.Status = string(models.DraftStatusArchived)
	draft.ArchivedAt = &now
	draft.ArchivedBy = archiver
	draft.ArchiveReason = reason

	if err := s.db.Save(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

// SendResult is the outcome of delivering a draft
type SendResult struct {
	Draft     *models.Draft
	Email     *models.Email
	MessageID string
}

// Send delivers the draft's final body to the deal's seeker through the
// transactional mail service. On delivery failure the draft is left untouched.
func (s *DraftService) Send(userID, draftID uint, confirmed bool) (*SendResult, error) {
	if !confirmed {
		return nil, ErrSendNotConfirmed
	}

	lock := s.lockDraft(draftID)
	lock.Lock()
	defer lock.Unlock()

	draft, err := s.getDraft(draftID)
	if err != nil {
		return nil, err
	}

	switch models.DraftStatus(draft.Status) {
	case models.DraftStatusPending, models.DraftStatusApproved:
	default:
		return nil, fmt.Errorf("%w: draft cannot be sent from status %s", ErrInvalidState, draft.Status)
	}

	deal, err := s.dealService.GetDeal(draft.DealID)
	if err != nil {
		return nil, err
	}
	inbound, err := s.dealService.GetEmail(draft.InboundEmailID)
	if err != nil {
		return nil, err
	}

	body := draft.FinalBody
	if body == "" {
		body = draft.AIGeneratedBody
	}
	subject := "Re: " + inbound.Subject

	sendResult, err := s.mailer.Send(mail.Message{
		To:      deal.SeekerEmail,
		From:    s.mailFrom,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		s.logService.LogError(userID, models.LogModuleMail, "send",
			fmt.Sprintf("Failed to send draft %d", draft.ID),
			map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	reasoning := draft.Reasoning.Data()
	sentEmail := &models.Email{
		DealID:      draft.DealID,
		FromAddr:    s.mailFrom,
		ToAddr:      deal.SeekerEmail,
		Subject:     subject,
		Body:        body,
		SentAt:      sendResult.SentAt,
		AIGenerated: true,
		AIMetadata: datatypes.NewJSONType(models.AIMetadata{
			Confidence:      draft.ConfidenceScore,
			SchedulingLogic: reasoning.SchedulingLogic,
			QuestionsCount:  len(reasoning.QuestionsAddressed),
			DraftID:         draft.ID,
		}),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sentEmail).Error; err != nil {
			return err
		}
		draft.Status = string(models.DraftStatusSent)
		draft.SentAt = &sendResult.SentAt
		draft.SentEmailID = &sentEmail.ID
		return tx.Save(draft).Error
	})
	if err != nil {
		return nil, err
	}

	s.logService.LogInfo(userID, models.LogModuleMail, "send",
		fmt.Sprintf("Sent draft %d as email %d", draft.ID, sentEmail.ID),
		map[string]interface{}{"message_id": sendResult.MessageID})

	return &SendResult{
		Draft:     draft,
		Email:     sentEmail,
		MessageID: sendResult.MessageID,
	}, nil
}

// DraftListOptions holds filters for listing drafts
type DraftListOptions struct {
	DealID uint
	Status string
	Limit  int
	Offset int
}

// DraftListResult is a page of drafts
type DraftListResult struct {
	Drafts []models.Draft
	Total  int64
	Limit  int
	Offset int
}

// List returns drafts ordered by confidence ascending (low-confidence drafts
// need review first), then newest first.
func (s *DraftService) List(opts DraftListOptions) (*DraftListResult, error) {
	if opts.Status != "" && !models.DraftStatus(opts.Status).IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, opts.Status)
	}
	if opts.Limit < 1 || opts.Limit > 100 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	query := s.db.Model(&models.Draft{})
	if opts.DealID != 0 {
		query = query.Where("deal_id = ?", opts.DealID)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var drafts []models.Draft
	if err := query.
		Preload("Deal").
		Preload("InboundEmail").
		Order("confidence_score ASC, created_at DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&drafts).Error; err != nil {
		return nil, err
	}

	return &DraftListResult{
		Drafts: drafts,
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}, nil
}

// GetByID retrieves a draft with its deal and inbound email
func (s *DraftService) GetByID(draftID uint) (*models.Draft, error) {
	var draft models.Draft
	err := s.db.Preload("Deal").Preload("InboundEmail").First(&draft, draftID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return &draft, nil
}
