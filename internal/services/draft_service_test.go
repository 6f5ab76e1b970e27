package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/broker-one/core/internal/database"
	"github.com/broker-one/core/internal/database/models"
	"github.com/broker-one/core/internal/drafting"
	"github.com/broker-one/core/internal/functions/mail"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeGenerator produces deterministic draft bodies without an AI backend
type fakeGenerator struct {
	confidence int
	err        error
	calls      int
}

func (f *fakeGenerator) nextConfidence() int {
	if f.confidence == 0 {
		return 70
	}
	return f.confidence
}

func (f *fakeGenerator) Generate(ctx drafting.EmailContext) (*drafting.GeneratedDraft, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return &drafting.GeneratedDraft{
		Body:       fmt.Sprintf("Hi %s, generated draft %d. Best, %s", ctx.Deal.SeekerName, f.calls, ctx.AgentName),
		Confidence: f.nextConfidence(),
		Metadata:   models.GenerationMetadata{Model: "fake", TokensUsed: 100, GeneratedAt: time.Now()},
	}, nil
}

func (f *fakeGenerator) Refine(ctx drafting.EmailContext, previousBody, instruction string, versionNumber int) (*drafting.GeneratedDraft, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return &drafting.GeneratedDraft{
		Body:       fmt.Sprintf("Refined v%d: %s", versionNumber, instruction),
		Confidence: f.nextConfidence(),
		Metadata:   models.GenerationMetadata{Model: "fake", TokensUsed: 80, GeneratedAt: time.Now()},
	}, nil
}

// fakeFactChecker always passes
type fakeFactChecker struct{}

func (f *fakeFactChecker) Validate(emailBody string, ctx drafting.StructuredContext) drafting.ValidationResult {
	return drafting.ValidationResult{
		Status:    models.ValidationPassed,
		CheckedAt: time.Now(),
	}
}

// fakeMailer records sent messages
type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(msg mail.Message) (*mail.SendResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, msg)
	return &mail.SendResult{
		MessageID: fmt.Sprintf("msg-%d", len(f.sent)),
		SentAt:    time.Now(),
	}, nil
}

type draftFixture struct {
	db        *gorm.DB
	svc       *DraftService
	generator *fakeGenerator
	mailer    *fakeMailer

	userID  uint
	dealID  uint
	emailID uint
}

func newDraftFixture(t *testing.T) *draftFixture {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}

	logService := NewLogService(db)
	userService := NewUserService(db)
	dealService := NewDealService(db)

	user, err := userService.CreateUser("broker", "secret123", "Broker")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	deal := models.Deal{
		SeekerName:    "Jordan",
		SeekerEmail:   "jordan@acme.example",
		CompanyName:   "Acme Robotics",
		TeamSize:      8,
		MonthlyBudget: 5000,
		Requirements:  datatypes.NewJSONType(models.DealRequirements{Parking: true}),
		Stage:         "touring",
	}
	if err := db.Create(&deal).Error; err != nil {
		t.Fatalf("failed to create deal: %v", err)
	}

	space := models.Space{
		Name:        "The Annex",
		Address:     "101 Market St",
		HostCompany: "Hosted Inc",
		HostEmail:   "host@hosted.example",
		MonthlyRate: 4000,
		Amenities:   datatypes.NewJSONType(models.SpaceAmenities{Parking: true}),
		Availability: datatypes.NewJSONType(models.SpaceAvailability{
			"tuesday": {"2:00 PM - 4:00 PM"},
		}),
	}
	if err := db.Create(&space).Error; err != nil {
		t.Fatalf("failed to create space: %v", err)
	}
	if err := db.Create(&models.DealSpace{DealID: deal.ID, SpaceID: space.ID, Status: "proposed"}).Error; err != nil {
		t.Fatalf("failed to link space: %v", err)
	}

	inbound := models.Email{
		DealID:   deal.ID,
		FromAddr: deal.SeekerEmail,
		ToAddr:   "broker@broker.example",
		Subject:  "Office space questions",
		Body:     "Does the Annex have parking?",
		SentAt:   time.Now().Add(-time.Hour),
	}
	if err := db.Create(&inbound).Error; err != nil {
		t.Fatalf("failed to create inbound email: %v", err)
	}

	generator := &fakeGenerator{}
	mailer := &fakeMailer{}
	svc := NewDraftService(db, dealService, userService, logService,
		generator, &fakeFactChecker{}, mailer, "broker@broker.example")

	return &draftFixture{
		db:        db,
		svc:       svc,
		generator: generator,
		mailer:    mailer,
		userID:    user.ID,
		dealID:    deal.ID,
		emailID:   inbound.ID,
	}
}

func (f *draftFixture) createDraft(t *testing.T) *models.Draft {
	t.Helper()
	draft, err := f.svc.Create(f.userID, f.dealID, f.emailID)
	if err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}
	return draft
}

func (f *draftFixture) reload(t *testing.T, id uint) *models.Draft {
	t.Helper()
	var draft models.Draft
	if err := f.db.First(&draft, id).Error; err != nil {
		t.Fatalf("failed to reload draft: %v", err)
	}
	return &draft
}

func TestDraftService_CreateSeedsVersionZero(t *testing.T) {
	f := newDraftFixture(t)

	draft := f.createDraft(t)

	if draft.Status != string(models.DraftStatusPending) {
		t.Errorf("status = %s, want pending", draft.Status)
	}
	if draft.CurrentVersion != 0 {
		t.Errorf("current version = %d, want 0", draft.CurrentVersion)
	}
	if len(draft.Versions) != 1 {
		t.Fatalf("versions = %d, want 1", len(draft.Versions))
	}
	if draft.Versions[0].Prompt != nil {
		t.Error("version 0 must carry no prompt")
	}
	if draft.Versions[0].Body != draft.AIGeneratedBody {
		t.Error("version 0 body must match the generated body")
	}
	if draft.FinalBody != draft.AIGeneratedBody {
		t.Error("final body must start as the generated body")
	}
	if draft.RegenerationCount != 0 {
		t.Errorf("regeneration count = %d, want 0", draft.RegenerationCount)
	}
	if draft.Validation.Data().Status != models.ValidationPassed {
		t.Errorf("validation status = %s, want passed", draft.Validation.Data().Status)
	}
}

func TestDraftService_CreateFailsClosed(t *testing.T) {
	f := newDraftFixture(t)

	if _, err := f.svc.Create(f.userID, 9999, f.emailID); !errors.Is(err, ErrDealNotFound) {
		t.Errorf("missing deal: err = %v, want ErrDealNotFound", err)
	}
	if _, err := f.svc.Create(f.userID, f.dealID, 9999); !errors.Is(err, ErrEmailNotFound) {
		t.Errorf("missing email: err = %v, want ErrEmailNotFound", err)
	}

	// A second deal with the first deal's email must be refused
	otherDeal := models.Deal{
		SeekerName:  "Sam",
		SeekerEmail: "sam@other.example",
		CompanyName: "Other Co",
		TeamSize:    3,
		Stage:       "intro",
	}
	if err := f.db.Create(&otherDeal).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(f.userID, otherDeal.ID, f.emailID); !errors.Is(err, ErrEmailDealMismatch) {
		t.Errorf("mismatched email: err = %v, want ErrEmailDealMismatch", err)
	}

	var count int64
	f.db.Model(&models.Draft{}).Count(&count)
	if count != 0 {
		t.Errorf("no drafts should exist after failed creates, found %d", count)
	}
}

func TestDraftService_CreateGenerationFailureWritesNothing(t *testing.T) {
	f := newDraftFixture(t)
	f.generator.err = drafting.ErrGenerationFailed

	if _, err := f.svc.Create(f.userID, f.dealID, f.emailID); !errors.Is(err, drafting.ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}

	var count int64
	f.db.Model(&models.Draft{}).Count(&count)
	if count != 0 {
		t.Errorf("no drafts should exist after a failed generation, found %d", count)
	}
}

func TestDraftService_RegenerateAppendsVersions(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	for i := 1; i <= 3; i++ {
		result, err := f.svc.Regenerate(f.userID, draft.ID, fmt.Sprintf("Make attempt %d shorter please", i))
		if err != nil {
			t.Fatalf("regeneration %d failed: %v", i, err)
		}

		if result.Draft.RegenerationCount != i {
			t.Errorf("count = %d, want %d", result.Draft.RegenerationCount, i)
		}
		if len(result.Draft.Versions) != i+1 {
			t.Errorf("versions = %d, want %d", len(result.Draft.Versions), i+1)
		}
		if result.Draft.CurrentVersion != i {
			t.Errorf("current version = %d, want %d", result.Draft.CurrentVersion, i)
		}
		if result.NewVersion.Version != i {
			t.Errorf("new version number = %d, want %d", result.NewVersion.Version, i)
		}
		if result.NewVersion.Prompt == nil {
			t.Error("regenerated versions must carry the instruction")
		}
		if result.VersionsRemaining != 3-i {
			t.Errorf("remaining = %d, want %d", result.VersionsRemaining, 3-i)
		}
		if result.Draft.LastRegenerationAt == nil {
			t.Error("last regeneration timestamp not stamped")
		}
	}
}

func TestDraftService_RegenerateQuotaAndCooldown(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Regenerate(f.userID, draft.ID, "Tighten the opening paragraph"); err != nil {
			t.Fatalf("regeneration %d failed: %v", i+1, err)
		}
	}

	// Fourth attempt inside the window is refused with the remaining hours
	_, err := f.svc.Regenerate(f.userID, draft.ID, "One more pass on the closing")
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("err = %v, want CooldownError", err)
	}
	if cooldown.HoursRemaining != 24 {
		t.Errorf("hours remaining = %d, want 24 right after the third use", cooldown.HoursRemaining)
	}

	// The refused attempt must not have touched the draft
	reloaded := f.reload(t, draft.ID)
	if reloaded.RegenerationCount != 3 || len(reloaded.Versions) != 4 {
		t.Errorf("draft mutated by refused regeneration: count=%d versions=%d",
			reloaded.RegenerationCount, len(reloaded.Versions))
	}

	// After the cooldown elapses the next regeneration succeeds as version 4
	expired := time.Now().Add(-25 * time.Hour)
	if err := f.db.Model(&models.Draft{}).Where("id = ?", draft.ID).
		Update("last_regeneration_at", expired).Error; err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.Regenerate(f.userID, draft.ID, "Now adjust the tour proposal")
	if err != nil {
		t.Fatalf("post-cooldown regeneration failed: %v", err)
	}
	if result.NewVersion.Version != 4 {
		t.Errorf("version = %d, want 4", result.NewVersion.Version)
	}
	if result.Draft.RegenerationCount != 4 {
		t.Errorf("count = %d, want 4", result.Draft.RegenerationCount)
	}
	if result.VersionsRemaining != 0 {
		t.Errorf("remaining = %d, want 0", result.VersionsRemaining)
	}
}

func TestCheckRegenerationQuota(t *testing.T) {
	now := time.Now()
	recent := now.Add(-2 * time.Hour)
	old := now.Add(-30 * time.Hour)

	tests := []struct {
		name      string
		count     int
		last      *time.Time
		wantHours int // 0 means allowed
	}{
		{"below quota", 2, &recent, 0},
		{"at quota inside window", 3, &recent, 22},
		{"at quota window expired", 3, &old, 0},
		{"at quota no timestamp", 3, nil, 24},
		{"above quota inside window", 5, &recent, 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := &models.Draft{RegenerationCount: tt.count, LastRegenerationAt: tt.last}
			err := checkRegenerationQuota(draft, now)
			if tt.wantHours == 0 {
				if err != nil {
					t.Errorf("expected allowed, got %v", err)
				}
				return
			}
			var cooldown *CooldownError
			if !errors.As(err, &cooldown) {
				t.Fatalf("expected CooldownError, got %v", err)
			}
			if cooldown.HoursRemaining != tt.wantHours {
				t.Errorf("hours = %d, want %d", cooldown.HoursRemaining, tt.wantHours)
			}
		})
	}
}

func TestDraftService_RegenerateInputBounds(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	if _, err := f.svc.Regenerate(f.userID, draft.ID, "short"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short instruction: err = %v, want ErrInvalidInput", err)
	}

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := f.svc.Regenerate(f.userID, draft.ID, string(long)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("long instruction: err = %v, want ErrInvalidInput", err)
	}

	// Bounds count characters, not bytes
	if _, err := f.svc.Regenerate(f.userID, draft.ID, "héllo🙂"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short multibyte instruction: err = %v, want ErrInvalidInput", err)
	}
	curly := strings.Repeat("’", 500)
	if _, err := f.svc.Regenerate(f.userID, draft.ID, curly); err != nil {
		t.Errorf("500-character multibyte instruction refused: %v", err)
	}
}

func TestDraftService_RegenerateRefusedWhenRejected(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	if _, err := f.svc.Reject(draft.ID, "off brief", "broker"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Regenerate(f.userID, draft.ID, "Tighten the opening paragraph"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("regenerate on rejected: err = %v, want ErrInvalidState", err)
	}
	reloaded := f.reload(t, draft.ID)
	if reloaded.RegenerationCount != 0 || len(reloaded.Versions) != 1 {
		t.Error("rejected draft mutated by refused regeneration")
	}
}

func TestDraftService_SwitchVersion(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)
	v0Body := draft.FinalBody

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Regenerate(f.userID, draft.ID, "Trim the middle section down"); err != nil {
			t.Fatal(err)
		}
	}

	switched, err := f.svc.SwitchVersion(draft.ID, 0)
	if err != nil {
		t.Fatalf("switch to v0 failed: %v", err)
	}
	if switched.CurrentVersion != 0 {
		t.Errorf("current version = %d, want 0", switched.CurrentVersion)
	}
	if switched.FinalBody != v0Body {
		t.Errorf("final body = %q, want the v0 body", switched.FinalBody)
	}
	if len(switched.Versions) != 3 {
		t.Errorf("switching must not discard versions, have %d", len(switched.Versions))
	}

	// A missing version leaves the draft untouched
	if _, err := f.svc.SwitchVersion(draft.ID, 7); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("err = %v, want ErrVersionNotFound", err)
	}
	reloaded := f.reload(t, draft.ID)
	if reloaded.CurrentVersion != 0 || reloaded.FinalBody != v0Body {
		t.Error("draft mutated by a failed version switch")
	}
}

func TestDraftService_RegenerateAfterSwitchAppendsNext(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Regenerate(f.userID, draft.ID, "Rework the scheduling paragraph"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.SwitchVersion(draft.ID, 0); err != nil {
		t.Fatal(err)
	}

	// Regenerating from an older active version still numbers forward
	result, err := f.svc.Regenerate(f.userID, draft.ID, "Start from the original and compress")
	if err != nil {
		t.Fatal(err)
	}
	if result.NewVersion.Version != 3 {
		t.Errorf("version = %d, want 3", result.NewVersion.Version)
	}
	if len(result.Draft.Versions) != 4 {
		t.Errorf("versions = %d, want 4", len(result.Draft.Versions))
	}
	if result.Draft.CurrentVersion != 3 {
		t.Errorf("current version = %d, want 3", result.Draft.CurrentVersion)
	}
}

func TestDraftService_UndoRedo(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Regenerate(f.userID, draft.ID, "Polish the wording throughout"); err != nil {
			t.Fatal(err)
		}
	}

	d, err := f.svc.Undo(draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.CurrentVersion != 1 {
		t.Errorf("after undo: version = %d, want 1", d.CurrentVersion)
	}

	d, err = f.svc.Undo(draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.CurrentVersion != 0 {
		t.Errorf("after second undo: version = %d, want 0", d.CurrentVersion)
	}

	if _, err := f.svc.Undo(draft.ID); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("undo past v0: err = %v, want ErrVersionNotFound", err)
	}

	d, err = f.svc.Redo(draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.CurrentVersion != 1 {
		t.Errorf("after redo: version = %d, want 1", d.CurrentVersion)
	}
}

func TestDraftService_Update(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	edited := "Hi Jordan, here is the human-edited reply. Best, Alex"
	updated, err := f.svc.Update(draft.ID, edited)
	if err != nil {
		t.Fatal(err)
	}
	if updated.EditedBody != edited || updated.FinalBody != edited {
		t.Error("edit must land in both edited and final body")
	}
	if updated.AIGeneratedBody == edited {
		t.Error("the original generated body must be preserved")
	}

	if _, err := f.svc.Update(draft.ID, "x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short body: err = %v, want ErrInvalidInput", err)
	}

	// Character bounds, not byte bounds: 3 characters in 12 bytes
	if _, err := f.svc.Update(draft.ID, "🙂🙂🙂"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short multibyte body: err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.svc.Update(draft.ID, strings.Repeat("é", 10)); err != nil {
		t.Errorf("10-character multibyte body refused: %v", err)
	}
}

func TestDraftService_UpdateRefusedInTerminalStates(t *testing.T) {
	f := newDraftFixture(t)

	sent := f.createDraft(t)
	if _, err := f.svc.Send(f.userID, sent.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Update(sent.ID, "This must not go through at all"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("sent draft: err = %v, want ErrInvalidState", err)
	}

	rejected := f.createDraft(t)
	if _, err := f.svc.Reject(rejected.ID, "off brief", "broker"); err != nil {
		t.Fatal(err)
	}
	before := f.reload(t, rejected.ID).FinalBody
	if _, err := f.svc.Update(rejected.ID, "This must not go through at all"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("rejected draft: err = %v, want ErrInvalidState", err)
	}
	if f.reload(t, rejected.ID).FinalBody != before {
		t.Error("rejected draft body mutated by refused update")
	}
}

func TestDraftService_ApprovalStateMachine(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	approved, err := f.svc.Approve(draft.ID, "", "broker")
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != string(models.DraftStatusApproved) {
		t.Errorf("status = %s, want approved", approved.Status)
	}
	if approved.ReviewedAt == nil || approved.ReviewedBy != "broker" {
		t.Error("approval must stamp reviewer and time")
	}

	// Approving twice is refused
	if _, err := f.svc.Approve(draft.ID, "", "broker"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double approve: err = %v, want ErrInvalidState", err)
	}

	// Unapprove reverts to pending and clears the review stamps
	pending, err := f.svc.Unapprove(draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pending.Status != string(models.DraftStatusPending) {
		t.Errorf("status = %s, want pending", pending.Status)
	}
	if pending.ReviewedAt != nil || pending.ReviewedBy != "" {
		t.Error("unapprove must clear the review stamps")
	}

	if _, err := f.svc.Unapprove(draft.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("unapprove pending: err = %v, want ErrInvalidState", err)
	}
}

func TestDraftService_ApproveWithFinalBody(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	body := "Hi Jordan, final wording approved as-is. Best, Alex"
	approved, err := f.svc.Approve(draft.ID, body, "broker")
	if err != nil {
		t.Fatal(err)
	}
	if approved.FinalBody != body {
		t.Errorf("final body = %q, want the approval override", approved.FinalBody)
	}
}

func TestDraftService_Reject(t *testing.T) {
	f := newDraftFixture(t)

	// From pending
	draft := f.createDraft(t)
	rejected, err := f.svc.Reject(draft.ID, "tone is off", "broker")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != string(models.DraftStatusRejected) {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	// From approved
	other := f.createDraft(t)
	if _, err := f.svc.Approve(other.ID, "", "broker"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Reject(other.ID, "", "broker"); err != nil {
		t.Errorf("reject from approved failed: %v", err)
	}

	// Rejecting again is refused
	if _, err := f.svc.Reject(draft.ID, "", "broker"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double reject: err = %v, want ErrInvalidState", err)
	}
}

func TestDraftService_Archive(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	archived, err := f.svc.Archive(draft.ID, "", "broker")
	if err != nil {
		t.Fatal(err)
	}
	if archived.Status != string(models.DraftStatusArchived) {
		t.Errorf("status = %s, want archived", archived.Status)
	}
	if archived.ArchiveReason != "No reason provided" {
		t.Errorf("reason = %q, want the default", archived.ArchiveReason)
	}
	if archived.ArchivedAt == nil || archived.ArchivedBy != "broker" {
		t.Error("archive must stamp who and when")
	}

	// Archiving twice is refused
	if _, err := f.svc.Archive(draft.ID, "", "broker"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double archive: err = %v, want ErrInvalidState", err)
	}

	// Sent drafts cannot be archived
	sent := f.createDraft(t)
	if _, err := f.svc.Send(f.userID, sent.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Archive(sent.ID, "cleanup", "broker"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("archive sent: err = %v, want ErrInvalidState", err)
	}
}

func TestDraftService_SendRequiresConfirmation(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	if _, err := f.svc.Send(f.userID, draft.ID, false); !errors.Is(err, ErrSendNotConfirmed) {
		t.Fatalf("err = %v, want ErrSendNotConfirmed", err)
	}

	// Nothing changed, nothing was sent, no outbound row exists
	reloaded := f.reload(t, draft.ID)
	if reloaded.Status != string(models.DraftStatusPending) {
		t.Errorf("status = %s, want pending", reloaded.Status)
	}
	if len(f.mailer.sent) != 0 {
		t.Error("no mail should have been sent")
	}
	var outbound int64
	f.db.Model(&models.Email{}).Where("ai_generated = ?", true).Count(&outbound)
	if outbound != 0 {
		t.Errorf("outbound email rows = %d, want 0", outbound)
	}
}

func TestDraftService_Send(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	edited := "Hi Jordan, yes parking is included. Best, Alex"
	if _, err := f.svc.Update(draft.ID, edited); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.Send(f.userID, draft.ID, true)
	if err != nil {
		t.Fatal(err)
	}

	if result.Draft.Status != string(models.DraftStatusSent) {
		t.Errorf("status = %s, want sent", result.Draft.Status)
	}
	if result.Draft.SentAt == nil || result.Draft.SentEmailID == nil {
		t.Error("send must stamp the time and the outbound email id")
	}
	if result.Email.ToAddr != "jordan@acme.example" {
		t.Errorf("to = %s, want the seeker address", result.Email.ToAddr)
	}
	if result.Email.Subject != "Re: Office space questions" {
		t.Errorf("subject = %q", result.Email.Subject)
	}
	if !result.Email.AIGenerated {
		t.Error("outbound row must be flagged as AI generated")
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].Body != edited {
		t.Error("mailer must receive the final body")
	}

	// Sending again is refused
	if _, err := f.svc.Send(f.userID, draft.ID, true); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double send: err = %v, want ErrInvalidState", err)
	}

	// Sent drafts are immutable to version switches and regeneration
	if _, err := f.svc.SwitchVersion(draft.ID, 0); !errors.Is(err, ErrInvalidState) {
		t.Errorf("switch on sent: err = %v, want ErrInvalidState", err)
	}
	if _, err := f.svc.Regenerate(f.userID, draft.ID, "Please adjust the sign-off"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("regenerate on sent: err = %v, want ErrInvalidState", err)
	}
}

func TestDraftService_SendFailureLeavesDraftUntouched(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)
	f.mailer.err = mail.ErrSendFailed

	if _, err := f.svc.Send(f.userID, draft.ID, true); !errors.Is(err, mail.ErrSendFailed) {
		t.Fatalf("err = %v, want ErrSendFailed", err)
	}

	reloaded := f.reload(t, draft.ID)
	if reloaded.Status != string(models.DraftStatusPending) {
		t.Errorf("status = %s, want pending after failed send", reloaded.Status)
	}
	if reloaded.SentAt != nil || reloaded.SentEmailID != nil {
		t.Error("failed send must not stamp the draft")
	}
	var outbound int64
	f.db.Model(&models.Email{}).Where("ai_generated = ?", true).Count(&outbound)
	if outbound != 0 {
		t.Errorf("outbound email rows = %d, want 0", outbound)
	}
}

func TestDraftService_List(t *testing.T) {
	f := newDraftFixture(t)

	f.generator.confidence = 90
	high := f.createDraft(t)
	f.generator.confidence = 60
	low := f.createDraft(t)
	f.generator.confidence = 75
	mid := f.createDraft(t)

	if _, err := f.svc.Approve(mid.ID, "", "broker"); err != nil {
		t.Fatal(err)
	}

	all, err := f.svc.List(DraftListOptions{DealID: f.dealID})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 3 {
		t.Fatalf("total = %d, want 3", all.Total)
	}
	// Lowest confidence first: those need human attention soonest
	if all.Drafts[0].ID != low.ID || all.Drafts[2].ID != high.ID {
		t.Errorf("unexpected order: %d, %d, %d", all.Drafts[0].ID, all.Drafts[1].ID, all.Drafts[2].ID)
	}

	pending, err := f.svc.List(DraftListOptions{Status: string(models.DraftStatusPending)})
	if err != nil {
		t.Fatal(err)
	}
	if pending.Total != 2 {
		t.Errorf("pending total = %d, want 2", pending.Total)
	}

	if _, err := f.svc.List(DraftListOptions{Status: "bogus"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bogus status: err = %v, want ErrInvalidInput", err)
	}
}

func TestDraftService_GetByID(t *testing.T) {
	f := newDraftFixture(t)
	draft := f.createDraft(t)

	got, err := f.svc.GetByID(draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Deal == nil || got.InboundEmail == nil {
		t.Error("GetByID must preload the deal and inbound email")
	}

	if _, err := f.svc.GetByID(9999); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("err = %v, want ErrDraftNotFound", err)
	}
}
