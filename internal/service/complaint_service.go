package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/storage"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// ComplaintPolicy toggles lifecycle rules.
type ComplaintPolicy struct {
	StrictTransitions bool
	EnforceCapacity   bool
}

// ComplaintService coordinates complaint workflows.
type ComplaintService struct {
	repos  repository.Repositories
	tx     repository.Transactor
	store  storage.ObjectStore
	events eventSink
	policy ComplaintPolicy
	logger *zap.Logger
	now    func() time.Time
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	Repos      repository.Repositories
	Transactor repository.Transactor
	// Storage is optional; without it only attachment metadata is kept.
	Storage    storage.ObjectStore
	Dispatcher events.Dispatcher
	Policy     ComplaintPolicy
	Logger     *zap.Logger
	Clock      func() time.Time
}

// AttachmentUpload is a file submitted together with a complaint.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ComplaintCreateInput describes complaint creation payload.
type ComplaintCreateInput struct {
	SubmitterID int64
	Title       string
	Description string
	Category    string
	Attachment  *AttachmentUpload
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := loggerOrNop(deps.Logger)
	now := nowOrDefault(deps.Clock)
	return &ComplaintService{
		repos:  deps.Repos,
		tx:     deps.Transactor,
		store:  deps.Storage,
		events: eventSink{dispatcher: deps.Dispatcher, logger: logger, now: now},
		policy: deps.Policy,
		logger: logger,
		now:    now,
	}
}

// Create files a new complaint in PENDING.
func (s *ComplaintService) Create(ctx context.Context, input ComplaintCreateInput) (*domain.Complaint, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	details := map[string]any{}
	if title == "" {
		details["title"] = "is required"
	}
	if description == "" {
		details["description"] = "is required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("title and description are required", details)
	}

	if _, err := s.repos.Users.GetByID(ctx, input.SubmitterID); err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userId": input.SubmitterID})
	}

	category := strings.ToUpper(strings.TrimSpace(input.Category))
	if category == "" {
		category = domain.DefaultComplaintCategory
	}

	complaint := &domain.Complaint{
		UserID:      input.SubmitterID,
		Title:       title,
		Description: description,
		Category:    category,
		Status:      domain.ComplaintStatusPending,
	}

	if input.Attachment != nil {
		attachment, err := s.storeAttachment(ctx, input.SubmitterID, input.Attachment)
		if err != nil {
			return nil, err
		}
		complaint.Attachment = attachment
	}

	if err := s.repos.Complaints.Create(ctx, complaint); err != nil {
		s.discardAttachment(complaint.Attachment)
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:        events.EventComplaintCreated,
		ComplaintID: complaint.ID,
		Actor:       events.Actor{UserID: &complaint.UserID},
		Payload: events.ComplaintCreatedPayload{
			Title:       complaint.Title,
			SubmitterID: complaint.UserID,
			Category:    complaint.Category,
		},
	})
	return complaint, nil
}

// Assign hands the complaint to an employee, moving load between employees.
func (s *ComplaintService) Assign(ctx context.Context, complaintID, employeeID int64, actor Actor) (*domain.Complaint, error) {
	var (
		complaint *domain.Complaint
		previous  *int64
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		complaint, err = lockComplaint(ctx, repos, complaintID)
		if err != nil {
			return err
		}
		if complaint.Status.IsTerminal() {
			return apperrors.NewConflict("resolved complaints cannot be reassigned", map[string]any{"complaintId": complaintID})
		}

		employee, err := repos.Employees.GetByUserID(ctx, employeeID)
		if err != nil {
			return notFoundOr(err, "employee", map[string]any{"employeeId": employeeID})
		}

		previous = complaint.AssignedTo
		sameAssignee := previous != nil && *previous == employeeID
		if s.policy.EnforceCapacity && !sameAssignee && !employee.HasCapacity() {
			return apperrors.NewConflict("employee has no spare capacity", map[string]any{
				"employeeId":        employeeID,
				"maxComplaints":     employee.MaxComplaints,
				"currentComplaints": employee.CurrentComplaints,
			})
		}
		if !sameAssignee {
			if previous != nil {
				if err := repos.Employees.AdjustLoad(ctx, *previous, -1); err != nil && !errors.Is(err, pgx.ErrNoRows) {
					return err
				}
			}
			if err := repos.Employees.AdjustLoad(ctx, employeeID, 1); err != nil {
				return err
			}
		}

		oldStatus := complaint.Status
		if oldStatus != domain.ComplaintStatusEscalated {
			complaint.Status = domain.ComplaintStatusAssigned
		}
		now := s.now()
		assignee := employeeID
		complaint.AssignedTo = &assignee
		complaint.AssignedBy = actor.historyActor()
		complaint.AssignedAt = &now
		if err := repos.Complaints.Update(ctx, complaint); err != nil {
			return err
		}

		if err := recordAssigneeChange(ctx, repos, actor, complaint.ID, previous, complaint.AssignedTo); err != nil {
			return err
		}
		if oldStatus != complaint.Status {
			return recordStatusChange(ctx, repos, actor, complaint.ID, oldStatus, complaint.Status, "")
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:        events.EventComplaintAssigned,
		ComplaintID: complaint.ID,
		Actor:       actor.eventActor(),
		Payload: events.ComplaintAssignedPayload{
			Title:              complaint.Title,
			SubmitterID:        complaint.UserID,
			AssigneeID:         employeeID,
			PreviousAssigneeID: previous,
		},
	})
	return complaint, nil
}

// SetStatus changes the complaint status and overwrites its note.
func (s *ComplaintService) SetStatus(ctx context.Context, complaintID int64, rawStatus, note string, actor Actor) (*domain.Complaint, error) {
	status, ok := domain.ParseComplaintStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("unknown complaint status", map[string]any{
			"status":  rawStatus,
			"allowed": domain.ComplaintStatuses,
		})
	}
	note = strings.TrimSpace(note)
	return s.transition(ctx, complaintID, actor, func(c *domain.Complaint) error {
		if err := s.checkTransition(c, status); err != nil {
			return err
		}
		c.Note = note
		return nil
	}, status)
}

// Escalate marks the complaint ESCALATED without touching its note.
func (s *ComplaintService) Escalate(ctx context.Context, complaintID int64, actor Actor) (*domain.Complaint, error) {
	return s.transition(ctx, complaintID, actor, func(c *domain.Complaint) error {
		return s.checkTransition(c, domain.ComplaintStatusEscalated)
	}, domain.ComplaintStatusEscalated)
}

// Resolve closes the complaint for good.
func (s *ComplaintService) Resolve(ctx context.Context, complaintID int64, actor Actor) (*domain.Complaint, error) {
	return s.transition(ctx, complaintID, actor, func(c *domain.Complaint) error {
		if c.Status.IsTerminal() {
			return apperrors.NewConflict("complaint already resolved", map[string]any{"complaintId": c.ID})
		}
		return nil
	}, domain.ComplaintStatusResolved)
}

// escalationBatchSize caps how many stale complaints one sweep handles;
// the next tick picks up the rest.
const escalationBatchSize = 500

// EscalateStale reassigns complaints left in ASSIGNED since before
// now-olderThan to the least loaded manager. It returns how many moved.
func (s *ComplaintService) EscalateStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.repos.Complaints.ListWithFilter(ctx, repository.ComplaintFilter{
		Statuses:       []domain.ComplaintStatus{domain.ComplaintStatusAssigned},
		AssignedBefore: &cutoff,
		Limit:          escalationBatchSize,
	})
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	escalated := 0
	for _, candidate := range stale {
		if err := ctx.Err(); err != nil {
			return escalated, err
		}
		moved, err := s.escalateToManager(ctx, candidate.ID, cutoff)
		if err != nil {
			if errors.Is(err, errNoManager) {
				s.logger.Warn("no manager available for escalation", zap.Int64("complaint_id", candidate.ID))
				return escalated, nil
			}
			return escalated, err
		}
		if moved {
			escalated++
		}
	}
	return escalated, nil
}

var errNoManager = errors.New("no manager-level employee")

func (s *ComplaintService) escalateToManager(ctx context.Context, complaintID int64, cutoff time.Time) (bool, error) {
	var (
		complaint *domain.Complaint
		previous  *int64
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		complaint, err = lockComplaint(ctx, repos, complaintID)
		if err != nil {
			return err
		}
		// Re-check under the row lock; the complaint may have moved on.
		if complaint.Status != domain.ComplaintStatusAssigned || complaint.AssignedAt == nil || !complaint.AssignedAt.Before(cutoff) {
			complaint = nil
			return nil
		}

		manager, err := repos.Employees.LeastLoadedByLevel(ctx, domain.LevelManager)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errNoManager
			}
			return err
		}

		previous = complaint.AssignedTo
		if previous == nil || *previous != manager.UserID {
			if previous != nil {
				if err := repos.Employees.AdjustLoad(ctx, *previous, -1); err != nil && !errors.Is(err, pgx.ErrNoRows) {
					return err
				}
			}
			if err := repos.Employees.AdjustLoad(ctx, manager.UserID, 1); err != nil {
				return err
			}
		}

		now := s.now()
		managerID := manager.UserID
		complaint.AssignedTo = &managerID
		complaint.AssignedBy = nil
		complaint.AssignedAt = &now
		complaint.Status = domain.ComplaintStatusEscalated
		complaint.Escalated = true
		if err := repos.Complaints.Update(ctx, complaint); err != nil {
			return err
		}
		if err := recordAssigneeChange(ctx, repos, Actor{}, complaint.ID, previous, complaint.AssignedTo); err != nil {
			return err
		}
		return recordStatusChange(ctx, repos, Actor{}, complaint.ID, domain.ComplaintStatusAssigned, domain.ComplaintStatusEscalated, "auto-escalated")
	})
	if err != nil || complaint == nil {
		return false, err
	}

	s.events.publish(ctx,
		events.Event{
			Type:        events.EventComplaintEscalated,
			ComplaintID: complaint.ID,
			Payload: events.ComplaintStatusChangedPayload{
				Title:       complaint.Title,
				SubmitterID: complaint.UserID,
				AssigneeID:  complaint.AssignedTo,
				OldStatus:   domain.ComplaintStatusAssigned,
				NewStatus:   domain.ComplaintStatusEscalated,
				Note:        "auto-escalated",
			},
		},
		events.Event{
			Type:        events.EventComplaintAssigned,
			ComplaintID: complaint.ID,
			Payload: events.ComplaintAssignedPayload{
				Title:              complaint.Title,
				SubmitterID:        complaint.UserID,
				AssigneeID:         *complaint.AssignedTo,
				PreviousAssigneeID: previous,
			},
		},
	)
	return true, nil
}

// Get returns a complaint visible to actor.
func (s *ComplaintService) Get(ctx context.Context, complaintID int64, actor Actor) (*domain.Complaint, error) {
	complaint, err := s.repos.Complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, notFoundOr(err, "complaint", map[string]any{"complaintId": complaintID})
	}
	if !canView(actor, complaint) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return complaint, nil
}

// History returns the audit trail of a complaint visible to actor.
func (s *ComplaintService) History(ctx context.Context, complaintID int64, actor Actor) ([]domain.ComplaintHistory, error) {
	if _, err := s.Get(ctx, complaintID, actor); err != nil {
		return nil, err
	}
	entries, err := s.repos.History.ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListForUser returns complaints filed by userID, newest first.
func (s *ComplaintService) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Complaint, error) {
	list, err := s.repos.Complaints.ListWithFilter(ctx, repository.ComplaintFilter{UserID: &userID, Limit: limit, Offset: offset})
	return list, apperrors.MapError(err)
}

// ListAssigned returns complaints assigned to the employee, escalated first.
func (s *ComplaintService) ListAssigned(ctx context.Context, employeeID int64, limit, offset int) ([]domain.Complaint, error) {
	list, err := s.repos.Complaints.ListWithFilter(ctx, repository.ComplaintFilter{
		AssignedTo:     &employeeID,
		EscalatedFirst: true,
		Limit:          limit,
		Offset:         offset,
	})
	return list, apperrors.MapError(err)
}

// ListAll returns every complaint, optionally restricted to statuses.
func (s *ComplaintService) ListAll(ctx context.Context, rawStatuses []string, limit, offset int) ([]domain.Complaint, error) {
	statuses := make([]domain.ComplaintStatus, 0, len(rawStatuses))
	for _, raw := range rawStatuses {
		status, ok := domain.ParseComplaintStatus(raw)
		if !ok {
			return nil, apperrors.NewValidationError("unknown complaint status", map[string]any{"status": raw})
		}
		statuses = append(statuses, status)
	}
	list, err := s.repos.Complaints.ListWithFilter(ctx, repository.ComplaintFilter{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	return list, apperrors.MapError(err)
}

func (s *ComplaintService) checkTransition(c *domain.Complaint, next domain.ComplaintStatus) error {
	// ASSIGNED always carries an assignee; Assign is the way in from scratch.
	if next == domain.ComplaintStatusAssigned && c.AssignedTo == nil {
		return apperrors.NewConflict("complaint has no assignee; assign it to an employee instead", map[string]any{
			"complaintId": c.ID,
			"from":        c.Status,
		})
	}
	if !s.policy.StrictTransitions || domain.CanTransition(c.Status, next) {
		return nil
	}
	return apperrors.NewConflict("invalid status transition", map[string]any{
		"from":    c.Status,
		"to":      next,
		"allowed": domain.ValidTransitionsFrom(c.Status),
	})
}

// transition applies a status change inside a transaction: access check,
// caller-specific validation, load bookkeeping, history and event.
func (s *ComplaintService) transition(ctx context.Context, complaintID int64, actor Actor, validate func(*domain.Complaint) error, next domain.ComplaintStatus) (*domain.Complaint, error) {
	var (
		complaint *domain.Complaint
		oldStatus domain.ComplaintStatus
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		complaint, err = lockComplaint(ctx, repos, complaintID)
		if err != nil {
			return err
		}
		if !canHandle(actor, complaint) {
			return apperrors.NewForbidden("only the assignee or an admin can change this complaint")
		}
		if err := validate(complaint); err != nil {
			return err
		}

		oldStatus = complaint.Status
		wasOpen := !oldStatus.IsTerminal()
		switch next {
		case domain.ComplaintStatusResolved:
			complaint.MarkResolved(s.now())
		default:
			complaint.Status = next
			complaint.ResolvedAt = nil
		}
		if next == domain.ComplaintStatusEscalated {
			complaint.Escalated = true
		}

		if complaint.AssignedTo != nil && wasOpen != !next.IsTerminal() {
			delta := -1
			if !wasOpen {
				delta = 1
			}
			if err := repos.Employees.AdjustLoad(ctx, *complaint.AssignedTo, delta); err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
		}

		if err := repos.Complaints.Update(ctx, complaint); err != nil {
			return err
		}
		return recordStatusChange(ctx, repos, actor, complaint.ID, oldStatus, next, complaint.Note)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	eventType := events.EventComplaintStatusChanged
	switch next {
	case domain.ComplaintStatusResolved:
		eventType = events.EventComplaintResolved
	case domain.ComplaintStatusEscalated:
		eventType = events.EventComplaintEscalated
	}
	if oldStatus != next {
		s.events.publish(ctx, events.Event{
			Type:        eventType,
			ComplaintID: complaint.ID,
			Actor:       actor.eventActor(),
			Payload: events.ComplaintStatusChangedPayload{
				Title:       complaint.Title,
				SubmitterID: complaint.UserID,
				AssigneeID:  complaint.AssignedTo,
				OldStatus:   oldStatus,
				NewStatus:   next,
				Note:        complaint.Note,
			},
		})
	}
	return complaint, nil
}

func (s *ComplaintService) storeAttachment(ctx context.Context, submitterID int64, upload *AttachmentUpload) (*domain.Attachment, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(upload.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, apperrors.NewValidationError("attachment file name is required", map[string]any{"file": "is required"})
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	attachment := &domain.Attachment{
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   upload.Size,
	}
	if s.store == nil || upload.Body == nil {
		return attachment, nil
	}

	attachment.Key = fmt.Sprintf("complaints/%d/%s-%s", submitterID, uuid.NewString(), name)
	if err := s.store.Put(ctx, attachment.Key, upload.Body, upload.Size, contentType); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("upload attachment: %w", err))
	}
	return attachment, nil
}

func (s *ComplaintService) discardAttachment(attachment *domain.Attachment) {
	if attachment == nil || attachment.Key == "" || s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, attachment.Key); err != nil {
		s.logger.Warn("failed to delete orphaned attachment", zap.String("key", attachment.Key), zap.Error(err))
	}
}

func lockComplaint(ctx context.Context, repos repository.Repositories, complaintID int64) (*domain.Complaint, error) {
	complaint, err := repos.Complaints.GetByIDForUpdate(ctx, complaintID)
	if err != nil {
		return nil, notFoundOr(err, "complaint", map[string]any{"complaintId": complaintID})
	}
	return complaint, nil
}

// canHandle: admins and the system act on anything, employees only on
// complaints assigned to them.
func canHandle(actor Actor, complaint *domain.Complaint) bool {
	if actor.IsAdmin() {
		return true
	}
	return complaint.AssignedTo != nil && *complaint.AssignedTo == actor.UserID
}

func canView(actor Actor, complaint *domain.Complaint) bool {
	return canHandle(actor, complaint) || complaint.UserID == actor.UserID
}

func recordStatusChange(ctx context.Context, repos repository.Repositories, actor Actor, complaintID int64, oldStatus, newStatus domain.ComplaintStatus, note string) error {
	entry := &domain.ComplaintHistory{
		ComplaintID: complaintID,
		ChangedBy:   actor.historyActor(),
		ChangeType:  domain.ChangeTypeStatus,
		OldValue: map[string]any{
			"status": oldStatus,
		},
		NewValue: map[string]any{
			"status": newStatus,
			"note":   note,
		},
	}
	return repos.History.Create(ctx, entry)
}

func recordAssigneeChange(ctx context.Context, repos repository.Repositories, actor Actor, complaintID int64, oldAssignee, newAssignee *int64) error {
	entry := &domain.ComplaintHistory{
		ComplaintID: complaintID,
		ChangedBy:   actor.historyActor(),
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue: map[string]any{
			"assignedTo": oldAssignee,
		},
		NewValue: map[string]any{
			"assignedTo": newAssignee,
		},
	}
	return repos.History.Create(ctx, entry)
}
