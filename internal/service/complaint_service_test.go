package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func TestCreateComplaint(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	submitter := f.user(t, "ann", domain.RoleUser)

	complaint, err := f.complaints.Create(ctx, ComplaintCreateInput{
		SubmitterID: submitter.ID,
		Title:       "  AC broken ",
		Description: "Room 4 AC not cooling",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if complaint.ID == 0 || complaint.Status != domain.ComplaintStatusPending {
		t.Fatalf("complaint = %+v", complaint)
	}
	if complaint.Title != "AC broken" || complaint.Category != domain.DefaultComplaintCategory {
		t.Fatalf("title/category = %q/%q", complaint.Title, complaint.Category)
	}

	list, err := f.complaints.ListForUser(ctx, submitter.ID, 0, 0)
	if err != nil || len(list) != 1 || list[0].Status != domain.ComplaintStatusPending {
		t.Fatalf("list = %+v, err = %v", list, err)
	}
}

func TestCreateComplaintValidation(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	submitter := f.user(t, "ann", domain.RoleUser)

	cases := []ComplaintCreateInput{
		{SubmitterID: submitter.ID, Title: "", Description: "d"},
		{SubmitterID: submitter.ID, Title: "t", Description: "   "},
	}
	for _, input := range cases {
		_, err := f.complaints.Create(ctx, input)
		assertCode(t, err, apperrors.CodeValidation)
	}

	_, err := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: 999, Title: "t", Description: "d"})
	assertCode(t, err, apperrors.CodeNotFound)
}

type recordingStore struct {
	puts    map[string][]byte
	deletes []string
	failPut bool
}

func (r *recordingStore) EnsureBucket(context.Context) error { return nil }

func (r *recordingStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if r.failPut {
		return errors.New("storage down")
	}
	data, _ := io.ReadAll(body)
	if r.puts == nil {
		r.puts = map[string][]byte{}
	}
	r.puts[key] = data
	return nil
}

func (r *recordingStore) Delete(_ context.Context, key string) error {
	r.deletes = append(r.deletes, key)
	return nil
}

func (r *recordingStore) Bucket() string { return "test" }

func TestCreateComplaintWithAttachment(t *testing.T) {
	f := newFixture(t, strict())
	store := &recordingStore{}
	f.complaints.store = store
	submitter := f.user(t, "ann", domain.RoleUser)

	complaint, err := f.complaints.Create(context.Background(), ComplaintCreateInput{
		SubmitterID: submitter.ID,
		Title:       "Leak",
		Description: "Water on the floor",
		Attachment: &AttachmentUpload{
			FileName:    "../photo.jpg",
			ContentType: "image/jpeg",
			Size:        3,
			Body:        bytes.NewReader([]byte("img")),
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	att := complaint.Attachment
	if att == nil || att.FileName != "photo.jpg" || att.SizeBytes != 3 {
		t.Fatalf("attachment = %+v", att)
	}
	if !strings.HasPrefix(att.Key, "complaints/1/") || !strings.HasSuffix(att.Key, "-photo.jpg") {
		t.Fatalf("key = %q", att.Key)
	}
	if string(store.puts[att.Key]) != "img" {
		t.Fatalf("stored body = %q", store.puts[att.Key])
	}

	store.failPut = true
	_, err = f.complaints.Create(context.Background(), ComplaintCreateInput{
		SubmitterID: submitter.ID,
		Title:       "Leak",
		Description: "again",
		Attachment:  &AttachmentUpload{FileName: "a.txt", Size: 1, Body: strings.NewReader("x")},
	})
	assertCode(t, err, apperrors.CodeInternal)
}

func TestAssignMovesLoadAndNotifies(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	admin := f.user(t, "root", domain.RoleAdmin)
	submitter := f.user(t, "ann", domain.RoleUser)
	first := f.employee(t, "bob", domain.LevelBeginner)
	second := f.employee(t, "cid", domain.LevelSenior)

	complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "AC broken", Description: "hot"})

	got, err := f.complaints.Assign(ctx, complaint.ID, first.ID, UserActor(admin))
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.Status != domain.ComplaintStatusAssigned || *got.AssignedTo != first.ID || *got.AssignedBy != admin.ID || got.AssignedAt == nil {
		t.Fatalf("complaint = %+v", got)
	}
	if f.load(t, first.ID) != 1 {
		t.Fatalf("load = %d", f.load(t, first.ID))
	}
	if !contains(f.messages(t, first.ID), "Task assigned: AC broken") {
		t.Fatalf("messages = %v", f.messages(t, first.ID))
	}

	if _, err := f.complaints.Assign(ctx, complaint.ID, second.ID, UserActor(admin)); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if f.load(t, first.ID) != 0 || f.load(t, second.ID) != 1 {
		t.Fatalf("loads = %d/%d", f.load(t, first.ID), f.load(t, second.ID))
	}

	assigned, _ := f.complaints.ListAssigned(ctx, second.ID, 0, 0)
	if len(assigned) != 1 {
		t.Fatalf("assigned = %+v", assigned)
	}

	history, err := f.complaints.History(ctx, complaint.ID, UserActor(submitter))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history entries = %d, want 3", len(history))
	}
}

func TestAssignErrors(t *testing.T) {
	f := newFixture(t, ComplaintPolicy{StrictTransitions: true, EnforceCapacity: true})
	ctx := context.Background()
	admin := UserActor(f.user(t, "root", domain.RoleAdmin))
	submitter := f.user(t, "ann", domain.RoleUser)
	worker := f.employee(t, "bob", domain.LevelBeginner)
	complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"})

	_, err := f.complaints.Assign(ctx, 404, worker.ID, admin)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.complaints.Assign(ctx, complaint.ID, submitter.ID, admin)
	assertCode(t, err, apperrors.CodeNotFound)

	if err := f.repos.Employees.AdjustLoad(ctx, worker.ID, domain.DefaultMaxComplaints); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	_, err = f.complaints.Assign(ctx, complaint.ID, worker.ID, admin)
	assertCode(t, err, apperrors.CodeConflict)

	stored, _ := f.repos.Complaints.GetByID(ctx, complaint.ID)
	if stored.Status != domain.ComplaintStatusPending || stored.AssignedTo != nil {
		t.Fatalf("failed assignment leaked: %+v", stored)
	}
}

func TestAssignIgnoresCapacityByDefault(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	admin := UserActor(f.user(t, "root", domain.RoleAdmin))
	submitter := f.user(t, "ann", domain.RoleUser)
	worker := f.employee(t, "bob", domain.LevelBeginner)
	_ = f.repos.Employees.AdjustLoad(ctx, worker.ID, domain.DefaultMaxComplaints)
	complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"})

	if _, err := f.complaints.Assign(ctx, complaint.ID, worker.ID, admin); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if f.load(t, worker.ID) != domain.DefaultMaxComplaints+1 {
		t.Fatalf("load = %d", f.load(t, worker.ID))
	}
}

func TestSetStatusStrictTransitions(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	admin := UserActor(f.user(t, "root", domain.RoleAdmin))
	submitter := f.user(t, "ann", domain.RoleUser)
	worker := f.employee(t, "bob", domain.LevelBeginner)
	outsider := f.employee(t, "eve", domain.LevelBeginner)
	complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "AC broken", Description: "d"})

	_, err := f.complaints.SetStatus(ctx, complaint.ID, "RESOLVED", "", admin)
	assertCode(t, err, apperrors.CodeConflict)

	_, err = f.complaints.SetStatus(ctx, complaint.ID, "DONE", "", admin)
	assertCode(t, err, apperrors.CodeValidation)

	if _, err := f.complaints.Assign(ctx, complaint.ID, worker.ID, admin); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err = f.complaints.SetStatus(ctx, complaint.ID, "IN_PROGRESS", "", UserActor(outsider))
	assertCode(t, err, apperrors.CodeForbidden)

	got, err := f.complaints.SetStatus(ctx, complaint.ID, "in_progress", " on it ", UserActor(worker))
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got.Status != domain.ComplaintStatusInProgress || got.Note != "on it" {
		t.Fatalf("complaint = %+v", got)
	}

	f.clock.Advance(time.Hour)
	got, err = f.complaints.SetStatus(ctx, complaint.ID, "RESOLVED", "fixed", UserActor(worker))
	if err != nil {
		t.Fatalf("resolve via status: %v", err)
	}
	if got.ResolvedAt == nil || got.ResolvedAt.Before(got.CreatedAt) {
		t.Fatalf("resolved_at = %v, created_at = %v", got.ResolvedAt, got.CreatedAt)
	}
	if f.load(t, worker.ID) != 0 {
		t.Fatalf("load after resolve = %d", f.load(t, worker.ID))
	}
	if !contains(f.messages(t, submitter.ID), "Your complaint 'AC broken' has been resolved!") {
		t.Fatalf("messages = %v", f.messages(t, submitter.ID))
	}

	_, err = f.complaints.SetStatus(ctx, complaint.ID, "IN_PROGRESS", "", admin)
	assertCode(t, err, apperrors.CodeConflict)
}

func TestSetStatusPermissive(t *testing.T) {
	f := newFixture(t, ComplaintPolicy{})
	ctx := context.Background()
	admin := UserActor(f.user(t, "root", domain.RoleAdmin))
	submitter := f.user(t, "ann", domain.RoleUser)
	complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"})

	got, err := f.complaints.SetStatus(ctx, complaint.ID, "RESOLVED", "closed early", admin)
	if err != nil {
		t.Fatalf("permissive resolve: %v", err)
	}
	if got.Status != domain.ComplaintStatusResolved || got.ResolvedAt == nil {
		t.Fatalf("complaint = %+v", got)
	}

	got, err = f.complaints.SetStatus(ctx, complaint.ID, "OPEN", "", admin)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.Status != domain.ComplaintStatusPending || got.ResolvedAt != nil {
		t.Fatalf("complaint = %+v", got)
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	admin := UserActor(f.user(t, "root", domain.RoleAdmin))
	submitter := f.user(t, "ann", domain.RoleUser)
	worker := f.employee(t, "bob", domain.LevelBeginner)
	complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"})
	_, _ = f.complaints.Assign(ctx, complaint.ID, worker.ID, admin)

	got, err := f.complaints.Resolve(ctx, complaint.ID, admin)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Status != domain.ComplaintStatusResolved || got.ResolvedAt == nil || got.ResolvedAt.Before(got.CreatedAt) {
		t.Fatalf("complaint = %+v", got)
	}
	if f.load(t, worker.ID) != 0 {
		t.Fatalf("load = %d", f.load(t, worker.ID))
	}

	_, err = f.complaints.Resolve(ctx, complaint.ID, admin)
	assertCode(t, err, apperrors.CodeConflict)

	_, err = f.complaints.Resolve(ctx, 999, admin)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.complaints.Assign(ctx, complaint.ID, worker.ID, admin)
	assertCode(t, err, apperrors.CodeConflict)
}

func TestEscalateKeepsStatusOnReassign(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	admin := UserActor(f.user(t, "root", domain.RoleAdmin))
	submitter := f.user(t, "ann", domain.RoleUser)
	worker := f.employee(t, "bob", domain.LevelBeginner)
	manager := f.employee(t, "max", domain.LevelManager)
	complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "Noise", Description: "d"})

	_, err := f.complaints.Escalate(ctx, complaint.ID, admin)
	assertCode(t, err, apperrors.CodeConflict)

	_, _ = f.complaints.Assign(ctx, complaint.ID, worker.ID, admin)
	got, err := f.complaints.Escalate(ctx, complaint.ID, UserActor(worker))
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if got.Status != domain.ComplaintStatusEscalated || !got.Escalated {
		t.Fatalf("complaint = %+v", got)
	}
	if !contains(f.messages(t, submitter.ID), "Your complaint 'Noise' has been escalated.") {
		t.Fatalf("messages = %v", f.messages(t, submitter.ID))
	}

	got, err = f.complaints.Assign(ctx, complaint.ID, manager.ID, admin)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if got.Status != domain.ComplaintStatusEscalated {
		t.Fatalf("status = %s, want ESCALATED kept", got.Status)
	}
}

func TestEscalateStale(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	admin := UserActor(f.user(t, "root", domain.RoleAdmin))
	submitter := f.user(t, "ann", domain.RoleUser)
	worker := f.employee(t, "bob", domain.LevelBeginner)

	stale, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "Old", Description: "d"})
	_, _ = f.complaints.Assign(ctx, stale.ID, worker.ID, admin)

	f.clock.Advance(8 * 24 * time.Hour)
	fresh, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "New", Description: "d"})
	_, _ = f.complaints.Assign(ctx, fresh.ID, worker.ID, admin)

	moved, err := f.complaints.EscalateStale(ctx, 7*24*time.Hour)
	if err != nil || moved != 0 {
		t.Fatalf("without managers moved = %d, err = %v", moved, err)
	}

	manager := f.employee(t, "max", domain.LevelManager)
	moved, err = f.complaints.EscalateStale(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("escalate stale: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}

	got, _ := f.repos.Complaints.GetByID(ctx, stale.ID)
	if got.Status != domain.ComplaintStatusEscalated || !got.Escalated || *got.AssignedTo != manager.ID {
		t.Fatalf("stale complaint = %+v", got)
	}
	untouched, _ := f.repos.Complaints.GetByID(ctx, fresh.ID)
	if untouched.Status != domain.ComplaintStatusAssigned {
		t.Fatalf("fresh complaint = %+v", untouched)
	}
	if f.load(t, worker.ID) != 1 || f.load(t, manager.ID) != 1 {
		t.Fatalf("loads = %d/%d", f.load(t, worker.ID), f.load(t, manager.ID))
	}
	if !contains(f.messages(t, manager.ID), "Task assigned: Old") {
		t.Fatalf("manager messages = %v", f.messages(t, manager.ID))
	}

	history, _ := f.repos.History.ListByComplaint(ctx, stale.ID)
	last := history[len(history)-1]
	if last.ChangedBy != nil {
		t.Fatalf("system change recorded actor %v", *last.ChangedBy)
	}
}

func TestComplaintVisibility(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	submitter := f.user(t, "ann", domain.RoleUser)
	stranger := f.user(t, "zed", domain.RoleUser)
	complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"})

	if _, err := f.complaints.Get(ctx, complaint.ID, UserActor(submitter)); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	_, err := f.complaints.History(ctx, complaint.ID, UserActor(stranger))
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestListAllFiltersStatus(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	admin := UserActor(f.user(t, "root", domain.RoleAdmin))
	submitter := f.user(t, "ann", domain.RoleUser)
	worker := f.employee(t, "bob", domain.LevelBeginner)
	a, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "a", Description: "d"})
	_, _ = f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "b", Description: "d"})
	_, _ = f.complaints.Assign(ctx, a.ID, worker.ID, admin)

	all, err := f.complaints.ListAll(ctx, nil, 0, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("all = %d, err = %v", len(all), err)
	}
	pending, err := f.complaints.ListAll(ctx, []string{"open"}, 0, 0)
	if err != nil || len(pending) != 1 || pending[0].Title != "b" {
		t.Fatalf("pending = %+v, err = %v", pending, err)
	}
	_, err = f.complaints.ListAll(ctx, []string{"bogus"}, 0, 0)
	assertCode(t, err, apperrors.CodeValidation)
}

func TestSetStatusAssignedNeedsAssignee(t *testing.T) {
	for name, policy := range map[string]ComplaintPolicy{"strict": strict(), "permissive": {}} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, policy)
			ctx := context.Background()
			admin := UserActor(f.user(t, "root", domain.RoleAdmin))
			submitter := f.user(t, "ann", domain.RoleUser)
			complaint, _ := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"})

			_, err := f.complaints.SetStatus(ctx, complaint.ID, "ASSIGNED", "", admin)
			assertCode(t, err, apperrors.CodeConflict)

			got, _ := f.repos.Complaints.GetByID(ctx, complaint.ID)
			if got.Status != domain.ComplaintStatusPending || got.AssignedTo != nil || got.AssignedAt != nil {
				t.Fatalf("complaint = %+v", got)
			}
		})
	}
}

func TestListForUserReturnsEveryComplaint(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	submitter := f.user(t, "ann", domain.RoleUser)

	const filed = 120
	for i := 0; i < filed; i++ {
		if _, err := f.complaints.Create(ctx, ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	list, err := f.complaints.ListForUser(ctx, submitter.ID, 0, 0)
	if err != nil || len(list) != filed {
		t.Fatalf("listed = %d, err = %v", len(list), err)
	}

	page, err := f.complaints.ListForUser(ctx, submitter.ID, 50, 100)
	if err != nil || len(page) != 20 {
		t.Fatalf("page = %d, err = %v", len(page), err)
	}

	all, err := f.complaints.ListAll(ctx, nil, 0, 0)
	if err != nil || len(all) != filed {
		t.Fatalf("all = %d, err = %v", len(all), err)
	}
}
