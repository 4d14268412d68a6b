package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

type capturePublisher struct {
	messages []map[string]any
	attrs    []map[string]string
	fail     bool
}

func (c *capturePublisher) Publish(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	if c.fail {
		return "", errors.New("broker down")
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", err
	}
	c.messages = append(c.messages, decoded)
	c.attrs = append(c.attrs, attrs)
	return "id", nil
}

func TestNotificationsForwardEvents(t *testing.T) {
	f := newFixture(t, strict())
	publisher := &capturePublisher{}
	f.notifications.publisher = publisher
	submitter := f.user(t, "ann", domain.RoleUser)

	complaint, err := f.complaints.Create(context.Background(), ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(publisher.messages) != 1 {
		t.Fatalf("forwarded = %d", len(publisher.messages))
	}
	if publisher.messages[0]["type"] != string(events.EventComplaintCreated) {
		t.Fatalf("message = %v", publisher.messages[0])
	}
	if publisher.attrs[0]["event_type"] != string(events.EventComplaintCreated) || publisher.attrs[0]["complaint_id"] == "" {
		t.Fatalf("attrs = %v", publisher.attrs[0])
	}
	if complaint.ID == 0 {
		t.Fatal("missing complaint id")
	}
}

func TestBrokerFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, strict())
	f.notifications.publisher = &capturePublisher{fail: true}
	submitter := f.user(t, "ann", domain.RoleUser)

	if _, err := f.complaints.Create(context.Background(), ComplaintCreateInput{SubmitterID: submitter.ID, Title: "t", Description: "d"}); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t, strict())
	ctx := context.Background()
	owner := f.user(t, "ann", domain.RoleUser)
	other := f.user(t, "bob", domain.RoleUser)
	n := &domain.Notification{UserID: owner.ID, Message: "hello"}
	if err := f.repos.Notifications.Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}

	assertCode(t, f.notifications.MarkRead(ctx, n.ID, other.ID), apperrors.CodeNotFound)
	if err := f.notifications.MarkRead(ctx, n.ID, owner.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	list, _ := f.notifications.ListForUser(ctx, owner.ID, 0, 0)
	if len(list) != 1 || !list[0].IsRead {
		t.Fatalf("list = %+v", list)
	}
}

func TestStatusMessage(t *testing.T) {
	cases := map[domain.ComplaintStatus]string{
		domain.ComplaintStatusResolved:   "Your complaint 'Lift' has been resolved!",
		domain.ComplaintStatusEscalated:  "Your complaint 'Lift' has been escalated.",
		domain.ComplaintStatusInProgress: "Your complaint 'Lift' is now in progress.",
		domain.ComplaintStatusAssigned:   "Your complaint 'Lift' is now ASSIGNED.",
	}
	for status, want := range cases {
		got := statusMessage(events.ComplaintStatusChangedPayload{Title: "Lift", NewStatus: status})
		if got != want {
			t.Errorf("%s: got %q, want %q", status, got, want)
		}
	}
}
