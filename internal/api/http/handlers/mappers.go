package handlers

import (
	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
)

func complaintResponse(c *domain.Complaint) dto.ComplaintResponse {
	resp := dto.ComplaintResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		SubmitterName: c.SubmitterName,
		AssignedTo:    c.AssignedTo,
		AssigneeName:  c.AssigneeName,
		AssignedBy:    c.AssignedBy,
		Title:         c.Title,
		Description:   c.Description,
		Category:      c.Category,
		Status:        c.Status,
		Note:          c.Note,
		Escalated:     c.Escalated,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		AssignedAt:    c.AssignedAt,
		ResolvedAt:    c.ResolvedAt,
	}
	if c.Attachment != nil {
		resp.Attachment = &dto.AttachmentResponse{
			Key:         c.Attachment.Key,
			FileName:    c.Attachment.FileName,
			ContentType: c.Attachment.ContentType,
			Size:        c.Attachment.SizeBytes,
		}
	}
	return resp
}

func complaintList(list []domain.Complaint) []dto.ComplaintResponse {
	items := make([]dto.ComplaintResponse, 0, len(list))
	for i := range list {
		items = append(items, complaintResponse(&list[i]))
	}
	return items
}

func historyList(list []domain.ComplaintHistory) []dto.ComplaintHistoryResponse {
	items := make([]dto.ComplaintHistoryResponse, 0, len(list))
	for _, h := range list {
		items = append(items, dto.ComplaintHistoryResponse{
			ID:         h.ID,
			ChangedBy:  h.ChangedBy,
			ChangeType: h.ChangeType,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return items
}

func roleRequestResponse(r *domain.RoleRequest) dto.RoleRequestResponse {
	return dto.RoleRequestResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		RequestedRole: r.RequestedRole,
		Level:         r.Level,
		Reason:        r.Reason,
		Status:        r.Status,
		ApprovedBy:    r.ApprovedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func employeeResponse(e *domain.Employee) dto.EmployeeResponse {
	return dto.EmployeeResponse{
		ID:                e.ID,
		UserID:            e.UserID,
		Name:              e.Name,
		Email:             e.Email,
		Level:             e.Level,
		MaxComplaints:     e.MaxComplaints,
		CurrentComplaints: e.CurrentComplaints,
		CreatedAt:         e.CreatedAt,
	}
}
