package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// attachmentField is the multipart field carrying a complaint file.
const attachmentField = "file"

// ComplaintsHandler manages complaint endpoints.
type ComplaintsHandler struct {
	service *service.ComplaintService
	binder  requestBinder
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService, binder: newRequestBinder()}
}

// Create POST /complaints/add/:userId. Accepts JSON or multipart form data.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := h.binder.bind(c, &req); err != nil {
		return err
	}

	input := service.ComplaintCreateInput{
		SubmitterID: userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}

	file, err := uploadedFile(c)
	if err != nil {
		return err
	}
	if file != nil {
		body, err := file.Open()
		if err != nil {
			return apperrors.NewValidationError("unreadable attachment", nil)
		}
		defer body.Close()
		input.Attachment = &service.AttachmentUpload{
			FileName:    file.Filename,
			ContentType: file.Header.Get(fiber.HeaderContentType),
			Size:        file.Size,
			Body:        body,
		}
	}

	complaint, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.CreateComplaintResponse{
		ID:      complaint.ID,
		Message: "Complaint submitted successfully",
	})
}

// uploadedFile returns the attachment of a multipart request, if any.
func uploadedFile(c *fiber.Ctx) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart payload", nil)
	}
	files := form.File[attachmentField]
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

// ListForUser GET /complaints/user/:userId.
func (h *ComplaintsHandler) ListForUser(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	limit, offset := page(c)
	complaints, err := h.service.ListForUser(c.UserContext(), userID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(complaintList(complaints))
}

// ListAssigned GET /complaints/assigned/:employeeId.
func (h *ComplaintsHandler) ListAssigned(c *fiber.Ctx) error {
	employeeID, err := paramID(c, "employeeId")
	if err != nil {
		return err
	}
	limit, offset := page(c)
	complaints, err := h.service.ListAssigned(c.UserContext(), employeeID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(complaintList(complaints))
}

// ListAll GET /complaints/all?status=PENDING,ESCALATED.
func (h *ComplaintsHandler) ListAll(c *fiber.Ctx) error {
	limit, offset := page(c)
	complaints, err := h.service.ListAll(c.UserContext(), queryList(c, "status"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(complaintList(complaints))
}

// Get GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	complaint, err := h.service.Get(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return c.JSON(complaintResponse(complaint))
}

// History GET /complaints/:id/history.
func (h *ComplaintsHandler) History(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return c.JSON(historyList(history))
}

// Assign POST /complaints/:id/assign.
func (h *ComplaintsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignComplaintRequest
	if err := h.binder.bind(c, &req); err != nil {
		return err
	}
	if _, err := h.service.Assign(c.UserContext(), id, req.EmployeeID, actor); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Complaint assigned successfully")
}

// UpdateStatus PUT /complaints/:id/status.
func (h *ComplaintsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := h.binder.bind(c, &req); err != nil {
		return err
	}
	if _, err := h.service.SetStatus(c.UserContext(), id, req.Status, req.Note, actor); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Complaint status updated")
}

// Escalate POST /complaints/:id/escalate.
func (h *ComplaintsHandler) Escalate(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.service.Escalate(c.UserContext(), id, actor); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Complaint escalated")
}

// Resolve POST /complaints/:id/resolve.
func (h *ComplaintsHandler) Resolve(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.service.Resolve(c.UserContext(), id, actor); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Complaint resolved successfully")
}
