package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tracklane/ticket-tracker/internal/api/dto"
	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/service"
	apperrors "github.com/tracklane/ticket-tracker/pkg/util/errorutil"
)

// UsersHandler exposes user endpoints and the user side of assignment.
type UsersHandler struct {
	users       *service.UserService
	assignments *service.AssignmentService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, assignments *service.AssignmentService) *UsersHandler {
	return &UsersHandler{users: users, assignments: assignments}
}

// ListUsers GET /users?page=&per=.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	page, err := h.users.List(c.UserContext(), pageRequest(c))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, userResponse(&page.Items[i]))
	}
	return c.JSON(dto.PageResponse[dto.UserResponse]{Items: items, Metadata: pageMetadata(page.Metadata)})
}

// CreateUser POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.Create(c.UserContext(), service.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(userResponse(user))
}

// GetUser GET /users/:userID.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("userID"))
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// UpdateUser PATCH /users/:userID.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.Update(c.UserContext(), c.Params("userID"), service.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// DeleteUser DELETE /users/:userID. Refused with 409 while tickets are assigned.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("userID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

// ListTickets GET /users/:userID/tickets.
func (h *UsersHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.assignments.ListTicketsForUser(c.UserContext(), c.Params("userID"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(items)
}

// AddTicket POST /users/:userID/addTicket/:ticketID.
func (h *UsersHandler) AddTicket(c *fiber.Ctx) error {
	ticket, err := h.assignments.Reassign(c.UserContext(), c.Params("ticketID"), c.Params("userID"))
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{ID: user.ID, Name: user.Name, Email: user.Email}
}
