package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tracklane/ticket-tracker/internal/api/dto"
	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/service"
	apperrors "github.com/tracklane/ticket-tracker/pkg/util/errorutil"
)

// TicketsHandler exposes ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	history *service.HistoryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, history *service.HistoryService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, history: history}
}

// ListTickets GET /tickets?page=&per=&history=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	opts := service.ReadOptions{ResolveAssignee: true, IncludeHistory: c.QueryBool("history", false)}
	page, err := h.tickets.List(c.UserContext(), pageRequest(c), opts)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketResponse(&page.Items[i]))
	}
	return c.JSON(dto.PageResponse[dto.TicketResponse]{Items: items, Metadata: pageMetadata(page.Metadata)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.CreateTicketInput{
		Number:      req.Number,
		Summary:     req.Summary,
		Detail:      req.Detail,
		Size:        req.Size,
		DateCreated: req.DateCreated,
		Status:      req.Status,
		Type:        req.Type,
	}
	if req.Assignee != nil {
		input.AssigneeID = req.Assignee.ID
	}
	ticket, err := h.tickets.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ticketResponse(ticket))
}

// GetTicket GET /tickets/:ticketID.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("ticketID"), service.ReadOptions{ResolveAssignee: true, IncludeHistory: true})
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

// UpdateTicket PATCH /tickets/:ticketID.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Update(c.UserContext(), c.Params("ticketID"), service.UpdateTicketInput{
		Summary: req.Summary,
		Detail:  req.Detail,
		Size:    req.Size,
		Status:  req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

// DeleteTicket DELETE /tickets/:ticketID.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.tickets.Delete(c.UserContext(), c.Params("ticketID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

// ListHistory GET /tickets/:ticketID/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	history, err := h.history.ListHistory(c.UserContext(), c.Params("ticketID"))
	if err != nil {
		return err
	}
	return c.JSON(historyResponses(history))
}

func pageRequest(c *fiber.Ctx) domain.PageRequest {
	return domain.PageRequest{
		Page: parseInt(c.Query("page"), 1),
		Per:  parseInt(c.Query("per"), 0),
	}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func pageMetadata(meta domain.PageMetadata) dto.PageMetadata {
	return dto.PageMetadata{Page: meta.Page, Per: meta.Per, Total: meta.Total}
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:          ticket.ID,
		Number:      ticket.Number,
		Summary:     ticket.Summary,
		Detail:      ticket.Detail,
		Size:        ticket.Size,
		DateCreated: ticket.DateCreated,
		Status:      ticket.Status,
		Type:        ticket.Type,
		History:     historyResponses(ticket.History),
	}
	if ticket.Assignee != nil {
		user := userResponse(ticket.Assignee)
		resp.Assignee = &user
	}
	return resp
}

func historyResponses(history []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(history))
	for _, entry := range history {
		resp = append(resp, dto.TicketHistoryResponse{ID: entry.ID, Date: entry.Date, Status: entry.Status})
	}
	return resp
}
