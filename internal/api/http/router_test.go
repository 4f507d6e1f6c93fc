package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracklane/ticket-tracker/internal/api/dto"
	"github.com/tracklane/ticket-tracker/internal/api/http/handlers"
	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/observability"
	"github.com/tracklane/ticket-tracker/internal/repository/memory"
	"github.com/tracklane/ticket-tracker/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.New()
	paging := service.Paging{DefaultSize: 10, MaxSize: 100}
	assignments := service.NewAssignmentService(service.AssignmentDependencies{Store: store})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Assignments: assignments,
		Defaults:    service.TicketDefaults{Status: domain.TicketStatusTodo, Type: domain.TicketTypeStory},
		Paging:      paging,
	})
	users := service.NewUserService(service.UserDependencies{Store: store, Assignments: assignments, Paging: paging})
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("ticket-tracker", "test", nil, metrics),
		Tickets: handlers.NewTicketsHandler(tickets, service.NewHistoryService(store)),
		Users:   handlers.NewUsersHandler(users, assignments),
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func createUser(t *testing.T, app *fiber.App, name string) dto.UserResponse {
	t.Helper()
	status, raw := do(t, app, fiber.MethodPost, "/users", `{"name":"`+name+`","email":"`+name+`@example.com"}`)
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	return decode[dto.UserResponse](t, raw)
}

func createTicket(t *testing.T, app *fiber.App, number, userID string) dto.TicketResponse {
	t.Helper()
	body := `{"number":"` + number + `","summary":"Login fails","detail":"500 on submit","size":"3","status":"todo","type":"bug","assignee":{"id":"` + userID + `"}}`
	status, raw := do(t, app, fiber.MethodPost, "/tickets", body)
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	return decode[dto.TicketResponse](t, raw)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	user := createUser(t, app, "harry")
	ticket := createTicket(t, app, "TST-1001", user.ID)
	assert.Empty(t, ticket.History)
	require.NotNil(t, ticket.Assignee)
	assert.Equal(t, user.ID, ticket.Assignee.ID)

	patch := `{"number":"HACKED","dateCreated":"1999-01-01T00:00:00Z","summary":"Login fails","detail":"500 on submit","size":"5","status":"inProgress"}`
	status, raw := do(t, app, fiber.MethodPatch, "/tickets/"+ticket.ID, patch)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	updated := decode[dto.TicketResponse](t, raw)
	assert.Equal(t, "TST-1001", updated.Number)
	assert.True(t, ticket.DateCreated.Equal(updated.DateCreated))
	assert.Equal(t, "5", updated.Size)
	require.Len(t, updated.History, 1)
	assert.Equal(t, domain.TicketStatusInProgress, updated.History[0].Status)

	status, raw = do(t, app, fiber.MethodGet, "/tickets/"+ticket.ID+"/history", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]dto.TicketHistoryResponse](t, raw), 1)

	status, _ = do(t, app, fiber.MethodDelete, "/tickets/"+ticket.ID, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, raw = do(t, app, fiber.MethodGet, "/tickets/"+ticket.ID+"/history", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, raw).Error.Code)
}

func TestCreateTicketErrors(t *testing.T) {
	app := newTestApp(t)

	status, raw := do(t, app, fiber.MethodPost, "/tickets", `{"number":"N","summary":"s","detail":"d","size":"1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", decode[errorBody](t, raw).Error.Code)

	status, _ = do(t, app, fiber.MethodPost, "/tickets", `{"number":"N","summary":"s","detail":"d","size":"1","assignee":{"id":"`+uuid.NewString()+`"}}`)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, fiber.MethodPost, "/tickets", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestMalformedAndMissingIDs(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, fiber.MethodGet, "/tickets/not-a-uuid", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, fiber.MethodGet, "/tickets/"+uuid.NewString(), "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, fiber.MethodGet, "/nowhere", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestListTicketsPage(t *testing.T) {
	app := newTestApp(t)
	user := createUser(t, app, "harry")
	createTicket(t, app, "TST-1", user.ID)
	createTicket(t, app, "TST-2", user.ID)
	createTicket(t, app, "TST-3", user.ID)

	status, raw := do(t, app, fiber.MethodGet, "/tickets?page=2&per=2", "")
	require.Equal(t, fiber.StatusOK, status)
	page := decode[dto.PageResponse[dto.TicketResponse]](t, raw)
	assert.Equal(t, dto.PageMetadata{Page: 2, Per: 2, Total: 3}, page.Metadata)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "TST-3", page.Items[0].Number)
	require.NotNil(t, page.Items[0].Assignee)
}

func TestListTicketsFarPageIsEmpty(t *testing.T) {
	app := newTestApp(t)
	user := createUser(t, app, "harry")
	createTicket(t, app, "TST-1", user.ID)

	status, raw := do(t, app, fiber.MethodGet, "/tickets?page=922337203685477582&per=10", "")
	require.Equal(t, fiber.StatusOK, status, string(raw))
	page := decode[dto.PageResponse[dto.TicketResponse]](t, raw)
	assert.Empty(t, page.Items)
	assert.Equal(t, 922337203685477582, page.Metadata.Page)
	assert.Equal(t, 1, page.Metadata.Total)
}

func TestUserTicketsAndReassign(t *testing.T) {
	app := newTestApp(t)
	u1 := createUser(t, app, "u1")
	u2 := createUser(t, app, "u2")
	t1 := createTicket(t, app, "TST-1", u1.ID)
	createTicket(t, app, "TST-2", u1.ID)

	status, raw := do(t, app, fiber.MethodGet, "/users/"+u1.ID+"/tickets", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]dto.TicketResponse](t, raw), 2)

	status, raw = do(t, app, fiber.MethodPost, "/users/"+u2.ID+"/addTicket/"+t1.ID, "")
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, raw = do(t, app, fiber.MethodGet, "/tickets/"+t1.ID, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, u2.ID, decode[dto.TicketResponse](t, raw).Assignee.ID)

	status, raw = do(t, app, fiber.MethodGet, "/users/"+u1.ID+"/tickets", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]dto.TicketResponse](t, raw), 1)
}

func TestDeleteUserWithTicketsConflicts(t *testing.T) {
	app := newTestApp(t)
	user := createUser(t, app, "u1")
	ticket := createTicket(t, app, "TST-1", user.ID)

	status, raw := do(t, app, fiber.MethodDelete, "/users/"+user.ID, "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", decode[errorBody](t, raw).Error.Code)

	status, _ = do(t, app, fiber.MethodDelete, "/tickets/"+ticket.ID, "")
	require.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, fiber.MethodDelete, "/users/"+user.ID, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, fiber.MethodGet, "/health/live", "")
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, fiber.MethodGet, "/health/ready", "")
	assert.Equal(t, fiber.StatusOK, status)

	for i := 0; i < 3; i++ {
		status, _ = do(t, app, fiber.MethodGet, "/tickets/"+uuid.NewString(), "")
		require.Equal(t, fiber.StatusNotFound, status)
	}

	status, raw := do(t, app, fiber.MethodGet, "/metrics", "")
	require.Equal(t, fiber.StatusOK, status)
	snap := decode[observability.Snapshot](t, raw)
	assert.NotEmpty(t, snap.Requests)

	var ticketErrors []observability.ErrorStat
	for _, stat := range snap.Errors {
		assert.NotContains(t, stat.Path, "-", "error metrics keyed by raw path: %s", stat.Path)
		if stat.Path == "/tickets/:ticketID" {
			ticketErrors = append(ticketErrors, stat)
		}
	}
	require.Len(t, ticketErrors, 1)
	assert.Equal(t, observability.ErrorStat{Method: fiber.MethodGet, Path: "/tickets/:ticketID", Code: "NOT_FOUND", Count: 3}, ticketErrors[0])
}
