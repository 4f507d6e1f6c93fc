package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tracklane/ticket-tracker/internal/domain"
)

// TicketCache holds ticket rows (no assignee, no history) keyed by id.
// Entries carry the row version; readers must compare it with the stored
// version before trusting an entry. Failures degrade to cache misses.
type TicketCache interface {
	Get(ctx context.Context, id string) (*domain.Ticket, bool)
	Set(ctx context.Context, ticket *domain.Ticket)
	Invalidate(ctx context.Context, id string)
}

// NopTicketCache never stores anything.
type NopTicketCache struct{}

func (NopTicketCache) Get(context.Context, string) (*domain.Ticket, bool) { return nil, false }
func (NopTicketCache) Set(context.Context, *domain.Ticket)                {}
func (NopTicketCache) Invalidate(context.Context, string)                 {}

type redisTicketCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTicketCache stores ticket rows in Redis with the given TTL.
func NewRedisTicketCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) TicketCache {
	if client == nil {
		return NopTicketCache{}
	}
	return &redisTicketCache{client: client, ttl: ttl, logger: logger}
}

type cachedTicket struct {
	ID          string              `json:"id"`
	Number      string              `json:"number"`
	Summary     string              `json:"summary"`
	Detail      string              `json:"detail"`
	Size        string              `json:"size"`
	DateCreated time.Time           `json:"date_created"`
	Status      domain.TicketStatus `json:"status"`
	Type        domain.TicketType   `json:"type"`
	AssigneeID  string              `json:"assignee_id"`
	CreatedAt   time.Time           `json:"created_at"`
	Version     int64               `json:"version"`
}

func ticketCacheKey(id string) string {
	return "ticket:" + id
}

func (c *redisTicketCache) Get(ctx context.Context, id string) (*domain.Ticket, bool) {
	raw, err := c.client.Get(ctx, ticketCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("ticket cache read failed", zap.String("ticket_id", id), zap.Error(err))
		}
		return nil, false
	}
	var entry cachedTicket
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("ticket cache entry corrupt", zap.String("ticket_id", id), zap.Error(err))
		c.Invalidate(ctx, id)
		return nil, false
	}
	return &domain.Ticket{
		ID:          entry.ID,
		Number:      entry.Number,
		Summary:     entry.Summary,
		Detail:      entry.Detail,
		Size:        entry.Size,
		DateCreated: entry.DateCreated,
		Status:      entry.Status,
		Type:        entry.Type,
		AssigneeID:  entry.AssigneeID,
		CreatedAt:   entry.CreatedAt,
		Version:     entry.Version,
	}, true
}

func (c *redisTicketCache) Set(ctx context.Context, ticket *domain.Ticket) {
	raw, err := json.Marshal(cachedTicket{
		ID:          ticket.ID,
		Number:      ticket.Number,
		Summary:     ticket.Summary,
		Detail:      ticket.Detail,
		Size:        ticket.Size,
		DateCreated: ticket.DateCreated,
		Status:      ticket.Status,
		Type:        ticket.Type,
		AssigneeID:  ticket.AssigneeID,
		CreatedAt:   ticket.CreatedAt,
		Version:     ticket.Version,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, ticketCacheKey(ticket.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("ticket cache write failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (c *redisTicketCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, ticketCacheKey(id)).Err(); err != nil {
		c.logger.Warn("ticket cache invalidation failed", zap.String("ticket_id", id), zap.Error(err))
	}
}
