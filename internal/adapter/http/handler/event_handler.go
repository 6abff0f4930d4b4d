package handler

import (
	"merchant-ledger/internal/adapter/http/dto"
	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"
	"merchant-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// EventHandler exposes the event log.
type EventHandler struct {
	events ports.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events ports.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// List handles GET /api/v1/events?topic=&limit=.
func (h *EventHandler) List(c *gin.Context) {
	var q dto.EventListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	params := ports.EventListParams{Limit: q.Limit}
	if q.Topic != "" {
		topic := domain.EventTopic(q.Topic)
		params.Topic = &topic
	}

	events, err := h.events.ListEvents(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, dto.EventResponse{
			ID:        e.ID,
			Topic:     string(e.Topic),
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	response.List(c, out, len(out))
}
