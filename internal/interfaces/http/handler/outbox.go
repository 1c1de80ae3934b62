package handler

import (
	"github.com/distribuidora/backend/internal/application/event"
	"github.com/gin-gonic/gin"
)

// OutboxHandler exposes the dead letter queue of the outbox to admins
type OutboxHandler struct {
	BaseHandler
	outboxService *event.OutboxService
}

func NewOutboxHandler(outboxService *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// GetDeadLetterEntries lists entries that exhausted their retries
// @ID           listDeadOutboxEntries
// @Summary      List dead outbox entries
// @Tags         system
// @Produce      json
// @Param        filter query event.OutboxFilter false "Filters"
// @Success      200 {object} dto.Response{data=[]event.OutboxEntryDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /system/outbox/dead [get]
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	var filter event.OutboxFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.outboxService.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(c, page)
}

// RetryDeadEntry puts one dead entry back in the queue
// @ID           retryDeadOutboxEntry
// @Summary      Retry one dead outbox entry
// @Tags         system
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=event.OutboxEntryDTO}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /system/outbox/dead/{id}/retry [post]
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	byID(&h.BaseHandler, c, h.outboxService.RetryDeadEntry)
}

// RetryAllDeadEntries puts every dead entry back in the queue
// @ID           retryAllDeadOutboxEntries
// @Summary      Retry every dead outbox entry
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /system/outbox/dead/retry [post]
func (h *OutboxHandler) RetryAllDeadEntries(c *gin.Context) {
	n, err := h.outboxService.RetryAllDeadEntries(c.Request.Context())
	h.reply(c)(gin.H{"retried": n}, err)
}

// GetStats counts entries per status
// @ID           getOutboxStats
// @Summary      Outbox entry counts
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=event.OutboxStatsDTO}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	h.reply(c)(h.outboxService.GetStats(c.Request.Context()))
}
