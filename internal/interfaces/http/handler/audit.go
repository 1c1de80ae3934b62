package handler

import (
	auditapp "github.com/distribuidora/backend/internal/application/audit"
	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the change log to admins
type AuditHandler struct {
	BaseHandler
	auditService *auditapp.Service
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService *auditapp.Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List returns audit entries newest first
// @ID           listAuditEntries
// @Summary      List audit entries
// @Tags         audit
// @Produce      json
// @Param        filter query auditapp.ListFilter false "Filters"
// @Success      200 {object} dto.Response{data=[]auditapp.EntryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter auditapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.auditService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(c, page)
}

// History returns every change of /audit/:table/:id
// @ID           getRecordHistory
// @Summary      Change history of one record
// @Tags         audit
// @Produce      json
// @Param        table path string true "Table name"
// @Param        id path string true "Record ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]auditapp.EntryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /audit/{table}/{id} [get]
func (h *AuditHandler) History(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	page, err := h.auditService.History(c.Request.Context(), c.Param("table"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(c, page)
}
