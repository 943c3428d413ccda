package candidates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches dashboard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/candidates", h.list)
	rg.GET("/candidates/:id", h.get)
}

type listResponse struct {
	Items []Summary `json:"items"`
	Total int       `json:"total"`
}

func (h *Handler) list(c *gin.Context) {
	q, err := ParseQuery(c.Query("q"), c.Query("sort"), c.Query("order"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	items := h.Svc.List(q)
	respond.OK(c, listResponse{Items: items, Total: len(items)})
}

func (h *Handler) get(c *gin.Context) {
	detail, err := h.Svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "candidate not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	respond.OK(c, detail)
}
