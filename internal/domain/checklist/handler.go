package checklist

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleTechnician))
	readGroup.GET("/surgical-cases/:id/checklist", h.GetChecklist)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleTechnician))
	writeGroup.POST("/surgical-cases/:id/checklist/:phase", h.CompletePhase)
}

type completePhaseRequest struct {
	Items []Item `json:"items"`
}

func (h *Handler) CompletePhase(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var req completePhaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actor := auth.ActorFromContext(c.Request().Context())
	rec, err := h.svc.CompletePhase(c.Request().Context(), caseID, Phase(c.Param("phase")), req.Items, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetChecklist(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	recs, err := h.svc.GetChecklist(c.Request().Context(), caseID)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, recs)
}
