package schedule

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleTechnician, auth.RoleScheduler))
	readGroup.GET("/doctors/:doctorId/schedule-blocks", h.ListBlocks)
	readGroup.GET("/schedule-blocks/:id", h.GetBlock)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleScheduler))
	writeGroup.POST("/schedule-blocks", h.CreateBlock)
	writeGroup.DELETE("/schedule-blocks/:id", h.DeleteBlock)
}

type createBlockRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	BlockType string    `json:"block_type"`
	Reason    string    `json:"reason"`
}

func (h *Handler) CreateBlock(c echo.Context) error {
	var req createBlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date (expected YYYY-MM-DD)")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date (expected YYYY-MM-DD)")
	}

	b := &ScheduleBlock{
		DoctorID:  req.DoctorID,
		StartDate: startDate,
		EndDate:   endDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		BlockType: req.BlockType,
		Reason:    req.Reason,
	}
	if err := h.svc.CreateBlock(c.Request().Context(), b); err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBlock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBlock(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBlocks(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	from := time.Now().AddDate(0, -1, 0)
	to := time.Now().AddDate(1, 0, 0)
	if v := c.QueryParam("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBlocks(c.Request().Context(), doctorID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteBlock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteBlock(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.NoContent(http.StatusNoContent)
}
