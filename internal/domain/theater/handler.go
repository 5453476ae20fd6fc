package theater

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
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleTechnician, auth.RoleScheduler))
	readGroup.GET("/theaters", h.ListTheaters)
	readGroup.GET("/theaters/:id", h.GetTheater)
	readGroup.GET("/theaters/:id/bookings", h.TheaterSchedule)
	readGroup.GET("/bookings/:id", h.GetBooking)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/theaters", h.CreateTheater)
	adminGroup.PUT("/theaters/:id", h.UpdateTheater)

	bookGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleScheduler))
	bookGroup.POST("/bookings/lock", h.LockSlot)
	bookGroup.POST("/bookings", h.BookSlot)
	bookGroup.POST("/bookings/:id/confirm", h.ConfirmBooking)
	bookGroup.POST("/bookings/:id/cancel", h.CancelBooking)
}

func (h *Handler) CreateTheater(c echo.Context) error {
	var t Theater
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.ledger.CreateTheater(c.Request().Context(), &t); err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTheater(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.ledger.GetTheater(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateTheater(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var t Theater
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = id
	if err := h.ledger.UpdateTheater(c.Request().Context(), &t); err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTheaters(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.ledger.ListTheaters(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) TheaterSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	from, to, err := scheduleWindow(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bookings, err := h.ledger.TheaterSchedule(c.Request().Context(), id, from, to)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, bookings)
}

// scheduleWindow parses the from/to query params, defaulting to the next
// seven days.
func scheduleWindow(c echo.Context) (time.Time, time.Time, error) {
	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 7)
	var err error
	if raw := c.QueryParam("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if raw := c.QueryParam("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}

func (h *Handler) GetBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.ledger.GetBooking(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) LockSlot(c echo.Context) error {
	var req LockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.UserID = auth.ActorFromContext(c.Request().Context()).ID
	b, err := h.ledger.LockSlot(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) BookSlot(c echo.Context) error {
	var req LockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.UserID = auth.ActorFromContext(c.Request().Context()).ID
	b, err := h.ledger.BookSlot(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ConfirmBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	b, err := h.ledger.ConfirmBooking(c.Request().Context(), id, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) CancelBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	b, err := h.ledger.CancelBooking(c.Request().Context(), id, body.Reason, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, b)
}
