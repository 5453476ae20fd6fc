package surgcase

import (
	"net/http"

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
	readGroup.GET("/surgical-cases", h.ListCases)
	readGroup.GET("/surgical-cases/:id", h.GetCase)
	readGroup.GET("/surgical-cases/:id/plan", h.GetPlan)
	readGroup.GET("/surgical-cases/:id/history", h.StatusHistory)

	intakeGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleScheduler))
	intakeGroup.POST("/surgical-cases", h.CreateCase)

	// Finer-grained actor checks live in the service.
	actorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleTechnician))
	actorGroup.PUT("/surgical-cases/:id/plan", h.UpdatePlan)
	actorGroup.PUT("/surgical-cases/:id/readiness", h.UpdateReadiness)
	actorGroup.POST("/surgical-cases/:id/consents", h.AddConsent)
	actorGroup.POST("/surgical-cases/:id/consents/:consentId/sign", h.SignConsent)
	actorGroup.POST("/surgical-cases/:id/images", h.AddImage)
	actorGroup.POST("/surgical-cases/:id/transition", h.TransitionCase)
}

type createCaseRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
}

func (h *Handler) CreateCase(c echo.Context) error {
	var req createCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	sc, err := h.svc.CreateCase(c.Request().Context(), req.PatientID, req.DoctorID, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusCreated, sc)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCases(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) StatusHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	history, err := h.svc.StatusHistory(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var upd PlanUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	plan, err := h.svc.UpdatePlan(c.Request().Context(), id, upd, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, plan)
}

type readinessRequest struct {
	ReadinessStatus string `json:"readiness_status"`
}

func (h *Handler) UpdateReadiness(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req readinessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	plan, err := h.svc.UpdateReadiness(c.Request().Context(), id, req.ReadinessStatus, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, plan)
}

type addConsentRequest struct {
	DocumentName string `json:"document_name"`
}

func (h *Handler) AddConsent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req addConsentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	consent, err := h.svc.AddConsent(c.Request().Context(), id, req.DocumentName, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusCreated, consent)
}

func (h *Handler) SignConsent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	consentID, err := uuid.Parse(c.Param("consentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid consent id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	consent, err := h.svc.SignConsent(c.Request().Context(), id, consentID, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, consent)
}

type addImageRequest struct {
	Timepoint string `json:"timepoint"`
	URL       string `json:"url"`
}

func (h *Handler) AddImage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req addImageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	img, err := h.svc.AddImage(c.Request().Context(), id, req.Timepoint, req.URL, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusCreated, img)
}

type transitionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (h *Handler) TransitionCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	sc, err := h.svc.TransitionCase(c.Request().Context(), id, req.Action, req.Reason, actor)
	if err != nil {
		return echo.NewHTTPError(apperr.ToHTTP(err))
	}
	return c.JSON(http.StatusOK, sc)
}
