package alert

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/alerts", h.Dashboard)
}

// Dashboard serves the computed alert list, critical first. An optional
// ?severity= query narrows the list to one tier.
func (h *Handler) Dashboard(c echo.Context) error {
	records, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if sev := Severity(c.QueryParam("severity")); sev != "" {
		filtered := make([]Record, 0, len(records))
		for _, r := range records {
			if r.Severity == sev {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  records,
		"total": len(records),
	})
}
