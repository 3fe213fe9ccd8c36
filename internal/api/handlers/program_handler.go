package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"printhub/internal/domain"
	"printhub/internal/services"
	"printhub/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ProgramHandler exposes the mutation and sync operations over REST. The
// routes are thin wrappers: all semantics live in the services, and every
// successful mutation broadcasts exactly as a WebSocket-initiated one.
type ProgramHandler struct {
	programs *services.ProgramService
	sync     *services.SyncService
	log      logger.Logger
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func NewProgramHandler(programs *services.ProgramService, sync *services.SyncService,
	log logger.Logger) *ProgramHandler {
	return &ProgramHandler{
		programs: programs,
		sync:     sync,
		log:      log,
	}
}

func (h *ProgramHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/programs", h.CreateProgram)
	g.GET("/programs", h.ListPrograms)
	g.GET("/programs/:id", h.GetProgram)
	g.PUT("/programs/:id", h.UpdateProgram)
	g.POST("/programs/:id/status", h.ChangeStatus)
	g.DELETE("/programs/:id", h.DeleteProgram)
	g.GET("/machines/:machine/programs", h.ListMachinePrograms)
	g.GET("/statistics", h.GetStatistics)
}

func (h *ProgramHandler) CreateProgram(c echo.Context) error {
	actor := c.Request().Header.Get("X-User-ID")

	var input domain.ProgramInput
	if err := c.Bind(&input); err != nil {
		return h.writeError(c, &domain.ValidationError{Field: "body", Reason: "malformed"})
	}

	program, err := h.programs.Create(c.Request().Context(), &input, actor)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, program)
}

func (h *ProgramHandler) GetProgram(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return h.writeError(c, err)
	}

	program, err := h.programs.Get(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, program)
}

func (h *ProgramHandler) ListPrograms(c echo.Context) error {
	snapshot, err := h.sync.FullSync(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, snapshot)
}

func (h *ProgramHandler) UpdateProgram(c echo.Context) error {
	actor := c.Request().Header.Get("X-User-ID")

	id, err := parseID(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var input domain.ProgramInput
	if err := c.Bind(&input); err != nil {
		return h.writeError(c, &domain.ValidationError{Field: "body", Reason: "malformed"})
	}

	program, err := h.programs.Update(c.Request().Context(), id, &input, actor)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, program)
}

func (h *ProgramHandler) ChangeStatus(c echo.Context) error {
	actor := c.Request().Header.Get("X-User-ID")

	id, err := parseID(c)
	if err != nil {
		return h.writeError(c, err)
	}

	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return h.writeError(c, &domain.ValidationError{Field: "body", Reason: "malformed"})
	}

	program, err := h.programs.ChangeStatus(c.Request().Context(), id,
		domain.ProgramStatus(req.Status), req.Note, actor)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, program)
}

func (h *ProgramHandler) DeleteProgram(c echo.Context) error {
	actor := c.Request().Header.Get("X-User-ID")

	id, err := parseID(c)
	if err != nil {
		return h.writeError(c, err)
	}

	if err := h.programs.Delete(c.Request().Context(), id, actor); err != nil {
		return h.writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ProgramHandler) ListMachinePrograms(c echo.Context) error {
	machine, err := strconv.Atoi(c.Param("machine"))
	if err != nil {
		return h.writeError(c, &domain.ValidationError{Field: "machine", Reason: "must be a number"})
	}

	programs, err := h.sync.MachineSync(c.Request().Context(), machine)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"machine":  machine,
		"programs": programs,
	})
}

func (h *ProgramHandler) GetStatistics(c echo.Context) error {
	stats, err := h.programs.Statistics(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, stats)
}

func (h *ProgramHandler) writeError(c echo.Context, err error) error {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, map[string]string{
		"code":  domain.ErrorCode(err),
		"error": err.Error(),
	})
}

func httpStatus(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsInvalidTransition(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: "id", Reason: "must be a positive number"}
	}
	return id, nil
}
