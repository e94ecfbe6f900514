package api

import (
	"errors"
	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/service"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TemplateHandler serves templates, their ranges and exports.
type TemplateHandler struct {
	templateService service.TemplateService
	exportService   service.ExportService
	logger          *zap.Logger
}

func NewTemplateHandler(templateService service.TemplateService, exportService service.ExportService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
		exportService:   exportService,
		logger:          logger,
	}
}

// --- DTOs ---

type SessionDTO struct {
	ExerciseID string `json:"exerciseId,omitempty"`
	Name       string `json:"name" binding:"required"`
	Sets       int    `json:"sets,omitempty" binding:"omitempty,min=0"`
	Reps       int    `json:"reps,omitempty" binding:"omitempty,min=0"`
	Notes      string `json:"notes,omitempty"`
}

type PlanDayDTO struct {
	DayOfWeek int          `json:"dayOfWeek" binding:"required,min=1,max=7"`
	Sessions  []SessionDTO `json:"sessions,omitempty" binding:"dive"`
}

type PlanWeekDTO struct {
	Number int          `json:"number" binding:"required,min=1"`
	Days   []PlanDayDTO `json:"days,omitempty" binding:"dive"`
}

type CreateTemplateRequest struct {
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	TotalWeeks  int           `json:"totalWeeks" binding:"required,min=1"`
	Weeks       []PlanWeekDTO `json:"weeks" binding:"dive"`
}

// RangeRequest is the body of range create and replace calls.
type RangeRequest struct {
	Name           string            `json:"name"`
	StartWeek      int               `json:"startWeek" binding:"required,min=1"`
	StartDayOfWeek int               `json:"startDayOfWeek" binding:"required,min=1,max=7"`
	EndWeek        int               `json:"endWeek" binding:"required,min=1"`
	EndDayOfWeek   int               `json:"endDayOfWeek" binding:"required,min=1,max=7"`
	Days           []domain.RangeDay `json:"days"`
}

func (r RangeRequest) input() service.RangeInput {
	return service.RangeInput{
		Name:           r.Name,
		StartWeek:      r.StartWeek,
		StartDayOfWeek: r.StartDayOfWeek,
		EndWeek:        r.EndWeek,
		EndDayOfWeek:   r.EndDayOfWeek,
		Days:           r.Days,
	}
}

type RangeResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	StartWeek      int               `json:"startWeek"`
	StartDayOfWeek int               `json:"startDayOfWeek"`
	EndWeek        int               `json:"endWeek"`
	EndDayOfWeek   int               `json:"endDayOfWeek"`
	Days           []domain.RangeDay `json:"days"`
}

type TemplateResponse struct {
	ID          string          `json:"id"`
	TrainerID   string          `json:"trainerId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	TotalWeeks  int             `json:"totalWeeks"`
	Weeks       []PlanWeekDTO   `json:"weeks,omitempty"`
	Ranges      []RangeResponse `json:"ranges"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type ExportResponse struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Format      string    `json:"format"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func MapRangeToResponse(r *domain.Range) RangeResponse {
	days := r.Days
	if days == nil {
		days = []domain.RangeDay{}
	}
	return RangeResponse{
		ID:             r.ID.Hex(),
		Name:           r.Name,
		StartWeek:      r.StartWeek,
		StartDayOfWeek: r.StartDayOfWeek,
		EndWeek:        r.EndWeek,
		EndDayOfWeek:   r.EndDayOfWeek,
		Days:           days,
	}
}

func MapTemplateToResponse(t *domain.Template) TemplateResponse {
	resp := TemplateResponse{
		ID:          t.ID.Hex(),
		TrainerID:   t.TrainerID.Hex(),
		Name:        t.Name,
		Description: t.Description,
		TotalWeeks:  t.TotalWeeks,
		Ranges:      make([]RangeResponse, len(t.Ranges)),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	for i := range t.Ranges {
		resp.Ranges[i] = MapRangeToResponse(&t.Ranges[i])
	}
	for _, w := range t.Weeks {
		week := PlanWeekDTO{Number: w.Number}
		for _, d := range w.Days {
			day := PlanDayDTO{DayOfWeek: d.DayOfWeek}
			for _, s := range d.Sessions {
				dto := SessionDTO{Name: s.Name, Sets: s.Sets, Reps: s.Reps, Notes: s.Notes}
				if s.ExerciseID != nil {
					dto.ExerciseID = s.ExerciseID.Hex()
				}
				day.Sessions = append(day.Sessions, dto)
			}
			week.Days = append(week.Days, day)
		}
		resp.Weeks = append(resp.Weeks, week)
	}
	return resp
}

// planFromRequest converts the plan tree, parsing exercise references.
func planFromRequest(weeks []PlanWeekDTO) ([]domain.PlanWeek, error) {
	out := make([]domain.PlanWeek, 0, len(weeks))
	for _, w := range weeks {
		week := domain.PlanWeek{Number: w.Number}
		for _, d := range w.Days {
			day := domain.PlanDay{DayOfWeek: d.DayOfWeek}
			for _, s := range d.Sessions {
				session := domain.Session{Name: s.Name, Sets: s.Sets, Reps: s.Reps, Notes: s.Notes}
				if s.ExerciseID != "" {
					id, err := primitive.ObjectIDFromHex(s.ExerciseID)
					if err != nil {
						return nil, fmt.Errorf("invalid exerciseId %q", s.ExerciseID)
					}
					session.ExerciseID = &id
				}
				day.Sessions = append(day.Sessions, session)
			}
			week.Days = append(week.Days, day)
		}
		out = append(out, week)
	}
	return out, nil
}

// --- Handlers ---

// CreateTemplate godoc
// @Summary Create a training template
// @Tags Templates
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param template body CreateTemplateRequest true "Template"
// @Success 201 {object} TemplateResponse
// @Failure 400 {object} gin.H "Validation error"
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	weeks, err := planFromRequest(req.Weeks)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	tpl, err := h.templateService.CreateTemplate(c.Request.Context(), trainerID, service.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		TotalWeeks:  req.TotalWeeks,
		Weeks:       weeks,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapTemplateToResponse(tpl))
}

// ListTemplates godoc
// @Summary List the trainer's templates
// @Tags Templates
// @Security BearerAuth
// @Success 200 {array} TemplateResponse
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	templates, err := h.templateService.ListTemplates(c.Request.Context(), trainerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]TemplateResponse, len(templates))
	for i := range templates {
		resp[i] = MapTemplateToResponse(&templates[i])
	}
	c.JSON(http.StatusOK, resp)
}

// GetTemplate godoc
// @Summary Get a template with its plan tree and ranges
// @Tags Templates
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Success 200 {object} TemplateResponse
// @Failure 404 {object} gin.H "Not found"
// @Router /templates/{templateId} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	tpl, err := h.templateService.GetTemplate(c.Request.Context(), trainerID, templateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapTemplateToResponse(tpl))
}

// DeleteTemplate godoc
// @Summary Delete a template together with its ranges
// @Tags Templates
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Success 204 "Deleted"
// @Failure 403 {object} gin.H "Template belongs to another trainer"
// @Failure 404 {object} gin.H "Not found"
// @Router /templates/{templateId} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	if err := h.templateService.DeleteTemplate(c.Request.Context(), trainerID, templateID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateRange godoc
// @Summary Add a range to a template
// @Tags Ranges
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Param range body RangeRequest true "Range"
// @Success 201 {object} RangeResponse
// @Failure 409 {object} gin.H "Overlaps an existing range"
// @Router /templates/{templateId}/ranges [post]
func (h *TemplateHandler) CreateRange(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	var req RangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	rg, err := h.templateService.AddRange(c.Request.Context(), trainerID, templateID, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapRangeToResponse(rg))
}

// UpdateRange godoc
// @Summary Replace a range (name, bounds, days)
// @Tags Ranges
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Param rangeId path string true "Range ID"
// @Param range body RangeRequest true "Range"
// @Success 200 {object} RangeResponse
// @Router /templates/{templateId}/ranges/{rangeId} [put]
func (h *TemplateHandler) UpdateRange(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	rangeID, ok := pathObjectID(c, "rangeId")
	if !ok {
		return
	}
	var req RangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	rg, err := h.templateService.UpdateRange(c.Request.Context(), trainerID, templateID, rangeID, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRangeToResponse(rg))
}

// DeleteRange godoc
// @Summary Remove one range from a template
// @Tags Ranges
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Param rangeId path string true "Range ID"
// @Success 204 "Deleted"
// @Failure 404 {object} gin.H "Template or range not found"
// @Router /templates/{templateId}/ranges/{rangeId} [delete]
func (h *TemplateHandler) DeleteRange(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	rangeID, ok := pathObjectID(c, "rangeId")
	if !ok {
		return
	}
	if err := h.templateService.DeleteRange(c.Request.Context(), trainerID, templateID, rangeID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportTemplate godoc
// @Summary Render the template's ranges as a calendar file
// @Tags Templates
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Param format query string true "ics or xlsx"
// @Param start query string false "Date of plan day 1 (YYYY-MM-DD), defaults to today"
// @Success 201 {object} ExportResponse
// @Router /templates/{templateId}/exports [post]
func (h *TemplateHandler) ExportTemplate(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}

	start := time.Now().UTC()
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
		start = parsed
	}

	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportICS)))
	res, err := h.exportService.ExportTemplate(c.Request.Context(), trainerID, templateID, format, start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ExportResponse{
		Key:         res.Key,
		URL:         res.URL,
		Format:      string(res.Format),
		ContentType: res.ContentType,
		ExpiresAt:   res.ExpiresAt,
	})
}

func (h *TemplateHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateInvalid),
		errors.Is(err, service.ErrRangeInvalid),
		errors.Is(err, service.ErrUnsupportedFormat):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTemplateNotFound), errors.Is(err, service.ErrRangeNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTemplateAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrRangeOverlap):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNothingToExport):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("template request", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to process template request")
	}
}
