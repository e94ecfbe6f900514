package service

import (
	"context"
	"errors"
	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/planner"
	"fitdesk/backoffice/internal/repository"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrTemplateNotFound     = errors.New("template not found")
	ErrTemplateAccessDenied = errors.New("access denied to this template")
	ErrTemplateInvalid      = errors.New("template validation failed")
	ErrRangeNotFound        = errors.New("range not found")
	ErrRangeInvalid         = errors.New("range validation failed")
	ErrRangeOverlap         = errors.New("range overlaps an existing range")
)

// MaxTemplateWeeks bounds totalWeeks of a template.
const MaxTemplateWeeks = 104

// TemplateInput is the payload for creating a template.
type TemplateInput struct {
	Name        string
	Description string
	TotalWeeks  int
	Weeks       []domain.PlanWeek
}

// RangeInput is the payload for creating or replacing a range. Days are kept
// as sent.
type RangeInput struct {
	Name           string
	StartWeek      int
	StartDayOfWeek int
	EndWeek        int
	EndDayOfWeek   int
	Days           []domain.RangeDay
}

// span returns the flat day bounds of the input.
func (in RangeInput) span() (int, int) {
	return planner.WeekDayToIndex(in.StartWeek, in.StartDayOfWeek), planner.WeekDayToIndex(in.EndWeek, in.EndDayOfWeek)
}

type TemplateService interface {
	CreateTemplate(ctx context.Context, trainerID primitive.ObjectID, in TemplateInput) (*domain.Template, error)
	ListTemplates(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Template, error)
	GetTemplate(ctx context.Context, trainerID, templateID primitive.ObjectID) (*domain.Template, error)
	DeleteTemplate(ctx context.Context, trainerID, templateID primitive.ObjectID) error

	AddRange(ctx context.Context, trainerID, templateID primitive.ObjectID, in RangeInput) (*domain.Range, error)
	UpdateRange(ctx context.Context, trainerID, templateID, rangeID primitive.ObjectID, in RangeInput) (*domain.Range, error)
	DeleteRange(ctx context.Context, trainerID, templateID, rangeID primitive.ObjectID) error
}

type templateService struct {
	templateRepo repository.TemplateRepository
	logger       *zap.Logger
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(templateRepo repository.TemplateRepository, logger *zap.Logger) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		logger:       logger,
	}
}

func (s *templateService) CreateTemplate(ctx context.Context, trainerID primitive.ObjectID, in TemplateInput) (*domain.Template, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrTemplateInvalid)
	}
	if in.TotalWeeks < 1 || in.TotalWeeks > MaxTemplateWeeks {
		return nil, fmt.Errorf("%w: totalWeeks must be between 1 and %d", ErrTemplateInvalid, MaxTemplateWeeks)
	}
	for _, w := range in.Weeks {
		if w.Number < 1 || w.Number > in.TotalWeeks {
			return nil, fmt.Errorf("%w: week %d is outside the template", ErrTemplateInvalid, w.Number)
		}
		for _, d := range w.Days {
			if !planner.ValidDayOfWeek(d.DayOfWeek) {
				return nil, fmt.Errorf("%w: week %d has day %d", ErrTemplateInvalid, w.Number, d.DayOfWeek)
			}
		}
	}

	tpl := &domain.Template{
		TrainerID:   trainerID,
		Name:        name,
		Description: in.Description,
		TotalWeeks:  in.TotalWeeks,
		Weeks:       in.Weeks,
		Ranges:      []domain.Range{},
	}
	id, err := s.templateRepo.Create(ctx, tpl)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	tpl.ID = id
	s.logger.Info("template created", zap.String("template_id", id.Hex()), zap.String("trainer_id", trainerID.Hex()))
	return tpl, nil
}

func (s *templateService) ListTemplates(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Template, error) {
	templates, err := s.templateRepo.GetByTrainerID(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if templates == nil {
		templates = []domain.Template{}
	}
	return templates, nil
}

func (s *templateService) GetTemplate(ctx context.Context, trainerID, templateID primitive.ObjectID) (*domain.Template, error) {
	return s.ownedTemplate(ctx, trainerID, templateID)
}

func (s *templateService) DeleteTemplate(ctx context.Context, trainerID, templateID primitive.ObjectID) error {
	if _, err := s.ownedTemplate(ctx, trainerID, templateID); err != nil {
		return err
	}
	if err := s.templateRepo.Delete(ctx, templateID, trainerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// AddRange validates the range against the template and rejects overlap with
// the ranges already stored.
func (s *templateService) AddRange(ctx context.Context, trainerID, templateID primitive.ObjectID, in RangeInput) (*domain.Range, error) {
	tpl, err := s.ownedTemplate(ctx, trainerID, templateID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRange(in, tpl.TotalWeeks); err != nil {
		return nil, err
	}
	start, end := in.span()
	candidate := planner.NewLocalPeriod(in.Name, start, end, "")
	for _, existing := range tpl.Ranges {
		stored := planner.NewLocalPeriod(existing.Name,
			planner.WeekDayToIndex(existing.StartWeek, existing.StartDayOfWeek),
			planner.WeekDayToIndex(existing.EndWeek, existing.EndDayOfWeek), "")
		if candidate.Overlaps(stored) {
			return nil, fmt.Errorf("%w: %q", ErrRangeOverlap, stored.DisplayName())
		}
	}

	rg := toDomainRange(primitive.NilObjectID, in)
	if err := s.templateRepo.AddRange(ctx, templateID, rg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("add range: %w", err)
	}
	s.logger.Debug("range added",
		zap.String("template_id", templateID.Hex()),
		zap.String("range_id", rg.ID.Hex()),
		zap.Int("start_day", start), zap.Int("end_day", end))
	return rg, nil
}

// UpdateRange replaces a range. Only the shape is validated; callers rename
// and move ranges one at a time, so overlap is not re-checked here.
func (s *templateService) UpdateRange(ctx context.Context, trainerID, templateID, rangeID primitive.ObjectID, in RangeInput) (*domain.Range, error) {
	tpl, err := s.ownedTemplate(ctx, trainerID, templateID)
	if err != nil {
		return nil, err
	}
	if _, ok := tpl.RangeByID(rangeID); !ok {
		return nil, ErrRangeNotFound
	}
	if err := ValidateRange(in, tpl.TotalWeeks); err != nil {
		return nil, err
	}

	rg := toDomainRange(rangeID, in)
	if err := s.templateRepo.UpdateRange(ctx, templateID, rg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRangeNotFound
		}
		return nil, fmt.Errorf("update range: %w", err)
	}
	return rg, nil
}

func (s *templateService) DeleteRange(ctx context.Context, trainerID, templateID, rangeID primitive.ObjectID) error {
	tpl, err := s.ownedTemplate(ctx, trainerID, templateID)
	if err != nil {
		return err
	}
	if _, ok := tpl.RangeByID(rangeID); !ok {
		return ErrRangeNotFound
	}
	if err := s.templateRepo.DeleteRange(ctx, templateID, rangeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRangeNotFound
		}
		return fmt.Errorf("delete range: %w", err)
	}
	s.logger.Debug("range deleted", zap.String("template_id", templateID.Hex()), zap.String("range_id", rangeID.Hex()))
	return nil
}

func (s *templateService) ownedTemplate(ctx context.Context, trainerID, templateID primitive.ObjectID) (*domain.Template, error) {
	tpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	if tpl.TrainerID != trainerID {
		return nil, ErrTemplateAccessDenied
	}
	return tpl, nil
}

// ValidateRange checks the week/day bounds of a range against a template of
// totalWeeks weeks.
func ValidateRange(in RangeInput, totalWeeks int) error {
	if !planner.ValidDayOfWeek(in.StartDayOfWeek) || !planner.ValidDayOfWeek(in.EndDayOfWeek) {
		return fmt.Errorf("%w: day of week must be between 1 and %d", ErrRangeInvalid, planner.DaysPerWeek)
	}
	if in.StartWeek < 1 || in.EndWeek < 1 || in.StartWeek > totalWeeks || in.EndWeek > totalWeeks {
		return fmt.Errorf("%w: weeks must be between 1 and %d", ErrRangeInvalid, totalWeeks)
	}
	if start, end := in.span(); start > end {
		return fmt.Errorf("%w: range ends before it starts", ErrRangeInvalid)
	}
	return nil
}

func toDomainRange(id primitive.ObjectID, in RangeInput) *domain.Range {
	days := in.Days
	if days == nil {
		days = []domain.RangeDay{}
	}
	return &domain.Range{
		ID:             id,
		Name:           strings.TrimSpace(in.Name),
		StartWeek:      in.StartWeek,
		StartDayOfWeek: in.StartDayOfWeek,
		EndWeek:        in.EndWeek,
		EndDayOfWeek:   in.EndDayOfWeek,
		Days:           days,
	}
}
