package service

import (
	"context"
	"errors"
	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/repository"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrExerciseNotFound     = errors.New("exercise not found")
	ErrExerciseAccessDenied = errors.New("access denied to modify or delete this exercise")
	ErrValidationFailed     = errors.New("exercise validation failed")
	ErrExerciseNameTaken    = errors.New("an exercise with this name already exists")
)

// ExerciseInput carries the editable fields of a library exercise.
type ExerciseInput struct {
	Name        string
	Description string
	MuscleGroup string
	Equipment   string
	VideoURL    string
}

type ExerciseService interface {
	CreateExercise(ctx context.Context, trainerID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	GetExerciseByID(ctx context.Context, trainerID, exerciseID primitive.ObjectID) (*domain.Exercise, error)
	GetExercisesByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Exercise, error)
	UpdateExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	DeleteExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID) error
}

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
	}
}

func (s *exerciseService) CreateExercise(ctx context.Context, trainerID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrValidationFailed
	}
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required to create an exercise")
	}

	// ID and timestamps are set by the repository
	exercise := &domain.Exercise{
		TrainerID:   trainerID,
		Name:        name,
		Description: in.Description,
		MuscleGroup: in.MuscleGroup,
		Equipment:   in.Equipment,
		VideoURL:    in.VideoURL,
	}

	exerciseID, err := s.exerciseRepo.Create(ctx, exercise)
	if err != nil {
		// Names are unique per trainer
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrExerciseNameTaken
		}
		return nil, err
	}
	exercise.ID = exerciseID
	return exercise, nil
}

// GetExerciseByID returns an exercise of the trainer's library. Exercises of
// other trainers are reported as missing.
func (s *exerciseService) GetExerciseByID(ctx context.Context, trainerID, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	// Do not reveal that the exercise exists
	if exercise.TrainerID != trainerID {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

func (s *exerciseService) GetExercisesByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Exercise, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID cannot be nil")
	}
	exercises, err := s.exerciseRepo.GetByTrainerID(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	// Encode as [] rather than null
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	return exercises, nil
}

// UpdateExercise handles updating an existing exercise, ensuring ownership.
func (s *exerciseService) UpdateExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrValidationFailed
	}

	// Fetch first to check ownership
	existing, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	if existing.TrainerID != trainerID {
		return nil, ErrExerciseAccessDenied
	}

	// Apply the editable fields; TrainerID and CreatedAt stay
	existing.Name = name
	existing.Description = in.Description
	existing.MuscleGroup = in.MuscleGroup
	existing.Equipment = in.Equipment
	existing.VideoURL = in.VideoURL

	if err := s.exerciseRepo.Update(ctx, existing); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// Deleted between the read and the write
			return nil, ErrExerciseNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrExerciseNameTaken
		}
		return nil, err
	}
	return existing, nil
}

// DeleteExercise handles deleting an exercise, ensuring ownership. The
// repository filter includes the trainer, so a foreign exercise is not found.
func (s *exerciseService) DeleteExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID) error {
	if err := s.exerciseRepo.Delete(ctx, exerciseID, trainerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	return nil
}
