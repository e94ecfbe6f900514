//go:build integration

package mongo_test

import (
	"context"
	"errors"
	"testing"

	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/repository"
	repomongo "fitdesk/backoffice/internal/repository/mongo"
	"fitdesk/backoffice/internal/testutil/testmongo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestTemplateRepository_RangeLifecycle(t *testing.T) {
	ctx := context.Background()
	h, err := testmongo.Start(ctx, "backoffice_test")
	if err != nil {
		t.Skipf("mongo container unavailable: %v", err)
	}
	defer h.Close()

	repomongo.EnsureIndexes(ctx, h.DB, zap.NewNop())
	repo := repomongo.NewMongoTemplateRepository(h.DB)

	trainerID := primitive.NewObjectID()
	tplID, err := repo.Create(ctx, &domain.Template{TrainerID: trainerID, Name: "Fuerza 4s", TotalWeeks: 4})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rg := &domain.Range{Name: "", StartWeek: 1, StartDayOfWeek: 1, EndWeek: 2, EndDayOfWeek: 3}
	if err := repo.AddRange(ctx, tplID, rg); err != nil {
		t.Fatalf("AddRange: %v", err)
	}

	rg.Name = "Bloque de fuerza"
	if err := repo.UpdateRange(ctx, tplID, rg); err != nil {
		t.Fatalf("UpdateRange: %v", err)
	}

	got, err := repo.GetByID(ctx, tplID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	stored, ok := got.RangeByID(rg.ID)
	if !ok || stored.Name != "Bloque de fuerza" || stored.EndDayOfWeek != 3 {
		t.Fatalf("unexpected stored range %+v", stored)
	}
	if stored.Days == nil {
		t.Error("days should round-trip as an empty list")
	}

	if err := repo.DeleteRange(ctx, tplID, rg.ID); err != nil {
		t.Fatalf("DeleteRange: %v", err)
	}
	if err := repo.DeleteRange(ctx, tplID, rg.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete: want ErrNotFound, got %v", err)
	}

	list, err := repo.GetByTrainerID(ctx, trainerID)
	if err != nil || len(list) != 1 || len(list[0].Ranges) != 0 {
		t.Fatalf("GetByTrainerID = %+v, %v", list, err)
	}

	if err := repo.Delete(ctx, tplID, primitive.NewObjectID()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("delete by another trainer: want ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, tplID, trainerID); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestTemplateRepository_UpdateMissingRange(t *testing.T) {
	ctx := context.Background()
	h, err := testmongo.Start(ctx, "backoffice_test")
	if err != nil {
		t.Skipf("mongo container unavailable: %v", err)
	}
	defer h.Close()

	repo := repomongo.NewMongoTemplateRepository(h.DB)
	tplID, err := repo.Create(ctx, &domain.Template{TrainerID: primitive.NewObjectID(), Name: "Vacía", TotalWeeks: 2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = repo.UpdateRange(ctx, tplID, &domain.Range{ID: primitive.NewObjectID(), Name: "x", StartWeek: 1, StartDayOfWeek: 1, EndWeek: 1, EndDayOfWeek: 7})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}
