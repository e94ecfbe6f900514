// internal/repository/mongo/template_repo.go
package mongo

import (
	"context"
	"errors"
	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const templateCollectionName = "templates"

// mongoTemplateRepository implements repository.TemplateRepository
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new Template repository.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// Create inserts a new template. Ranges without an ID get one.
func (r *mongoTemplateRepository) Create(ctx context.Context, t *domain.Template) (primitive.ObjectID, error) {
	if t.TrainerID == primitive.NilObjectID || t.Name == "" {
		return primitive.NilObjectID, errors.New("template requires trainerId and name")
	}
	t.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Ranges == nil {
		t.Ranges = []domain.Range{}
	}
	for i := range t.Ranges {
		if t.Ranges[i].ID == primitive.NilObjectID {
			t.Ranges[i].ID = primitive.NewObjectID()
		}
		if t.Ranges[i].Days == nil {
			t.Ranges[i].Days = []domain.RangeDay{}
		}
	}

	result, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted template ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single template by its ID.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Template, error) {
	var t domain.Template
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetByTrainerID lists a trainer's templates, newest first.
func (r *mongoTemplateRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Template, error) {
	var templates []domain.Template
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"trainerId": trainerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// Delete removes a template, ensuring it belongs to the specified trainer.
func (r *mongoTemplateRepository) Delete(ctx context.Context, id primitive.ObjectID, trainerID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "trainerId": trainerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddRange appends a range to the template.
func (r *mongoTemplateRepository) AddRange(ctx context.Context, templateID primitive.ObjectID, rg *domain.Range) error {
	if rg.ID == primitive.NilObjectID {
		rg.ID = primitive.NewObjectID()
	}
	if rg.Days == nil {
		rg.Days = []domain.RangeDay{}
	}
	update := bson.M{
		"$push": bson.M{"ranges": rg},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": templateID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateRange replaces name, bounds and days of one range, addressed with the
// positional operator.
func (r *mongoTemplateRepository) UpdateRange(ctx context.Context, templateID primitive.ObjectID, rg *domain.Range) error {
	if rg.ID == primitive.NilObjectID {
		return errors.New("range ID is required for update")
	}
	if rg.Days == nil {
		rg.Days = []domain.RangeDay{}
	}
	filter := bson.M{"_id": templateID, "ranges._id": rg.ID}
	update := bson.M{
		"$set": bson.M{
			"ranges.$.name":           rg.Name,
			"ranges.$.startWeek":      rg.StartWeek,
			"ranges.$.startDayOfWeek": rg.StartDayOfWeek,
			"ranges.$.endWeek":        rg.EndWeek,
			"ranges.$.endDayOfWeek":   rg.EndDayOfWeek,
			"ranges.$.days":           rg.Days,
			"updatedAt":               time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteRange pulls one range out of the template.
func (r *mongoTemplateRepository) DeleteRange(ctx context.Context, templateID, rangeID primitive.ObjectID) error {
	filter := bson.M{"_id": templateID, "ranges._id": rangeID}
	update := bson.M{
		"$pull": bson.M{"ranges": bson.M{"_id": rangeID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTemplateIndexes creates necessary indexes. Call during startup.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection, logger *zap.Logger) {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: a trainer's templates, newest first
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "ranges._id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create indexes", zap.String("collection", collection.Name()), zap.Error(err))
	}
}
