package playbook

import (
	"context"
	"time"

	"go-deo/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DraftRepository interface {
	Insert(ctx context.Context, draft *PlaybookDraft) error
	FindByTuple(ctx context.Context, projectID string, playbookID string, scopeID string, rulesHash string) (*PlaybookDraft, error)
	FindLatestByScope(ctx context.Context, projectID string, playbookID string, scopeID string) (*PlaybookDraft, error)
	EnsureIndexes(ctx context.Context) error
}

type DraftRepositoryImpl struct {
	collection *mongo.Collection
}

func NewDraftRepository(db *database.MongodbDB) DraftRepository {
	return &DraftRepositoryImpl{
		collection: db.DB.Collection("playbook_drafts"),
	}
}

func (r *DraftRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "project_id", Value: 1},
			{Key: "playbook_id", Value: 1},
			{Key: "scope_id", Value: 1},
			{Key: "rules_hash", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *DraftRepositoryImpl) Insert(ctx context.Context, draft *PlaybookDraft) error {
	if draft.ID.IsZero() {
		draft.ID = primitive.NewObjectID()
	}
	draft.CreatedAt = time.Now()
	draft.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, draft)
	return err
}

func (r *DraftRepositoryImpl) FindByTuple(ctx context.Context, projectID string, playbookID string, scopeID string, rulesHash string) (*PlaybookDraft, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	var draft PlaybookDraft
	err = r.collection.FindOne(ctx, bson.M{
		"project_id":  objID,
		"playbook_id": playbookID,
		"scope_id":    scopeID,
		"rules_hash":  rulesHash,
	}).Decode(&draft)
	if err != nil {
		return nil, err
	}

	return &draft, nil
}

func (r *DraftRepositoryImpl) FindLatestByScope(ctx context.Context, projectID string, playbookID string, scopeID string) (*PlaybookDraft, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var draft PlaybookDraft
	err = r.collection.FindOne(ctx, bson.M{
		"project_id":  objID,
		"playbook_id": playbookID,
		"scope_id":    scopeID,
	}, opts).Decode(&draft)
	if err != nil {
		return nil, err
	}

	return &draft, nil
}

type RunRepository interface {
	// Insert appends a ledger row. When the idempotency key already exists
	// the prior row is returned with duplicate=true and nothing is written.
	Insert(ctx context.Context, run *PlaybookRun) (*PlaybookRun, bool, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*PlaybookRun, error)
	FindLatestGeneration(ctx context.Context, projectID string, playbookID string, scopeID string, rulesHash string) (*PlaybookRun, error)
	CountAiRunsSince(ctx context.Context, projectID string, since time.Time) (int64, error)
	Summary(ctx context.Context, projectID string) (*UsageSummary, error)
	ListByProject(ctx context.Context, projectID string, limit int64) ([]PlaybookRun, error)
	EnsureIndexes(ctx context.Context) error
}

type RunRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRunRepository(db *database.MongodbDB) RunRepository {
	return &RunRepositoryImpl{
		collection: db.DB.Collection("playbook_runs"),
	}
}

func (r *RunRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *RunRepositoryImpl) Insert(ctx context.Context, run *PlaybookRun) (*PlaybookRun, bool, error) {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	run.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, run)
	if err == nil {
		return run, false, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		var prior PlaybookRun
		findErr := r.collection.FindOne(ctx, bson.M{
			"idempotency_key": run.IdempotencyKey,
		}).Decode(&prior)
		if findErr != nil {
			return nil, false, findErr
		}
		return &prior, true, nil
	}

	return nil, false, err
}

func (r *RunRepositoryImpl) FindByIdempotencyKey(ctx context.Context, key string) (*PlaybookRun, error) {
	var run PlaybookRun
	if err := r.collection.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindLatestGeneration locates the run that actually produced the draft for a
// tuple, so reuse rows can point back at it.
func (r *RunRepositoryImpl) FindLatestGeneration(ctx context.Context, projectID string, playbookID string, scopeID string, rulesHash string) (*PlaybookRun, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	var run PlaybookRun
	err = r.collection.FindOne(ctx, bson.M{
		"project_id":  objID,
		"playbook_id": playbookID,
		"scope_id":    scopeID,
		"rules_hash":  rulesHash,
		"run_type":    RunTypeDraftGenerate,
		"reused":      false,
	}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&run)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepositoryImpl) CountAiRunsSince(ctx context.Context, projectID string, since time.Time) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return 0, err
	}

	return r.collection.CountDocuments(ctx, bson.M{
		"project_id": objID,
		"ai_used":    true,
		"created_at": bson.M{"$gte": since},
	})
}

func (r *RunRepositoryImpl) Summary(ctx context.Context, projectID string) (*UsageSummary, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	total, err := r.collection.CountDocuments(ctx, bson.M{"project_id": objID})
	if err != nil {
		return nil, err
	}
	aiRuns, err := r.collection.CountDocuments(ctx, bson.M{"project_id": objID, "ai_used": true})
	if err != nil {
		return nil, err
	}
	applyAiRuns, err := r.collection.CountDocuments(ctx, bson.M{
		"project_id": objID,
		"run_type":   RunTypeApply,
		"ai_used":    true,
	})
	if err != nil {
		return nil, err
	}
	avoided, err := r.collection.CountDocuments(ctx, bson.M{"project_id": objID, "reused": true})
	if err != nil {
		return nil, err
	}

	return &UsageSummary{
		TotalRuns:   total,
		TotalAiRuns: aiRuns,
		ApplyAiRuns: applyAiRuns,
		RunsAvoided: avoided,
	}, nil
}

func (r *RunRepositoryImpl) ListByProject(ctx context.Context, projectID string, limit int64) ([]PlaybookRun, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"project_id": objID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []PlaybookRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}

	return runs, nil
}
