package project

import (
	"context"
	"time"

	common_models "go-deo/internal/common/models"
	"go-deo/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *common_models.Project) error
	GetByID(ctx context.Context, id string) (*common_models.Project, error)
	FindByMember(ctx context.Context, userID string) ([]common_models.Project, error)
	AddMember(ctx context.Context, projectID string, member common_models.ProjectMember) error
	UpdatePlan(ctx context.Context, projectID string, plan string) error
}

type ProjectRepositoryImpl struct {
	collection *mongo.Collection
}

func NewProjectRepository(db *database.MongodbDB) ProjectRepository {
	return &ProjectRepositoryImpl{
		collection: db.DB.Collection("projects"),
	}
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, project *common_models.Project) error {
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, project)
	return err
}

func (r *ProjectRepositoryImpl) GetByID(ctx context.Context, id string) (*common_models.Project, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var project common_models.Project
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&project); err != nil {
		return nil, err
	}

	return &project, nil
}

func (r *ProjectRepositoryImpl) FindByMember(ctx context.Context, userID string) ([]common_models.Project, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"members.user_id": objID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var projects []common_models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}

	return projects, nil
}

func (r *ProjectRepositoryImpl) AddMember(ctx context.Context, projectID string, member common_models.ProjectMember) error {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return err
	}

	update := bson.M{
		"$push": bson.M{"members": member},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}

func (r *ProjectRepositoryImpl) UpdatePlan(ctx context.Context, projectID string, plan string) error {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{"plan": plan, "updated_at": time.Now()},
	})
	return err
}
