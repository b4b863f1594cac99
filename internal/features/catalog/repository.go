package catalog

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

type CatalogRepository interface {
	ListByAssetType(ctx context.Context, projectID string, assetType common_models.AssetType) ([]common_models.CatalogItem, error)
	GetByExternalID(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string) (*common_models.CatalogItem, error)
	UpsertItems(ctx context.Context, projectID string, items []common_models.CatalogItem) error
	SetSeoField(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string, field string, value string) error
}

type CatalogRepositoryImpl struct {
	collection *mongo.Collection
}

func NewCatalogRepository(db *database.MongodbDB) CatalogRepository {
	return &CatalogRepositoryImpl{
		collection: db.DB.Collection("catalog_items"),
	}
}

// ListByAssetType returns items in stable position order so affect-set
// evaluation and apply walk the catalog identically across calls.
func (r *CatalogRepositoryImpl) ListByAssetType(ctx context.Context, projectID string, assetType common_models.AssetType) ([]common_models.CatalogItem, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "position", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{
		"project_id": objID,
		"asset_type": assetType,
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []common_models.CatalogItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *CatalogRepositoryImpl) GetByExternalID(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string) (*common_models.CatalogItem, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	var item common_models.CatalogItem
	err = r.collection.FindOne(ctx, bson.M{
		"project_id":  objID,
		"asset_type":  assetType,
		"external_id": externalID,
	}).Decode(&item)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *CatalogRepositoryImpl) UpsertItems(ctx context.Context, projectID string, items []common_models.CatalogItem) error {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return err
	}

	for i := range items {
		item := &items[i]
		item.ProjectID = objID
		item.UpdatedAt = time.Now()

		filter := bson.M{
			"project_id":  objID,
			"asset_type":  item.AssetType,
			"external_id": item.ExternalID,
		}

		update := bson.M{
			"$set": bson.M{
				"handle":     item.Handle,
				"title":      item.Title,
				"position":   item.Position,
				"updated_at": item.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"project_id":  objID,
				"asset_type":  item.AssetType,
				"external_id": item.ExternalID,
				"created_at":  time.Now(),
			},
		}

		// SEO fields only touched when the sync payload carries them;
		// a sync must never blank out fields an apply just wrote.
		set := update["$set"].(bson.M)
		if item.SeoTitle != nil {
			set["seo_title"] = *item.SeoTitle
		}
		if item.SeoDescription != nil {
			set["seo_description"] = *item.SeoDescription
		}

		opts := options.Update().SetUpsert(true)
		if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
			return err
		}
	}

	return nil
}

func (r *CatalogRepositoryImpl) SetSeoField(ctx context.Context, projectID string, assetType common_models.AssetType, externalID string, field string, value string) error {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{
		"project_id":  objID,
		"asset_type":  assetType,
		"external_id": externalID,
	}, bson.M{
		"$set": bson.M{
			field:        value,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}
