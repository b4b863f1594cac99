package governance

import (
	"context"
	"time"

	"go-deo/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PolicyRepository interface {
	GetByProject(ctx context.Context, projectID string) (*GovernancePolicy, error)
	Upsert(ctx context.Context, policy *GovernancePolicy) error
}

type PolicyRepositoryImpl struct {
	collection *mongo.Collection
}

func NewPolicyRepository(db *database.MongodbDB) PolicyRepository {
	return &PolicyRepositoryImpl{
		collection: db.DB.Collection("governance_policies"),
	}
}

func (r *PolicyRepositoryImpl) GetByProject(ctx context.Context, projectID string) (*GovernancePolicy, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	var policy GovernancePolicy
	if err := r.collection.FindOne(ctx, bson.M{"project_id": objID}).Decode(&policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *PolicyRepositoryImpl) Upsert(ctx context.Context, policy *GovernancePolicy) error {
	policy.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"project_id": policy.ProjectID}, bson.M{
		"$set": bson.M{
			"require_approval_for_apply":           policy.RequireApprovalForApply,
			"restrict_share_links":                 policy.RestrictShareLinks,
			"share_link_expiry_days":               policy.ShareLinkExpiryDays,
			"allowed_export_audience":              policy.AllowedExportAudience,
			"allow_competitor_mentions_in_exports": policy.AllowCompetitorMentionsInExports,
			"allow_pii_in_exports":                 policy.AllowPIIInExports,
			"updated_at":                           policy.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"project_id": policy.ProjectID,
			"created_at": time.Now(),
		},
	}, opts)
	return err
}

type ApprovalRepository interface {
	Create(ctx context.Context, approval *ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*ApprovalRequest, error)
	FindLatestByResource(ctx context.Context, projectID string, resourceType ResourceType, resourceID string) (*ApprovalRequest, error)
	UpdateDecision(ctx context.Context, id string, status ApprovalStatus, decidedBy string, reason string) error
	MarkConsumed(ctx context.Context, id string) error
	ListByProject(ctx context.Context, projectID string, cursor string, limit int64) ([]ApprovalRequest, error)
}

type ApprovalRepositoryImpl struct {
	collection *mongo.Collection
}

func NewApprovalRepository(db *database.MongodbDB) ApprovalRepository {
	return &ApprovalRepositoryImpl{
		collection: db.DB.Collection("approval_requests"),
	}
}

func (r *ApprovalRepositoryImpl) Create(ctx context.Context, approval *ApprovalRequest) error {
	if approval.ID.IsZero() {
		approval.ID = primitive.NewObjectID()
	}
	approval.Status = ApprovalPending
	approval.CreatedAt = time.Now()
	approval.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, approval)
	return err
}

func (r *ApprovalRepositoryImpl) GetByID(ctx context.Context, id string) (*ApprovalRequest, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var approval ApprovalRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&approval); err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *ApprovalRepositoryImpl) FindLatestByResource(ctx context.Context, projectID string, resourceType ResourceType, resourceID string) (*ApprovalRequest, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var approval ApprovalRequest
	err = r.collection.FindOne(ctx, bson.M{
		"project_id":    objID,
		"resource_type": resourceType,
		"resource_id":   resourceID,
	}, opts).Decode(&approval)
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *ApprovalRepositoryImpl) UpdateDecision(ctx context.Context, id string, status ApprovalStatus, decidedBy string, reason string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"status":             status,
			"decided_by_user_id": decidedBy,
			"decided_at":         now,
			"decision_reason":    reason,
			"updated_at":         now,
		},
	})
	return err
}

func (r *ApprovalRepositoryImpl) MarkConsumed(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{
		"_id":      objID,
		"consumed": false,
	}, bson.M{
		"$set": bson.M{"consumed": true, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *ApprovalRepositoryImpl) ListByProject(ctx context.Context, projectID string, cursor string, limit int64) ([]ApprovalRequest, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"project_id": objID}
	if cursor != "" {
		cursorID, err := primitive.ObjectIDFromHex(cursor)
		if err != nil {
			return nil, err
		}
		filter["_id"] = bson.M{"$lt": cursorID}
	}

	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "_id", Value: -1}})
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var approvals []ApprovalRequest
	if err := cur.All(ctx, &approvals); err != nil {
		return nil, err
	}
	return approvals, nil
}

type AuditRepository interface {
	Create(ctx context.Context, event *GovernanceAuditEvent) error
	ListByProject(ctx context.Context, projectID string, eventTypes []AuditEventType, cursor string, limit int64) ([]GovernanceAuditEvent, error)
}

type AuditRepositoryImpl struct {
	collection *mongo.Collection
}

func NewAuditRepository(db *database.MongodbDB) AuditRepository {
	return &AuditRepositoryImpl{
		collection: db.DB.Collection("governance_audit_events"),
	}
}

func (r *AuditRepositoryImpl) Create(ctx context.Context, event *GovernanceAuditEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	event.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *AuditRepositoryImpl) ListByProject(ctx context.Context, projectID string, eventTypes []AuditEventType, cursor string, limit int64) ([]GovernanceAuditEvent, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"project_id": objID,
		"event_type": bson.M{"$in": eventTypes},
	}
	if cursor != "" {
		cursorID, err := primitive.ObjectIDFromHex(cursor)
		if err != nil {
			return nil, err
		}
		filter["_id"] = bson.M{"$lt": cursorID}
	}

	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "_id", Value: -1}})
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []GovernanceAuditEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

type ShareLinkRepository interface {
	Create(ctx context.Context, link *ShareLink) error
	GetByID(ctx context.Context, id string) (*ShareLink, error)
	Revoke(ctx context.Context, id string) error
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
	ListByProject(ctx context.Context, projectID string, cursor string, limit int64) ([]ShareLink, error)
}

type ShareLinkRepositoryImpl struct {
	collection *mongo.Collection
}

func NewShareLinkRepository(db *database.MongodbDB) ShareLinkRepository {
	return &ShareLinkRepositoryImpl{
		collection: db.DB.Collection("share_links"),
	}
}

func (r *ShareLinkRepositoryImpl) Create(ctx context.Context, link *ShareLink) error {
	if link.ID.IsZero() {
		link.ID = primitive.NewObjectID()
	}
	link.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, link)
	return err
}

func (r *ShareLinkRepositoryImpl) GetByID(ctx context.Context, id string) (*ShareLink, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var link ShareLink
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *ShareLinkRepositoryImpl) Revoke(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{"revoked": true, "revoked_at": now},
	})
	return err
}

func (r *ShareLinkRepositoryImpl) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx, bson.M{
		"revoked":    false,
		"expires_at": bson.M{"$lt": now},
	}, bson.M{
		"$set": bson.M{"revoked": true, "revoked_at": now},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *ShareLinkRepositoryImpl) ListByProject(ctx context.Context, projectID string, cursor string, limit int64) ([]ShareLink, error) {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"project_id": objID}
	if cursor != "" {
		cursorID, err := primitive.ObjectIDFromHex(cursor)
		if err != nil {
			return nil, err
		}
		filter["_id"] = bson.M{"$lt": cursorID}
	}

	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "_id", Value: -1}})
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var links []ShareLink
	if err := cur.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}
