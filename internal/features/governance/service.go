package governance

import (
	"context"
	"fmt"
	"time"

	"go-deo/internal/common/apperr"
	common_models "go-deo/internal/common/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// PolicyUpdate is the writable subset of GovernancePolicy. AllowPIIInExports
// is deliberately absent: it is pinned false at this boundary.
type PolicyUpdate struct {
	RequireApprovalForApply          bool   `json:"requireApprovalForApply"`
	RestrictShareLinks               bool   `json:"restrictShareLinks"`
	ShareLinkExpiryDays              int    `json:"shareLinkExpiryDays"`
	AllowedExportAudience            string `json:"allowedExportAudience"`
	AllowCompetitorMentionsInExports bool   `json:"allowCompetitorMentionsInExports"`
}

type GovernanceService interface {
	GetPolicy(ctx context.Context, projectID string) (*GovernancePolicy, error)
	UpdatePolicy(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, update PolicyUpdate) (*GovernancePolicy, error)

	CreateApproval(ctx context.Context, projectID string, actorUserID string, resourceType ResourceType, resourceID string) (*ApprovalRequest, error)
	DecideApproval(ctx context.Context, projectID string, approvalID string, actorUserID string, actorRole common_models.ProjectRole, approve bool, reason string) (*ApprovalRequest, error)
	ListApprovals(ctx context.Context, projectID string, cursor string, limit int64) ([]ApprovalRequest, error)

	// Authorize gates an apply-class action: role check, policy check,
	// approval lookup and one-shot consumption.
	Authorize(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, resourceType ResourceType, resourceID string) error

	// RecordApplyExecuted writes the APPLY_EXECUTED audit event. Callers must
	// treat a returned error as failure of the apply operation itself.
	RecordApplyExecuted(ctx context.Context, projectID string, actorUserID string, resourceID string, metadata map[string]interface{}) error

	ListAuditEvents(ctx context.Context, projectID string, cursor string, limit int64) ([]GovernanceAuditEvent, error)
	ExportAuditEvents(ctx context.Context, projectID string) (*excelize.File, error)

	CreateShareLink(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, audience string) (*ShareLink, error)
	RevokeShareLink(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, linkID string) error
	ListShareLinks(ctx context.Context, projectID string, cursor string, limit int64) ([]ShareLink, error)
	ExpireShareLinks(ctx context.Context) (int64, error)
}

type GovernanceServiceImpl struct {
	PolicyRepo    PolicyRepository
	ApprovalRepo  ApprovalRepository
	AuditRepo     AuditRepository
	ShareLinkRepo ShareLinkRepository
	Logger        *zap.Logger
}

func NewGovernanceService(
	policyRepo PolicyRepository,
	approvalRepo ApprovalRepository,
	auditRepo AuditRepository,
	shareLinkRepo ShareLinkRepository,
	logger *zap.Logger,
) GovernanceService {
	return &GovernanceServiceImpl{
		PolicyRepo:    policyRepo,
		ApprovalRepo:  approvalRepo,
		AuditRepo:     auditRepo,
		ShareLinkRepo: shareLinkRepo,
		Logger:        logger,
	}
}

func (s *GovernanceServiceImpl) GetPolicy(ctx context.Context, projectID string) (*GovernancePolicy, error) {
	policy, err := s.PolicyRepo.GetByProject(ctx, projectID)
	if err == mongo.ErrNoDocuments {
		objID, convErr := primitive.ObjectIDFromHex(projectID)
		if convErr != nil {
			return nil, convErr
		}
		return DefaultPolicy(objID), nil
	}
	if err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *GovernanceServiceImpl) UpdatePolicy(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, update PolicyUpdate) (*GovernancePolicy, error) {
	if actorRole != common_models.RoleOwner {
		return nil, apperr.Forbidden("Only the project owner can change governance policy")
	}

	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	if update.ShareLinkExpiryDays <= 0 {
		update.ShareLinkExpiryDays = 7
	}
	if update.AllowedExportAudience == "" {
		update.AllowedExportAudience = "internal"
	}

	policy := &GovernancePolicy{
		ProjectID:                        objID,
		RequireApprovalForApply:          update.RequireApprovalForApply,
		RestrictShareLinks:               update.RestrictShareLinks,
		ShareLinkExpiryDays:              update.ShareLinkExpiryDays,
		AllowedExportAudience:            update.AllowedExportAudience,
		AllowCompetitorMentionsInExports: update.AllowCompetitorMentionsInExports,
		AllowPIIInExports:                false,
	}

	if err := s.PolicyRepo.Upsert(ctx, policy); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, objID, actorUserID, AuditPolicyChanged, "", "", map[string]interface{}{
		"requireApprovalForApply": policy.RequireApprovalForApply,
		"restrictShareLinks":      policy.RestrictShareLinks,
	}); err != nil {
		return nil, err
	}

	return policy, nil
}

func (s *GovernanceServiceImpl) CreateApproval(ctx context.Context, projectID string, actorUserID string, resourceType ResourceType, resourceID string) (*ApprovalRequest, error) {
	if !resourceType.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid resourceType %q", resourceType))
	}
	if resourceID == "" {
		return nil, apperr.Validation("resourceId is required")
	}

	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	approval := &ApprovalRequest{
		ProjectID:         objID,
		ResourceType:      resourceType,
		ResourceID:        resourceID,
		RequestedByUserID: actorUserID,
	}

	if err := s.ApprovalRepo.Create(ctx, approval); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, objID, actorUserID, AuditApprovalRequested, resourceType, resourceID, nil); err != nil {
		return nil, err
	}

	return approval, nil
}

func (s *GovernanceServiceImpl) DecideApproval(ctx context.Context, projectID string, approvalID string, actorUserID string, actorRole common_models.ProjectRole, approve bool, reason string) (*ApprovalRequest, error) {
	if actorRole != common_models.RoleOwner {
		return nil, apperr.Forbidden("Only the project owner can decide approval requests")
	}

	approval, err := s.ApprovalRepo.GetByID(ctx, approvalID)
	if err != nil {
		return nil, apperr.NotFound("Approval request not found")
	}
	if approval.ProjectID.Hex() != projectID {
		return nil, apperr.NotFound("Approval request not found")
	}
	if approval.Status != ApprovalPending {
		return nil, apperr.Validation("approval request has already been decided")
	}

	status := ApprovalApproved
	eventType := AuditApprovalApproved
	if !approve {
		status = ApprovalRejected
		eventType = AuditApprovalRejected
	}

	if err := s.ApprovalRepo.UpdateDecision(ctx, approvalID, status, actorUserID, reason); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, approval.ProjectID, actorUserID, eventType, approval.ResourceType, approval.ResourceID, map[string]interface{}{
		"reason": reason,
	}); err != nil {
		return nil, err
	}

	return s.ApprovalRepo.GetByID(ctx, approvalID)
}

func (s *GovernanceServiceImpl) ListApprovals(ctx context.Context, projectID string, cursor string, limit int64) ([]ApprovalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.ApprovalRepo.ListByProject(ctx, projectID, cursor, limit)
}

func (s *GovernanceServiceImpl) Authorize(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, resourceType ResourceType, resourceID string) error {
	if actorRole == common_models.RoleViewer {
		return apperr.Forbidden("Viewer role cannot perform this action")
	}

	policy, err := s.GetPolicy(ctx, projectID)
	if err != nil {
		return err
	}
	if !policy.RequireApprovalForApply {
		return nil
	}

	approvalRequired := func(status string) error {
		return apperr.New(fiber.StatusForbidden, apperr.CodeApprovalRequired, "Approval is required before this action can run").
			WithMeta("resourceType", resourceType).
			WithMeta("resourceId", resourceID).
			WithMeta("approvalStatus", status)
	}

	approval, err := s.ApprovalRepo.FindLatestByResource(ctx, projectID, resourceType, resourceID)
	if err == mongo.ErrNoDocuments {
		return approvalRequired("none")
	}
	if err != nil {
		return err
	}

	switch approval.Status {
	case ApprovalPending:
		return approvalRequired("pending")
	case ApprovalRejected:
		return approvalRequired("rejected")
	}

	if approval.Consumed {
		// A spent approval never authorizes a second run.
		return approvalRequired("none")
	}

	if err := s.ApprovalRepo.MarkConsumed(ctx, approval.ID.Hex()); err != nil {
		if err == mongo.ErrNoDocuments {
			// Lost the consume race to a concurrent apply.
			return approvalRequired("none")
		}
		return err
	}

	return nil
}

func (s *GovernanceServiceImpl) RecordApplyExecuted(ctx context.Context, projectID string, actorUserID string, resourceID string, metadata map[string]interface{}) error {
	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return err
	}
	return s.audit(ctx, objID, actorUserID, AuditApplyExecuted, ResourceAutomationPlaybookApply, resourceID, metadata)
}

func (s *GovernanceServiceImpl) ListAuditEvents(ctx context.Context, projectID string, cursor string, limit int64) ([]GovernanceAuditEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	// Read-side allowlist: anything else in storage stays invisible.
	return s.AuditRepo.ListByProject(ctx, projectID, ReadableAuditEventTypes, cursor, limit)
}

func (s *GovernanceServiceImpl) CreateShareLink(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, audience string) (*ShareLink, error) {
	policy, err := s.GetPolicy(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if actorRole == common_models.RoleViewer {
		return nil, apperr.Forbidden("Viewer role cannot create share links")
	}
	if policy.RestrictShareLinks && actorRole != common_models.RoleOwner {
		return nil, apperr.Forbidden("Share links are restricted to the project owner")
	}

	if audience == "" {
		audience = policy.AllowedExportAudience
	}
	if audience != policy.AllowedExportAudience {
		return nil, apperr.Validation(fmt.Sprintf("audience %q is not allowed by policy (allowed: %q)", audience, policy.AllowedExportAudience))
	}

	objID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, err
	}

	link := &ShareLink{
		ProjectID:       objID,
		Token:           uuid.NewString(),
		Audience:        audience,
		CreatedByUserID: actorUserID,
		ExpiresAt:       time.Now().AddDate(0, 0, policy.ShareLinkExpiryDays),
	}

	if err := s.ShareLinkRepo.Create(ctx, link); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, objID, actorUserID, AuditShareLinkCreated, "", link.ID.Hex(), map[string]interface{}{
		"audience":  audience,
		"expiresAt": link.ExpiresAt,
	}); err != nil {
		return nil, err
	}

	return link, nil
}

func (s *GovernanceServiceImpl) RevokeShareLink(ctx context.Context, projectID string, actorUserID string, actorRole common_models.ProjectRole, linkID string) error {
	if actorRole == common_models.RoleViewer {
		return apperr.Forbidden("Viewer role cannot revoke share links")
	}

	link, err := s.ShareLinkRepo.GetByID(ctx, linkID)
	if err != nil {
		return apperr.NotFound("Share link not found")
	}
	if link.ProjectID.Hex() != projectID {
		return apperr.NotFound("Share link not found")
	}

	if err := s.ShareLinkRepo.Revoke(ctx, linkID); err != nil {
		return err
	}

	return s.audit(ctx, link.ProjectID, actorUserID, AuditShareLinkRevoked, "", linkID, nil)
}

func (s *GovernanceServiceImpl) ListShareLinks(ctx context.Context, projectID string, cursor string, limit int64) ([]ShareLink, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.ShareLinkRepo.ListByProject(ctx, projectID, cursor, limit)
}

// ExpireShareLinks is run by the scheduler; expired links flip to revoked so
// viewer listings and public resolution agree.
func (s *GovernanceServiceImpl) ExpireShareLinks(ctx context.Context) (int64, error) {
	count, err := s.ShareLinkRepo.RevokeExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.Logger.Info("expired share links revoked", zap.Int64("count", count))
	}
	return count, nil
}

// audit persists one governance audit event. Errors propagate: the wrapped
// operation must not report success without its audit trail.
func (s *GovernanceServiceImpl) audit(ctx context.Context, projectID primitive.ObjectID, actorUserID string, eventType AuditEventType, resourceType ResourceType, resourceID string, metadata map[string]interface{}) error {
	event := &GovernanceAuditEvent{
		ProjectID:    projectID,
		ActorUserID:  actorUserID,
		EventType:    eventType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
	}

	if err := s.AuditRepo.Create(ctx, event); err != nil {
		s.Logger.Error("governance audit write failed",
			zap.String("eventType", string(eventType)),
			zap.Error(err),
		)
		return fmt.Errorf("audit write failed: %w", err)
	}

	return nil
}
