package governance

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResourceType is the closed tag shared by the approval and audit pipelines.
type ResourceType string

const (
	ResourceAutomationPlaybookApply ResourceType = "AUTOMATION_PLAYBOOK_APPLY"
	ResourceGeoFixApply             ResourceType = "GEO_FIX_APPLY"
	ResourceAnswerBlockSync         ResourceType = "ANSWER_BLOCK_SYNC"
)

func (r ResourceType) Valid() bool {
	switch r {
	case ResourceAutomationPlaybookApply, ResourceGeoFixApply, ResourceAnswerBlockSync:
		return true
	}
	return false
}

// GovernancePolicy is per-project configuration for mutating actions.
// AllowPIIInExports is pinned false at the write boundary and cannot be set
// true by any caller.
type GovernancePolicy struct {
	ID                               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID                        primitive.ObjectID `bson:"project_id" json:"projectId"`
	RequireApprovalForApply          bool               `bson:"require_approval_for_apply" json:"requireApprovalForApply"`
	RestrictShareLinks               bool               `bson:"restrict_share_links" json:"restrictShareLinks"`
	ShareLinkExpiryDays              int                `bson:"share_link_expiry_days" json:"shareLinkExpiryDays"`
	AllowedExportAudience            string             `bson:"allowed_export_audience" json:"allowedExportAudience"`
	AllowCompetitorMentionsInExports bool               `bson:"allow_competitor_mentions_in_exports" json:"allowCompetitorMentionsInExports"`
	AllowPIIInExports                bool               `bson:"allow_pii_in_exports" json:"allowPIIInExports"`
	CreatedAt                        time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt                        time.Time          `bson:"updated_at" json:"updatedAt"`
}

// DefaultPolicy is what a project gets before anyone touches governance.
func DefaultPolicy(projectID primitive.ObjectID) *GovernancePolicy {
	return &GovernancePolicy{
		ProjectID:             projectID,
		ShareLinkExpiryDays:   7,
		AllowedExportAudience: "internal",
	}
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING_APPROVAL"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ApprovalRequest authorizes at most one execution of the gated action it
// targets; once consumed it cannot authorize a second one.
type ApprovalRequest struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID         primitive.ObjectID `bson:"project_id" json:"projectId"`
	ResourceType      ResourceType       `bson:"resource_type" json:"resourceType"`
	ResourceID        string             `bson:"resource_id" json:"resourceId"`
	Status            ApprovalStatus     `bson:"status" json:"status"`
	RequestedByUserID string             `bson:"requested_by_user_id" json:"requestedByUserId"`
	DecidedByUserID   string             `bson:"decided_by_user_id,omitempty" json:"decidedByUserId,omitempty"`
	DecidedAt         *time.Time         `bson:"decided_at,omitempty" json:"decidedAt,omitempty"`
	DecisionReason    string             `bson:"decision_reason,omitempty" json:"decisionReason,omitempty"`
	Consumed          bool               `bson:"consumed" json:"consumed"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}

type AuditEventType string

const (
	AuditPolicyChanged     AuditEventType = "POLICY_CHANGED"
	AuditApprovalRequested AuditEventType = "APPROVAL_REQUESTED"
	AuditApprovalApproved  AuditEventType = "APPROVAL_APPROVED"
	AuditApprovalRejected  AuditEventType = "APPROVAL_REJECTED"
	AuditApplyExecuted     AuditEventType = "APPLY_EXECUTED"
	AuditShareLinkCreated  AuditEventType = "SHARE_LINK_CREATED"
	AuditShareLinkRevoked  AuditEventType = "SHARE_LINK_REVOKED"
)

// ReadableAuditEventTypes is the read-side allowlist. Viewer endpoints filter
// to these regardless of what exists in storage.
var ReadableAuditEventTypes = []AuditEventType{
	AuditPolicyChanged,
	AuditApprovalRequested,
	AuditApprovalApproved,
	AuditApprovalRejected,
	AuditApplyExecuted,
	AuditShareLinkCreated,
	AuditShareLinkRevoked,
}

// GovernanceAuditEvent is append-only. Writing it is part of the gated
// operation itself, not best-effort telemetry.
type GovernanceAuditEvent struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	ProjectID    primitive.ObjectID     `bson:"project_id" json:"projectId"`
	ActorUserID  string                 `bson:"actor_user_id" json:"actorUserId"`
	EventType    AuditEventType         `bson:"event_type" json:"eventType"`
	ResourceType ResourceType           `bson:"resource_type,omitempty" json:"resourceType,omitempty"`
	ResourceID   string                 `bson:"resource_id,omitempty" json:"resourceId,omitempty"`
	Metadata     map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt    time.Time              `bson:"created_at" json:"createdAt"`
}

// ShareLink is a revocable read-only link to project reports; expiry follows
// the policy's ShareLinkExpiryDays at creation time.
type ShareLink struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID       primitive.ObjectID `bson:"project_id" json:"projectId"`
	Token           string             `bson:"token" json:"token"`
	Audience        string             `bson:"audience" json:"audience"`
	CreatedByUserID string             `bson:"created_by_user_id" json:"createdByUserId"`
	ExpiresAt       time.Time          `bson:"expires_at" json:"expiresAt"`
	Revoked         bool               `bson:"revoked" json:"revoked"`
	RevokedAt       *time.Time         `bson:"revoked_at,omitempty" json:"revokedAt,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
}
