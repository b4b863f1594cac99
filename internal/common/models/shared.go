package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	ProjectIDKey ContextKey = "project_id"
)

// AssetType identifies which catalog surface a playbook targets.
type AssetType string

const (
	AssetTypeProducts    AssetType = "PRODUCTS"
	AssetTypePages       AssetType = "PAGES"
	AssetTypeCollections AssetType = "COLLECTIONS"
)

func (a AssetType) Valid() bool {
	switch a {
	case AssetTypeProducts, AssetTypePages, AssetTypeCollections:
		return true
	}
	return false
}

// RefPrefix is the explicit-ref prefix expected for this asset type
// (e.g. "product_id:" refs are only valid for PRODUCTS scopes).
func (a AssetType) RefPrefix() string {
	switch a {
	case AssetTypeProducts:
		return "product_id:"
	case AssetTypePages:
		return "page_handle:"
	case AssetTypeCollections:
		return "collection_handle:"
	}
	return ""
}

// ProjectRole is the caller's role within one project.
type ProjectRole string

const (
	RoleOwner  ProjectRole = "OWNER"
	RoleEditor ProjectRole = "EDITOR"
	RoleViewer ProjectRole = "VIEWER"
)

// Plan identifiers as consumed from the billing system.
const (
	PlanFree   = "free"
	PlanPro    = "pro"
	PlanGrowth = "growth"
)

type ProjectMember struct {
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role   ProjectRole        `bson:"role" json:"role"`
}

// Project is one connected storefront under analysis.
type Project struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Domain    string             `bson:"domain" json:"domain"`
	Plan      string             `bson:"plan" json:"plan"`
	Members   []ProjectMember    `bson:"members" json:"members"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func (p *Project) RoleOf(userID string) (ProjectRole, bool) {
	for _, m := range p.Members {
		if m.UserID.Hex() == userID {
			return m.Role, true
		}
	}
	return "", false
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// CatalogItem is the synced snapshot of one storefront entity (product, page
// or collection). SEO fields are pointers: nil means the merchant never set
// the field, which is distinct from an empty string only at the sync layer —
// both count as "missing" for playbook purposes.
type CatalogItem struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID      primitive.ObjectID `bson:"project_id" json:"project_id"`
	AssetType      AssetType          `bson:"asset_type" json:"asset_type"`
	ExternalID     string             `bson:"external_id" json:"external_id"`
	Handle         string             `bson:"handle" json:"handle"`
	Title          string             `bson:"title" json:"title"`
	SeoTitle       *string            `bson:"seo_title,omitempty" json:"seo_title,omitempty"`
	SeoDescription *string            `bson:"seo_description,omitempty" json:"seo_description,omitempty"`
	Position       int                `bson:"position" json:"position"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// Log is the row shape the async zap sink writes to the logs collection.
type Log struct {
	Message      string    `bson:"message"`
	Caller       string    `bson:"caller,omitempty"`
	IpAddress    string    `bson:"ip_address,omitempty"`
	ProjectID    string    `bson:"project_id,omitempty"`
	LogLevelId   int       `bson:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc"`
}
