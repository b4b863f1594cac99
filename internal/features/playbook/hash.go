package playbook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	common_models "go-deo/internal/common/models"
)

// RulesHashNone is the fixed sentinel for nil/absent rules. It can never
// collide with a real hash (real hashes are 64 hex chars).
const RulesHashNone = "none"

// HashRules canonicalizes and hashes a rules object. Pure function; two
// semantically identical rule objects hash identically regardless of key
// order (json.Marshal emits map keys sorted).
func HashRules(rules map[string]interface{}) string {
	if rules == nil {
		return RulesHashNone
	}

	encoded, err := json.Marshal(rules)
	if err != nil {
		// Maps of JSON-decoded values cannot fail to marshal; guard anyway.
		return RulesHashNone
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// ComputeScopeID fingerprints the exact target set of a run. Membership is
// order-independent (ids are sorted before hashing) and the asset type is
// part of the digest, so identical item sets under different asset types
// still produce distinct scope ids.
func ComputeScopeID(projectID string, playbookID string, assetType common_models.AssetType, itemIDs []string) string {
	sorted := make([]string, len(itemIDs))
	copy(sorted, itemIDs)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(projectID)
	b.WriteByte('|')
	b.WriteString(playbookID)
	b.WriteByte('|')
	b.WriteString(string(assetType))
	for _, id := range sorted {
		b.WriteByte('|')
		b.WriteString(id)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
