package playbook

import (
	"context"
	"fmt"
	"strings"

	common_models "go-deo/internal/common/models"

	"github.com/d5/tengo/v2"
)

// Recognized rule keys. Rules arrive as a free-form JSON object so the hash
// stays canonical; unknown keys are carried in the snapshot but ignored here.
const (
	ruleTitlePrefix      = "titlePrefix"
	ruleTitleSuffix      = "titleSuffix"
	ruleIncludeStoreName = "includeStoreName"
	ruleMaxLength        = "maxLength"
	ruleTransformScript  = "transformScript"
)

// applyRules post-processes a raw suggestion into the final one. Rule
// problems degrade to warnings on the draft item, never to generation
// failure.
func applyRules(ctx context.Context, raw string, item *common_models.CatalogItem, rules map[string]interface{}) (string, []string) {
	if rules == nil {
		return raw, nil
	}

	final := raw
	var warnings []string

	if prefix, ok := rules[ruleTitlePrefix].(string); ok && prefix != "" && final != "" {
		final = prefix + final
	}
	if suffix, ok := rules[ruleTitleSuffix].(string); ok && suffix != "" && final != "" {
		final = final + suffix
	}

	if script, ok := rules[ruleTransformScript].(string); ok && strings.TrimSpace(script) != "" {
		transformed, err := runTransformScript(ctx, script, final, item)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("transformScript: %v", err))
		} else {
			final = transformed
		}
	}

	if maxLen, ok := numericRule(rules[ruleMaxLength]); ok && maxLen > 0 {
		// Truncate on rune boundaries so a multibyte suggestion never ends
		// mid-character.
		if runes := []rune(final); len(runes) > maxLen {
			final = strings.TrimSpace(string(runes[:maxLen]))
			warnings = append(warnings, fmt.Sprintf("suggestion truncated to %d characters", maxLen))
		}
	}

	return final, warnings
}

// runTransformScript executes the user-supplied script against one
// suggestion. The script reads `suggestion`, `title` and `handle` and leaves
// its output in `result`.
func runTransformScript(ctx context.Context, source string, suggestion string, item *common_models.CatalogItem) (string, error) {
	script := tengo.NewScript([]byte(fmt.Sprintf("result := suggestion\n%s", source)))

	if err := script.Add("suggestion", suggestion); err != nil {
		return "", err
	}
	if err := script.Add("title", item.Title); err != nil {
		return "", err
	}
	if err := script.Add("handle", item.Handle); err != nil {
		return "", err
	}

	compiled, err := script.Compile()
	if err != nil {
		return "", fmt.Errorf("compile failed: %w", err)
	}

	if err := compiled.RunContext(ctx); err != nil {
		return "", fmt.Errorf("run failed: %w", err)
	}

	result := compiled.Get("result")
	if result == nil || result.IsUndefined() {
		return "", fmt.Errorf("script did not set result")
	}

	return result.String(), nil
}

func numericRule(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
