package mcda

import "octivary-engine/internal/config"

// extractTokens converts an item's value for one filter section into
// "section:value" tokens, dispatching on the filter type. A spec without a
// path contributes nothing; such sections rely on haystack matching.
func extractTokens(item Record, sectionKey string, spec *config.FilterSpec) []string {
	if spec == nil || spec.Path == "" {
		return nil
	}
	value := resolvePath(item, spec.Path)

	switch spec.Type {
	case "categorical", "checkboxes", "select", "scalar":
		return valueTokens(sectionKey, value)
	case "boolean":
		if value == nil {
			return nil
		}
		if truthy(value) {
			return []string{sectionKey + ":true"}
		}
		return []string{sectionKey + ":false"}
	}

	// unrecognized types fall back to categorical behavior
	return valueTokens(sectionKey, value)
}

func valueTokens(sectionKey string, value any) []string {
	if list, isList := value.([]any); isList {
		var tokens []string
		for _, entry := range list {
			if normalized := normalize(entry); normalized != "" {
				tokens = append(tokens, sectionKey+":"+normalized)
			}
		}
		return tokens
	}
	if normalized := normalize(value); normalized != "" {
		return []string{sectionKey + ":" + normalized}
	}
	return nil
}
