package util

import (
	"fmt"
	"strings"
)

// QueryFilter is one equality condition from the query parameter.
type QueryFilter struct {
	Field string
	Value string
}

// ParseQueryString parses a query string into filter conditions.
// Supports formats:
//   - field|value
//   - field|eq|value
//
// Multiple conditions are comma-separated.
func ParseQueryString(queryStr string) ([]QueryFilter, error) {
	if queryStr == "" {
		return nil, nil
	}

	var filters []QueryFilter
	for _, pair := range strings.Split(queryStr, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.Split(pair, "|")
		switch {
		case len(parts) == 2:
			filters = append(filters, QueryFilter{Field: parts[0], Value: parts[1]})
		case len(parts) == 3 && strings.EqualFold(parts[1], "eq"):
			filters = append(filters, QueryFilter{Field: parts[0], Value: parts[2]})
		case len(parts) == 3:
			return nil, fmt.Errorf("invalid operator: %s", strings.ToLower(parts[1]))
		default:
			return nil, fmt.Errorf("invalid query format: %s (expected field|value or field|eq|value)", pair)
		}
	}

	return filters, nil
}

// ValidateFilterFields validates that all filter fields are in the allowed set
func ValidateFilterFields(filters []QueryFilter, allowedFields []string) error {
	allowed := make(map[string]bool)
	for _, f := range allowedFields {
		allowed[f] = true
	}

	for _, filter := range filters {
		if !allowed[filter.Field] {
			return fmt.Errorf("invalid query field: %s (valid fields: %s)", filter.Field, strings.Join(allowedFields, ", "))
		}
	}

	return nil
}
