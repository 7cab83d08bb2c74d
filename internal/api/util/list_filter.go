package util

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPerPage = 25
	MaxPerPage     = 500
)

// ListFilter contains common filtering/pagination options for list endpoints
type ListFilter struct {
	// Filters parsed from query parameter
	Filters []QueryFilter
	// Pagination
	Page    int
	PerPage int
}

// ParseListFilter reads page, per_page and query from the request.
// Filter fields outside allowedFields are rejected.
func ParseListFilter(c *gin.Context, allowedFields []string) (ListFilter, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return ListFilter{}, errors.New("page must be a positive integer")
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(DefaultPerPage)))
	if err != nil || perPage < 1 || perPage > MaxPerPage {
		return ListFilter{}, errors.New("per_page must be between 1 and 500")
	}

	filters, err := ParseQueryString(c.Query("query"))
	if err != nil {
		return ListFilter{}, err
	}
	if err := ValidateFilterFields(filters, allowedFields); err != nil {
		return ListFilter{}, err
	}

	return ListFilter{Filters: filters, Page: page, PerPage: perPage}, nil
}

// Value returns the value of the last filter on field.
func (f ListFilter) Value(field string) (string, bool) {
	for i := len(f.Filters) - 1; i >= 0; i-- {
		if f.Filters[i].Field == field {
			return f.Filters[i].Value, true
		}
	}
	return "", false
}
