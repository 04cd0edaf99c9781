package util

import (
	"fmt"
	"strings"
)

// QueryOperator represents a filter operator
type QueryOperator string

const (
	OpEq        QueryOperator = "eq"
	OpNe        QueryOperator = "ne"
	OpGt        QueryOperator = "gt"
	OpGte       QueryOperator = "gte"
	OpLt        QueryOperator = "lt"
	OpLte       QueryOperator = "lte"
	OpIn        QueryOperator = "in"
	OpNin       QueryOperator = "nin"
	OpIsNull    QueryOperator = "isnull"
	OpIsNotNull QueryOperator = "isnotnull"
)

// QueryFilter represents a single filter condition
type QueryFilter struct {
	Field    string
	Operator QueryOperator
	Value    interface{} // string or []string for in/nin
}

// OrderDirection represents sort direction
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// OrderClause represents a single order by clause
type OrderClause struct {
	Field     string
	Direction OrderDirection
}

// ListFilter contains filtering, ordering and pagination options shared
// by all list endpoints.
type ListFilter struct {
	Filters []QueryFilter
	Order   []OrderClause
	Page    int
	PerPage int
}

var validOperators = map[string]QueryOperator{
	"eq":        OpEq,
	"ne":        OpNe,
	"gt":        OpGt,
	"gte":       OpGte,
	"lt":        OpLt,
	"lte":       OpLte,
	"in":        OpIn,
	"nin":       OpNin,
	"isnull":    OpIsNull,
	"isnotnull": OpIsNotNull,
}

// ParseQueryString parses the `query` parameter into filter conditions.
// Each comma-separated term is one of:
//   - field|value (equality)
//   - field|isnull or field|isnotnull (null checks)
//   - field|operator|value (explicit operator)
func ParseQueryString(queryStr string) ([]QueryFilter, error) {
	if queryStr == "" {
		return nil, nil
	}

	var filters []QueryFilter
	for _, term := range strings.Split(queryStr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		filter, err := parseFilterTerm(term)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

func parseFilterTerm(term string) (QueryFilter, error) {
	parts := strings.Split(term, "|")

	switch len(parts) {
	case 2:
		// The two-part form is either a null check or shorthand
		// equality.
		op := strings.ToLower(parts[1])
		if op == "isnull" || op == "isnotnull" {
			return QueryFilter{Field: parts[0], Operator: QueryOperator(op)}, nil
		}
		return QueryFilter{Field: parts[0], Operator: OpEq, Value: parts[1]}, nil

	case 3:
		op, ok := validOperators[strings.ToLower(parts[1])]
		if !ok {
			return QueryFilter{}, fmt.Errorf("invalid operator: %s", parts[1])
		}
		var value interface{} = parts[2]
		if op == OpIn || op == OpNin {
			value = strings.Split(parts[2], ",")
		}
		return QueryFilter{Field: parts[0], Operator: op, Value: value}, nil

	default:
		return QueryFilter{}, fmt.Errorf("invalid query format: %s (expected field|value or field|operator|value)", term)
	}
}

// ParseOrderString parses the `order` parameter into order clauses.
// Format: comma-separated field|direction terms, direction asc or desc.
func ParseOrderString(orderStr string) ([]OrderClause, error) {
	if orderStr == "" {
		return nil, nil
	}

	var orders []OrderClause
	for _, term := range strings.Split(orderStr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}

		parts := strings.Split(term, "|")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid order format: %s (expected field|direction)", term)
		}

		direction := OrderDirection(strings.ToLower(parts[1]))
		if direction != OrderAsc && direction != OrderDesc {
			return nil, fmt.Errorf("invalid order direction: %s (expected asc or desc)", parts[1])
		}

		orders = append(orders, OrderClause{Field: parts[0], Direction: direction})
	}
	return orders, nil
}

// ValidateFilterFields rejects filters on fields outside the allowed set.
func ValidateFilterFields(filters []QueryFilter, allowedFields []string) error {
	for _, filter := range filters {
		if !fieldAllowed(filter.Field, allowedFields) {
			return fmt.Errorf("invalid query field: %s (valid fields: %s)", filter.Field, strings.Join(allowedFields, ", "))
		}
	}
	return nil
}

// ValidateOrderFields rejects ordering on fields outside the allowed set.
func ValidateOrderFields(orders []OrderClause, allowedFields []string) error {
	for _, order := range orders {
		if !fieldAllowed(order.Field, allowedFields) {
			return fmt.Errorf("invalid order field: %s (valid fields: %s)", order.Field, strings.Join(allowedFields, ", "))
		}
	}
	return nil
}

func fieldAllowed(field string, allowed []string) bool {
	for _, f := range allowed {
		if f == field {
			return true
		}
	}
	return false
}
