package ranking

import "github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"

type Operator string

const (
	OpEq      Operator = "="
	OpGt      Operator = ">"
	OpGte     Operator = ">="
	OpLt      Operator = "<"
	OpLte     Operator = "<="
	OpNotNull Operator = "IS_NOT_NULL"
	OpIsNull  Operator = "IS_NULL"
)

// Filter is one predicate from the configuration table. Value is ignored by
// the null operators.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// ApplyFilter adds f to q. Field names are not checked here; they come from
// the static table and the reader validates them against its allow-list.
// An unknown operator leaves q unchanged.
func ApplyFilter(q *store.Query, f Filter) *store.Query {
	switch f.Op {
	case OpEq:
		return q.Eq(f.Field, f.Value)
	case OpGt:
		return q.Gt(f.Field, f.Value)
	case OpGte:
		return q.Gte(f.Field, f.Value)
	case OpLt:
		return q.Lt(f.Field, f.Value)
	case OpLte:
		return q.Lte(f.Field, f.Value)
	case OpNotNull:
		return q.NotNull(f.Field)
	case OpIsNull:
		return q.IsNull(f.Field)
	}
	return q
}

// ApplyFilters ANDs every filter onto q, left to right.
func ApplyFilters(q *store.Query, filters []Filter) *store.Query {
	for _, f := range filters {
		q = ApplyFilter(q, f)
	}
	return q
}
