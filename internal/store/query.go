// Package store describes the read contract the ranking engine consumes from
// its persistence collaborator: a small query builder over four tables and a
// Reader that executes it. Implementations live in store/postgres and
// store/memory.
package store

import (
	"fmt"
	"slices"
)

type Table string

const (
	TablePlaces    Table = "places"
	TableReviews   Table = "reviews"
	TableWatchlist Table = "user_mylist"
	TableSnapshots Table = "place_stats_history"
)

// PlaceColumns is the only projection ever requested from the places table.
var PlaceColumns = []string{
	"place_id",
	"name",
	"creator_name",
	"thumbnail_url",
	"visit_count",
	"favorite_count",
	"playing",
	"genre",
	"first_released_at",
	"last_updated_at",
	"like_count",
	"dislike_count",
	"like_ratio",
}

var allowedColumns = map[Table][]string{
	TablePlaces:    PlaceColumns,
	TableReviews:   {"place_id", "rating"},
	TableWatchlist: {"place_id"},
	TableSnapshots: {"place_id", "visit_count", "recorded_at"},
}

// Columns returns the allow-listed projection for t.
func Columns(t Table) []string {
	return slices.Clone(allowedColumns[t])
}

type Op string

const (
	OpEq      Op = "="
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpNotNull Op = "IS NOT NULL"
	OpIsNull  Op = "IS NULL"
	OpIn      Op = "IN"
)

// Condition is one predicate. Value is unused for the null operators and is
// an []int64 for OpIn.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Query is built fluently and executed by a Reader. Conditions are ANDed.
// Count == 0 means no row limit.
type Query struct {
	Table      Table
	Projection []string
	Conditions []Condition
	OrderBy    string
	Ascending  bool
	Offset     int
	Count      int
}

// From starts a query over t projecting its full allow-listed column set.
func From(t Table) *Query {
	return &Query{Table: t, Projection: Columns(t)}
}

func (q *Query) Select(columns ...string) *Query {
	q.Projection = columns
	return q
}

func (q *Query) where(field string, op Op, value any) *Query {
	q.Conditions = append(q.Conditions, Condition{Field: field, Op: op, Value: value})
	return q
}

func (q *Query) Eq(field string, value any) *Query  { return q.where(field, OpEq, value) }
func (q *Query) Gt(field string, value any) *Query  { return q.where(field, OpGt, value) }
func (q *Query) Gte(field string, value any) *Query { return q.where(field, OpGte, value) }
func (q *Query) Lt(field string, value any) *Query  { return q.where(field, OpLt, value) }
func (q *Query) Lte(field string, value any) *Query { return q.where(field, OpLte, value) }

// NotNull is the `.not(field, "is", null)` predicate.
func (q *Query) NotNull(field string) *Query { return q.where(field, OpNotNull, nil) }

// IsNull is the `.is(field, null)` predicate.
func (q *Query) IsNull(field string) *Query { return q.where(field, OpIsNull, nil) }

func (q *Query) In(field string, ids []int64) *Query {
	return q.where(field, OpIn, slices.Clone(ids))
}

func (q *Query) Order(field string, ascending bool) *Query {
	q.OrderBy = field
	q.Ascending = ascending
	return q
}

// Range selects rows [from, to], both ends inclusive.
func (q *Query) Range(from, to int) *Query {
	q.Offset = from
	q.Count = to - from + 1
	return q
}

func (q *Query) Limit(n int) *Query {
	q.Count = n
	return q
}

// Validate rejects columns outside the table's allow-list and malformed
// predicates. Readers call it before executing.
func (q *Query) Validate() error {
	allowed, ok := allowedColumns[q.Table]
	if !ok {
		return fmt.Errorf("unknown table %q", q.Table)
	}
	if len(q.Projection) == 0 {
		return fmt.Errorf("%s: empty projection", q.Table)
	}
	for _, c := range q.Projection {
		if !slices.Contains(allowed, c) {
			return fmt.Errorf("%s: column %q is not selectable", q.Table, c)
		}
	}
	for _, cond := range q.Conditions {
		if !slices.Contains(allowed, cond.Field) {
			return fmt.Errorf("%s: cannot filter on %q", q.Table, cond.Field)
		}
		switch cond.Op {
		case OpEq, OpGt, OpGte, OpLt, OpLte:
			if cond.Value == nil {
				return fmt.Errorf("%s: %s %s needs a value", q.Table, cond.Field, cond.Op)
			}
		case OpIn:
			if _, ok := cond.Value.([]int64); !ok {
				return fmt.Errorf("%s: IN on %q needs an id list", q.Table, cond.Field)
			}
		case OpNotNull, OpIsNull:
		default:
			return fmt.Errorf("%s: unsupported operator %q", q.Table, cond.Op)
		}
	}
	if q.OrderBy != "" && !slices.Contains(allowed, q.OrderBy) {
		return fmt.Errorf("%s: cannot order by %q", q.Table, q.OrderBy)
	}
	if q.Offset < 0 || q.Count < 0 {
		return fmt.Errorf("%s: negative range", q.Table)
	}
	return nil
}
