package docstore

// Op is a filter operator.
type Op int

const (
	// Eq matches documents whose field equals the value.
	Eq Op = iota
	// Contains matches documents whose array field has the value as an element.
	Contains
)

// Filter is one condition of a Query.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Query is a conjunction of filters with an optional ascending sort field.
// The zero Query matches every document in the collection.
type Query struct {
	Filters []Filter
	OrderBy string
}

// Where starts a query with an equality filter.
func Where(field string, value interface{}) Query {
	return Query{}.Eq(field, value)
}

// Eq adds an equality filter.
func (q Query) Eq(field string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: Eq, Value: value})
	return q
}

// Contains adds an array-membership filter.
func (q Query) Contains(field string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: Contains, Value: value})
	return q
}

// Sort orders results ascending by field.
func (q Query) Sort(field string) Query {
	q.OrderBy = field
	return q
}
