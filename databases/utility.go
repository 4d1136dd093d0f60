package databases

import "go.mongodb.org/mongo-driver/mongo/options"

// Paginate builds find options for page-numbered queries. Pages are
// zero-based; limit must be positive.
func Paginate(limit, page int) *options.FindOptions {
	l := int64(limit)
	skip := int64(page) * l

	return &options.FindOptions{Limit: &l, Skip: &skip}
}
