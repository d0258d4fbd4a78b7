package types

// PageQuery carries the list pagination parameters.
type PageQuery struct {
	Limit  int `validate:"gte=1,lte=1000"`
	Offset int `validate:"gte=0"`
}

// FetchQuery carries the ingest parameters of POST /users/fetch.
type FetchQuery struct {
	Count int `validate:"gte=1"`
	Async bool
}
