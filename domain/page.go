package domain

// Page is the find result envelope: the matching subset plus the total
// number of stored records at call time.
type Page[T any] struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
	Data  []T `json:"data"`
}
