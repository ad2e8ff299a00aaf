package ledger

// EntityList is one page of results.
type EntityList[T any] struct {
	Items []T `json:"items"`

	// Count is the number of items on this page.
	Count int `json:"count"`

	// Cursor resumes the same read; empty when there is nothing more to read.
	Cursor string `json:"cursor,omitempty"`
}

func newEntityList[T any](items []T, cursor string) EntityList[T] {
	if items == nil {
		items = []T{}
	}
	return EntityList[T]{
		Items:  items,
		Count:  len(items),
		Cursor: cursor,
	}
}
