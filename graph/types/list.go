package types

import "fmt"

// Cursors are the opaque markers of a cursor-based pagination.
type Cursors struct {
	Before string
	After  string
}

// Paging holds what is needed to fetch the surrounding pages of a list.
type Paging struct {
	Cursors  Cursors
	Previous string
	Next     string
}

// PagableList is an ordered list of entities along with its pagination
// cursors. It is created with a declared capacity and then populated with
// Add.
type PagableList[T any] struct {
	items  []T
	paging *Paging
}

// NewPagableList returns an empty list with the given capacity. paging can be
// nil.
func NewPagableList[T any](capacity int, paging *Paging) *PagableList[T] {
	return &PagableList[T]{
		items:  make([]T, 0, capacity),
		paging: paging,
	}
}

// Add appends an element at the end of the list.
func (l *PagableList[T]) Add(item T) {
	l.items = append(l.items, item)
}

// Len returns the number of elements. A nil list has a length of 0.
func (l *PagableList[T]) Len() int {
	if l == nil {
		return 0
	}

	return len(l.items)
}

// Cap returns the capacity the list was declared with.
func (l *PagableList[T]) Cap() int {
	if l == nil {
		return 0
	}

	return cap(l.items)
}

// At returns the element at index i. It panics if i is out of range.
func (l *PagableList[T]) At(i int) T {
	return l.items[i]
}

// Items returns a copy of the elements.
func (l *PagableList[T]) Items() []T {
	if l == nil {
		return nil
	}

	res := make([]T, len(l.items))
	copy(res, l.items)

	return res
}

// Paging returns the pagination cursors, or nil if the response didn't
// contain any.
func (l *PagableList[T]) Paging() *Paging {
	if l == nil {
		return nil
	}

	return l.paging
}

// HasNext tells if there is a next page to fetch.
func (l *PagableList[T]) HasNext() bool {
	paging := l.Paging()
	return paging != nil && paging.Next != ""
}

// String implements fmt.Stringer
func (l *PagableList[T]) String() string {
	if l == nil {
		return "PagableList{}"
	}

	return fmt.Sprintf("PagableList{len=%d, cap=%d, paging=%v}", len(l.items),
		cap(l.items), l.paging)
}

// ResponseMeta contains the metadata of the HTTP response an object was
// decoded from. It is zero for objects decoded from a nested JSON.
type ResponseMeta struct {
	StatusCode int
	AppUsage   string
	TraceID    string
}

// ResponseList is a list returned by a top-level list endpoint.
type ResponseList[T any] struct {
	ResponseMeta
	*PagableList[T]
}

// NewResponseList returns an empty response list with the given capacity.
func NewResponseList[T any](capacity int, paging *Paging, meta ResponseMeta) *ResponseList[T] {
	return &ResponseList[T]{
		ResponseMeta: meta,
		PagableList:  NewPagableList[T](capacity, paging),
	}
}
