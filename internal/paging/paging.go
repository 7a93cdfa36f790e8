// Package paging implements deterministic page slicing over a filtered
// result set. State values are immutable; every operation returns a new
// State that satisfies 1 <= CurrentPage <= TotalPages().
package paging

// DefaultItemsPerPage matches the grid's initial page size.
const DefaultItemsPerPage = 25

// State is the pagination state for one result set.
type State struct {
	CurrentPage  int `json:"current_page"`
	ItemsPerPage int `json:"items_per_page"`
	TotalItems   int `json:"total_items"`
}

// New builds a state, clamping currentPage into range. A non-positive
// perPage falls back to DefaultItemsPerPage.
func New(totalItems, perPage, currentPage int) State {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	if totalItems < 0 {
		totalItems = 0
	}
	s := State{CurrentPage: currentPage, ItemsPerPage: perPage, TotalItems: totalItems}
	return s.clamp()
}

func (s State) clamp() State {
	if s.CurrentPage < 1 {
		s.CurrentPage = 1
	}
	if tp := s.TotalPages(); s.CurrentPage > tp {
		s.CurrentPage = tp
	}
	return s
}

// TotalPages is max(1, ceil(TotalItems / ItemsPerPage)).
func (s State) TotalPages() int {
	if s.ItemsPerPage <= 0 || s.TotalItems <= 0 {
		return 1
	}
	return (s.TotalItems + s.ItemsPerPage - 1) / s.ItemsPerPage
}

// GoToPage moves to page n, or returns s unchanged when n is out of range.
func (s State) GoToPage(n int) State {
	if n < 1 || n > s.TotalPages() {
		return s
	}
	s.CurrentPage = n
	return s
}

// First, Prev, Next and Last are the boundary-button moves.
func (s State) First() State { return s.GoToPage(1) }
func (s State) Prev() State  { return s.GoToPage(s.CurrentPage - 1) }
func (s State) Next() State  { return s.GoToPage(s.CurrentPage + 1) }
func (s State) Last() State  { return s.GoToPage(s.TotalPages()) }

// WithItemsPerPage changes the page size and resets to page 1. A
// non-positive size is rejected and s is returned unchanged.
func (s State) WithItemsPerPage(n int) State {
	if n <= 0 {
		return s
	}
	s.ItemsPerPage = n
	s.CurrentPage = 1
	return s
}

// WithTotal applies a new filtered count (a filter change) and resets to
// page 1.
func (s State) WithTotal(n int) State {
	if n < 0 {
		n = 0
	}
	s.TotalItems = n
	s.CurrentPage = 1
	return s
}

// Bounds returns the half-open index range of the current page, clipped to
// TotalItems.
func (s State) Bounds() (start, end int) {
	start = (s.CurrentPage - 1) * s.ItemsPerPage
	end = start + s.ItemsPerPage
	if start > s.TotalItems {
		start = s.TotalItems
	}
	if end > s.TotalItems {
		end = s.TotalItems
	}
	return start, end
}

// CanFirst and CanPrev are false exactly on page 1.
func (s State) CanFirst() bool { return s.CurrentPage != 1 }
func (s State) CanPrev() bool  { return s.CurrentPage != 1 }

// CanNext and CanLast are false exactly on the last page.
func (s State) CanNext() bool { return s.CurrentPage != s.TotalPages() }
func (s State) CanLast() bool { return s.CurrentPage != s.TotalPages() }

// Slice returns the current page of items. TotalItems is expected to equal
// len(items); the slice is clipped to len(items) regardless.
func Slice[T any](items []T, s State) []T {
	start, end := s.Bounds()
	if end > len(items) {
		end = len(items)
	}
	if start > end {
		start = end
	}
	return items[start:end]
}

// View is the serializable pagination summary rendered next to a page.
type View struct {
	State
	TotalPages int  `json:"total_pages"`
	CanFirst   bool `json:"can_first"`
	CanPrev    bool `json:"can_prev"`
	CanNext    bool `json:"can_next"`
	CanLast    bool `json:"can_last"`
}

// View summarizes s.
func (s State) View() View {
	return View{
		State:      s,
		TotalPages: s.TotalPages(),
		CanFirst:   s.CanFirst(),
		CanPrev:    s.CanPrev(),
		CanNext:    s.CanNext(),
		CanLast:    s.CanLast(),
	}
}
