package listing

// DefaultPageSize is the appointment list page size.
const DefaultPageSize = 5

// Page is one 1-indexed slice of a sequence.
type Page[T any] struct {
	Items  []T
	Number int
	Pages  int
	Total  int
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }

func (p Page[T]) HasNext() bool { return p.Number < p.Pages }

// PageCount returns the number of pages for total items; an empty sequence has one empty page.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total == 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Paginate returns page number page (1-indexed) of seq. Out-of-range pages clamp.
func Paginate[T any](seq []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := PageCount(len(seq), size)
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > len(seq) {
		end = len(seq)
	}
	return Page[T]{
		Items:  seq[start:end:end],
		Number: page,
		Pages:  pages,
		Total:  len(seq),
	}
}
