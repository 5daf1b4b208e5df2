package tasks

import (
	"context"

	"github.com/charmbracelet/log"
)

// Page is one page of a cursor-paginated listing. An empty Next ends the listing.
type Page[T any] struct {
	Items []T
	Next  string
}

// PageFunc fetches the page at cursor. The first call receives an empty cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (*Page[T], error)

// Drain follows next cursors from the first page until the listing ends, appending every item that keep accepts.
//
// A failure on the first page returns nil and the error. A failure on any later page
// stops pagination and returns the items gathered so far with a nil error; the failure is logged.
// A nil keep accepts everything. The predicate sees items in listing order, so it may close over
// state (a seen-set) to de-duplicate.
func Drain[T any](ctx context.Context, logger *log.Logger, fetch PageFunc[T], keep func(T) bool) ([]T, error) {
	if logger == nil {
		logger = log.Default()
	}

	page, err := fetch(ctx, "")
	if err != nil {
		return nil, err
	}

	items := make([]T, 0)
	for pages := 1; ; pages++ {
		if page != nil {
			for _, item := range page.Items {
				if keep == nil || keep(item) {
					items = append(items, item)
				}
			}
		}

		if page == nil || page.Next == "" {
			return items, nil
		}

		cursor := page.Next
		page, err = fetch(ctx, cursor)
		if err != nil {
			logger.Warn("pagination stopped early, keeping partial results",
				"pages", pages, "items", len(items), "error", err)
			return items, nil
		}
		if page != nil && page.Next == cursor {
			logger.Warn("pagination cursor did not advance", "cursor", cursor)
			page.Next = ""
		}
	}
}
