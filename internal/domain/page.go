package domain

// Cursor marks where the next store page starts. The zero value asks for
// the first page.
type Cursor struct {
	Offset int
}

// ResultPage is one page of raw records returned by a store query.
// Records are ordered most-recent-first in the query's time domain.
type ResultPage struct {
	// Records holds this page's matches.
	Records []Record

	// More reports whether the store holds further matches.
	More bool

	// Next is the cursor for the following page when More is set.
	Next Cursor
}
