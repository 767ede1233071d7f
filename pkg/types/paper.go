// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research assistant:
// the stored paper record, the aggregated tool catalog entry, and the
// configuration structs consumed by the chat and serve commands.
package types

// PaperRecord holds the stored metadata for one paper. The JSON field names
// are fixed by the on-disk format: each topic directory contains one
// papers_info.json document mapping paper ID to records of this shape,
// written UTF-8 with 2-space indentation.
type PaperRecord struct {
	// Title is the paper title as returned by the search API.
	Title string `json:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors"`

	// Summary is the paper abstract.
	Summary string `json:"summary"`

	// PDFURL points at the full-text PDF.
	PDFURL string `json:"pdf_url"`

	// Published is the publication date formatted as YYYY-MM-DD.
	Published string `json:"published"`
}
