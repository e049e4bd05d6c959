// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package providers

import (
	"context"

	"github.com/tomtom215/curatarr/internal/models"
)

// DiscoverQuery parameterizes a paged catalog discovery call.
type DiscoverQuery struct {
	Kind      models.MediaKind
	Language  string
	Genres    []string
	YearMin   int
	YearMax   int
	MinRating float64
	Page      int
}

// Catalog is the external catalog provider contract: paged discovery,
// text search and per-item detail. Implementations must surface the
// package error taxonomy.
type Catalog interface {
	// Discover returns a page of candidates matching the query.
	Discover(ctx context.Context, q DiscoverQuery) ([]models.Candidate, error)

	// Search returns candidates matching free text.
	Search(ctx context.Context, kind models.MediaKind, query string, page int) ([]models.Candidate, error)

	// Detail fetches authoritative metadata for one item, including
	// genres, keywords, overview and artwork.
	Detail(ctx context.Context, kind models.MediaKind, catalogID int64) (*models.Candidate, error)
}
