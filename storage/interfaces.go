package storage

import "flat-ranker/models"

// ListingWriter is the interface any store of processed listings must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}

var (
	_ ListingWriter    = (*ProcessedCSVWriter)(nil)
	_ ListingWriter    = (*PostgresWriter)(nil)
	_ RawListingWriter = (*RawCSVWriter)(nil)
)
