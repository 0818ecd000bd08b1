package types

import "errors"

var (
	// ErrCacheMiss is returned when a URL has no valid cached result
	ErrCacheMiss = errors.New("cache miss")

	// ErrKnowledgeMiss is returned when a domain has no knowledge base entry
	ErrKnowledgeMiss = errors.New("domain not in knowledge base")

	// ErrStoreUnreachable is returned when a store homepage cannot be fetched at all
	ErrStoreUnreachable = errors.New("store unreachable")

	// ErrQueueClosed is returned when enqueueing after shutdown
	ErrQueueClosed = errors.New("background queue closed")

	// ErrInvalidURL is returned for store URLs without a scheme or host
	ErrInvalidURL = errors.New("invalid store url")

	// ErrNoProductsFound is returned when a strategy finished without products
	ErrNoProductsFound = errors.New("no products found")
)

var (
	// ErrNotProductPage is returned when a fetched page carries no product page indicators
	ErrNotProductPage = errors.New("not a product page")

	// ErrNoProductName is returned when no candidate name passes validation
	ErrNoProductName = errors.New("no valid product name")
)
