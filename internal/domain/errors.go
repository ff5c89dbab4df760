package domain

import "errors"

var (
	// ErrRecognitionMiss signals that a location or namespace could not be
	// resolved. Expected during routing; handled by the next fallback tier.
	ErrRecognitionMiss = errors.New("recognition miss")
	// ErrCollaboratorUnavailable signals a transient model or search failure.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrMalformedModelResponse signals unparsable output from the generative model.
	ErrMalformedModelResponse = errors.New("malformed model response")
	// ErrScopeRequired signals a region-gated namespace with no usable region.
	ErrScopeRequired = errors.New("region scope required but unresolved")
	// ErrRerankInputTooLarge signals that rerank input exceeded the search
	// collaborator's token limit. The caller retries once without rerank.
	ErrRerankInputTooLarge = errors.New("rerank input too large")
	// ErrNamespaceUnknown signals a namespace key absent from the catalog.
	ErrNamespaceUnknown = errors.New("unknown namespace")
)
