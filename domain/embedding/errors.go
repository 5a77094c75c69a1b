package embedding

import "errors"

// ErrFaceNotFound indicates the extractor found no face in the submitted image.
// Recoverable: the caller resubmits with a clearer image.
var ErrFaceNotFound = errors.New("no face detected in image")

// ErrDuplicateUser indicates the user already has an active embedding.
// Registration conflicts are rejected, never silently overwritten.
var ErrDuplicateUser = errors.New("user already registered")

// ErrUserNotFound indicates no active embedding exists for the user.
var ErrUserNotFound = errors.New("user not found")

// ErrStoreUnavailable indicates a transient failure reaching the embedding store.
var ErrStoreUnavailable = errors.New("embedding store unavailable")

// ErrExtractorUnavailable indicates the embedding extractor service could not
// be reached or returned an unexpected response.
var ErrExtractorUnavailable = errors.New("embedding extractor unavailable")
