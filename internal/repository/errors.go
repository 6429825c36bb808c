package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique field (category name) already exists.
var ErrDuplicate = errors.New("record already exists")

// ErrRatingsChanged is returned by CompareAndAppendRatings when the stored
// ratings no longer match the expected sequence.
var ErrRatingsChanged = errors.New("ratings changed concurrently")
