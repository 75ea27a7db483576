package services

import (
	"errors"
	"fmt"
)

// Error kinds. Services wrap these with fmt.Errorf("%w: ...") and handlers map
// them to responses with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("not allowed")
	ErrUpstream   = errors.New("upstream dependency failed")
)

var (
	ErrNoFaceDetected    = fmt.Errorf("%w: no face detected in the uploaded image", ErrValidation)
	ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch", ErrValidation)
	ErrReportNotFound    = fmt.Errorf("%w: report", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("%w: user", ErrNotFound)
	ErrImageNotFound     = fmt.Errorf("%w: report image", ErrNotFound)
	ErrNotReportOwner    = fmt.Errorf("%w: only the report owner can change it", ErrForbidden)
)
