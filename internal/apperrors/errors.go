package apperrors

import "errors"

// ErrExtraction indicates that no usable text could be obtained from a
// document, by direct extraction or OCR.
var ErrExtraction = errors.New("text extraction failed")

// ErrParse indicates that a bill could not be parsed into a usable record,
// most commonly because no bill number was identified.
var ErrParse = errors.New("bill parse failed")

// ErrConfiguration indicates a missing or invalid operator-supplied input:
// the overlay rules file or the signing key material.
var ErrConfiguration = errors.New("configuration error")

// ErrKeyLoad indicates that the signing key PEM could not be parsed.
var ErrKeyLoad = errors.New("key load error")

// ErrSigning indicates a cryptographic failure while signing.
var ErrSigning = errors.New("signing error")

// ErrInvalidPageIndex indicates an overlay target outside the document's
// page range.
var ErrInvalidPageIndex = errors.New("invalid page index")

// ErrFileIO indicates a failure saving an upload or writing an artifact.
var ErrFileIO = errors.New("file io error")
