package model

import "errors"

var (
	// ErrProjectNotFound is returned when a project is not found.
	ErrProjectNotFound = errors.New("project not found")

	// ErrAssetNotFound is returned when an asset is not found.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUnsupportedType is returned when an upload's media type is not allowed.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTypeMismatch is returned when an upload's content does not match its
	// declared media type.
	ErrTypeMismatch = errors.New("file content does not match declared type")
)
