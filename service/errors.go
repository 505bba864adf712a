package service

import "errors"

// Error kinds returned by the registry. Returned errors wrap one of these and,
// where there is one, the underlying store error.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrStorageWriteFailed   = errors.New("storage write failed")
	ErrMetadataWriteFailed  = errors.New("metadata write failed")
	ErrNotFound             = errors.New("recording not found")
	ErrStorageDeleteFailed  = errors.New("storage delete failed")
	ErrMetadataDeleteFailed = errors.New("metadata delete failed")
)

func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrStorageWriteFailed):
		return "storage_write_failed"
	case errors.Is(err, ErrMetadataWriteFailed):
		return "metadata_write_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMetadataDeleteFailed):
		return "metadata_delete_failed"
	case errors.Is(err, ErrStorageDeleteFailed):
		return "storage_delete_failed"
	default:
		return "error"
	}
}
