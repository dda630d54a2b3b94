package tui

import "errors"

// ErrMissingRouter is returned when the router service is not provided.
var ErrMissingRouter = errors.New("tui: router service is required")

// ErrMissingCatalog is returned when the catalog service is not provided.
var ErrMissingCatalog = errors.New("tui: catalog service is required")

// ErrPickerAborted is returned when the collection picker is closed without confirming.
var ErrPickerAborted = errors.New("tui: collection picker aborted")
