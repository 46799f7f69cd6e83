package catalog

import (
	"net/http"

	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
)

// Base catalog error
var (
	ErrCatalog apperrors.Error = apperrors.New("catalog error").SetStatusCode(http.StatusInternalServerError)
)

var (
	ErrInvalidCatalog    apperrors.Error = ErrCatalog.New("invalid catalog file").SetStatusCode(http.StatusInternalServerError)
	ErrDuplicateArtifact apperrors.Error = ErrCatalog.New("duplicate artifact").SetStatusCode(http.StatusInternalServerError)
)
