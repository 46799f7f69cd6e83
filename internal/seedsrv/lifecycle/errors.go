package lifecycle

import (
	"net/http"

	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
)

// Base lifecycle error
var (
	ErrLifecycle apperrors.Error = apperrors.New("lifecycle error").
			SetStatusCode(http.StatusInternalServerError).
			SetCode("artifact_provision_failed")
)

// Not found errors
var (
	ErrArtifactNotFound apperrors.Error = ErrLifecycle.New("artifact not found").
				SetStatusCode(http.StatusNotFound).
				SetCode("artifact_not_found")
)

// Validation errors
var (
	ErrUnsupportedAction apperrors.Error = ErrLifecycle.New("unsupported action").
				SetStatusCode(http.StatusUnprocessableEntity).
				SetCode("artifact_unsupported_action")
)
