package inventory

import (
	"net/http"

	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
)

// Base inventory error
var (
	ErrInventory apperrors.Error = apperrors.New("inventory error").
			SetStatusCode(http.StatusInternalServerError).
			SetCode("artifact_provision_failed")
)

var (
	ErrOrderNotFound apperrors.Error = ErrInventory.New("provision record not found").
				SetStatusCode(http.StatusNotFound).
				SetCode("artifact_provision_not_found")
	ErrOrderAlreadyExists apperrors.Error = ErrInventory.New("provision record already exists").
				SetStatusCode(http.StatusConflict).
				SetCode("provision_already_exists")
	ErrOutOfStock apperrors.Error = ErrInventory.New("artifact out of stock").
			SetStatusCode(http.StatusUnprocessableEntity).
			SetCode("artifact_out_of_stock")
	ErrEmptyRecord apperrors.Error = ErrInventory.New("provision record is empty or malformed").
			SetStatusCode(http.StatusUnprocessableEntity).
			SetCode("artifact_provision_empty")
)
