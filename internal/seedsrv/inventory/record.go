package inventory

import (
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/catalog"
)

// OrderRecord is the persisted provisioning record for one order line.
// Extension carries artifact-specific metadata beyond the required
// fields; it round-trips through the store untouched.
type OrderRecord struct {
	ID         string         `json:"id"`
	PublicID   string         `json:"publicId"`
	PrivateID  string         `json:"privateId"`
	Endpoint   string         `json:"endpoint"`
	CreatedAt  string         `json:"createdAt"`
	ModifiedAt string         `json:"modifiedAt"`
	State      catalog.State  `json:"state"`
	Action     catalog.Action `json:"action"`
	Extension  map[string]any `json:"extension,omitempty"`
}
