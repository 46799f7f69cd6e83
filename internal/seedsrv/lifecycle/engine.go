package lifecycle

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/catalog"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/inventory"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Engine orchestrates provisioning, stock accounting and state
// transitions over the catalog and the inventory store. Every catalog
// read is recorded in the artifact audit log.
type Engine struct {
	catalog *catalog.Catalog
	store   *inventory.Store
}

func NewEngine(c *catalog.Catalog, s *inventory.Store) *Engine {
	return &Engine{
		catalog: c,
		store:   s,
	}
}

// All returns the catalog snapshot, logging a load entry per artifact.
func (e *Engine) All(ctx context.Context) []*catalog.Artifact {
	artifacts := e.catalog.All()
	for _, a := range artifacts {
		e.LogWrite(ctx, a.ID, "artifact load")
	}
	return artifacts
}

// Get returns the artifact with the given id, logging the read.
func (e *Engine) Get(ctx context.Context, artifactID string) (*catalog.Artifact, apperrors.Error) {
	a := e.catalog.Get(artifactID)
	if a == nil {
		return nil, ErrArtifactNotFound
	}
	e.LogWrite(ctx, artifactID, "artifact read")
	return a, nil
}

// Artifact returns the catalog entry without recording a read, or nil
// when the id is unknown.
func (e *Engine) Artifact(artifactID string) *catalog.Artifact {
	return e.catalog.Get(artifactID)
}

// Provision creates a new order record for the pair. Preconditions are
// checked in order: artifact exists, stock available, no existing
// record. The stock check and the exclusive create are atomic in the
// store.
func (e *Engine) Provision(ctx context.Context, artifactID, orderID string) (*inventory.OrderRecord, apperrors.Error) {
	if _, err := e.Get(ctx, artifactID); err != nil {
		return nil, err
	}

	rec, err := newOrderRecord()
	if err != nil {
		return nil, err
	}

	if err := e.store.CreateOrder(artifactID, orderID, e.catalog.Capacity(artifactID), rec); err != nil {
		e.LogWrite(ctx, artifactID, "provision failed to order: "+orderID)
		log.Ctx(ctx).Debug().Err(err).Str("artifact", artifactID).Str("order", orderID).Msg("provision rejected")
		return nil, err
	}
	return rec, nil
}

// newOrderRecord synthesizes a fresh provisioning record in the
// creating state with both timestamps equal.
func newOrderRecord() (*inventory.OrderRecord, apperrors.Error) {
	publicID, err := gonanoid.New(12)
	if err != nil {
		return nil, ErrLifecycle.MsgErr("unable to generate order id", err)
	}
	privateID, err := gonanoid.New(12)
	if err != nil {
		return nil, ErrLifecycle.MsgErr("unable to generate order id", err)
	}
	now := time.Now().Format(time.RFC3339)
	return &inventory.OrderRecord{
		ID:         uuid.NewString(),
		PublicID:   publicID,
		PrivateID:  privateID,
		Endpoint:   randomEndpoint(),
		CreatedAt:  now,
		ModifiedAt: now,
		State:      catalog.StateCreating,
		Action:     catalog.ActionCreate,
	}, nil
}

// randomEndpoint synthesizes a pseudo network address for the
// provisioned instance.
func randomEndpoint() string {
	v := rand.Uint32()
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).String()
}

// Execute applies a lifecycle action to an existing order. The action
// is accepted regardless of the order's current state; only action,
// state and modifiedAt change on the stored record.
func (e *Engine) Execute(ctx context.Context, artifactID, orderID string, action catalog.Action) (*inventory.OrderRecord, apperrors.Error) {
	if !action.IsValid() {
		return nil, ErrUnsupportedAction.New("unsupported action: " + string(action))
	}
	if _, err := e.Get(ctx, artifactID); err != nil {
		return nil, err
	}

	raw, err := e.store.ReadOrderRaw(artifactID, orderID)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(raw, "state").Exists() || !gjson.GetBytes(raw, "modifiedAt").Exists() {
		return nil, inventory.ErrEmptyRecord
	}

	raw, serr := sjson.SetBytes(raw, "action", string(action))
	if serr == nil {
		raw, serr = sjson.SetBytes(raw, "state", string(action.TargetState()))
	}
	if serr == nil {
		raw, serr = sjson.SetBytes(raw, "modifiedAt", time.Now().Format(time.RFC3339))
	}
	if serr != nil {
		return nil, ErrLifecycle.MsgErr("unable to update provision record", serr)
	}

	if err := e.store.WriteOrderRaw(artifactID, orderID, raw); err != nil {
		return nil, err
	}
	e.LogWrite(ctx, artifactID, "execute "+string(action)+" on order: "+orderID)

	rec := &inventory.OrderRecord{}
	if uerr := json.Unmarshal(raw, rec); uerr != nil {
		return nil, inventory.ErrEmptyRecord.Err(uerr)
	}
	return rec, nil
}

// Exists reports whether the artifact is in the catalog and a record is
// persisted for the pair.
func (e *Engine) Exists(ctx context.Context, artifactID, orderID string) bool {
	if _, err := e.Get(ctx, artifactID); err != nil {
		return false
	}
	return e.store.OrderExists(artifactID, orderID)
}

// Metadata returns the persisted record for the pair. Unlike Get this
// does not touch the audit log, so callers can pair it with Get without
// recording the read twice.
func (e *Engine) Metadata(ctx context.Context, artifactID, orderID string) (*inventory.OrderRecord, apperrors.Error) {
	if e.catalog.Get(artifactID) == nil {
		return nil, ErrArtifactNotFound
	}
	return e.store.GetOrder(artifactID, orderID)
}

// Stock returns the remaining provisioning capacity for an artifact.
func (e *Engine) Stock(ctx context.Context, artifactID string) (int, apperrors.Error) {
	if _, err := e.Get(ctx, artifactID); err != nil {
		return 0, err
	}
	return e.catalog.Capacity(artifactID) - e.store.CountOrders(artifactID), nil
}

// Log returns the artifact audit log, newest first. The read itself is
// recorded after the snapshot is taken.
func (e *Engine) Log(ctx context.Context, artifactID string) ([]string, apperrors.Error) {
	if e.catalog.Get(artifactID) == nil {
		return nil, ErrArtifactNotFound
	}
	entries, err := e.store.ReadLog(artifactID)
	if err != nil {
		return nil, err
	}
	e.LogWrite(ctx, artifactID, "log read")
	return entries, nil
}

// LogWrite appends a message to the artifact audit log. Log failures
// are reported but never fail the calling operation.
func (e *Engine) LogWrite(ctx context.Context, artifactID, message string) {
	if err := e.store.AppendLog(artifactID, message); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("artifact", artifactID).Msg("unable to write audit log")
	}
}
