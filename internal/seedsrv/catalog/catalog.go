package catalog

import (
	"bytes"
	"encoding/json"
	"os"

	_ "embed"

	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

//go:embed catalogschema.json
var catalogSchema string

// Catalog is the read-mostly set of sellable artifacts, loaded once at
// startup. Lookups after load are lock-free.
type Catalog struct {
	defaultStock int
	artifacts    map[string]*Artifact
	order        []string
}

func New(defaultStock int) *Catalog {
	return &Catalog{
		defaultStock: defaultStock,
		artifacts:    make(map[string]*Artifact),
	}
}

// Add registers an artifact. Returns false when an artifact with the
// same id is already present.
func (c *Catalog) Add(a *Artifact) bool {
	if a == nil || a.ID == "" {
		return false
	}
	if _, ok := c.artifacts[a.ID]; ok {
		return false
	}
	c.artifacts[a.ID] = a
	c.order = append(c.order, a.ID)
	return true
}

// All returns the catalog snapshot in load order.
func (c *Catalog) All() []*Artifact {
	data := make([]*Artifact, 0, len(c.order))
	for _, id := range c.order {
		data = append(data, c.artifacts[id])
	}
	return data
}

// Get returns the artifact with the given id, or nil.
func (c *Catalog) Get(id string) *Artifact {
	return c.artifacts[id]
}

// Capacity returns the provisioning capacity for an artifact, falling
// back to the catalog default when the entry does not set one.
func (c *Catalog) Capacity(id string) int {
	a := c.artifacts[id]
	if a == nil {
		return 0
	}
	if a.Capacity > 0 {
		return a.Capacity
	}
	return c.defaultStock
}

type catalogFile struct {
	Artifacts []struct {
		Shortname   string `json:"shortname"`
		DisplayName string `json:"displayName"`
		Enabled     bool   `json:"enabled"`
		Capacity    int    `json:"capacity"`
	} `json:"artifacts"`
}

// LoadFile reads a YAML catalog file, validates it against the embedded
// schema and builds the catalog. Artifact ids are derived from the
// shortname so they stay stable across restarts.
func LoadFile(path string, defaultStock int) (*Catalog, apperrors.Error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrInvalidCatalog.MsgErr("unable to read catalog file", err)
	}
	return Load(content, defaultStock)
}

// Load parses and validates a YAML catalog document.
func Load(content []byte, defaultStock int) (*Catalog, apperrors.Error) {
	doc, err := yaml.YAMLToJSON(content)
	if err != nil {
		return nil, ErrInvalidCatalog.MsgErr("catalog is not valid YAML", err)
	}

	// Create schema compiler
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalogschema.json", bytes.NewReader([]byte(catalogSchema))); err != nil {
		return nil, ErrInvalidCatalog.MsgErr("invalid catalog schema", err)
	}
	schema, err := compiler.Compile("catalogschema.json")
	if err != nil {
		return nil, ErrInvalidCatalog.MsgErr("invalid catalog schema", err)
	}

	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, ErrInvalidCatalog.MsgErr("unable to parse catalog", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, ErrInvalidCatalog.MsgErr("catalog validation failed", err)
	}

	var cf catalogFile
	if err := json.Unmarshal(doc, &cf); err != nil {
		return nil, ErrInvalidCatalog.MsgErr("unable to parse catalog", err)
	}

	c := New(defaultStock)
	for _, entry := range cf.Artifacts {
		a := &Artifact{
			ID:          ArtifactID(entry.Shortname),
			Shortname:   entry.Shortname,
			DisplayName: entry.DisplayName,
			Enabled:     entry.Enabled,
			Capacity:    entry.Capacity,
		}
		if !c.Add(a) {
			return nil, ErrDuplicateArtifact.Msg("duplicate artifact: " + entry.Shortname)
		}
	}
	return c, nil
}
