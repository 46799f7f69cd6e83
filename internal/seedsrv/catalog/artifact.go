package catalog

import (
	"github.com/google/uuid"
)

// Action is a lifecycle action the marketplace can apply to an order.
type Action string

const (
	ActionCreate    Action = "create"
	ActionStart     Action = "start"
	ActionStop      Action = "stop"
	ActionTerminate Action = "terminate"
)

// State is the lifecycle state of a provisioned order.
type State string

const (
	StateCreating    State = "creating"
	StateCreated     State = "created"
	StateStarting    State = "starting"
	StateRunning     State = "running"
	StateStopping    State = "stopping"
	StateStopped     State = "stopped"
	StateTerminating State = "terminating"
	StateTerminated  State = "terminated"
)

// Actions returns the recognized lifecycle actions.
func Actions() []Action {
	return []Action{
		ActionCreate,
		ActionStart,
		ActionStop,
		ActionTerminate,
	}
}

// States returns the enumerated lifecycle states.
func States() []State {
	return []State{
		StateCreating,
		StateCreated,
		StateStarting,
		StateRunning,
		StateStopping,
		StateStopped,
		StateTerminating,
		StateTerminated,
	}
}

func (a Action) IsValid() bool {
	for _, action := range Actions() {
		if a == action {
			return true
		}
	}
	return false
}

func (s State) IsValid() bool {
	for _, state := range States() {
		if s == state {
			return true
		}
	}
	return false
}

// TargetState maps an action to the in-progress state it drives the
// order into. Completion (creating -> created etc.) is promoted by an
// external collaborator, not here.
func (a Action) TargetState() State {
	switch a {
	case ActionCreate:
		return StateCreating
	case ActionStart:
		return StateStarting
	case ActionStop:
		return StateStopping
	case ActionTerminate:
		return StateTerminating
	}
	return ""
}

// Artifact is a catalog entry for a sellable product or service.
// Immutable after the catalog is loaded.
type Artifact struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Shortname   string `json:"shortname"`
	Enabled     bool   `json:"enabled"`
	Capacity    int    `json:"-"`
}

// artifactNamespace seeds deterministic artifact ids so the same
// shortname always maps to the same catalog id across restarts.
var artifactNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("kaya.nerd4ever.com.br"))

// ArtifactID derives the stable catalog id for a shortname.
func ArtifactID(shortname string) string {
	return "kaya_seed_" + uuid.NewSHA1(artifactNamespace, []byte(shortname)).String()
}
