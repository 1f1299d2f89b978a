package flow

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
)

// ErrInFlight is returned when a submission arrives while a backend call is outstanding.
var ErrInFlight = errors.New("a request is already in progress")

// State is a state of the preview flow.
type State int

const (
	Idle State = iota
	Loading
	Empty
	Ready
	Materializing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	case Materializing:
		return "materializing"
	case Done:
		return "done"
	default:
		return "failed"
	}
}

// Busy reports whether a backend call is outstanding in s.
func (s State) Busy() bool {
	return s == Loading || s == Materializing
}

// Phase names the backend call a failure came from. PhaseResult is storing the results of a successful call.
type Phase string

const (
	PhaseListing     Phase = "listing"
	PhasePreview     Phase = "preview"
	PhaseMaterialize Phase = "materialize"
	PhaseResult      Phase = "result"
)

// Recovery is the action a view offers after a failure.
type Recovery int

const (
	// RecoverLogin sends the user to the login page.
	RecoverLogin Recovery = iota
	// RecoverBack returns to the playlist listing.
	RecoverBack
	// RecoverReload repeats the preview request.
	RecoverReload
	// RecoverConfirm keeps the preview and lets the user confirm again.
	RecoverConfirm
)

// Destinations the flow navigates to.
const (
	LoginPath   = "/"
	ListingPath = "/dashboard"
	ResultPath  = "/dashboard/success"
)

// Failure describes a failed backend call. Status is the backend's HTTP status when it answered.
type Failure struct {
	Kind     services.ErrorKind
	Message  string
	Recovery Recovery
	Phase    Phase
	Status   int
}

// Step is the outcome of a flow operation. A non-empty Redirect means the view must navigate away.
type Step struct {
	State    State
	Redirect string
	Failure  *Failure
}

// Snapshot is a copy of the flow's observable state.
type Snapshot struct {
	State      State
	Source     models.SourceIdentifier
	Partitions []models.PartitionPreview
	Failure    *Failure
	Results    []models.MaterializedPlaylist
}

// Flow drives one user's preview and confirmation.
type Flow struct {
	backend services.Backend
	store   ResultStore
	key     string

	mu         sync.Mutex
	state      State
	generation int
	source     models.SourceIdentifier
	partitions []models.PartitionPreview
	failure    *Failure
	results    []models.MaterializedPlaylist
}

// New creates an idle flow writing results to store under key.
func New(backend services.Backend, store ResultStore, key string) *Flow {
	return &Flow{backend: backend, store: store, key: key}
}

// ParseSource validates the identifier and type navigation parameters.
func ParseSource(identifier, kind string) (models.SourceIdentifier, error) {
	return models.NewSourceIdentifier(identifier, kind)
}

// Load requests the month preview of identifier.
//
// A missing or malformed identifier redirects to the listing without calling the backend.
func (f *Flow) Load(ctx context.Context, identifier, kind string) (Step, error) {
	src, err := ParseSource(identifier, kind)
	if err != nil {
		f.Reset()
		return Step{State: Idle, Redirect: ListingPath}, nil
	}

	f.mu.Lock()
	if f.state.Busy() {
		f.mu.Unlock()
		return Step{}, ErrInFlight
	}
	f.generation++
	gen := f.generation
	f.state = Loading
	f.source = src
	f.partitions = nil
	f.failure = nil
	f.results = nil
	f.mu.Unlock()

	partitions, err := f.backend.Preview(ctx, src)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return Step{State: f.state}, nil
	}

	if err != nil {
		return f.fail(err, PhasePreview), nil
	}

	f.partitions = slices.Clone(partitions)
	if len(partitions) == 0 {
		f.state = Empty
	} else {
		f.state = Ready
	}
	return Step{State: f.state}, nil
}

// Resume restores a preview the view already holds without calling the backend.
//
// An empty partition list restores the Empty state.
func (f *Flow) Resume(src models.SourceIdentifier, partitions []models.PartitionPreview) (Step, error) {
	if err := src.Validate(); err != nil {
		return Step{State: Idle, Redirect: ListingPath}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Busy() {
		return Step{}, ErrInFlight
	}

	f.generation++
	f.source = src
	f.partitions = slices.Clone(partitions)
	f.failure = nil
	f.results = nil
	if len(partitions) == 0 {
		f.state = Empty
	} else {
		f.state = Ready
	}
	return Step{State: f.state}, nil
}

// Partition returns the previewed partition with id. It never calls the backend.
func (f *Flow) Partition(id string) (models.PartitionPreview, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.partitions {
		if p.ID == id {
			return p, true
		}
	}
	return models.PartitionPreview{}, false
}

// Confirm materializes every previewed partition.
//
// It is allowed from Ready and from a failed materialization, which keeps the preview.
// On success the results are stored and the step redirects to the result view. If storing them fails the
// playlists already exist, so the failure offers a reload instead of another confirmation.
func (f *Flow) Confirm(ctx context.Context) (Step, error) {
	f.mu.Lock()
	if f.state.Busy() {
		f.mu.Unlock()
		return Step{}, ErrInFlight
	}
	retry := f.state == Failed && f.failure != nil && f.failure.Phase == PhaseMaterialize
	if f.state != Ready && !retry {
		state := f.state
		f.mu.Unlock()
		return Step{State: state}, errors.New("nothing to confirm")
	}

	f.generation++
	gen := f.generation
	f.state = Materializing
	f.failure = nil
	src := f.source
	partitions := slices.Clone(f.partitions)
	f.mu.Unlock()

	results, err := f.backend.CreateMonthlyPlaylists(ctx, src, partitions)
	var storeErr error
	if err == nil && f.store != nil {
		storeErr = f.store.Put(ctx, f.key, results)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return Step{State: f.state}, nil
	}

	if err != nil {
		return f.fail(err, PhaseMaterialize), nil
	}

	f.results = slices.Clone(results)
	if storeErr != nil {
		return f.fail(storeErr, PhaseResult), nil
	}
	f.state = Done
	return Step{State: Done, Redirect: ResultPath}, nil
}

// Reset discards the preview and returns to Idle. An outstanding call's result is dropped when it arrives.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	f.state = Idle
	f.source = models.SourceIdentifier{}
	f.partitions = nil
	f.failure = nil
	f.results = nil
}

// Snapshot returns a copy of the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		State:      f.state,
		Source:     f.source,
		Partitions: slices.Clone(f.partitions),
		Results:    slices.Clone(f.results),
	}
	if f.failure != nil {
		failure := *f.failure
		s.Failure = &failure
	}
	return s
}

// fail records err. Must be called with mu held.
func (f *Flow) fail(err error, phase Phase) Step {
	failure := Describe(err, phase)
	f.failure = &failure
	f.state = Failed

	if failure.Kind == services.KindUnauthorized {
		f.partitions = nil
		f.results = nil
		return Step{State: Failed, Redirect: LoginPath, Failure: &failure}
	}
	return Step{State: Failed, Failure: &failure}
}

// Describe classifies err from phase into a [Failure] with the recovery a view must offer.
func Describe(err error, phase Phase) Failure {
	kind := services.Classify(err)
	f := Failure{Kind: kind, Phase: phase}

	var (
		appErr       *services.ApplicationError
		transportErr *services.TransportError
	)
	switch {
	case errors.As(err, &appErr):
		f.Status = appErr.Status
	case errors.As(err, &transportErr):
		f.Status = transportErr.Status
	}

	switch kind {
	case services.KindUnauthorized:
		f.Message = "Your session has expired. Please log in again."
		f.Recovery = RecoverLogin
		return f
	case services.KindApplication:
		f.Message = err.Error()
		if appErr != nil && appErr.Message != "" {
			f.Message = appErr.Message
		}
		f.Recovery = RecoverBack
	default:
		f.Message = "Could not reach the server. Check your connection and try again."
		f.Recovery = RecoverReload
	}

	switch phase {
	case PhaseListing:
		f.Recovery = RecoverReload
	case PhaseMaterialize:
		f.Recovery = RecoverConfirm
	case PhaseResult:
		f.Message = "Your playlists were updated, but the results could not be saved. Reload to check them."
		f.Recovery = RecoverReload
	}
	return f
}
