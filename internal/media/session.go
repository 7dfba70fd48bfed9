package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when an action is not allowed in the
// session's current state.
var ErrInvalidTransition = errors.New("media: invalid session transition")

// State is one of Empty, Selected, Optimizing, Optimized, OptimizationFailed,
// Cropping, CropApplied or Submitted.
type State interface {
	Name() string
	isState()
}

// Empty is the initial state.
type Empty struct{}

// Selected holds a validated upload awaiting optimization.
type Selected struct{ Upload Upload }

// Optimizing marks an optimization in flight.
type Optimizing struct{ Upload Upload }

// Optimized holds a successfully processed upload.
type Optimized struct{ Processed Processed }

// OptimizationFailed holds the fallback preview of an upload that could not be
// optimized. It can still be cropped or submitted.
type OptimizationFailed struct {
	Processed Processed
	Fallback  string
	Warning   string
}

// Cropping is an open crop editor over a ready image. Previous is the state to
// return to when the crop is cancelled.
type Cropping struct{ Previous State }

// CropApplied holds the re-processed, cropped upload.
type CropApplied struct{ Processed Processed }

// Submitted records the stored key handed to the form.
type Submitted struct {
	Key          string
	ThumbnailKey string
}

func (Empty) Name() string              { return "empty" }
func (Selected) Name() string           { return "selected" }
func (Optimizing) Name() string         { return "optimizing" }
func (Optimized) Name() string          { return "optimized" }
func (OptimizationFailed) Name() string { return "optimization_failed" }
func (Cropping) Name() string           { return "cropping" }
func (CropApplied) Name() string        { return "crop_applied" }
func (Submitted) Name() string          { return "submitted" }

func (Empty) isState()              {}
func (Selected) isState()           {}
func (Optimizing) isState()         {}
func (Optimized) isState()          {}
func (OptimizationFailed) isState() {}
func (Cropping) isState()           {}
func (CropApplied) isState()        {}
func (Submitted) isState()          {}

// Session is the per-upload edit lifecycle. It is safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	state State
}

// NewSession starts in Empty.
func NewSession() *Session {
	return &Session{state: Empty{}}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func invalid(from State, action string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from.Name())
}

// ready returns the processed image of a state that can be cropped or submitted.
func ready(st State) (Processed, bool) {
	switch v := st.(type) {
	case Optimized:
		return v.Processed, true
	case OptimizationFailed:
		return v.Processed, true
	case CropApplied:
		return v.Processed, true
	}
	return Processed{}, false
}

// Select accepts a new file. A ready image may be replaced by selecting again.
func (s *Session) Select(up Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state.(type) {
	case Empty, Optimized, OptimizationFailed, CropApplied:
		s.state = Selected{Upload: up}
		return nil
	}
	return invalid(s.state, "select")
}

// BeginOptimize moves Selected to Optimizing and returns the upload.
func (s *Session) BeginOptimize() (Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.state.(Selected)
	if !ok {
		return Upload{}, invalid(s.state, "optimize")
	}
	s.state = Optimizing{Upload: sel.Upload}
	return sel.Upload, nil
}

// FinishOptimize records the pipeline outcome, landing in Optimized or
// OptimizationFailed depending on whether the result was degraded.
func (s *Session) FinishOptimize(p Processed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Optimizing); !ok {
		return invalid(s.state, "finish optimize")
	}
	if p.Degraded {
		s.state = OptimizationFailed{Processed: p, Fallback: p.FallbackURL, Warning: p.Warning}
		return nil
	}
	s.state = Optimized{Processed: p}
	return nil
}

// BeginCrop opens the crop editor over a ready image.
func (s *Session) BeginCrop() (Processed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := ready(s.state)
	if !ok {
		return Processed{}, invalid(s.state, "crop")
	}
	s.state = Cropping{Previous: s.state}
	return p, nil
}

// CancelCrop closes the editor without changes.
func (s *Session) CancelCrop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.(Cropping)
	if !ok {
		return invalid(s.state, "cancel crop")
	}
	s.state = c.Previous
	return nil
}

// ApplyCrop stores the cropped result.
func (s *Session) ApplyCrop(p Processed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Cropping); !ok {
		return invalid(s.state, "apply crop")
	}
	s.state = CropApplied{Processed: p}
	return nil
}

// Submit hands the ready image to the form.
func (s *Session) Submit() (Submitted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := ready(s.state)
	if !ok {
		return Submitted{}, invalid(s.state, "submit")
	}
	sub := Submitted{Key: p.Key, ThumbnailKey: p.ThumbnailKey}
	s.state = sub
	return sub, nil
}

// Reset returns a submitted session to Empty.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Submitted); !ok {
		return invalid(s.state, "reset")
	}
	s.state = Empty{}
	return nil
}

// Abandon discards whatever the session holds.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Empty{}
}

// Optimize drives Selected through the pipeline. A pipeline error returns the
// session to Selected so the caller may retry or abandon.
func (s *Session) Optimize(ctx context.Context, p *Pipeline) (State, error) {
	up, err := s.BeginOptimize()
	if err != nil {
		return nil, err
	}
	res, err := p.Optimize(ctx, up, nil)
	if err != nil {
		s.mu.Lock()
		s.state = Selected{Upload: up}
		s.mu.Unlock()
		return nil, err
	}
	if err := s.FinishOptimize(res); err != nil {
		return nil, err
	}
	return s.State(), nil
}

// Crop applies crop to the ready image and re-runs the pipeline on it. On any
// error the editor is closed and the previous state restored.
func (s *Session) Crop(ctx context.Context, p *Pipeline, crop CropParams) (State, error) {
	prev, err := s.BeginCrop()
	if err != nil {
		return nil, err
	}
	res, err := p.Optimize(ctx, prev.Upload, &crop)
	if err != nil {
		_ = s.CancelCrop()
		return nil, err
	}
	if err := s.ApplyCrop(res); err != nil {
		return nil, err
	}
	return s.State(), nil
}
