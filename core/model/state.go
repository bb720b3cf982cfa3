// Package model provides shared state management, interfaces and persistence
// for transform stages and trained models.
package model

import (
	"sync"

	"github.com/harukisato/tabstack/pkg/errors"
)

// StateManager tracks the fitted state of a stage or model in a thread-safe
// manner. Once fitted, the owning artifact is frozen: a second Fit is an error.
type StateManager struct {
	Fitted bool // public for gob encoding
	mu     sync.RWMutex

	NFeatures int
	NSamples  int
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether Fit has completed.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the owner as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// SetDimensions records the data shape seen during fitting.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions returns the data shape seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError naming the component and method when
// the owner has not been fitted.
func (s *StateManager) RequireFitted(name, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(name, method)
	}
	return nil
}

// RequireNotFitted returns an AlreadyFittedError when the owner has been
// fitted. Transform artifacts are immutable; re-fitting is never allowed.
func (s *StateManager) RequireNotFitted(name string) error {
	if s.IsFitted() {
		return errors.NewAlreadyFittedError(name)
	}
	return nil
}
