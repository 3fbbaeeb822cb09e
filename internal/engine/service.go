// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package engine

import (
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// Service hands out the live generation. Publish swaps the pointer
// atomically: queries that already hold a generation finish against it,
// new queries see the replacement. There is no partial state.
type Service struct {
	current atomic.Pointer[Generation]
}

// NewService creates a Service with no generation published.
func NewService() *Service {
	return &Service{}
}

// Publish makes gen the live generation.
func (s *Service) Publish(gen *Generation) {
	s.current.Store(gen)
}

// Current returns the live generation, or NOT_FOUND before the first
// Publish.
func (s *Service) Current() (*Generation, error) {
	gen := s.current.Load()
	if gen == nil {
		return nil, oops.
			Code(graph.CodeNotFound).
			Errorf("no generation published yet")
	}
	return gen, nil
}

// Ready reports whether a generation has been published.
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}
