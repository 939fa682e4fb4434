// Package memory provides map-backed repositories used by tests and as
// the default wiring when no durable store is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/models"
)

// Store holds both aggregates behind one mutex.
type Store struct {
	mu          sync.RWMutex
	templates   map[string]*models.ChecklistTemplate
	conferences map[string]*models.Conference
}

func New() *Store {
	return &Store{
		templates:   make(map[string]*models.ChecklistTemplate),
		conferences: make(map[string]*models.Conference),
	}
}

func (s *Store) SaveTemplate(_ context.Context, template *models.ChecklistTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[template.ID] = template
	return nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (*models.ChecklistTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, errors.NewTemplateNotFoundError(id)
	}
	return t, nil
}

func (s *Store) ListTemplates(_ context.Context) ([]*models.ChecklistTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ChecklistTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return errors.NewTemplateNotFoundError(id)
	}
	delete(s.templates, id)
	return nil
}

func (s *Store) SaveConference(_ context.Context, conference *models.Conference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conferences[conference.ID] = conference
	return nil
}

func (s *Store) GetConference(_ context.Context, id string) (*models.Conference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conferences[id]
	if !ok {
		return nil, errors.NewConferenceNotFoundError(id)
	}
	return c, nil
}

func (s *Store) ListConferences(_ context.Context) ([]*models.Conference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Conference, 0, len(s.conferences))
	for _, c := range s.conferences {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteConference(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conferences[id]; !ok {
		return errors.NewConferenceNotFoundError(id)
	}
	delete(s.conferences, id)
	return nil
}
