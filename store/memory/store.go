// Package memory is an in-process credential and parent entity store for
// development servers and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	agencyAuth "github.com/MrEthical07/agencyAuth"
)

type parentEntity struct {
	name   string
	active bool
}

// Store implements agencyAuth.CredentialStore, CredentialCreator,
// ParentEntityStore and ParentEntityLister. Identifiers are emails, matched
// case-insensitively.
type Store struct {
	mu      sync.RWMutex
	bySubj  map[string]agencyAuth.CredentialRecord
	byEmail map[string]string
	parents map[string]parentEntity
}

func New() *Store {
	return &Store{
		bySubj:  make(map[string]agencyAuth.CredentialRecord),
		byEmail: make(map[string]string),
		parents: make(map[string]parentEntity),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PutParentEntity adds or replaces a parent entity.
func (s *Store) PutParentEntity(id, name string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents[id] = parentEntity{name: name, active: active}
}

// Put adds or replaces a credential record. Parent entity name and state in
// rec are ignored; they are joined on read.
func (s *Store) Put(rec agencyAuth.CredentialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.bySubj[rec.SubjectID]; ok {
		delete(s.byEmail, normalizeEmail(old.Email))
	}
	s.bySubj[rec.SubjectID] = rec
	s.byEmail[normalizeEmail(rec.Email)] = rec.SubjectID
}

// Update applies fn to the record of subjectID.
func (s *Store) Update(subjectID string, fn func(*agencyAuth.CredentialRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.bySubj[subjectID]
	if !ok {
		return agencyAuth.ErrUserNotFound
	}
	fn(&rec)
	s.bySubj[subjectID] = rec
	return nil
}

// PasswordHash returns the stored hash of subjectID.
func (s *Store) PasswordHash(subjectID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bySubj[subjectID]
	return rec.PasswordHash, ok
}

func (s *Store) FindByIdentifier(_ context.Context, identifier string) (agencyAuth.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjectID, ok := s.byEmail[normalizeEmail(identifier)]
	if !ok {
		return agencyAuth.CredentialRecord{}, agencyAuth.ErrUserNotFound
	}
	rec := s.bySubj[subjectID]
	rec.ParentEntityName = ""
	rec.ParentEntityActive = false
	if p, ok := s.parents[rec.ParentEntityID]; ok {
		rec.ParentEntityName = p.name
		rec.ParentEntityActive = p.active
	}
	return rec, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, subjectID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.bySubj[subjectID]
	if !ok {
		return agencyAuth.ErrUserNotFound
	}
	rec.PasswordHash = newHash
	s.bySubj[subjectID] = rec
	return nil
}

func (s *Store) Create(_ context.Context, nc agencyAuth.NewCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(nc.Email)
	if _, taken := s.byEmail[email]; taken {
		return fmt.Errorf("memory: %s: %w", email, agencyAuth.ErrAccountExists)
	}
	s.bySubj[nc.SubjectID] = agencyAuth.CredentialRecord{
		SubjectID:      nc.SubjectID,
		PasswordHash:   nc.PasswordHash,
		Active:         nc.Active,
		Approved:       nc.Approved,
		Role:           nc.Role,
		ParentEntityID: nc.ParentEntityID,
		FirstName:      nc.FirstName,
		LastName:       nc.LastName,
		Email:          email,
		Phone:          nc.Phone,
	}
	s.byEmail[email] = nc.SubjectID
	return nil
}

func (s *Store) IsActive(_ context.Context, parentEntityID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parents[parentEntityID]
	return ok && p.active, nil
}

// ActiveParentEntities returns active entities ordered by name.
func (s *Store) ActiveParentEntities(_ context.Context) ([]agencyAuth.ParentEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agencyAuth.ParentEntity, 0, len(s.parents))
	for id, p := range s.parents {
		if p.active {
			out = append(out, agencyAuth.ParentEntity{ID: id, Name: p.name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
