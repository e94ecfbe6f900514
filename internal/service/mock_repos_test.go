package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockUserRepo struct {
	users map[string]*domain.User // key: email
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	if _, ok := m.users[user.Email]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	stored := *user
	m.users[user.Email] = &stored
	return user.ID, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type mockExerciseRepo struct {
	exercises map[primitive.ObjectID]*domain.Exercise
}

func newMockExerciseRepo() *mockExerciseRepo {
	return &mockExerciseRepo{exercises: make(map[primitive.ObjectID]*domain.Exercise)}
}

func (m *mockExerciseRepo) nameTaken(e *domain.Exercise) bool {
	for id, other := range m.exercises {
		if id != e.ID && other.TrainerID == e.TrainerID && strings.EqualFold(other.Name, e.Name) {
			return true
		}
	}
	return false
}

func (m *mockExerciseRepo) Create(_ context.Context, e *domain.Exercise) (primitive.ObjectID, error) {
	if m.nameTaken(e) {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	e.ID = primitive.NewObjectID()
	cp := *e
	m.exercises[e.ID] = &cp
	return e.ID, nil
}

func (m *mockExerciseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	if e, ok := m.exercises[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockExerciseRepo) GetByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, e := range m.exercises {
		if e.TrainerID == trainerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockExerciseRepo) Update(_ context.Context, e *domain.Exercise) error {
	cur, ok := m.exercises[e.ID]
	if !ok || cur.TrainerID != e.TrainerID {
		return repository.ErrNotFound
	}
	if m.nameTaken(e) {
		return repository.ErrDuplicate
	}
	cp := *e
	m.exercises[e.ID] = &cp
	return nil
}

func (m *mockExerciseRepo) Delete(_ context.Context, id, trainerID primitive.ObjectID) error {
	e, ok := m.exercises[id]
	if !ok || e.TrainerID != trainerID {
		return repository.ErrNotFound
	}
	delete(m.exercises, id)
	return nil
}

type mockTemplateRepo struct {
	templates map[primitive.ObjectID]*domain.Template
	failWrite error
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[primitive.ObjectID]*domain.Template)}
}

func (m *mockTemplateRepo) Create(_ context.Context, t *domain.Template) (primitive.ObjectID, error) {
	t.ID = primitive.NewObjectID()
	for i := range t.Ranges {
		if t.Ranges[i].ID.IsZero() {
			t.Ranges[i].ID = primitive.NewObjectID()
		}
	}
	cp := *t
	cp.Ranges = append([]domain.Range(nil), t.Ranges...)
	m.templates[t.ID] = &cp
	return t.ID, nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	cp.Ranges = append([]domain.Range(nil), t.Ranges...)
	return &cp, nil
}

func (m *mockTemplateRepo) GetByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.Template, error) {
	var out []domain.Template
	for _, t := range m.templates {
		if t.TrainerID == trainerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockTemplateRepo) Delete(_ context.Context, id, trainerID primitive.ObjectID) error {
	t, ok := m.templates[id]
	if !ok || t.TrainerID != trainerID {
		return repository.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *mockTemplateRepo) AddRange(_ context.Context, templateID primitive.ObjectID, r *domain.Range) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	t, ok := m.templates[templateID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	t.Ranges = append(t.Ranges, *r)
	return nil
}

func (m *mockTemplateRepo) UpdateRange(_ context.Context, templateID primitive.ObjectID, r *domain.Range) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	t, ok := m.templates[templateID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range t.Ranges {
		if t.Ranges[i].ID == r.ID {
			t.Ranges[i] = *r
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockTemplateRepo) DeleteRange(_ context.Context, templateID, rangeID primitive.ObjectID) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	t, ok := m.templates[templateID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range t.Ranges {
		if t.Ranges[i].ID == rangeID {
			t.Ranges = append(t.Ranges[:i], t.Ranges[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type mockStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	types      map[string]string
	presignErr error
	deleted    []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *mockStorage) PutObject(_ context.Context, key, contentType string, body io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	m.types[key] = contentType
	return nil
}

func (m *mockStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if m.presignErr != nil {
		return "", m.presignErr
	}
	return "https://files.test/" + key + "?sig=x", nil
}

func (m *mockStorage) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.New("no such key")
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}
