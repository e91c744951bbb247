package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/iheejigoro/apiserver/internal/storage"
	"github.com/iheejigoro/apiserver/internal/store"
	"github.com/iheejigoro/apiserver/types"
)

type memoryUsers struct {
	mu        sync.Mutex
	byID      map[string]types.User
	createErr error
	updateErr error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]types.User{}}
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return types.User{}, m.createErr
	}
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrAlreadyExists
		}
	}
	user.ID = uuid.NewString()
	m.byID[user.ID] = user
	return user, nil
}

func (m *memoryUsers) Update(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return types.User{}, m.updateErr
	}
	if _, ok := m.byID[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	m.byID[user.ID] = user
	return user, nil
}

type memoryProducts struct {
	mu        sync.Mutex
	byID      map[string]types.Product
	order     []string
	createErr error
	updateErr error
}

func newMemoryProducts() *memoryProducts {
	return &memoryProducts{byID: map[string]types.Product{}}
}

func (m *memoryProducts) List(_ context.Context, offset, limit int) ([]types.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Product{}
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.byID[m.order[i]])
	}
	total := len(out)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *memoryProducts) Get(_ context.Context, id string) (types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.byID[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return product, nil
}

func (m *memoryProducts) Create(_ context.Context, product types.Product) (types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return types.Product{}, m.createErr
	}
	product.ID = uuid.NewString()
	m.byID[product.ID] = product
	m.order = append(m.order, product.ID)
	return product, nil
}

func (m *memoryProducts) Update(_ context.Context, product types.Product) (types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return types.Product{}, m.updateErr
	}
	if _, ok := m.byID[product.ID]; !ok {
		return types.Product{}, store.ErrNotFound
	}
	m.byID[product.ID] = product
	return product, nil
}

func (m *memoryProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// fakeMedia records live uploads by reference id. failAfter makes the
// upload with that index (0-based) fail.
type fakeMedia struct {
	mu        sync.Mutex
	live      map[string]string
	uploads   int
	failAfter int
	deleted   []string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{live: map[string]string{}, failAfter: -1}
}

func (f *fakeMedia) Upload(_ context.Context, folder string, file storage.File) (types.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && f.uploads >= f.failAfter {
		return types.Image{}, errors.New("media host unavailable")
	}
	f.uploads++
	ref := fmt.Sprintf("%s/%d-%s", folder, f.uploads, file.Name)
	f.live[ref] = file.Name
	return types.Image{URL: "https://media.test/" + ref, ReferenceID: ref}, nil
}

func (f *fakeMedia) Delete(_ context.Context, referenceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, referenceID)
	f.deleted = append(f.deleted, referenceID)
	return nil
}

func (f *fakeMedia) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

type published struct {
	channel string
	event   types.Event
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) PublishEvent(_ context.Context, channel string, event types.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, published{channel: channel, event: event})
	return fmt.Sprintf("msg-%d", len(f.msgs)), nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, msg := range f.msgs {
		out = append(out, msg.event.Type)
	}
	return out
}
