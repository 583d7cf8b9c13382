package mocks

import (
	"context"

	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/repository"
	"github.com/stretchr/testify/mock"
)

// Store is a mock for repository.Store.
type Store struct {
	mock.Mock
}

func (m *Store) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	args := m.Called(ctx, collection, id)
	if doc, ok := args.Get(0).(repository.Document); ok {
		return doc, args.Error(1)
	}
	return repository.Document{}, args.Error(1)
}

func (m *Store) List(ctx context.Context, collection, field, value string) ([]repository.Document, error) {
	args := m.Called(ctx, collection, field, value)
	if list, ok := args.Get(0).([]repository.Document); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// EventRepository is a mock for event.Repository.
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Append(ctx context.Context, evt event.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Event, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]event.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Dispatcher is a mock for event.Dispatcher.
type Dispatcher struct {
	mock.Mock
}

func (m *Dispatcher) Dispatch(ctx context.Context, evt event.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}
