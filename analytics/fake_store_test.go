package analytics

import (
	"context"
	"errors"
	"sync"

	"investgroup/api/models"
)

var errStoreDown = errors.New("store down")

// fakeStore returns canned results and can fail individual queries.
type fakeStore struct {
	mu sync.Mutex

	inserted  []*models.Event
	insertErr error

	counts     map[models.EventType]uint64
	countErrs  map[models.EventType]error
	groups     map[models.Dimension][]models.GroupCount
	groupErrs  map[models.Dimension]error
	groupCalls []models.GroupQuery
	countCalls []models.CountFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:    map[models.EventType]uint64{},
		countErrs: map[models.EventType]error{},
		groups:    map[models.Dimension][]models.GroupCount{},
		groupErrs: map[models.Dimension]error{},
	}
}

func (f *fakeStore) InsertEvent(_ context.Context, e *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, e)
	return nil
}

func (f *fakeStore) CountEvents(_ context.Context, filter models.CountFilter) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls = append(f.countCalls, filter)
	if err := f.countErrs[filter.EventType]; err != nil {
		return 0, err
	}
	return f.counts[filter.EventType], nil
}

func (f *fakeStore) GroupCounts(_ context.Context, q models.GroupQuery) ([]models.GroupCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCalls = append(f.groupCalls, q)
	if err := f.groupErrs[q.Dimension]; err != nil {
		return nil, err
	}
	return f.groups[q.Dimension], nil
}

func (f *fakeStore) groupCall(dim models.Dimension) (models.GroupQuery, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.groupCalls {
		if q.Dimension == dim {
			return q, true
		}
	}
	return models.GroupQuery{}, false
}
