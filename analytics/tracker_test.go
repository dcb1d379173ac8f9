package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investgroup/api/models"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestTracker_Track(t *testing.T) {
	tests := []struct {
		name    string
		req     models.TrackRequest
		wantTyp models.EventType
		check   func(t *testing.T, e *models.Event)
	}{
		{
			name:    "page view",
			req:     models.PageView{PagePath: "/research"},
			wantTyp: models.EventPageView,
			check: func(t *testing.T, e *models.Event) {
				require.NotNil(t, e.PagePath)
				assert.Equal(t, "/research", *e.PagePath)
				assert.Nil(t, e.ArticleSlug)
				assert.Nil(t, e.Topic)
			},
		},
		{
			name:    "article view",
			req:     models.ArticleView{ArticleSlug: "q3-outlook"},
			wantTyp: models.EventArticleView,
			check: func(t *testing.T, e *models.Event) {
				require.NotNil(t, e.ArticleSlug)
				assert.Equal(t, "q3-outlook", *e.ArticleSlug)
				assert.Nil(t, e.PagePath)
			},
		},
		{
			name:    "pdf download",
			req:     models.PDFDownload{ArticleSlug: "q3-outlook"},
			wantTyp: models.EventPDFDownload,
			check: func(t *testing.T, e *models.Event) {
				require.NotNil(t, e.ArticleSlug)
				assert.Nil(t, e.Topic)
			},
		},
		{
			name:    "topic filter",
			req:     models.TopicFilter{Topic: "Macro"},
			wantTyp: models.EventTopicFilter,
			check: func(t *testing.T, e *models.Event) {
				require.NotNil(t, e.Topic)
				assert.Equal(t, "Macro", *e.Topic)
				assert.Nil(t, e.ArticleSlug)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tracker := NewTracker(store, WithTrackerClock(func() time.Time { return fixedNow }))

			ok := tracker.Track(context.Background(), tt.req, RequestMeta{
				UserAgent: " Mozilla/5.0 ",
				Country:   "us",
				Referrer:  "https://news.example.com/",
			})

			assert.True(t, ok)
			require.Len(t, store.inserted, 1)
			e := store.inserted[0]
			assert.Equal(t, tt.wantTyp, e.EventType)
			assert.Equal(t, "Mozilla/5.0", e.UserAgent)
			assert.Equal(t, "US", e.Country)
			assert.Equal(t, "https://news.example.com/", e.Referrer)
			assert.Equal(t, fixedNow, e.Timestamp)
			tt.check(t, e)
		})
	}
}

func TestTracker_EmptyMetaAndFields(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store)

	assert.True(t, tracker.Track(context.Background(), models.ArticleView{}, RequestMeta{}))
	require.Len(t, store.inserted, 1)
	e := store.inserted[0]
	assert.Nil(t, e.ArticleSlug, "blank slug is stored as NULL")
	assert.Empty(t, e.UserAgent)
	assert.Empty(t, e.Country)
	assert.Empty(t, e.Referrer)
	assert.False(t, e.Timestamp.IsZero())
}

func TestTracker_StoreFailureIsSoft(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errStoreDown
	tracker := NewTracker(store)

	assert.NotPanics(t, func() {
		ok := tracker.Track(context.Background(), models.PageView{PagePath: "/"}, RequestMeta{})
		assert.False(t, ok)
	})
	assert.Empty(t, store.inserted)
}

func TestTracker_IgnoredPaths(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, WithIgnoredPaths("/admin", ""))

	assert.True(t, tracker.Track(context.Background(), models.PageView{PagePath: "/admin/analytics"}, RequestMeta{}))
	assert.Empty(t, store.inserted)

	// only page views are filtered by path
	assert.True(t, tracker.Track(context.Background(), models.TopicFilter{Topic: "/admin"}, RequestMeta{}))
	assert.True(t, tracker.Track(context.Background(), models.PageView{PagePath: "/research"}, RequestMeta{}))
	assert.Len(t, store.inserted, 2)
}

func TestTracker_NilRequest(t *testing.T) {
	store := newFakeStore()
	assert.False(t, NewTracker(store).Track(context.Background(), nil, RequestMeta{}))
	assert.Empty(t, store.inserted)
}
