// api/models/event.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventType tags every tracked interaction.
type EventType string

const (
	EventPageView    EventType = "page_view"
	EventArticleView EventType = "article_view"
	EventPDFDownload EventType = "pdf_download"
	EventTopicFilter EventType = "topic_filter"
)

var ErrUnknownEventType = errors.New("unknown event type")

// EventTypes lists every recognised event type.
func EventTypes() []EventType {
	return []EventType{EventPageView, EventArticleView, EventPDFDownload, EventTopicFilter}
}

func (t EventType) Valid() bool {
	switch t {
	case EventPageView, EventArticleView, EventPDFDownload, EventTopicFilter:
		return true
	default:
		return false
	}
}

// Event is one stored row of analytics_events. Optional fields are nil
// unless the event type carries them.
type Event struct {
	ID          string    `json:"id"`
	EventType   EventType `json:"event_type"`
	PagePath    *string   `json:"page_path,omitempty"`
	ArticleSlug *string   `json:"article_slug,omitempty"`
	Topic       *string   `json:"topic,omitempty"`
	UserAgent   string    `json:"user_agent"`
	Country     string    `json:"country"`
	Referrer    string    `json:"referrer"`
	Timestamp   time.Time `json:"timestamp"`
}

// TrackRequest is one of PageView, ArticleView, PDFDownload or TopicFilter.
type TrackRequest interface {
	EventType() EventType
	apply(e *Event)
}

type PageView struct{ PagePath string }

type ArticleView struct{ ArticleSlug string }

type PDFDownload struct{ ArticleSlug string }

type TopicFilter struct{ Topic string }

func (PageView) EventType() EventType    { return EventPageView }
func (ArticleView) EventType() EventType { return EventArticleView }
func (PDFDownload) EventType() EventType { return EventPDFDownload }
func (TopicFilter) EventType() EventType { return EventTopicFilter }

func (r PageView) apply(e *Event)    { e.PagePath = optional(r.PagePath) }
func (r ArticleView) apply(e *Event) { e.ArticleSlug = optional(r.ArticleSlug) }
func (r PDFDownload) apply(e *Event) { e.ArticleSlug = optional(r.ArticleSlug) }
func (r TopicFilter) apply(e *Event) { e.Topic = optional(r.Topic) }

// NewEvent builds the row for a track request. Request metadata and the
// timestamp are filled in by the caller.
func NewEvent(req TrackRequest) *Event {
	e := &Event{EventType: req.EventType()}
	req.apply(e)
	return e
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// TrackPayload is the JSON body accepted by the track endpoint.
type TrackPayload struct {
	EventType   string `json:"event_type" binding:"required,event_type"`
	PagePath    string `json:"page_path,omitempty"`
	ArticleSlug string `json:"article_slug,omitempty"`
	Topic       string `json:"topic,omitempty"`
}

// TrackRequest converts the loose payload into its tagged variant. Fields that
// do not belong to the event type are dropped.
func (p TrackPayload) TrackRequest() (TrackRequest, error) {
	switch EventType(p.EventType) {
	case EventPageView:
		return PageView{PagePath: p.PagePath}, nil
	case EventArticleView:
		return ArticleView{ArticleSlug: p.ArticleSlug}, nil
	case EventPDFDownload:
		return PDFDownload{ArticleSlug: p.ArticleSlug}, nil
	case EventTopicFilter:
		return TopicFilter{Topic: p.Topic}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, p.EventType)
	}
}

type TrackResponse struct {
	Success bool `json:"success"`
}
