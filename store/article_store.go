package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ArticleStore resolves research article titles for the dashboard. The
// articles table belongs to the publishing pipeline; only slug and title are
// read here.
type ArticleStore struct {
	db *sql.DB
}

func NewArticleStore(db *sql.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

func (s *ArticleStore) TitlesBySlug(ctx context.Context, slugs []string) (map[string]string, error) {
	titles := make(map[string]string, len(slugs))
	if len(slugs) == 0 {
		return titles, nil
	}

	placeholders := make([]string, len(slugs))
	args := make([]any, len(slugs))
	for i, slug := range slugs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = slug
	}

	query := fmt.Sprintf(`SELECT slug, title FROM articles WHERE slug IN (%s)`, strings.Join(placeholders, ", "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query article titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slug, title string
		if err := rows.Scan(&slug, &title); err != nil {
			return nil, fmt.Errorf("failed to scan article title: %w", err)
		}
		titles[slug] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during article titles: %w", err)
	}
	return titles, nil
}
