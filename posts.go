package folio

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultPageSize    = 10
	maxPageSize        = 50
	defaultSearchLimit = 20

	// maxPage keeps (page-1)*pageSize within int.
	maxPage = math.MaxInt / maxPageSize
)

const postColumns = `id, title, content, category, keywords, published, views, created_at, updated_at`

// ClampPage normalizes pagination input: page is within [1, maxPage] and
// pageSize is within [1, 50].
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var (
		p                  Post
		published          int
		createdAt, updated string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Category, &p.Keywords,
		&published, &p.Views, &createdAt, &updated); err != nil {
		return Post{}, err
	}
	p.Published = published == 1
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	defer rows.Close()
	posts := make([]Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (f PostFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.PublishedOnly {
		conds = append(conds, "published = 1")
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Keyword != "" {
		conds = append(conds, `keywords LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Keyword))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListPosts returns one page of posts matching f, newest first.
func (s *Store) ListPosts(ctx context.Context, f PostFilter, page, pageSize int) (PostPage, error) {
	page, pageSize = ClampPage(page, pageSize)
	where, args := f.where()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return PostPage{}, fmt.Errorf("count posts: %w", err)
	}

	query := `SELECT ` + postColumns + ` FROM posts` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return PostPage{}, fmt.Errorf("list posts: %w", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return PostPage{}, fmt.Errorf("scan posts: %w", err)
	}
	return PostPage{Posts: posts, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListAllPosts returns every post, newest first. Drafts are included only
// when includeUnpublished is true.
func (s *Store) ListAllPosts(ctx context.Context, includeUnpublished bool) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	if !includeUnpublished {
		query += ` WHERE published = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all posts: %w", err)
	}
	return scanPosts(rows)
}

// SearchPosts matches query as a substring of title, content or keywords.
// A limit of zero or less means 20, and the limit never exceeds 50.
func (s *Store) SearchPosts(ctx context.Context, query string, limit int, includeUnpublished bool) ([]Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Post{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	pattern := likePattern(query)
	sqlQuery := `SELECT ` + postColumns + ` FROM posts
		WHERE (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR keywords LIKE ? ESCAPE '\')`
	if !includeUnpublished {
		sqlQuery += ` AND published = 1`
	}
	sqlQuery += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, sqlQuery, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return scanPosts(rows)
}

// GetPost returns the post with the given id. Drafts are only returned when
// includeUnpublished is true; otherwise they are reported as ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id string, includeUnpublished bool) (Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ?`
	if !includeUnpublished {
		query += ` AND published = 1`
	}
	return scanPost(s.db.QueryRowContext(ctx, query, id))
}

// GetAdjacentPosts finds the published neighbours of a published post in
// (created_at, id) order. Prev is the next newer post and Next the next
// older one. A non-empty category restricts both lookups to that category.
func (s *Store) GetAdjacentPosts(ctx context.Context, id, category string) (Adjacent, error) {
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM posts WHERE id = ? AND published = 1`, id).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return Adjacent{}, nil
	}
	if err != nil {
		return Adjacent{}, fmt.Errorf("load current post: %w", err)
	}

	scope := ""
	args := []any{createdAt, createdAt, id}
	if category != "" {
		scope = ` AND category = ?`
		args = append(args, category)
	}

	prev, err := s.adjacent(ctx, `SELECT id, title, category, created_at FROM posts
		WHERE published = 1 AND (created_at > ? OR (created_at = ? AND id > ?))`+scope+`
		ORDER BY created_at ASC, id ASC LIMIT 1`, args)
	if err != nil {
		return Adjacent{}, fmt.Errorf("load newer post: %w", err)
	}
	next, err := s.adjacent(ctx, `SELECT id, title, category, created_at FROM posts
		WHERE published = 1 AND (created_at < ? OR (created_at = ? AND id < ?))`+scope+`
		ORDER BY created_at DESC, id DESC LIMIT 1`, args)
	if err != nil {
		return Adjacent{}, fmt.Errorf("load older post: %w", err)
	}
	return Adjacent{Prev: prev, Next: next}, nil
}

func (s *Store) adjacent(ctx context.Context, query string, args []any) (*AdjacentPost, error) {
	var (
		p         AdjacentPost
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Title, &p.Category, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// CreatePost inserts a new post with zero views.
func (s *Store) CreatePost(ctx context.Context, in NewPost) (Post, error) {
	now := s.now()
	p := Post{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		Category:  in.Category,
		Keywords:  in.Keywords,
		Published: in.Published == nil || *in.Published,
		CreatedAt: parseTime(formatTime(now)),
	}
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.ExecContext(ctx, `INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.ID, p.Title, p.Content, p.Category, p.Keywords, boolToInt(p.Published),
		formatTime(now), formatTime(now))
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

// UpdatePost applies patch to an existing post and bumps updated_at.
// created_at never changes.
func (s *Store) UpdatePost(ctx context.Context, id string, patch PostPatch) (Post, error) {
	var updated Post
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		p, err := scanPost(tx.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Content != nil {
			p.Content = *patch.Content
		}
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		if patch.Keywords != nil {
			p.Keywords = *patch.Keywords
		}
		if patch.Published != nil {
			p.Published = *patch.Published
		}
		stamp := s.stamp()
		p.UpdatedAt = parseTime(stamp)

		if _, err := tx.ExecContext(ctx, `UPDATE posts
			SET title = ?, content = ?, category = ?, keywords = ?, published = ?, updated_at = ?
			WHERE id = ?`,
			p.Title, p.Content, p.Category, p.Keywords, boolToInt(p.Published), stamp, id); err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return Post{}, err
	}
	return updated, nil
}

// DeletePost removes a post and, through foreign keys, its comments, likes
// and view log. It reports whether a post was removed.
func (s *Store) DeletePost(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrementViews bumps the view counter of a post and records the view for
// the daily dashboard. It returns ErrNotFound when the post does not exist.
func (s *Store) IncrementViews(ctx context.Context, id string) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE posts SET views = views + 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("increment views: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO views_log (post_id, created_at) VALUES (?, ?)`, id, s.stamp()); err != nil {
			return fmt.Errorf("log view: %w", err)
		}
		return nil
	})
}

// ListCategories returns the distinct non-empty categories of published
// posts in alphabetical order.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM posts
		WHERE published = 1 AND category != ''
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
