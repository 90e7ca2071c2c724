package folio

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// DailyCommentLimit is how many comments one device may post per UTC day.
const DailyCommentLimit = 3

const commentColumns = `id, post_id, content, floor, device_id, created_at`

func scanComment(row rowScanner) (Comment, error) {
	var (
		c         Comment
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.Floor, &c.DeviceID, &createdAt); err != nil {
		return Comment{}, err
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// CreateComment stores a comment and assigns it the next floor of the post's
// thread. Floor assignment and insert are a single statement inside a write
// transaction, so concurrent comments on one post never share a floor.
func (s *Store) CreateComment(ctx context.Context, postID, content, deviceID string) (Comment, error) {
	c := Comment{
		ID:       uuid.NewString(),
		PostID:   postID,
		Content:  content,
		DeviceID: deviceID,
	}
	stamp := s.stamp()
	c.CreatedAt = parseTime(stamp)

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `INSERT INTO comments (`+commentColumns+`)
			SELECT ?, ?, ?, COALESCE(MAX(floor), 0) + 1, ?, ?
			FROM comments WHERE post_id = ?
			RETURNING floor`,
			c.ID, postID, content, deviceID, stamp, postID).Scan(&c.Floor)
	})
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

// ListComments returns the thread of a post in posting order.
func (s *Store) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+commentColumns+` FROM comments
		WHERE post_id = ?
		ORDER BY created_at ASC, floor ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CountComments returns the number of comments on a post.
func (s *Store) CountComments(ctx context.Context, postID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID).Scan(&n)
	return n, err
}

// TodayCommentCount counts the comments a device posted during the current
// UTC calendar day.
func (s *Store) TodayCommentCount(ctx context.Context, deviceID string) (int, error) {
	start, end := dayRange(s.now())
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments
		WHERE device_id = ? AND created_at >= ? AND created_at < ?`,
		deviceID, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count today's comments: %w", err)
	}
	return n, nil
}

// DeleteComment permanently removes a comment and reports whether it existed.
func (s *Store) DeleteComment(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAdminComments pages through all comments, newest first, joined with
// their post title. A non-empty q matches the post title or comment content.
func (s *Store) ListAdminComments(ctx context.Context, q string, page, pageSize int) (CommentPage, error) {
	page, pageSize = ClampPage(page, pageSize)

	where := ""
	var args []any
	if q != "" {
		pattern := likePattern(q)
		where = ` WHERE (p.title LIKE ? ESCAPE '\' OR c.content LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)
		FROM comments c JOIN posts p ON p.id = c.post_id`+where, args...).Scan(&total); err != nil {
		return CommentPage{}, fmt.Errorf("count comments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.post_id, c.content, c.floor, c.device_id, c.created_at, p.title
		FROM comments c JOIN posts p ON p.id = c.post_id`+where+`
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ? OFFSET ?`, append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return CommentPage{}, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]AdminComment, 0)
	for rows.Next() {
		var (
			ac        AdminComment
			createdAt string
		)
		if err := rows.Scan(&ac.ID, &ac.PostID, &ac.Content, &ac.Floor, &ac.DeviceID, &createdAt, &ac.PostTitle); err != nil {
			return CommentPage{}, err
		}
		ac.CreatedAt = parseTime(createdAt)
		comments = append(comments, ac)
	}
	if err := rows.Err(); err != nil {
		return CommentPage{}, err
	}
	return CommentPage{Comments: comments, Total: total, Page: page, PageSize: pageSize}, nil
}
