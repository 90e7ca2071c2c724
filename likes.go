package folio

import (
	"context"
	"database/sql"
	"fmt"
)

// ToggleLike flips the like of deviceID on postID and returns the new state
// with the recounted total. The whole check-and-flip runs in one write
// transaction.
func (s *Store) ToggleLike(ctx context.Context, postID, deviceID string) (LikeState, error) {
	var state LikeState
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE post_id = ? AND device_id = ?`, postID, deviceID)
		if err != nil {
			return fmt.Errorf("remove like: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if removed == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO likes (post_id, device_id, created_at) VALUES (?, ?, ?)`,
				postID, deviceID, s.stamp()); err != nil {
				return fmt.Errorf("add like: %w", err)
			}
		}
		state.Liked = removed == 0
		return tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&state.Count)
	})
	if err != nil {
		return LikeState{}, err
	}
	return state, nil
}

// LikeStatus returns the like count of a post and whether deviceID liked it.
// An empty deviceID is never reported as liked.
func (s *Store) LikeStatus(ctx context.Context, postID, deviceID string) (LikeState, error) {
	var (
		state LikeState
		mine  int
	)
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN device_id = ? THEN 1 ELSE 0 END), 0)
		FROM likes WHERE post_id = ?`, deviceID, postID).Scan(&state.Count, &mine)
	if err != nil {
		return LikeState{}, fmt.Errorf("like status: %w", err)
	}
	state.Liked = deviceID != "" && mine > 0
	return state, nil
}

// ListLikeSummary pages through per-post like totals, most liked first.
// Total is the number of distinct posts with at least one like.
func (s *Store) ListLikeSummary(ctx context.Context, page, pageSize int) (LikePage, error) {
	page, pageSize = ClampPage(page, pageSize)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT post_id) FROM likes`).Scan(&total); err != nil {
		return LikePage{}, fmt.Errorf("count liked posts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT l.post_id, p.title, COUNT(*) AS likes, MAX(l.created_at) AS last_liked
		FROM likes l JOIN posts p ON p.id = l.post_id
		GROUP BY l.post_id, p.title
		ORDER BY likes DESC, last_liked DESC
		LIMIT ? OFFSET ?`, pageSize, (page-1)*pageSize)
	if err != nil {
		return LikePage{}, fmt.Errorf("list like summary: %w", err)
	}
	defer rows.Close()

	items := make([]LikeSummary, 0)
	for rows.Next() {
		var (
			ls   LikeSummary
			last string
		)
		if err := rows.Scan(&ls.PostID, &ls.PostTitle, &ls.Likes, &last); err != nil {
			return LikePage{}, err
		}
		ls.LastLikedAt = parseTime(last)
		items = append(items, ls)
	}
	if err := rows.Err(); err != nil {
		return LikePage{}, err
	}
	return LikePage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}
