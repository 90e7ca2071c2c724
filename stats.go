package folio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Overview holds site-wide totals.
type Overview struct {
	Posts    int   `json:"posts"`
	Views    int64 `json:"views"`
	Likes    int   `json:"likes"`
	Comments int   `json:"comments"`
}

// DayStats holds the activity of one UTC calendar day.
type DayStats struct {
	Date     string `json:"date"`
	Posts    int    `json:"posts"`
	Views    int    `json:"views"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
}

// ViewedPost is a post ranked by views recorded during one day.
type ViewedPost struct {
	PostID       string    `json:"postId"`
	Title        string    `json:"title"`
	Views        int       `json:"views"`
	LatestViewAt time.Time `json:"latestViewAt"`
}

// Dashboard is the admin overview for one day.
type Dashboard struct {
	Overview       Overview       `json:"overview"`
	Day            DayStats       `json:"day"`
	ViewsTop       []ViewedPost   `json:"viewsTop"`
	RecentComments []AdminComment `json:"recentComments"`
}

// DashboardStats aggregates totals and the activity of the UTC day holding
// day. Independent queries run concurrently; the first failure is returned.
func (s *Store) DashboardStats(ctx context.Context, day time.Time) (Dashboard, error) {
	start, end := dayRange(day)
	d := Dashboard{
		Day:            DayStats{Date: day.UTC().Format("2006-01-02")},
		ViewsTop:       []ViewedPost{},
		RecentComments: []AdminComment{},
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	count := func(name, query string, dst any, args ...any) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var n int64
			if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
				setErr(fmt.Errorf("%s: %w", name, err))
				return
			}
			mu.Lock()
			switch v := dst.(type) {
			case *int:
				*v = int(n)
			case *int64:
				*v = n
			}
			mu.Unlock()
		}()
	}

	count("count posts", `SELECT COUNT(*) FROM posts`, &d.Overview.Posts)
	count("sum views", `SELECT COALESCE(SUM(views), 0) FROM posts`, &d.Overview.Views)
	count("count likes", `SELECT COUNT(*) FROM likes`, &d.Overview.Likes)
	count("count comments", `SELECT COUNT(*) FROM comments`, &d.Overview.Comments)

	count("count day posts", `SELECT COUNT(*) FROM posts WHERE created_at >= ? AND created_at < ?`,
		&d.Day.Posts, start, end)
	count("count day views", `SELECT COUNT(*) FROM views_log WHERE created_at >= ? AND created_at < ?`,
		&d.Day.Views, start, end)
	count("count day likes", `SELECT COUNT(*) FROM likes WHERE created_at >= ? AND created_at < ?`,
		&d.Day.Likes, start, end)
	count("count day comments", `SELECT COUNT(*) FROM comments WHERE created_at >= ? AND created_at < ?`,
		&d.Day.Comments, start, end)

	// Top viewed posts of the day
	wg.Add(1)
	go func() {
		defer wg.Done()
		rows, err := s.db.QueryContext(ctx, `SELECT p.id, p.title, COUNT(*) AS views, MAX(v.created_at) AS latest
			FROM views_log v JOIN posts p ON p.id = v.post_id
			WHERE v.created_at >= ? AND v.created_at < ?
			GROUP BY p.id, p.title
			ORDER BY views DESC, latest DESC
			LIMIT 10`, start, end)
		if err != nil {
			setErr(fmt.Errorf("top viewed posts: %w", err))
			return
		}
		defer rows.Close()
		var top []ViewedPost
		for rows.Next() {
			var (
				vp     ViewedPost
				latest string
			)
			if err := rows.Scan(&vp.PostID, &vp.Title, &vp.Views, &latest); err != nil {
				setErr(fmt.Errorf("scan top viewed: %w", err))
				return
			}
			vp.LatestViewAt = parseTime(latest)
			top = append(top, vp)
		}
		if err := rows.Err(); err != nil {
			setErr(err)
			return
		}
		mu.Lock()
		if top != nil {
			d.ViewsTop = top
		}
		mu.Unlock()
	}()

	// Latest comments of the day
	wg.Add(1)
	go func() {
		defer wg.Done()
		rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.post_id, c.content, c.floor, c.device_id, c.created_at, p.title
			FROM comments c JOIN posts p ON p.id = c.post_id
			WHERE c.created_at >= ? AND c.created_at < ?
			ORDER BY c.created_at DESC
			LIMIT 20`, start, end)
		if err != nil {
			setErr(fmt.Errorf("recent comments: %w", err))
			return
		}
		defer rows.Close()
		var recent []AdminComment
		for rows.Next() {
			var (
				ac        AdminComment
				createdAt string
			)
			if err := rows.Scan(&ac.ID, &ac.PostID, &ac.Content, &ac.Floor, &ac.DeviceID, &createdAt, &ac.PostTitle); err != nil {
				setErr(fmt.Errorf("scan recent comment: %w", err))
				return
			}
			ac.CreatedAt = parseTime(createdAt)
			recent = append(recent, ac)
		}
		if err := rows.Err(); err != nil {
			setErr(err)
			return
		}
		mu.Lock()
		if recent != nil {
			d.RecentComments = recent
		}
		mu.Unlock()
	}()

	wg.Wait()
	if firstErr != nil {
		return Dashboard{}, firstErr
	}
	return d, nil
}

// CleanupViewLog deletes view log rows older than retentionDays and returns
// how many were removed. A retention of zero keeps everything.
func (s *Store) CleanupViewLog(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := formatTime(s.now().AddDate(0, 0, -retentionDays))
	res, err := s.db.ExecContext(ctx, `DELETE FROM views_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup views_log: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanupScheduler runs CleanupViewLog every day at 03:00 UTC. The
// returned function stops the scheduler and waits for a running job.
func (s *Store) StartCleanupScheduler(retentionDays int) (func(), error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := s.CleanupViewLog(ctx, retentionDays)
		if err != nil {
			s.log.Error().Err(err).Msg("view log cleanup failed")
			return
		}
		s.log.Info().Int64("deleted", n).Int("retention_days", retentionDays).Msg("view log cleaned up")
	})
	if err != nil {
		return nil, fmt.Errorf("schedule view log cleanup: %w", err)
	}
	c.Start()
	s.log.Debug().Msg("view log cleanup scheduled daily at 03:00 UTC")
	return func() { <-c.Stop().Done() }, nil
}
