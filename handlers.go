package folio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/validate"
)

type commentRequest struct {
	Content  string `json:"content"`
	DeviceID string `json:"deviceId"`
}

type likeRequest struct {
	DeviceID string `json:"deviceId"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// bindJSON decodes the JSON request body into dst. Form and multipart bodies
// are refused, and path and query parameters are never bound.
func bindJSON(c echo.Context, dst any) error {
	req := c.Request()
	if req.ContentLength != 0 && !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "Content-Type must be application/json")
	}
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func notFound(msg string) error {
	return echo.NewHTTPError(http.StatusNotFound, msg)
}

// requirePost fails with 404 unless a published post with id exists.
func (a *App) requirePost(ctx context.Context, id string) error {
	_, err := a.Store.GetPost(ctx, id, false)
	if errors.Is(err, ErrNotFound) {
		return notFound("Post not found")
	}
	return err
}

func (a *App) handleListPosts(c echo.Context) error {
	ctx := c.Request().Context()
	admin := c.QueryParam("admin") == "true"
	if admin && !IsAdmin(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	if admin && !hasQuery(c, "page", "pageSize", "category", "keyword") {
		posts, err := a.Store.ListAllPosts(ctx, true)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, PostPage{Posts: posts, Total: len(posts), Page: 1, PageSize: len(posts)})
	}

	filter := PostFilter{
		PublishedOnly: !admin,
		Category:      strings.TrimSpace(c.QueryParam("category")),
		Keyword:       strings.TrimSpace(c.QueryParam("keyword")),
	}
	page, err := a.Store.ListPosts(ctx, filter,
		queryInt(c, "page", 1), queryInt(c, "pageSize", defaultPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleGetPost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("id"), IsAdmin(c))
	if errors.Is(err, ErrNotFound) {
		return notFound("Post not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"post": post})
}

func (a *App) handleAdjacentPosts(c echo.Context) error {
	adj, err := a.Store.GetAdjacentPosts(c.Request().Context(), c.Param("id"),
		strings.TrimSpace(c.QueryParam("category")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adj)
}

func (a *App) handleRecordView(c echo.Context) error {
	ctx := c.Request().Context()
	settings, err := a.Cache.Settings(ctx)
	if err != nil {
		return err
	}
	if !settings.ViewsEnabled() {
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}
	err = a.Store.IncrementViews(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return notFound("Post not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (a *App) handleListComments(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	comments, err := a.Store.ListComments(ctx, id)
	if err != nil {
		return err
	}
	count, err := a.Store.CountComments(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": comments, "count": count})
}

func (a *App) handleCreateComment(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req commentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	content := validate.SanitizeInput(req.Content)
	if r := validate.Comment(content); !r.Valid {
		return badRequest(r.Error)
	}
	if !validate.IsValidDeviceID(req.DeviceID) {
		return badRequest("Invalid device ID")
	}

	settings, err := a.Cache.Settings(ctx)
	if err != nil {
		return err
	}
	if !settings.CommentsEnabled() {
		return echo.NewHTTPError(http.StatusForbidden, "Comments are disabled")
	}
	if err := a.requirePost(ctx, id); err != nil {
		return err
	}

	today, err := a.Store.TodayCommentCount(ctx, req.DeviceID)
	if err != nil {
		return err
	}
	if today >= DailyCommentLimit {
		return echo.NewHTTPError(http.StatusTooManyRequests,
			fmt.Sprintf("Daily comment limit reached (%d per day)", DailyCommentLimit))
	}

	comment, err := a.Store.CreateComment(ctx, id, content, req.DeviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"comment": comment})
}

func (a *App) handleGetLikes(c echo.Context) error {
	state, err := a.Store.LikeStatus(c.Request().Context(), c.Param("id"),
		strings.TrimSpace(c.Request().Header.Get("X-Device-Id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": state.Count, "liked": state.Liked})
}

func (a *App) handleToggleLike(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req likeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if !validate.IsValidDeviceID(req.DeviceID) {
		return badRequest("Invalid device ID")
	}

	settings, err := a.Cache.Settings(ctx)
	if err != nil {
		return err
	}
	if !settings.LikesEnabled() {
		return echo.NewHTTPError(http.StatusForbidden, "Likes are disabled")
	}
	if err := a.requirePost(ctx, id); err != nil {
		return err
	}

	state, err := a.Store.ToggleLike(ctx, id, req.DeviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

func (a *App) handleSearch(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusOK, echo.Map{"posts": []Post{}})
	}
	if r := validate.SearchQuery(q); !r.Valid {
		return badRequest(r.Error)
	}
	posts, err := a.Store.SearchPosts(c.Request().Context(), q, queryInt(c, "limit", 0), false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": posts})
}

func (a *App) handleCategories(c echo.Context) error {
	categories, err := a.Cache.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": categories})
}

func (a *App) handleGetSettings(c echo.Context) error {
	settings, err := a.Cache.Settings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

func (a *App) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return badRequest("Username and password are required")
	}

	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}

	ok, err := a.Store.VerifyPassword(c.Request().Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		return err
	}
	if !ok {
		a.loginLimiter.Record(ip)
		a.log.Warn().Str("remote_ip", ip).Msg("failed admin login")
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid username or password")
	}

	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c, strings.TrimSpace(req.Username)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (a *App) handleSession(c echo.Context) error {
	if !IsAdmin(c) {
		return c.JSON(http.StatusOK, echo.Map{"authenticated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"authenticated": true, "username": sessionUsername(c)})
}

func handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (a *App) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		a.log.Error().Err(err).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
