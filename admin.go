package folio

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/validate"
)

const adminPageSize = 20

type credentialsRequest struct {
	Username string  `json:"username" validate:"required"`
	Password *string `json:"password"`
}

// sanitizePtr cleans *p in place when it is set.
func sanitizePtr(p *string) {
	if p != nil {
		*p = validate.SanitizeInput(*p)
	}
}

func checkAll(results ...validate.Result) error {
	for _, r := range results {
		if !r.Valid {
			return badRequest(r.Error)
		}
	}
	return nil
}

func (a *App) handleCreatePost(c echo.Context) error {
	var in NewPost
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	in.Title = validate.SanitizeInput(in.Title)
	in.Content = validate.SanitizeInput(in.Content)
	in.Category = validate.SanitizeInput(in.Category)
	in.Keywords = validate.SanitizeInput(in.Keywords)
	if err := checkAll(validate.Title(in.Title), validate.Content(in.Content), validate.Category(in.Category)); err != nil {
		return err
	}

	post, err := a.Store.CreatePost(c.Request().Context(), in)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.log.Info().Str("post_id", post.ID).Bool("published", post.Published).Msg("post created")
	return c.JSON(http.StatusCreated, echo.Map{"post": post})
}

func (a *App) handleUpdatePost(c echo.Context) error {
	var patch PostPatch
	if err := bindJSON(c, &patch); err != nil {
		return err
	}
	sanitizePtr(patch.Title)
	sanitizePtr(patch.Content)
	sanitizePtr(patch.Category)
	sanitizePtr(patch.Keywords)

	var checks []validate.Result
	if patch.Title != nil {
		checks = append(checks, validate.Title(*patch.Title))
	}
	if patch.Content != nil {
		checks = append(checks, validate.Content(*patch.Content))
	}
	if patch.Category != nil {
		checks = append(checks, validate.Category(*patch.Category))
	}
	if err := checkAll(checks...); err != nil {
		return err
	}

	post, err := a.Store.UpdatePost(c.Request().Context(), c.Param("id"), patch)
	if errors.Is(err, ErrNotFound) {
		return notFound("Post not found")
	}
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, echo.Map{"post": post})
}

func (a *App) handleDeletePost(c echo.Context) error {
	id := c.Param("id")
	deleted, err := a.Store.DeletePost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Post not found")
	}
	a.Cache.Invalidate()
	a.log.Info().Str("post_id", id).Msg("post deleted")
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// settingValue converts one JSON value of a settings update to its stored
// string form.
func settingValue(key string, raw any) (string, error) {
	var v string
	switch t := raw.(type) {
	case nil:
	case bool:
		v = strconv.FormatBool(t)
	case string:
		v = validate.SanitizeInput(t)
	default:
		return "", badRequest(fmt.Sprintf("Invalid value for %s", key))
	}
	if IsSettingToggle(key) && v != "" && v != "true" && v != "false" {
		return "", badRequest(fmt.Sprintf("%s must be true or false", key))
	}
	return v, nil
}

func (a *App) handleUpdateSettings(c echo.Context) error {
	values := map[string]any{}
	if err := bindJSON(c, &values); err != nil {
		return err
	}

	updates := make(map[string]string, len(values))
	for key, raw := range values {
		if !IsSettingKey(key) {
			continue
		}
		v, err := settingValue(key, raw)
		if err != nil {
			return err
		}
		updates[key] = v
	}
	if bio, ok := updates["authorBio"]; ok {
		if err := checkAll(validate.Bio(bio)); err != nil {
			return err
		}
	}

	settings, err := a.Store.UpdateSettings(c.Request().Context(), updates)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, settings)
}

func (a *App) handleGetCredentials(c echo.Context) error {
	admin, err := a.Store.GetAdminUser(c.Request().Context())
	if errors.Is(err, ErrNotFound) {
		return notFound("Admin not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"username": admin.Username})
}

func (a *App) handleUpdateCredentials(c echo.Context) error {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(validate.SanitizeInput(req.Username))
	if err := c.Validate(&req); err != nil {
		return badRequest("Username is required")
	}
	checks := []validate.Result{validate.Username(req.Username)}
	if req.Password != nil {
		checks = append(checks, validate.Password(*req.Password))
	}
	if err := checkAll(checks...); err != nil {
		return err
	}

	err := a.Store.UpdateAdminCredentials(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, ErrPasswordRequired) {
		return badRequest("Password is required")
	}
	if err != nil {
		return err
	}
	if err := setAdminSession(c, req.Username); err != nil {
		return err
	}
	a.log.Info().Str("username", req.Username).Bool("password_changed", req.Password != nil).
		Msg("admin credentials updated")
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (a *App) handleAdminComments(c echo.Context) error {
	page, err := a.Store.ListAdminComments(c.Request().Context(),
		strings.TrimSpace(c.QueryParam("q")),
		queryInt(c, "page", 1), queryInt(c, "pageSize", adminPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleDeleteComment(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return badRequest("Invalid comment ID")
	}
	deleted, err := a.Store.DeleteComment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Comment not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (a *App) handleAdminLikes(c echo.Context) error {
	page, err := a.Store.ListLikeSummary(c.Request().Context(),
		queryInt(c, "page", 1), queryInt(c, "pageSize", adminPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleAdminStats(c echo.Context) error {
	day := a.Store.now()
	if v := strings.TrimSpace(c.QueryParam("date")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return badRequest("Invalid date, expected YYYY-MM-DD")
		}
		day = t
	}
	stats, err := a.Store.DashboardStats(c.Request().Context(), day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
