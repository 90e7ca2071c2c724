package folio

import (
	"context"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	s, _ := newTestStore(t)
	st, err := s.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if st.BlogTitle != "Blog" || st.Language != "en" {
		t.Errorf("defaults = %+v", st)
	}
	if !st.CommentsEnabled() || !st.LikesEnabled() || !st.ViewsEnabled() {
		t.Error("features should be enabled by default")
	}
}

func TestUpdateSettings(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	st, err := s.UpdateSettings(ctx, map[string]string{
		"blogTitle":      "My Notes",
		"authorBio":      "Writes Go.",
		"enableComments": "false",
		"unknownKey":     "ignored",
	})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if st.BlogTitle != "My Notes" || st.AuthorBio != "Writes Go." {
		t.Errorf("settings not applied: %+v", st)
	}
	if st.CommentsEnabled() {
		t.Error("comments should be disabled")
	}
	if !st.LikesEnabled() {
		t.Error("untouched toggle changed")
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM settings WHERE key = 'unknownKey'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("unknown keys must not be stored")
	}

	// An empty value falls back to the default on read.
	st, err = s.UpdateSettings(ctx, map[string]string{"blogTitle": ""})
	if err != nil {
		t.Fatal(err)
	}
	if st.BlogTitle != "Blog" {
		t.Errorf("BlogTitle = %q, want default", st.BlogTitle)
	}
}

func TestSettingKeys(t *testing.T) {
	for _, key := range []string{"blogTitle", "authorAvatar", "enableViews"} {
		if !IsSettingKey(key) {
			t.Errorf("IsSettingKey(%q) = false", key)
		}
	}
	if IsSettingKey("admin") {
		t.Error("unexpected key accepted")
	}
	if !IsSettingToggle("enableLikes") || IsSettingToggle("language") {
		t.Error("IsSettingToggle misclassifies keys")
	}
}

func TestSiteCache(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	cache := NewSiteCache(s, time.Hour)

	st, err := cache.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.BlogTitle != "Blog" {
		t.Fatalf("BlogTitle = %q", st.BlogTitle)
	}

	if _, err := s.UpdateSettings(ctx, map[string]string{"blogTitle": "Changed"}); err != nil {
		t.Fatal(err)
	}
	if st, _ := cache.Settings(ctx); st.BlogTitle != "Blog" {
		t.Errorf("cache should serve the stale value until invalidated, got %q", st.BlogTitle)
	}

	cache.Invalidate()
	if st, _ := cache.Settings(ctx); st.BlogTitle != "Changed" {
		t.Errorf("after Invalidate BlogTitle = %q, want Changed", st.BlogTitle)
	}

	if _, err := s.CreatePost(ctx, NewPost{Title: "t", Content: "c", Category: "go"}); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate()
	categories, err := cache.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != 1 || categories[0] != "go" {
		t.Errorf("categories = %v", categories)
	}
}
