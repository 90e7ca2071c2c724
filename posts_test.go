package folio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestCreateAndGetPost(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreatePost(ctx, NewPost{
		Title:    "Hello",
		Content:  "# Hi\n\nBody",
		Category: "go",
		Keywords: "sqlite,echo",
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an id")
	}
	if !created.Published {
		t.Error("posts should be published by default")
	}

	got, err := s.GetPost(ctx, created.ID, false)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Hello" || got.Content != "# Hi\n\nBody" || got.Category != "go" || got.Keywords != "sqlite,echo" {
		t.Errorf("unexpected post: %+v", got)
	}
	if !got.CreatedAt.Equal(testEpoch) || !got.UpdatedAt.Equal(testEpoch) {
		t.Errorf("timestamps = %v / %v, want %v", got.CreatedAt, got.UpdatedAt, testEpoch)
	}
	if got.Views != 0 {
		t.Errorf("Views = %d, want 0", got.Views)
	}
}

func TestGetPostNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetPost(context.Background(), "missing", true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDraftsHiddenFromPublicReads(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	createTestPost(t, s, "Public", true)
	clock.Advance(time.Minute)
	draft := createTestPost(t, s, "Draft", false)

	if _, err := s.GetPost(ctx, draft.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("draft should be hidden, err = %v", err)
	}
	if _, err := s.GetPost(ctx, draft.ID, true); err != nil {
		t.Errorf("draft should be visible to admin: %v", err)
	}

	page, err := s.ListPosts(ctx, PostFilter{PublishedOnly: true}, 1, 10)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if page.Total != 1 || len(page.Posts) != 1 || page.Posts[0].Title != "Public" {
		t.Errorf("public listing = %+v", page)
	}

	all, err := s.ListAllPosts(ctx, true)
	if err != nil {
		t.Fatalf("ListAllPosts failed: %v", err)
	}
	if len(all) != 2 || all[0].Title != "Draft" {
		t.Errorf("admin listing should include the draft first, got %d posts", len(all))
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != 0 {
		t.Errorf("categories = %v, want none", categories)
	}
}

func TestListPostsPagination(t *testing.T) {
	s, clock := newTestStore(t)
	for i := 1; i <= 25; i++ {
		clock.Advance(time.Minute)
		createTestPost(t, s, fmt.Sprintf("Post %02d", i), true)
	}

	page, err := s.ListPosts(context.Background(), PostFilter{PublishedOnly: true}, 2, 10)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if page.Total != 25 || page.Page != 2 || page.PageSize != 10 {
		t.Fatalf("page meta = total %d page %d size %d", page.Total, page.Page, page.PageSize)
	}
	if len(page.Posts) != 10 {
		t.Fatalf("got %d posts, want 10", len(page.Posts))
	}
	// Newest first: ranks 11..20 are posts 15 down to 6.
	for i, p := range page.Posts {
		want := fmt.Sprintf("Post %02d", 15-i)
		if p.Title != want {
			t.Errorf("posts[%d] = %q, want %q", i, p.Title, want)
		}
	}

	last, err := s.ListPosts(context.Background(), PostFilter{PublishedOnly: true}, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(last.Posts) != 5 {
		t.Errorf("last page has %d posts, want 5", len(last.Posts))
	}

	beyond, err := s.ListPosts(context.Background(), PostFilter{PublishedOnly: true}, 9, 10)
	if err != nil {
		t.Fatal(err)
	}
	if beyond.Posts == nil || len(beyond.Posts) != 0 {
		t.Errorf("page past the end should be an empty list, got %v", beyond.Posts)
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{1, 10, 1, 10},
		{0, 10, 1, 10},
		{-3, 0, 1, 1},
		{2, 500, 2, 50},
		{math.MaxInt, 10, maxPage, 10},
	}
	for _, tt := range tests {
		p, n := ClampPage(tt.page, tt.size)
		if p != tt.wantPage || n != tt.wantSize {
			t.Errorf("ClampPage(%d, %d) = %d, %d; want %d, %d", tt.page, tt.size, p, n, tt.wantPage, tt.wantSize)
		}
	}
}

func TestListPostsHugePageIsEmpty(t *testing.T) {
	s, clock := newTestStore(t)
	for i := 1; i <= 5; i++ {
		createTestPost(t, s, fmt.Sprintf("Post %02d", i), true)
		clock.Advance(time.Minute)
	}

	page, err := s.ListPosts(context.Background(), PostFilter{PublishedOnly: true}, math.MaxInt, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Posts) != 0 {
		t.Errorf("got %d posts on page %d, want none", len(page.Posts), page.Page)
	}
	if page.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Total)
	}
	if page.Page != maxPage {
		t.Errorf("Page = %d, want %d", page.Page, maxPage)
	}
}

func TestListPostsFilters(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	for _, in := range []NewPost{
		{Title: "A", Content: "a", Category: "go", Keywords: "sqlite,testing"},
		{Title: "B", Content: "b", Category: "go", Keywords: "echo"},
		{Title: "C", Content: "c", Category: "golang", Keywords: "100%"},
	} {
		clock.Advance(time.Minute)
		if _, err := s.CreatePost(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter PostFilter
		want   []string
	}{
		{"category is exact", PostFilter{Category: "go"}, []string{"B", "A"}},
		{"keyword substring", PostFilter{Keyword: "sql"}, []string{"A"}},
		{"both", PostFilter{Category: "go", Keyword: "echo"}, []string{"B"}},
		{"percent is literal", PostFilter{Keyword: "%"}, []string{"C"}},
		{"underscore is literal", PostFilter{Keyword: "_"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ListPosts(ctx, tt.filter, 1, 10)
			if err != nil {
				t.Fatal(err)
			}
			if page.Total != len(tt.want) || len(page.Posts) != len(tt.want) {
				t.Fatalf("got %d posts (total %d), want %v", len(page.Posts), page.Total, tt.want)
			}
			for i, p := range page.Posts {
				if p.Title != tt.want[i] {
					t.Errorf("posts[%d] = %q, want %q", i, p.Title, tt.want[i])
				}
			}
		})
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != 2 || categories[0] != "go" || categories[1] != "golang" {
		t.Errorf("categories = %v", categories)
	}
}

func TestSearchPosts(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	for _, in := range []NewPost{
		{Title: "Go tips", Content: "channels"},
		{Title: "Other", Content: "about goroutines"},
		{Title: "Tagged", Content: "x", Keywords: "go"},
		{Title: "Unrelated", Content: "python"},
	} {
		clock.Advance(time.Minute)
		if _, err := s.CreatePost(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	clock.Advance(time.Minute)
	createTestPost(t, s, "Go draft", false)

	posts, err := s.SearchPosts(ctx, "  go  ", 0, false)
	if err != nil {
		t.Fatalf("SearchPosts failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("got %d results, want 3", len(posts))
	}
	if posts[0].Title != "Tagged" {
		t.Errorf("results should be newest first, got %q", posts[0].Title)
	}

	withDrafts, err := s.SearchPosts(ctx, "go", 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(withDrafts) != 4 {
		t.Errorf("got %d results with drafts, want 4", len(withDrafts))
	}

	limited, err := s.SearchPosts(ctx, "go", 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored, got %d results", len(limited))
	}

	empty, err := s.SearchPosts(ctx, "   ", 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty query should give an empty list, got %v", empty)
	}
}

func TestGetAdjacentPosts(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	mk := func(title, category string) Post {
		clock.Advance(time.Minute)
		p, err := s.CreatePost(ctx, NewPost{Title: title, Content: "x", Category: category})
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	a := mk("A", "go")
	b := mk("B", "life")
	c := mk("C", "go")
	clock.Advance(time.Minute)
	createTestPost(t, s, "Draft", false)

	adj, err := s.GetAdjacentPosts(ctx, b.ID, "")
	if err != nil {
		t.Fatalf("GetAdjacentPosts failed: %v", err)
	}
	if adj.Prev == nil || adj.Prev.ID != c.ID {
		t.Errorf("prev of B should be C, got %+v", adj.Prev)
	}
	if adj.Next == nil || adj.Next.ID != a.ID {
		t.Errorf("next of B should be A, got %+v", adj.Next)
	}

	newest, err := s.GetAdjacentPosts(ctx, c.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if newest.Prev != nil {
		t.Errorf("drafts must not appear as neighbours, got %+v", newest.Prev)
	}

	scoped, err := s.GetAdjacentPosts(ctx, c.ID, "go")
	if err != nil {
		t.Fatal(err)
	}
	if scoped.Next == nil || scoped.Next.ID != a.ID {
		t.Errorf("next of C within go should be A, got %+v", scoped.Next)
	}

	missing, err := s.GetAdjacentPosts(ctx, "missing", "")
	if err != nil {
		t.Fatal(err)
	}
	if missing.Prev != nil || missing.Next != nil {
		t.Errorf("unknown post should have no neighbours, got %+v", missing)
	}
}

func TestAdjacentPostsWithEqualTimestamps(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		createTestPost(t, s, fmt.Sprintf("P%d", i), true)
	}
	all, err := s.ListAllPosts(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	// With equal created_at the id breaks ties in both listing and navigation.
	adj, err := s.GetAdjacentPosts(ctx, all[1].ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if adj.Prev == nil || adj.Prev.ID != all[0].ID {
		t.Errorf("prev = %+v, want %s", adj.Prev, all[0].ID)
	}
	if adj.Next == nil || adj.Next.ID != all[2].ID {
		t.Errorf("next = %+v, want %s", adj.Next, all[2].ID)
	}
}

func TestUpdatePost(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Before", true)

	clock.Advance(time.Hour)
	title := "After"
	published := false
	updated, err := s.UpdatePost(ctx, p.ID, PostPatch{Title: &title, Published: &published})
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if updated.Title != "After" || updated.Published {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Content != p.Content {
		t.Errorf("unpatched content changed: %q", updated.Content)
	}

	got, err := s.GetPost(ctx, p.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", p.CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(testEpoch.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, testEpoch.Add(time.Hour))
	}

	if _, err := s.UpdatePost(ctx, "missing", PostPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of missing post: err = %v, want ErrNotFound", err)
	}
}

func TestDeletePostCascades(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Doomed", true)

	if _, err := s.CreateComment(ctx, p.ID, "hi", "device_1_a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ToggleLike(ctx, p.ID, "device_1_a"); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementViews(ctx, p.ID); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.DeletePost(ctx, p.ID)
	if err != nil || !deleted {
		t.Fatalf("DeletePost = %v, %v", deleted, err)
	}

	for _, table := range []string{"comments", "likes", "views_log"} {
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after delete, want 0", table, n)
		}
	}

	again, err := s.DeletePost(ctx, p.ID)
	if err != nil || again {
		t.Errorf("second delete = %v, %v; want false, nil", again, err)
	}
}

func TestIncrementViews(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Viewed", true)

	for i := 0; i < 3; i++ {
		if err := s.IncrementViews(ctx, p.ID); err != nil {
			t.Fatalf("IncrementViews failed: %v", err)
		}
	}
	got, err := s.GetPost(ctx, p.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Views != 3 {
		t.Errorf("Views = %d, want 3", got.Views)
	}

	if err := s.IncrementViews(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
