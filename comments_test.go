package folio

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCommentFloorsAreSequential(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Thread", true)

	var ids []string
	for i := 1; i <= 3; i++ {
		clock.Advance(time.Second)
		c, err := s.CreateComment(ctx, p.ID, fmt.Sprintf("comment %d", i), "device_1_abc")
		if err != nil {
			t.Fatalf("CreateComment failed: %v", err)
		}
		if c.Floor != i {
			t.Errorf("floor = %d, want %d", c.Floor, i)
		}
		ids = append(ids, c.ID)
	}

	// A new comment takes max+1, so a gap left by a deletion is never refilled.
	if ok, err := s.DeleteComment(ctx, ids[1]); err != nil || !ok {
		t.Fatalf("DeleteComment = %v, %v", ok, err)
	}
	clock.Advance(time.Second)
	c, err := s.CreateComment(ctx, p.ID, "late", "device_2_abc")
	if err != nil {
		t.Fatal(err)
	}
	if c.Floor != 4 {
		t.Errorf("floor after deleting floor 2 = %d, want 4", c.Floor)
	}

	other := createTestPost(t, s, "Other", true)
	oc, err := s.CreateComment(ctx, other.ID, "first", "device_1_abc")
	if err != nil {
		t.Fatal(err)
	}
	if oc.Floor != 1 {
		t.Errorf("floors are per post, got %d", oc.Floor)
	}
}

func TestCommentFloorsUnderConcurrency(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Busy", true)

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateComment(ctx, p.ID, "hi", fmt.Sprintf("device_%d_x", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent CreateComment failed: %v", err)
		}
	}

	comments, err := s.ListComments(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int]bool)
	for _, c := range comments {
		if seen[c.Floor] {
			t.Errorf("floor %d assigned twice", c.Floor)
		}
		seen[c.Floor] = true
	}
	for f := 1; f <= n; f++ {
		if !seen[f] {
			t.Errorf("floor %d missing", f)
		}
	}
}

func TestListAndCountComments(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Thread", true)

	for _, content := range []string{"first", "second"} {
		clock.Advance(time.Second)
		if _, err := s.CreateComment(ctx, p.ID, content, "device_1_abc"); err != nil {
			t.Fatal(err)
		}
	}

	comments, err := s.ListComments(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if len(comments) != 2 || comments[0].Content != "first" || comments[1].Content != "second" {
		t.Errorf("comments out of order: %+v", comments)
	}
	n, err := s.CountComments(ctx, p.ID)
	if err != nil || n != 2 {
		t.Errorf("CountComments = %d, %v", n, err)
	}

	none, err := s.ListComments(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("unknown post should give an empty list, got %v", none)
	}
}

func TestTodayCommentCount(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Thread", true)
	device := "device_1_abc"

	for i := 0; i < 2; i++ {
		if _, err := s.CreateComment(ctx, p.ID, "hi", device); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.TodayCommentCount(ctx, device)
	if err != nil || n != 2 {
		t.Fatalf("TodayCommentCount = %d, %v; want 2", n, err)
	}
	if n, _ := s.TodayCommentCount(ctx, "device_2_abc"); n != 0 {
		t.Errorf("other device count = %d, want 0", n)
	}

	// The window is the UTC calendar day, so the count resets at midnight.
	clock.Advance(15 * time.Hour)
	if n, _ := s.TodayCommentCount(ctx, device); n != 0 {
		t.Errorf("count on the next day = %d, want 0", n)
	}
}

func TestDeleteCommentMissing(t *testing.T) {
	s, _ := newTestStore(t)
	ok, err := s.DeleteComment(context.Background(), "missing")
	if err != nil || ok {
		t.Errorf("DeleteComment = %v, %v; want false, nil", ok, err)
	}
}

func TestListAdminComments(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	goPost := createTestPost(t, s, "Learning Go", true)
	other := createTestPost(t, s, "Cooking", true)

	for _, in := range []struct{ post, content string }{
		{goPost.ID, "nice"},
		{other.ID, "tasty recipe"},
		{other.ID, "more go please"},
	} {
		clock.Advance(time.Minute)
		if _, err := s.CreateComment(ctx, in.post, in.content, "device_1_abc"); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListAdminComments(ctx, "", 1, 20)
	if err != nil {
		t.Fatalf("ListAdminComments failed: %v", err)
	}
	if all.Total != 3 || len(all.Comments) != 3 {
		t.Fatalf("total = %d, len = %d", all.Total, len(all.Comments))
	}
	if all.Comments[0].Content != "more go please" || all.Comments[0].PostTitle != "Cooking" {
		t.Errorf("newest first with post title, got %+v", all.Comments[0])
	}

	q, err := s.ListAdminComments(ctx, "go", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if q.Total != 2 {
		t.Errorf("q matches title or content, total = %d, want 2", q.Total)
	}

	paged, err := s.ListAdminComments(ctx, "", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(paged.Comments) != 1 || paged.Comments[0].Content != "nice" {
		t.Errorf("page 2 = %+v", paged.Comments)
	}
}
