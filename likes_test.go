package folio

import (
	"context"
	"testing"
	"time"
)

func TestToggleLike(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Likeable", true)

	steps := []struct {
		device    string
		wantLiked bool
		wantCount int
	}{
		{"device_1_a", true, 1},
		{"device_2_b", true, 2},
		{"device_1_a", false, 1},
		{"device_1_a", true, 2},
	}
	for i, st := range steps {
		state, err := s.ToggleLike(ctx, p.ID, st.device)
		if err != nil {
			t.Fatalf("step %d: ToggleLike failed: %v", i, err)
		}
		if state.Liked != st.wantLiked || state.Count != st.wantCount {
			t.Errorf("step %d: got %+v, want liked=%v count=%d", i, state, st.wantLiked, st.wantCount)
		}
	}
}

func TestLikeStatus(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := createTestPost(t, s, "Likeable", true)
	if _, err := s.ToggleLike(ctx, p.ID, "device_1_a"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		device    string
		wantLiked bool
	}{
		{"device_1_a", true},
		{"device_2_b", false},
		{"", false},
	}
	for _, tt := range tests {
		state, err := s.LikeStatus(ctx, p.ID, tt.device)
		if err != nil {
			t.Fatalf("LikeStatus failed: %v", err)
		}
		if state.Count != 1 || state.Liked != tt.wantLiked {
			t.Errorf("LikeStatus(%q) = %+v", tt.device, state)
		}
	}

	empty, err := s.LikeStatus(ctx, "missing", "device_1_a")
	if err != nil {
		t.Fatal(err)
	}
	if empty.Count != 0 || empty.Liked {
		t.Errorf("unknown post = %+v", empty)
	}
}

func TestListLikeSummary(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	a := createTestPost(t, s, "A", true)
	b := createTestPost(t, s, "B", true)
	createTestPost(t, s, "Unliked", true)

	for _, like := range []struct{ post, device string }{
		{a.ID, "device_1_a"},
		{b.ID, "device_1_a"},
		{b.ID, "device_2_b"},
	} {
		clock.Advance(time.Minute)
		if _, err := s.ToggleLike(ctx, like.post, like.device); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListLikeSummary(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ListLikeSummary failed: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("total = %d, items = %d", page.Total, len(page.Items))
	}
	if page.Items[0].PostID != b.ID || page.Items[0].Likes != 2 || page.Items[0].PostTitle != "B" {
		t.Errorf("most liked first, got %+v", page.Items[0])
	}
	if !page.Items[0].LastLikedAt.Equal(testEpoch.Add(3 * time.Minute)) {
		t.Errorf("LastLikedAt = %v", page.Items[0].LastLikedAt)
	}
}
