package folio

import "time"

// Post is a blog article. Drafts have Published set to false and are only
// visible to the admin.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Keywords  string    `json:"keywords"`
	Published bool      `json:"published"`
	Views     int64     `json:"views"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewPost carries the fields accepted when creating a post. Published
// defaults to true when nil.
type NewPost struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Keywords  string `json:"keywords"`
	Published *bool  `json:"published"`
}

// PostPatch is a partial update. Nil fields are left unchanged.
type PostPatch struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Category  *string `json:"category"`
	Keywords  *string `json:"keywords"`
	Published *bool   `json:"published"`
}

// PostFilter narrows a post listing.
type PostFilter struct {
	PublishedOnly bool
	Category      string // exact match
	Keyword       string // substring of keywords
}

// PostPage is one page of a filtered listing. Total counts every matching post.
type PostPage struct {
	Posts    []Post `json:"posts"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// AdjacentPost is the summary used for prev/next navigation.
type AdjacentPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// Adjacent holds the newer (Prev) and older (Next) neighbours of a post.
type Adjacent struct {
	Prev *AdjacentPost `json:"prev"`
	Next *AdjacentPost `json:"next"`
}

// Comment is a reader comment. Floor is its 1-based position in the thread.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Content   string    `json:"content"`
	Floor     int       `json:"floor"`
	DeviceID  string    `json:"deviceId"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminComment is a comment joined with the title of its post.
type AdminComment struct {
	Comment
	PostTitle string `json:"postTitle"`
}

// CommentPage is one page of the moderation listing.
type CommentPage struct {
	Comments []AdminComment `json:"comments"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// LikeState is the like status of a post as seen by one device.
type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

// LikeSummary aggregates likes for one post.
type LikeSummary struct {
	PostID      string    `json:"postId"`
	PostTitle   string    `json:"postTitle"`
	Likes       int       `json:"likes"`
	LastLikedAt time.Time `json:"lastLikedAt"`
}

// LikePage is one page of per-post like totals.
type LikePage struct {
	Items    []LikeSummary `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// AdminUser is the single administrator account.
type AdminUser struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Image is the metadata of an uploaded, re-encoded image.
type Image struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Size         int       `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
	URL          string    `json:"url"`
}
