package folio

import (
	"context"
	"database/sql"
	"fmt"
)

// Settings is the site-wide key/value configuration editable by the admin.
// The feature toggles hold the strings "true" or "false".
type Settings struct {
	BlogTitle      string `json:"blogTitle"`
	BlogSubtitle   string `json:"blogSubtitle"`
	AuthorName     string `json:"authorName"`
	AuthorBio      string `json:"authorBio"`
	AuthorEmail    string `json:"authorEmail"`
	AuthorAvatar   string `json:"authorAvatar"`
	Language       string `json:"language"`
	EnableComments string `json:"enableComments"`
	EnableLikes    string `json:"enableLikes"`
	EnableViews    string `json:"enableViews"`
}

// settingKeys lists every known key with its default. Order is stable for
// seeding.
var settingKeys = []struct {
	key string
	def string
}{
	{"blogTitle", "Blog"},
	{"blogSubtitle", ""},
	{"authorName", ""},
	{"authorBio", ""},
	{"authorEmail", ""},
	{"authorAvatar", ""},
	{"language", "en"},
	{"enableComments", "true"},
	{"enableLikes", "true"},
	{"enableViews", "true"},
}

// IsSettingKey reports whether key is one of the known settings.
func IsSettingKey(key string) bool {
	for _, k := range settingKeys {
		if k.key == key {
			return true
		}
	}
	return false
}

// IsSettingToggle reports whether key is one of the boolean feature toggles.
func IsSettingToggle(key string) bool {
	return key == "enableComments" || key == "enableLikes" || key == "enableViews"
}

func (st *Settings) field(key string) *string {
	switch key {
	case "blogTitle":
		return &st.BlogTitle
	case "blogSubtitle":
		return &st.BlogSubtitle
	case "authorName":
		return &st.AuthorName
	case "authorBio":
		return &st.AuthorBio
	case "authorEmail":
		return &st.AuthorEmail
	case "authorAvatar":
		return &st.AuthorAvatar
	case "language":
		return &st.Language
	case "enableComments":
		return &st.EnableComments
	case "enableLikes":
		return &st.EnableLikes
	case "enableViews":
		return &st.EnableViews
	}
	return nil
}

// CommentsEnabled is false only when the toggle is explicitly "false".
func (st Settings) CommentsEnabled() bool { return st.EnableComments != "false" }

// LikesEnabled is false only when the toggle is explicitly "false".
func (st Settings) LikesEnabled() bool { return st.EnableLikes != "false" }

// ViewsEnabled is false only when the toggle is explicitly "false".
func (st Settings) ViewsEnabled() bool { return st.EnableViews != "false" }

// seedSettings inserts the default value of every known key that has no row.
func (s *Store) seedSettings(ctx context.Context) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		for _, k := range settingKeys {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, k.key, k.def); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSettings returns every known setting, substituting the default for keys
// that are missing or empty.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	stored := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Settings{}, err
		}
		stored[k] = v
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}

	var st Settings
	for _, k := range settingKeys {
		v := stored[k.key]
		if v == "" {
			v = k.def
		}
		*st.field(k.key) = v
	}
	return st, nil
}

// UpdateSettings upserts the given known keys in one transaction and returns
// the refreshed settings. Unknown keys are ignored.
func (s *Store) UpdateSettings(ctx context.Context, values map[string]string) (Settings, error) {
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			if !IsSettingKey(key) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
				return fmt.Errorf("save setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	return s.GetSettings(ctx)
}
