// Package storage is the durable side of the bot: an archive of every
// published article and a small settings table. Day-to-day transcripts never
// touch it; they live in memory only.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("not found")

// Post is an archived published article.
type Post struct {
	ID          int64
	Day         string // YYYY-MM-DD
	Title       string
	Body        string
	Platform    string
	URL         string
	PublishedAt time.Time
}

// DB wraps the SQLite database connection and provides storage operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		platform TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		published_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_day ON posts(day);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SavePost archives a published article.
func (db *DB) SavePost(ctx context.Context, post *Post) error {
	query := `
	INSERT INTO posts (day, title, body, platform, url, published_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := db.conn.ExecContext(ctx, query,
		post.Day,
		post.Title,
		post.Body,
		post.Platform,
		post.URL,
		post.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("save post: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		post.ID = id
	}
	return nil
}

// GetPostsByDay returns the archived posts for a day, oldest first.
func (db *DB) GetPostsByDay(ctx context.Context, day string) ([]*Post, error) {
	query := `
	SELECT id, day, title, body, platform, url, published_at
	FROM posts
	WHERE day = ?
	ORDER BY published_at ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post := &Post{}
		if err := rows.Scan(&post.ID, &post.Day, &post.Title, &post.Body,
			&post.Platform, &post.URL, &post.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// GetLatestPost returns the most recently archived post.
func (db *DB) GetLatestPost(ctx context.Context) (*Post, error) {
	query := `
	SELECT id, day, title, body, platform, url, published_at
	FROM posts
	ORDER BY published_at DESC
	LIMIT 1
	`

	post := &Post{}
	err := db.conn.QueryRowContext(ctx, query).Scan(&post.ID, &post.Day, &post.Title,
		&post.Body, &post.Platform, &post.URL, &post.PublishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest post: %w", err)
	}
	return post, nil
}

// CountPosts returns the number of archived posts.
func (db *DB) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// GetSetting retrieves a setting value by key.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting stores a setting value.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := db.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
