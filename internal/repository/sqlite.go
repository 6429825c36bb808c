package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db    *sql.DB
	newID func() string
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection; it also serializes every
	// transaction, which the rating append relies on.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db, newID: uuid.NewString}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return classify(r.db.PingContext(ctx))
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			display_order INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pitches (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			presenter TEXT NOT NULL,
			image_url TEXT NOT NULL,
			category TEXT NOT NULL,
			visible BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pitch_id TEXT NOT NULL,
			score REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (pitch_id) REFERENCES pitches(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_pitch ON ratings(pitch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pitches_category ON pitches(category)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// classify maps driver errors onto repository and application errors
func classify(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked:
			return errors.Transient(err)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return ErrDuplicate
		}
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Transient(err)
	}
	return err
}

// ==================== Pitch Methods ====================

const pitchColumns = `id, title, description, presenter, image_url, category, visible`

// ListPitches returns all pitches in creation order with their ratings
func (r *Repository) ListPitches(ctx context.Context) ([]models.Pitch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+pitchColumns+` FROM pitches ORDER BY rowid`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	pitches := []models.Pitch{}
	index := make(map[string]int)
	for rows.Next() {
		var p models.Pitch
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Presenter, &p.ImageURL, &p.Category, &p.Visible); err != nil {
			return nil, err
		}
		p.Ratings = []float64{}
		index[p.ID] = len(pitches)
		pitches = append(pitches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	ratingRows, err := r.db.QueryContext(ctx, `SELECT pitch_id, score FROM ratings ORDER BY id`)
	if err != nil {
		return nil, classify(err)
	}
	defer ratingRows.Close()

	for ratingRows.Next() {
		var pitchID string
		var score float64
		if err := ratingRows.Scan(&pitchID, &score); err != nil {
			return nil, err
		}
		if i, ok := index[pitchID]; ok {
			pitches[i].Ratings = append(pitches[i].Ratings, score)
		}
	}
	return pitches, classify(ratingRows.Err())
}

// GetPitch retrieves a single pitch with its ratings
func (r *Repository) GetPitch(ctx context.Context, id string) (*models.Pitch, error) {
	var p models.Pitch
	err := r.db.QueryRowContext(ctx, `SELECT `+pitchColumns+` FROM pitches WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Description, &p.Presenter, &p.ImageURL, &p.Category, &p.Visible)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}

	p.Ratings, err = loadRatings(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRatings(ctx context.Context, q queryer, pitchID string) ([]float64, error) {
	rows, err := q.QueryContext(ctx, `SELECT score FROM ratings WHERE pitch_id = ? ORDER BY id`, pitchID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	ratings := []float64{}
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return nil, err
		}
		ratings = append(ratings, score)
	}
	return ratings, classify(rows.Err())
}

// CreatePitch inserts a pitch and returns its new id. Ratings on p are ignored.
func (r *Repository) CreatePitch(ctx context.Context, p models.Pitch) (string, error) {
	id := r.newID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pitches (id, title, description, presenter, image_url, category, visible)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, p.Title, p.Description, p.Presenter, p.ImageURL, p.Category, p.Visible)
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// UpdatePitch applies the non-nil fields of u
func (r *Repository) UpdatePitch(ctx context.Context, id string, u PitchUpdate) error {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Presenter != nil {
		add("presenter", *u.Presenter)
	}
	if u.ImageURL != nil {
		add("image_url", *u.ImageURL)
	}
	if u.Category != nil {
		add("category", *u.Category)
	}
	if u.Visible != nil {
		add("visible", *u.Visible)
	}

	if len(sets) == 0 {
		return r.pitchExists(ctx, r.db, id)
	}

	args = append(args, id)
	result, err := r.db.ExecContext(ctx, `UPDATE pitches SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return classify(err)
	}
	return requireAffected(result)
}

// DeletePitch removes a pitch and, by cascade, its ratings
func (r *Repository) DeletePitch(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pitches WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(result)
}

// AppendRating appends one score inside a transaction and returns the
// resulting sequence
func (r *Repository) AppendRating(ctx context.Context, id string, score float64) ([]float64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback()

	if err := r.pitchExists(ctx, tx, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO ratings (pitch_id, score) VALUES (?, ?)`, id, score); err != nil {
		return nil, classify(err)
	}
	ratings, err := loadRatings(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	return ratings, nil
}

// CompareAndAppendRatings appends additions only when the stored ratings
// equal expected
func (r *Repository) CompareAndAppendRatings(ctx context.Context, id string, expected, additions []float64) ([]float64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback()

	if err := r.pitchExists(ctx, tx, id); err != nil {
		return nil, err
	}
	current, err := loadRatings(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !RatingsEqual(current, expected) {
		return current, ErrRatingsChanged
	}

	for _, score := range additions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO ratings (pitch_id, score) VALUES (?, ?)`, id, score); err != nil {
			return nil, classify(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	return append(current, additions...), nil
}

// ClearRatings removes every rating of one pitch
func (r *Repository) ClearRatings(ctx context.Context, id string) error {
	if err := r.pitchExists(ctx, r.db, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM ratings WHERE pitch_id = ?`, id)
	return classify(err)
}

// ClearAllRatings removes every rating and returns how many pitches had any
func (r *Repository) ClearAllRatings(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err)
	}
	defer tx.Rollback()

	var rated int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(DISTINCT pitch_id) FROM ratings`).Scan(&rated); err != nil {
		return 0, classify(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ratings`); err != nil {
		return 0, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(err)
	}
	return rated, nil
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) pitchExists(ctx context.Context, q rowQueryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM pitches WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return classify(err)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Category Methods ====================

// ListCategories returns categories in display order
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, display_order FROM categories ORDER BY display_order, name`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayOrder); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, classify(rows.Err())
}

// GetCategory retrieves a category by id
func (r *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name, display_order FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.DisplayOrder)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

// CreateCategory appends a category after the current last one
func (r *Repository) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	c := models.Category{ID: r.newID(), Name: name}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, name, display_order)
		VALUES (?, ?, (SELECT COALESCE(MAX(display_order), 0) + 1 FROM categories))
		RETURNING display_order
	`, c.ID, c.Name).Scan(&c.DisplayOrder)
	if err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

// DeleteCategory removes a category; pitches keep their label
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(result)
}

// SeedCategories inserts names when the table is empty, in one transaction
func (r *Repository) SeedCategories(ctx context.Context, names []string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return 0, classify(err)
	}
	if count > 0 {
		return 0, nil
	}

	for i, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO categories (id, name, display_order) VALUES (?, ?, ?)`, r.newID(), name, i+1); err != nil {
			return 0, classify(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(err)
	}
	return len(names), nil
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, classify(err)
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return classify(err)
}
