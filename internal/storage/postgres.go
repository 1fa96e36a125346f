package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

var _ domain.RemoteStore = (*PostgresRemote)(nil)

const (
	pgDriver = "pgx"

	// pgUniqueViolation is the SQLSTATE for a duplicate key.
	pgUniqueViolation = "23505"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS recipes (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		name             TEXT NOT NULL,
		duration         TEXT NOT NULL,
		difficulty       TEXT NOT NULL,
		ingredients      JSONB NOT NULL,
		instructions     JSONB NOT NULL,
		nutritional_info JSONB NOT NULL DEFAULT '{}',
		health_benefits  JSONB NOT NULL DEFAULT '[]',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS recipes_user_id_idx ON recipes (user_id)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		phone_number  TEXT,
		profile_emoji TEXT NOT NULL,
		recipe_count  INTEGER NOT NULL DEFAULT 0
	)`,
}

const recipeColumns = `id, user_id, name, duration, difficulty, ingredients, instructions, nutritional_info, health_benefits`

// PostgresRemote is the authoritative remote store.
type PostgresRemote struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenPostgresRemote connects to dsn and applies the schema.
func OpenPostgresRemote(ctx context.Context, dsn string, log *logger.Logger) (*PostgresRemote, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage: postgres dsn required")
	}
	openMu.Lock()
	db, err := sqlOpen(pgDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping postgres: %v: %w", err, domain.ErrRemoteUnavailable)
	}
	for _, stmt := range pgSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: apply schema: %w", err)
		}
	}
	log.Debug("remote: postgres ready")
	return &PostgresRemote{db: db, log: log}, nil
}

// Close closes the connection pool.
func (p *PostgresRemote) Close() error { return p.db.Close() }

func (p *PostgresRemote) FetchRecipes(ctx context.Context, userID string) ([]domain.Recipe, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, remoteErr("fetch recipes", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Recipe{}
	for rows.Next() {
		var (
			r                                  domain.Recipe
			ingredients, instructions, nut, hb []byte
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Duration, &r.Difficulty,
			&ingredients, &instructions, &nut, &hb); err != nil {
			return nil, fmt.Errorf("storage: scan recipe: %w", err)
		}
		if err := unmarshalJSON(ingredients, &r.Ingredients, instructions, &r.Instructions, nut, &r.NutritionalInfo, hb, &r.HealthBenefits); err != nil {
			return nil, fmt.Errorf("storage: decode recipe %s: %w", r.ID, err)
		}
		r.Normalize()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, remoteErr("fetch recipes", err)
	}
	return out, nil
}

// SaveRecipe inserts a new recipe. A duplicate ID yields domain.ErrAlreadyExists.
func (p *PostgresRemote) SaveRecipe(ctx context.Context, recipe domain.Recipe) error {
	args, err := recipeArgs(recipe)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO recipes (`+recipeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, args...)
	if err != nil {
		return remoteErr("save recipe", err)
	}
	p.log.Debug("remote: saved recipe %s", recipe.ID)
	return nil
}

func (p *PostgresRemote) UpsertRecipe(ctx context.Context, recipe domain.Recipe) error {
	args, err := recipeArgs(recipe)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO recipes (`+recipeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			duration = EXCLUDED.duration,
			difficulty = EXCLUDED.difficulty,
			ingredients = EXCLUDED.ingredients,
			instructions = EXCLUDED.instructions,
			nutritional_info = EXCLUDED.nutritional_info,
			health_benefits = EXCLUDED.health_benefits`, args...)
	if err != nil {
		return remoteErr("upsert recipe", err)
	}
	return nil
}

func (p *PostgresRemote) DeleteRecipe(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return remoteErr("delete recipe", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("storage: recipe %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (p *PostgresRemote) FetchProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var (
		prof  domain.UserProfile
		phone sql.NullString
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, phone_number, profile_emoji, recipe_count
		 FROM user_profiles WHERE user_id = $1`, userID).
		Scan(&prof.ID, &prof.UserID, &prof.Name, &phone, &prof.Emoji, &prof.RecipeCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, remoteErr("fetch profile", err)
	}
	if phone.Valid {
		prof.PhoneNumber = &phone.String
	}
	return &prof, nil
}

func (p *PostgresRemote) SaveProfile(ctx context.Context, profile domain.UserProfile) error {
	var phone sql.NullString
	if profile.PhoneNumber != nil {
		phone = sql.NullString{String: *profile.PhoneNumber, Valid: true}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO user_profiles (id, user_id, name, phone_number, profile_emoji, recipe_count)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			phone_number = EXCLUDED.phone_number,
			profile_emoji = EXCLUDED.profile_emoji,
			recipe_count = EXCLUDED.recipe_count`,
		profile.ID, profile.UserID, profile.Name, phone, profile.Emoji, profile.RecipeCount)
	if err != nil {
		return remoteErr("save profile", err)
	}
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────

func recipeArgs(r domain.Recipe) ([]any, error) {
	r.Normalize()
	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}
	ing, err := enc(r.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("storage: encode ingredients: %w", err)
	}
	ins, err := enc(r.Instructions)
	if err != nil {
		return nil, fmt.Errorf("storage: encode instructions: %w", err)
	}
	nut, err := enc(r.NutritionalInfo)
	if err != nil {
		return nil, fmt.Errorf("storage: encode nutritional info: %w", err)
	}
	hb, err := enc(r.HealthBenefits)
	if err != nil {
		return nil, fmt.Errorf("storage: encode health benefits: %w", err)
	}
	return []any{r.ID, r.UserID, r.Name, r.Duration, r.Difficulty, ing, ins, nut, hb}, nil
}

// unmarshalJSON decodes alternating (data, target) pairs. Empty data is
// skipped.
func unmarshalJSON(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		data, _ := pairs[i].([]byte)
		if len(data) == 0 {
			continue
		}
		if err := json.Unmarshal(data, pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// remoteErr maps driver errors onto domain sentinels. Unique violations
// become ErrAlreadyExists; anything that is not a server-side rejection is
// treated as the remote being unreachable.
func remoteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("storage: %s: %w", op, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("storage: %s: %w", op, err)
	}
	return fmt.Errorf("storage: %s: %v: %w", op, err, domain.ErrRemoteUnavailable)
}
