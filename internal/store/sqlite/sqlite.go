package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/bifrost/internal/store"
	"github.com/nulzo/bifrost/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) VirtualKeys() store.VirtualKeyRepository {
	return &virtualKeyRepo{db: r.executor, repo: r}
}

func (r *SqliteRepository) Requests() store.RequestRepository {
	return &requestRepo{db: r.executor}
}

type virtualKeyRepo struct {
	db   DB
	repo *SqliteRepository
}

// providerConfigRow is the wire shape of a provider config in sqlite;
// allowed_models is a JSON-encoded string array.
type providerConfigRow struct {
	VirtualKeyID  string  `db:"virtual_key_id"`
	Provider      string  `db:"provider"`
	AllowedModels string  `db:"allowed_models"`
	Weight        float64 `db:"weight"`
	Position      int     `db:"position"`
}

func (r *virtualKeyRepo) Create(ctx context.Context, key *model.VirtualKey) error {
	return r.repo.WithTx(ctx, func(repo store.Repository) error {
		tx := repo.(*SqliteRepository).executor

		query := `
		INSERT INTO virtual_keys (id, name, value, is_active, created_at, updated_at)
		VALUES (:id, :name, :value, :is_active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("failed to insert virtual key: %w", err)
		}

		return insertProviderConfigs(ctx, tx, key.ID, key.ProviderConfigs)
	})
}

func insertProviderConfigs(ctx context.Context, tx DB, keyID string, configs []model.ProviderConfig) error {
	query := `
	INSERT INTO virtual_key_provider_configs (virtual_key_id, provider, allowed_models, weight, position)
	VALUES (:virtual_key_id, :provider, :allowed_models, :weight, :position)`

	for i, pc := range configs {
		allowed := pc.AllowedModels
		if allowed == nil {
			allowed = []string{}
		}
		encoded, err := json.Marshal(allowed)
		if err != nil {
			return fmt.Errorf("failed to encode allowed_models: %w", err)
		}

		row := providerConfigRow{
			VirtualKeyID:  keyID,
			Provider:      pc.Provider,
			AllowedModels: string(encoded),
			Weight:        pc.Weight,
			Position:      i,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to insert provider config: %w", err)
		}
	}
	return nil
}

func (r *virtualKeyRepo) Get(ctx context.Context, id string) (*model.VirtualKey, error) {
	return r.getBy(ctx, `SELECT * FROM virtual_keys WHERE id = ?`, id)
}

func (r *virtualKeyRepo) GetByValue(ctx context.Context, value string) (*model.VirtualKey, error) {
	return r.getBy(ctx, `SELECT * FROM virtual_keys WHERE value = ?`, value)
}

func (r *virtualKeyRepo) getBy(ctx context.Context, query string, arg string) (*model.VirtualKey, error) {
	var key model.VirtualKey
	if err := r.db.GetContext(ctx, &key, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	configs, err := r.loadProviderConfigs(ctx, key.ID)
	if err != nil {
		return nil, err
	}
	key.ProviderConfigs = configs

	return &key, nil
}

func (r *virtualKeyRepo) loadProviderConfigs(ctx context.Context, keyID string) ([]model.ProviderConfig, error) {
	var rows []providerConfigRow
	query := `
	SELECT virtual_key_id, provider, allowed_models, weight, position
	FROM virtual_key_provider_configs
	WHERE virtual_key_id = ?
	ORDER BY position, rowid`
	if err := r.db.SelectContext(ctx, &rows, query, keyID); err != nil {
		return nil, err
	}

	configs := make([]model.ProviderConfig, 0, len(rows))
	for _, row := range rows {
		var allowed []string
		if err := json.Unmarshal([]byte(row.AllowedModels), &allowed); err != nil {
			return nil, fmt.Errorf("corrupt allowed_models for key %s: %w", keyID, err)
		}
		configs = append(configs, model.ProviderConfig{
			Provider:      row.Provider,
			AllowedModels: allowed,
			Weight:        row.Weight,
			Position:      row.Position,
		})
	}
	return configs, nil
}

func (r *virtualKeyRepo) Update(ctx context.Context, id string, patch store.VirtualKeyPatch) (*model.VirtualKey, error) {
	err := r.repo.WithTx(ctx, func(repo store.Repository) error {
		tx := repo.(*SqliteRepository).executor

		var existing model.VirtualKey
		if err := tx.GetContext(ctx, &existing, `SELECT * FROM virtual_keys WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}

		if patch.Name != nil {
			existing.Name = *patch.Name
		}
		if patch.IsActive != nil {
			existing.IsActive = *patch.IsActive
		}
		existing.UpdatedAt = time.Now().UTC()

		query := `
		UPDATE virtual_keys SET name = :name, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, query, existing); err != nil {
			return err
		}

		if patch.ProviderConfigs != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM virtual_key_provider_configs WHERE virtual_key_id = ?`, id); err != nil {
				return err
			}
			if err := insertProviderConfigs(ctx, tx, id, *patch.ProviderConfigs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

type requestRepo struct {
	db DB
}

func (r *requestRepo) Log(ctx context.Context, log *model.RequestLog) error {
	query := `
	INSERT INTO request_logs (
		id, virtual_key_id, provider, model_id, operation, finish_reason,
		input_tokens, output_tokens, latency_ms, ttft_ms, status_code,
		is_streamed, created_at
	) VALUES (
		:id, :virtual_key_id, :provider, :model_id, :operation, :finish_reason,
		:input_tokens, :output_tokens, :latency_ms, :ttft_ms, :status_code,
		:is_streamed, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}

func (r *requestRepo) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	var logs []model.RequestLog
	query := `SELECT * FROM request_logs ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, limit)
	return logs, err
}
