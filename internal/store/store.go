// Package store handles SQLite persistence of encounter history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/tuimeter/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when an encounter id does not exist.
var ErrNotFound = errors.New("encounter not found")

// Store wraps SQLite access for encounter snapshots.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS encounters (
			id INTEGER PRIMARY KEY,
			fight_start INTEGER NOT NULL,
			boss TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			cleared INTEGER NOT NULL,
			local_player TEXT NOT NULL,
			snapshot TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS encounter_players (
			encounter_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			class TEXT NOT NULL,
			damage INTEGER NOT NULL,
			PRIMARY KEY (encounter_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_encounters_fight_start ON encounters(fight_start);`,
		`CREATE INDEX IF NOT EXISTS idx_encounters_boss ON encounters(boss);`,
		`CREATE INDEX IF NOT EXISTS idx_encounter_players_name ON encounter_players(name);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertEncounter stores a snapshot verbatim together with its player roster.
func (s *Store) InsertEncounter(ctx context.Context, raw json.RawMessage) (id int64, err error) {
	var enc model.Encounter
	if err := json.Unmarshal(raw, &enc); err != nil {
		return 0, fmt.Errorf("failed to decode encounter: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO encounters (fight_start, boss, duration_ms, cleared, local_player, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		enc.FightStart,
		enc.CurrentBossName,
		enc.Duration,
		enc.Cleared,
		enc.LocalPlayer,
		string(raw),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO encounter_players (encounter_id, name, class, damage)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, e := range enc.Entities {
		if e == nil || e.EntityType != model.EntityPlayer {
			continue
		}
		if _, err = stmt.ExecContext(ctx, id, e.Name, e.Class, e.DamageStats.DamageDealt); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListEncounters returns encounter previews, newest first, filtered by boss
// substring, start time and count.
func (s *Store) ListEncounters(ctx context.Context, filter model.HistoryFilter) ([]model.EncounterPreview, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Boss != "" {
		clauses = append(clauses, "boss LIKE ?")
		args = append(args, "%"+filter.Boss+"%")
	}
	if filter.Player != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM encounter_players p
			WHERE p.encounter_id = encounters.id AND p.name = ?)`)
		args = append(args, filter.Player)
	}
	if filter.Since > 0 {
		clauses = append(clauses, "fight_start >= ?")
		args = append(args, filter.Since)
	}
	limit := ""
	if filter.Last > 0 {
		limit = "LIMIT ?"
		args = append(args, filter.Last)
	}
	query := fmt.Sprintf(`SELECT id, fight_start, boss, duration_ms, cleared, local_player
		FROM encounters
		WHERE %s
		ORDER BY fight_start DESC, id DESC
		%s`, strings.Join(clauses, " AND "), limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var previews []model.EncounterPreview
	for rows.Next() {
		var p model.EncounterPreview
		if err := rows.Scan(&p.ID, &p.FightStart, &p.Boss, &p.DurationMs, &p.Cleared, &p.LocalPlayer); err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return previews, nil
}

// LatestID returns the id of the most recent encounter.
func (s *Store) LatestID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM encounters ORDER BY fight_start DESC, id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// GetEncounter loads a stored snapshot.
func (s *Store) GetEncounter(ctx context.Context, id int64) (model.EncounterPreview, *model.Encounter, error) {
	var (
		p        model.EncounterPreview
		snapshot string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, fight_start, boss, duration_ms, cleared, local_player, snapshot
		 FROM encounters WHERE id = ?`, id).
		Scan(&p.ID, &p.FightStart, &p.Boss, &p.DurationMs, &p.Cleared, &p.LocalPlayer, &snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return model.EncounterPreview{}, nil, ErrNotFound
	}
	if err != nil {
		return model.EncounterPreview{}, nil, err
	}
	var enc model.Encounter
	if err := json.Unmarshal([]byte(snapshot), &enc); err != nil {
		return model.EncounterPreview{}, nil, fmt.Errorf("failed to decode encounter %d: %w", id, err)
	}
	return p, &enc, nil
}

// RawEncounter returns the stored snapshot JSON as the backend sent it.
func (s *Store) RawEncounter(ctx context.Context, id int64) (json.RawMessage, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM encounters WHERE id = ?`, id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(snapshot), nil
}

// DeleteEncounter removes an encounter and its roster.
func (s *Store) DeleteEncounter(ctx context.Context, id int64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM encounters WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = ErrNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM encounter_players WHERE encounter_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}
