package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver with database/sql

	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/models"
)

// SQLiteDirectory is a Directory backed by a local SQLite database. It stands
// in for a vendor home framework: device state lives in the devices table and
// scenes are replayed from scene_actions.
type SQLiteDirectory struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (or creates) the directory database at path and initialises the schema.
func Open(path string, logger *slog.Logger) (*SQLiteDirectory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sqldb, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("devices.Open: %w", err)
	}
	d := &SQLiteDirectory{db: sqldb, path: path, logger: logger.With("component", "devices")}
	if err := d.createSchema(); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("devices.Open createSchema: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *SQLiteDirectory) Path() string { return d.path }

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func (d *SQLiteDirectory) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			room       TEXT NOT NULL DEFAULT '',
			type       TEXT NOT NULL DEFAULT 'other',
			is_on      INTEGER NOT NULL DEFAULT 0,
			brightness INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS scenes (
			id   TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			home TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS scene_actions (
			scene_id   TEXT NOT NULL REFERENCES scenes(id) ON DELETE CASCADE,
			device_id  TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
			is_on      INTEGER NOT NULL,
			brightness INTEGER
		)`,
	}

	for _, s := range stmts {
		if _, err := d.db.Exec(s); err != nil {
			return fmt.Errorf("createSchema exec: %w\nSQL: %s", err, s)
		}
	}

	// Migration: add updated_at column if missing.
	rows, err := d.db.Query("PRAGMA table_info(devices)")
	if err != nil {
		return err
	}
	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		cols[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if !cols["updated_at"] {
		if _, err := d.db.Exec("ALTER TABLE devices ADD COLUMN updated_at TEXT NOT NULL DEFAULT ''"); err != nil {
			return fmt.Errorf("migration updated_at: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Seeding
// ---------------------------------------------------------------------------

// Seed registers the devices and scenes described by home. Existing devices
// keep their current power and brightness; names, rooms and types are
// refreshed. Scene actions are replaced wholesale.
func (d *SQLiteDirectory) Seed(ctx context.Context, home config.HomeConfig) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("devices.Seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, s := range home.Devices {
		typ := s.Type
		if typ == "" {
			typ = "other"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO devices (id, name, room, type, is_on, brightness, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, room = excluded.room, type = excluded.type`,
			s.ID, s.Name, s.Room, typ, s.On, nullInt(s.Brightness), now,
		); err != nil {
			return fmt.Errorf("devices.Seed device %s: %w", s.ID, err)
		}
	}

	for _, s := range home.Scenes {
		id := s.ID
		if id == "" {
			id = sceneSlug(s.Name)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (id, name, home) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, home = excluded.home`,
			id, s.Name, s.Home,
		); err != nil {
			return fmt.Errorf("devices.Seed scene %s: %w", s.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM scene_actions WHERE scene_id = ?`, id); err != nil {
			return fmt.Errorf("devices.Seed scene %s: %w", s.Name, err)
		}
		for _, a := range s.Actions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO scene_actions (scene_id, device_id, is_on, brightness) VALUES (?, ?, ?, ?)`,
				id, a.Device, a.On, nullInt(a.Brightness),
			); err != nil {
				return fmt.Errorf("devices.Seed scene %s action %s: %w", s.Name, a.Device, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("devices.Seed commit: %w", err)
	}
	return nil
}

func sceneSlug(name string) string {
	return "scene-" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// ---------------------------------------------------------------------------
// Directory
// ---------------------------------------------------------------------------

// GetDevice implements Directory.
func (d *SQLiteDirectory) GetDevice(id string) (models.Device, bool) {
	row := d.db.QueryRow(
		`SELECT id, name, room, type, is_on, brightness FROM devices WHERE id = ?`, id)
	dev, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Device{}, false
	}
	if err != nil {
		d.logger.Warn("get device failed", "id", id, "err", err)
		return models.Device{}, false
	}
	return dev, true
}

// SetDeviceState implements Directory. A nil brightness leaves the stored
// brightness untouched.
func (d *SQLiteDirectory) SetDeviceState(ctx context.Context, dev models.Device, on bool, brightness *int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var (
		res sql.Result
		err error
	)
	if brightness != nil {
		res, err = d.db.ExecContext(ctx,
			`UPDATE devices SET is_on = ?, brightness = ?, updated_at = ? WHERE id = ?`,
			on, *brightness, now, dev.ID)
	} else {
		res, err = d.db.ExecContext(ctx,
			`UPDATE devices SET is_on = ?, updated_at = ? WHERE id = ?`,
			on, now, dev.ID)
	}
	if err != nil {
		return fmt.Errorf("devices.SetDeviceState %s: %w", dev.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("devices.SetDeviceState %s: %w", dev.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("devices.SetDeviceState: %w: %s", ErrUnknownDevice, dev.ID)
	}
	return nil
}

// TriggerScene implements Directory. The scene's actions are applied in one
// transaction.
func (d *SQLiteDirectory) TriggerScene(ctx context.Context, name string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("devices.TriggerScene: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var sceneID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM scenes WHERE name = ?`, name).Scan(&sceneID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("devices.TriggerScene: %w: %s", ErrUnknownScene, name)
	}
	if err != nil {
		return fmt.Errorf("devices.TriggerScene: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		UPDATE devices SET
			is_on = (SELECT a.is_on FROM scene_actions a WHERE a.scene_id = ?1 AND a.device_id = devices.id),
			brightness = COALESCE(
				(SELECT a.brightness FROM scene_actions a WHERE a.scene_id = ?1 AND a.device_id = devices.id),
				devices.brightness),
			updated_at = ?2
		WHERE id IN (SELECT device_id FROM scene_actions WHERE scene_id = ?1)`,
		sceneID, now,
	); err != nil {
		return fmt.Errorf("devices.TriggerScene %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("devices.TriggerScene commit: %w", err)
	}
	return nil
}

// ListDevices implements Directory. Devices are ordered by room, then name.
func (d *SQLiteDirectory) ListDevices() []models.Device {
	rows, err := d.db.Query(
		`SELECT id, name, room, type, is_on, brightness FROM devices ORDER BY room, name`)
	if err != nil {
		d.logger.Warn("list devices failed", "err", err)
		return nil
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			d.logger.Warn("list devices scan failed", "err", err)
			return out
		}
		out = append(out, dev)
	}
	if err := rows.Err(); err != nil {
		d.logger.Warn("list devices failed", "err", err)
	}
	return out
}

// ListScenes implements Directory. Scenes are ordered by name.
func (d *SQLiteDirectory) ListScenes() []models.Scene {
	rows, err := d.db.Query(`
		SELECT s.id, s.name, s.home,
		       (SELECT COUNT(*) FROM scene_actions a WHERE a.scene_id = s.id)
		FROM scenes s ORDER BY s.name`)
	if err != nil {
		d.logger.Warn("list scenes failed", "err", err)
		return nil
	}
	defer rows.Close()

	var out []models.Scene
	for rows.Next() {
		var s models.Scene
		if err := rows.Scan(&s.ID, &s.Name, &s.Home, &s.Actions); err != nil {
			d.logger.Warn("list scenes scan failed", "err", err)
			return out
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		d.logger.Warn("list scenes failed", "err", err)
	}
	return out
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (models.Device, error) {
	var (
		dev        models.Device
		brightness sql.NullInt64
	)
	if err := s.Scan(&dev.ID, &dev.Name, &dev.Room, &dev.Type, &dev.IsOn, &brightness); err != nil {
		return models.Device{}, err
	}
	if brightness.Valid {
		v := int(brightness.Int64)
		dev.Brightness = &v
	}
	return dev, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
