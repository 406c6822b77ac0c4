package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "rentscan.db"

// CacheDB provides SQLite-based storage for every rentscan cache type.
type CacheDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Compile-time check that CacheDB implements cache.Store.
var _ cache.Store = (*CacheDB)(nil)

// Options configures CacheDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CacheDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CacheDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer. One connection also serializes the
	// read-modify-write sequences below when batch mode runs areas in parallel.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CacheDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CacheDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CacheDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CacheDB) createTables() error {
	schema := `
	-- Listing batches from agent active listings
	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_area TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		page INTEGER NOT NULL,
		day TEXT NOT NULL,
		address TEXT NOT NULL,
		area TEXT NOT NULL,
		beds REAL,
		baths REAL,
		price REAL,
		zpid TEXT,
		home_type TEXT,
		listing_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_listings_batch ON listings(batch_area, agent_id, page, day);
	CREATE INDEX IF NOT EXISTS idx_listings_area ON listings(area);

	-- Agent directory cursor, one row per area
	CREATE TABLE IF NOT EXISTS agent_cursors (
		area TEXT PRIMARY KEY,
		current_page INTEGER NOT NULL,
		last_page INTEGER NOT NULL DEFAULT 0,
		last_page_known INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Tax estimates, one row per address per day
	CREATE TABLE IF NOT EXISTS tax_estimates (
		address TEXT NOT NULL,
		day TEXT NOT NULL,
		tax REAL NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (address, day)
	);

	-- Rent estimates, one row per address per day
	CREATE TABLE IF NOT EXISTS rent_estimates (
		address TEXT NOT NULL,
		day TEXT NOT NULL,
		median REAL NOT NULL,
		low REAL NOT NULL,
		high REAL NOT NULL,
		percentile_25 REAL NOT NULL,
		percentile_75 REAL NOT NULL,
		comparables TEXT,
		known INTEGER NOT NULL,
		PRIMARY KEY (address, day)
	);

	-- Area adjacency, neighbors ordered by position
	CREATE TABLE IF NOT EXISTS area_neighbors (
		area TEXT NOT NULL,
		neighbor TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (area, neighbor)
	);

	-- Ranked snapshots, written once per area, count and day
	CREATE TABLE IF NOT EXISTS ranked_snapshots (
		area TEXT NOT NULL,
		count INTEGER NOT NULL,
		day TEXT NOT NULL,
		listings_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (area, count, day)
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// LoadListings implements cache.ListingStore.
func (cdb *CacheDB) LoadListings(ctx context.Context) ([]model.Listing, error) {
	query := `
	SELECT address, area, beds, baths, price, zpid, home_type, listing_url
	FROM listings
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.Address, &l.Area, &l.Beds, &l.Baths, &l.Price, &l.PropertyID, &l.HomeType, &l.ListingURL); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// SaveListingBatch implements cache.ListingStore. Saving the same batch key
// twice replaces the earlier batch.
func (cdb *CacheDB) SaveListingBatch(ctx context.Context, key cache.BatchKey, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	return cdb.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM listings WHERE batch_area = ? AND agent_id = ? AND page = ? AND day = ?`,
			key.Area, key.AgentID, key.Page, key.Day,
		); err != nil {
			return fmt.Errorf("failed to replace listing batch: %w", err)
		}

		query := `
		INSERT INTO listings (batch_area, agent_id, page, day, address, area, beds, baths, price, zpid, home_type, listing_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, l := range listings {
			if _, err := tx.ExecContext(ctx, query,
				key.Area, key.AgentID, key.Page, key.Day,
				l.Address, l.Area, l.Beds, l.Baths, l.Price, l.PropertyID, l.HomeType, l.ListingURL,
			); err != nil {
				return fmt.Errorf("failed to insert listing: %w", err)
			}
		}
		return nil
	})
}

// LoadCursors implements cache.CursorStore.
func (cdb *CacheDB) LoadCursors(ctx context.Context) (map[string]model.AgentPageCursor, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT area, current_page, last_page, last_page_known FROM agent_cursors`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cursors: %w", err)
	}
	defer rows.Close()

	cursors := make(map[string]model.AgentPageCursor)
	for rows.Next() {
		var c model.AgentPageCursor
		if err := rows.Scan(&c.Area, &c.Current, &c.LastPage, &c.LastPageKnown); err != nil {
			return nil, fmt.Errorf("failed to scan cursor: %w", err)
		}
		cursors[c.Area] = c
	}
	return cursors, rows.Err()
}

// SaveCursor implements cache.CursorStore.
func (cdb *CacheDB) SaveCursor(ctx context.Context, cursor model.AgentPageCursor) error {
	query := `
	INSERT INTO agent_cursors (area, current_page, last_page, last_page_known)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(area) DO UPDATE SET
		current_page = excluded.current_page,
		last_page = excluded.last_page,
		last_page_known = excluded.last_page_known,
		updated_at = CURRENT_TIMESTAMP
	`

	if _, err := cdb.db.ExecContext(ctx, query, cursor.Area, cursor.Current, cursor.LastPage, cursor.LastPageKnown); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// FindTax implements cache.TaxStore.
func (cdb *CacheDB) FindTax(ctx context.Context, address string) (model.TaxEstimate, bool, error) {
	query := `
	SELECT tax, status FROM tax_estimates
	WHERE address = ?
	ORDER BY day DESC
	LIMIT 1
	`

	var est model.TaxEstimate
	err := cdb.db.QueryRowContext(ctx, query, model.NormalizeAddress(address)).Scan(&est.Annual, &est.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TaxEstimate{}, false, nil
	}
	if err != nil {
		return model.TaxEstimate{}, false, fmt.Errorf("failed to get tax estimate: %w", err)
	}
	if !est.IsKnown() {
		est.Annual = 0
	}
	return est, true, nil
}

// SaveTax implements cache.TaxStore.
func (cdb *CacheDB) SaveTax(ctx context.Context, address, day string, est model.TaxEstimate) error {
	query := `
	INSERT OR REPLACE INTO tax_estimates (address, day, tax, status)
	VALUES (?, ?, ?, ?)
	`

	if _, err := cdb.db.ExecContext(ctx, query, model.NormalizeAddress(address), day, est.Annual, string(est.Status)); err != nil {
		return fmt.Errorf("failed to save tax estimate: %w", err)
	}
	return nil
}

// FindRent implements cache.RentStore.
func (cdb *CacheDB) FindRent(ctx context.Context, address string) (model.RentalEstimate, bool, error) {
	query := `
	SELECT median, low, high, percentile_25, percentile_75, comparables, known
	FROM rent_estimates
	WHERE address = ?
	ORDER BY day DESC
	LIMIT 1
	`

	var (
		est         model.RentalEstimate
		comparables sql.NullString
	)
	err := cdb.db.QueryRowContext(ctx, query, model.NormalizeAddress(address)).Scan(
		&est.Median,
		&est.Low,
		&est.High,
		&est.Percentile25,
		&est.Percentile75,
		&comparables,
		&est.Known,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RentalEstimate{}, false, nil
	}
	if err != nil {
		return model.RentalEstimate{}, false, fmt.Errorf("failed to get rent estimate: %w", err)
	}
	if comparables.Valid && comparables.String != "" {
		est.Comparables = json.RawMessage(comparables.String)
	}
	return est, true, nil
}

// SaveRent implements cache.RentStore.
func (cdb *CacheDB) SaveRent(ctx context.Context, address, day string, est model.RentalEstimate) error {
	query := `
	INSERT OR REPLACE INTO rent_estimates (address, day, median, low, high, percentile_25, percentile_75, comparables, known)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var comparables sql.NullString
	if len(est.Comparables) > 0 {
		comparables = sql.NullString{String: string(est.Comparables), Valid: true}
	}
	if _, err := cdb.db.ExecContext(ctx, query,
		model.NormalizeAddress(address), day,
		est.Median, est.Low, est.High, est.Percentile25, est.Percentile75,
		comparables, est.Known,
	); err != nil {
		return fmt.Errorf("failed to save rent estimate: %w", err)
	}
	return nil
}

// Neighbors implements cache.AdjacencyStore.
func (cdb *CacheDB) Neighbors(ctx context.Context, area string) ([]string, error) {
	return queryNeighbors(ctx, cdb.db, area)
}

// AppendNeighbors implements cache.AdjacencyStore.
func (cdb *CacheDB) AppendNeighbors(ctx context.Context, area string, incoming []string) ([]string, error) {
	var merged []string
	err := cdb.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := queryNeighbors(ctx, tx, area)
		if err != nil {
			return err
		}
		merged = model.MergeNeighbors(existing, incoming, area)

		query := `
		INSERT INTO area_neighbors (area, neighbor, position)
		VALUES (?, ?, ?)
		ON CONFLICT(area, neighbor) DO NOTHING
		`
		for i, neighbor := range merged[len(existing):] {
			if _, err := tx.ExecContext(ctx, query, area, neighbor, len(existing)+i); err != nil {
				return fmt.Errorf("failed to insert neighbor: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryNeighbors(ctx context.Context, q queryer, area string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT neighbor FROM area_neighbors WHERE area = ? ORDER BY position`, area)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

// FindSnapshot implements cache.SnapshotStore.
func (cdb *CacheDB) FindSnapshot(ctx context.Context, key cache.SnapshotKey) ([]model.ScoredListing, error) {
	query := `
	SELECT listings_json FROM ranked_snapshots
	WHERE area = ? AND count = ? AND day = ?
	`

	var listingsJSON string
	err := cdb.db.QueryRowContext(ctx, query, key.Area, key.Count, key.Day).Scan(&listingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var listings []model.ScoredListing
	if err := json.Unmarshal([]byte(listingsJSON), &listings); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return listings, nil
}

// SaveSnapshot implements cache.SnapshotStore. An existing snapshot for the
// same key is left untouched.
func (cdb *CacheDB) SaveSnapshot(ctx context.Context, key cache.SnapshotKey, listings []model.ScoredListing) error {
	if listings == nil {
		listings = []model.ScoredListing{}
	}
	listingsJSON, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	query := `
	INSERT OR IGNORE INTO ranked_snapshots (area, count, day, listings_json)
	VALUES (?, ?, ?, ?)
	`
	if _, err := cdb.db.ExecContext(ctx, query, key.Area, key.Count, key.Day, string(listingsJSON)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// ListSnapshots implements cache.SnapshotHistory.
func (cdb *CacheDB) ListSnapshots(ctx context.Context, area string) ([]cache.SnapshotKey, error) {
	query := `
	SELECT count, day FROM ranked_snapshots
	WHERE area = ?
	ORDER BY day DESC, count ASC
	`

	rows, err := cdb.db.QueryContext(ctx, query, area)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var keys []cache.SnapshotKey
	for rows.Next() {
		key := cache.SnapshotKey{Area: area}
		if err := rows.Scan(&key.Count, &key.Day); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// withTx runs fn in a transaction, committing on success.
func (cdb *CacheDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
