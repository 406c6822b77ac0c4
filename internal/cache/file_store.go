package cache

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/rentscan/internal/model"
)

// Directory and file names of the file store layout.
const (
	listingDir   = "listing_data"
	taxDir       = "tax_data"
	rentDir      = "rental_data"
	snapshotDir  = "cashflow_data"
	cursorFile   = "zip_to_agentpages.json"
	neighborFile = "near_zips.json"

	// maxNameLength bounds the address component of a file name. Longer
	// names are replaced by a digest so they stay within file system limits.
	maxNameLength = 150

	// dayKeyLength is the length of a model.DateKey value.
	dayKeyLength = 8

	dirPerm  = 0o750
	filePerm = 0o600
)

// listingColumns is the header of a listing batch CSV.
var listingColumns = []string{"formattedAddress", "zip", "beds", "baths", "price", "zpid", "homeType", "listingURL"}

// FileStore is a Store over a directory of CSV and JSON files.
// It is safe for concurrent use within one process.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// Compile-time check that FileStore implements Store.
var _ Store = (*FileStore)(nil)

// NewFileStore opens a file store rooted at dir, creating the directory
// tree if needed.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"", listingDir, taxDir, rentDir, snapshotDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// Close implements Store. The file store holds no open resources.
func (s *FileStore) Close() error {
	return nil
}

// LoadListings implements ListingStore.
func (s *FileStore) LoadListings(_ context.Context) ([]model.Listing, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, listingDir))
	if err != nil {
		return nil, fmt.Errorf("failed to read listing directory: %w", err)
	}

	var listings []model.Listing
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		batch, err := readListingCSV(filepath.Join(s.dir, listingDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		listings = append(listings, batch...)
	}
	return listings, nil
}

// SaveListingBatch implements ListingStore.
func (s *FileStore) SaveListingBatch(_ context.Context, key BatchKey, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(listingColumns); err != nil {
		return fmt.Errorf("failed to write listing header: %w", err)
	}
	for _, l := range listings {
		row := []string{
			l.Address,
			l.Area,
			formatFloat(l.Beds),
			formatFloat(l.Baths),
			formatFloat(l.Price),
			l.PropertyID,
			l.HomeType,
			l.ListingURL,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write listing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write listing batch: %w", err)
	}

	name := fmt.Sprintf("listing_%s_%s_page%d_%s.csv",
		safeName(key.Area), safeName(key.AgentID), key.Page, key.Day)
	return writeFileAtomic(filepath.Join(s.dir, listingDir, name), []byte(b.String()))
}

// readListingCSV parses one listing batch file.
func readListingCSV(path string) ([]model.Listing, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open listing batch: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read listing batch %s: %w", filepath.Base(path), err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var listings []model.Listing
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read listing batch %s: %w", filepath.Base(path), err)
		}
		listings = append(listings, model.Listing{
			Address:    field(row, "formattedAddress"),
			Area:       field(row, "zip"),
			Beds:       parseFloat(field(row, "beds")),
			Baths:      parseFloat(field(row, "baths")),
			Price:      parseFloat(field(row, "price")),
			PropertyID: field(row, "zpid"),
			HomeType:   field(row, "homeType"),
			ListingURL: field(row, "listingURL"),
		})
	}
	return listings, nil
}

// cursorRecord is the on-disk form of a cursor. Max is -1 while the last
// page is unknown.
type cursorRecord struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// LoadCursors implements CursorStore.
func (s *FileStore) LoadCursors(_ context.Context) (map[string]model.AgentPageCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readCursorsLocked()
	if err != nil {
		return nil, err
	}
	cursors := make(map[string]model.AgentPageCursor, len(records))
	for area, rec := range records {
		cursors[area] = model.AgentPageCursor{
			Area:          area,
			Current:       rec.Current,
			LastPage:      max(rec.Max, 0),
			LastPageKnown: rec.Max >= 0,
		}
	}
	return cursors, nil
}

// SaveCursor implements CursorStore.
func (s *FileStore) SaveCursor(_ context.Context, cursor model.AgentPageCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readCursorsLocked()
	if err != nil {
		return err
	}
	rec := cursorRecord{Current: cursor.Current, Max: -1}
	if cursor.LastPageKnown {
		rec.Max = cursor.LastPage
	}
	records[cursor.Area] = rec
	return writeJSONAtomic(filepath.Join(s.dir, cursorFile), records)
}

func (s *FileStore) readCursorsLocked() (map[string]cursorRecord, error) {
	records := map[string]cursorRecord{}
	if err := readJSON(filepath.Join(s.dir, cursorFile), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// taxRecord is the on-disk form of a tax estimate. Entries written without
// a status carry -1 for "not on record".
type taxRecord struct {
	Tax    float64         `json:"tax"`
	Status model.TaxStatus `json:"status,omitempty"`
}

// FindTax implements TaxStore.
func (s *FileStore) FindTax(_ context.Context, address string) (model.TaxEstimate, bool, error) {
	var rec taxRecord
	ok, err := s.findLatest(taxDir, address, "tax", &rec)
	if err != nil || !ok {
		return model.TaxEstimate{}, false, err
	}

	status := rec.Status
	if status == "" {
		status = model.TaxKnown
		if rec.Tax < 0 {
			status = model.TaxNotOnRecord
		}
	}
	if status != model.TaxKnown {
		return model.TaxEstimate{Status: status}, true, nil
	}
	return model.KnownTax(rec.Tax), true, nil
}

// SaveTax implements TaxStore.
func (s *FileStore) SaveTax(_ context.Context, address, day string, est model.TaxEstimate) error {
	rec := taxRecord{Tax: est.Annual, Status: est.Status}
	if !est.IsKnown() {
		rec.Tax = -1
	}
	return s.saveDated(taxDir, address, "tax", day, rec)
}

// rentRecord is the on-disk form of a rent estimate. Null numeric fields
// load as zero.
type rentRecord struct {
	Median       *float64        `json:"median"`
	Low          *float64        `json:"lowRent"`
	High         *float64        `json:"highRent"`
	Percentile25 *float64        `json:"percentile_25"`
	Percentile75 *float64        `json:"percentile_75"`
	Comparables  json.RawMessage `json:"comparableRents,omitempty"`
	Known        *bool           `json:"known,omitempty"`
}

// FindRent implements RentStore.
func (s *FileStore) FindRent(_ context.Context, address string) (model.RentalEstimate, bool, error) {
	var rec rentRecord
	ok, err := s.findLatest(rentDir, address, "rental", &rec)
	if err != nil || !ok {
		return model.RentalEstimate{}, false, err
	}

	known := rec.Median != nil
	if rec.Known != nil {
		known = *rec.Known
	}
	comparables := rec.Comparables
	if string(comparables) == "null" {
		comparables = nil
	}
	return model.RentalEstimate{
		Median:       deref(rec.Median),
		Low:          deref(rec.Low),
		High:         deref(rec.High),
		Percentile25: deref(rec.Percentile25),
		Percentile75: deref(rec.Percentile75),
		Comparables:  comparables,
		Known:        known,
	}, true, nil
}

// SaveRent implements RentStore.
func (s *FileStore) SaveRent(_ context.Context, address, day string, est model.RentalEstimate) error {
	known := est.Known
	rec := rentRecord{
		Median:       &est.Median,
		Low:          &est.Low,
		High:         &est.High,
		Percentile25: &est.Percentile25,
		Percentile75: &est.Percentile75,
		Comparables:  est.Comparables,
		Known:        &known,
	}
	return s.saveDated(rentDir, address, "rental", day, rec)
}

// Neighbors implements AdjacencyStore.
func (s *FileStore) Neighbors(_ context.Context, area string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readNeighborsLocked()
	if err != nil {
		return nil, err
	}
	return slices.Clone(table[area]), nil
}

// AppendNeighbors implements AdjacencyStore.
func (s *FileStore) AppendNeighbors(_ context.Context, area string, incoming []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readNeighborsLocked()
	if err != nil {
		return nil, err
	}
	merged := model.MergeNeighbors(table[area], incoming, area)
	table[area] = merged
	if err := writeJSONAtomic(filepath.Join(s.dir, neighborFile), table); err != nil {
		return nil, err
	}
	return slices.Clone(merged), nil
}

func (s *FileStore) readNeighborsLocked() (map[string][]string, error) {
	table := map[string][]string{}
	if err := readJSON(filepath.Join(s.dir, neighborFile), &table); err != nil {
		return nil, err
	}
	return table, nil
}

// FindSnapshot implements SnapshotStore.
func (s *FileStore) FindSnapshot(_ context.Context, key SnapshotKey) ([]model.ScoredListing, error) {
	data, err := os.ReadFile(s.snapshotPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var listings []model.ScoredListing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return listings, nil
}

// SaveSnapshot implements SnapshotStore. An existing snapshot for the same
// key is left untouched.
func (s *FileStore) SaveSnapshot(_ context.Context, key SnapshotKey, listings []model.ScoredListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.snapshotPath(key)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if listings == nil {
		listings = []model.ScoredListing{}
	}
	return writeJSONAtomic(path, listings)
}

// ListSnapshots implements SnapshotHistory.
func (s *FileStore) ListSnapshots(_ context.Context, area string) ([]SnapshotKey, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, snapshotDir))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	prefix := safeName(area) + "_count"
	var keys []SnapshotKey
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		countText, day, ok := strings.Cut(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"), "_")
		if !ok || !isDayKey(day) {
			continue
		}
		count, err := strconv.Atoi(countText)
		if err != nil {
			continue
		}
		keys = append(keys, SnapshotKey{Area: area, Count: count, Day: day})
	}

	SortSnapshotKeys(keys)
	return keys, nil
}

func (s *FileStore) snapshotPath(key SnapshotKey) string {
	name := fmt.Sprintf("%s_count%d_%s.json", safeName(key.Area), key.Count, key.Day)
	return filepath.Join(s.dir, snapshotDir, name)
}

// saveDated writes v as {address}_{kind}_{day}.json in sub.
func (s *FileStore) saveDated(sub, address, kind, day string, v any) error {
	name := fmt.Sprintf("%s_%s_%s.json", addressName(address), kind, day)
	return writeJSONAtomic(filepath.Join(s.dir, sub, name), v)
}

// findLatest loads the most recent {address}_{kind}_{day}.json in sub
// into v. Entries match when their address normalizes to the same form as
// address. It reports false when no entry exists for any day.
func (s *FileStore) findLatest(sub, address, kind string, v any) (bool, error) {
	dir := filepath.Join(s.dir, sub)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", sub, err)
	}

	infix := "_" + kind + "_"
	latest, latestDay := "", ""
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		base := strings.TrimSuffix(name, ".json")
		i := strings.LastIndex(base, infix)
		if i < 0 {
			continue
		}
		day := base[i+len(infix):]
		if !isDayKey(day) || !addressMatches(base[:i], address) {
			continue
		}
		if day > latestDay || (day == latestDay && name > latest) {
			latest, latestDay = name, day
		}
	}
	if latest == "" {
		return false, nil
	}

	if err := readJSON(filepath.Join(dir, latest), v); err != nil {
		return false, err
	}
	return true, nil
}

// addressName converts an address to the file name component of its
// dated entries: the address as given with path separators replaced.
// Over-long addresses are digested in normalized form.
func addressName(address string) string {
	name := model.SanitizeAddress(address)
	if len(name) <= maxNameLength {
		return name
	}
	return safeName(model.NormalizeAddress(address))
}

// addressMatches reports whether name, the address component of a dated
// entry, belongs to address.
func addressMatches(name, address string) bool {
	if name == addressName(address) {
		return true
	}
	if strings.HasPrefix(name, "sha3-") {
		return false
	}
	return model.NormalizeAddress(name) == model.NormalizeAddress(model.SanitizeAddress(address))
}

// safeName makes s usable as a file name component. Names longer than
// maxNameLength are replaced by their SHA3-256 digest.
func safeName(s string) string {
	name := model.SanitizeAddress(s)
	if len(name) <= maxNameLength {
		return name
	}
	sum := sha3.Sum256([]byte(name))
	return "sha3-" + hex.EncodeToString(sum[:])
}

func isDayKey(s string) bool {
	if len(s) != dayKeyLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// readJSON decodes the file at path into v. A missing file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSONAtomic encodes v and writes it to path atomically.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
