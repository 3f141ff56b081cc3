// Package commitindex keeps a columnar per-document log of commit metadata
// (one row per new snapshot or version record), listable with Rows. No read
// path of the Recorder consults it: GetRecord and GetLatestRecord always read
// from git, and the index is never the source of truth. A missing index file
// reads as empty; Append rebuilds an unreadable one from scratch, while Rows
// returns the read error. Grounded on the teacher's ParquetFileHistoryStore /
// ParquetFileHistory pair (one parquet file per monitored URL, load-append-
// rewrite on every write, per-key mutex for concurrent safety).
package commitindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// Row is one appended commit-index entry.
type Row struct {
	ServiceID     string `parquet:"service_id"`
	DocumentType  string `parquet:"document_type"`
	Kind          string `parquet:"kind"`
	CommitID      string `parquet:"commit_id"`
	Date          int64  `parquet:"date"` // unix seconds
	IsFirstRecord bool   `parquet:"is_first_record"`
}

// Index is a parquet.go-backed append log implementing internal/recorder.Index.
type Index struct {
	baseDir string
	logger  zerolog.Logger

	mu        sync.Mutex
	keyLocks  map[string]*sync.Mutex
}

// New builds an Index rooted at baseDir, creating it if necessary.
func New(baseDir string, logger zerolog.Logger) (*Index, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("commitindex: creating base dir %q: %w", baseDir, err)
	}
	return &Index{
		baseDir:  baseDir,
		logger:   logger.With().Str("component", "CommitIndex").Logger(),
		keyLocks: make(map[string]*sync.Mutex),
	}, nil
}

func (idx *Index) lockFor(key string) *sync.Mutex {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	l, ok := idx.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		idx.keyLocks[key] = l
	}
	return l
}

func (idx *Index) filePath(serviceID, documentType string) string {
	return filepath.Join(idx.baseDir, serviceID, documentType+".parquet")
}

// Append adds one row to the (serviceId, documentType) index file, rewriting
// it in full (the teacher's own load-append-rewrite pattern — acceptable
// because per-document history is small and appends are infrequent).
func (idx *Index) Append(ctx context.Context, serviceID, documentType, kind, id string, date time.Time, isFirstRecord bool) error {
	key := serviceID + "/" + documentType
	lock := idx.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	path := idx.filePath(serviceID, documentType)
	rows, err := readRows(path)
	if err != nil {
		idx.logger.Warn().Err(err).Str("path", path).Msg("commit index unreadable, rebuilding from scratch")
		rows = nil
	}

	rows = append(rows, Row{
		ServiceID:     serviceID,
		DocumentType:  documentType,
		Kind:          kind,
		CommitID:      id,
		Date:          date.Unix(),
		IsFirstRecord: isFirstRecord,
	})

	return writeRows(path, rows)
}

// Rows returns every indexed row for (serviceId, documentType, kind), newest
// first. Returns an empty slice, not an error, when the file doesn't exist.
func (idx *Index) Rows(ctx context.Context, serviceID, documentType, kind string) ([]Row, error) {
	key := serviceID + "/" + documentType
	lock := idx.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	rows, err := readRows(idx.filePath(serviceID, documentType))
	if err != nil {
		return nil, err
	}
	filtered := rows[:0]
	for _, r := range rows {
		if r.Kind == kind {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Date > filtered[j].Date })
	return filtered, nil
}

func readRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, nil
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, err
	}
	reader := parquet.NewReader(pf)

	var rows []Row
	for {
		var row Row
		if err := reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeRows(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	writer := parquet.NewWriter(f, parquet.SchemaOf(Row{}))
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return err
		}
	}
	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
