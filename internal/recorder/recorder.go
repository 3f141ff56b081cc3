// Package recorder turns typed write requests into canonical
// (file-write + commit) operations on a CommitStore, and typed read
// requests into decoded content. One Recorder exists per archive kind
// (snapshots, versions); the Index kind label and default extension differ per kind but the
// idempotent write/read shape is shared — the pattern is grounded on the
// teacher's ParquetFileHistoryStore (load existing, compare, write only on
// change, return an outcome) reproduced on top of git commits.
package recorder

import (
	"context"
	"path"
	"time"

	"github.com/doctrack/doctrack/internal/errs"
	"github.com/doctrack/doctrack/internal/model"
	"github.com/doctrack/doctrack/internal/vcs"
)

// Index is the optional commit-metadata index a Recorder appends to on every
// new record (internal/commitindex implements this). The Recorder never reads
// from it. A nil Index is valid: the Recorder simply skips indexing.
type Index interface {
	Append(ctx context.Context, serviceID, documentType, kind, id string, date time.Time, isFirstRecord bool) error
}

// Recorder wraps one CommitStore with canonical on-disk layout
// "<root>/<serviceId>/<documentType>.<ext>" and mime-to-extension mapping.
type Recorder struct {
	store      *vcs.CommitStore
	kind       string // "snapshot" or "version", used as the Index kind tag
	defaultExt string
	index      Index
}

// New constructs a Recorder over store. kind labels records for the Index
// ("snapshot"/"version"); defaultExt is used when a mime type has no entry
// in the extension table (e.g. ".html" for snapshots, ".md" for versions).
func New(store *vcs.CommitStore, kind, defaultExt string, index Index) *Recorder {
	return &Recorder{store: store, kind: kind, defaultExt: defaultExt, index: index}
}

// Request describes one record write.
type Request struct {
	ServiceID    string
	DocumentType string
	Content      []byte
	Changelog    string
	MimeType     string
	DocumentDate time.Time
}

func (r *Recorder) relativePath(serviceID, documentType, mimeType string) string {
	ext := ExtensionFor(mimeType, r.defaultExt)
	return path.Join(serviceID, documentType+ext)
}

func (r *Recorder) glob(serviceID, documentType string) string {
	return path.Join(serviceID, documentType+".*")
}

// Record writes req.Content to its canonical path and commits it, returning
// Unchanged if the content is byte-identical to the current HEAD revision of
// that file. isFirstRecord is computed from IsTracked before the file is
// staged, per the invariant that "isFirstRecord is derived purely from
// whether the target file was previously tracked".
func (r *Recorder) Record(ctx context.Context, req Request) (model.RecordOutcome, error) {
	relPath := r.relativePath(req.ServiceID, req.DocumentType, req.MimeType)

	hash, changed, wasTracked, err := r.store.WriteAddCommit(ctx, relPath, req.Content, req.Changelog, req.DocumentDate)
	if err != nil {
		return model.RecordOutcome{}, err
	}
	if !changed {
		return model.Unchanged(), nil
	}

	isFirst := !wasTracked
	if r.index != nil {
		commitDate := req.DocumentDate
		if commitDate.IsZero() {
			commitDate = time.Now()
		}
		_ = r.index.Append(ctx, req.ServiceID, req.DocumentType, r.kind, hash, commitDate, isFirst)
	}
	return model.Recorded(hash, isFirst), nil
}

// Record is the decoded read-back of one commit, independent of whether it
// holds a snapshot or a version.
type Record struct {
	ID               string
	Content          []byte
	MimeType         string
	RelativeFilePath string
	Date             time.Time
}

// GetLatestRecord resolves "<serviceId>/<documentType>.*" to at most one
// tracked file and returns its current HEAD content.
func (r *Recorder) GetLatestRecord(ctx context.Context, serviceID, documentType string) (Record, bool, error) {
	hash, filePath, found, err := r.store.FindUnique(ctx, r.glob(serviceID, documentType))
	if err != nil {
		return Record{}, false, err
	}
	if !found {
		return Record{}, false, nil
	}
	content, err := r.store.ReadFileAtHead(ctx, hash, filePath)
	if err != nil {
		return Record{}, false, err
	}
	date, err := r.store.CommitDate(ctx, hash)
	if err != nil {
		return Record{}, false, err
	}
	return Record{
		ID:               hash,
		Content:          content,
		MimeType:         mimeFromExt(filePath),
		RelativeFilePath: filePath,
		Date:             date,
	}, true, nil
}

// GetRecord checks out commit id and reads the single file it changed.
// Fails with MalformedRecord if the commit touched zero or several files.
func (r *Recorder) GetRecord(ctx context.Context, id string) (Record, error) {
	files, err := r.store.FilesChangedIn(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if len(files) != 1 {
		return Record{}, &errs.MalformedRecord{CommitHash: id, FileCount: len(files)}
	}
	filePath := files[0]

	content, err := r.store.ReadFileAtHead(ctx, id, filePath)
	if err != nil {
		return Record{}, err
	}
	date, err := r.store.CommitDate(ctx, id)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:               id,
		Content:          content,
		MimeType:         mimeFromExt(filePath),
		RelativeFilePath: filePath,
		Date:             date,
	}, nil
}

// IsTracked reports whether "<serviceId>/<documentType>.*" matches a tracked
// file.
func (r *Recorder) IsTracked(ctx context.Context, serviceID, documentType string) (bool, error) {
	return r.store.IsTracked(ctx, r.glob(serviceID, documentType))
}

// Publish pushes the underlying CommitStore to its configured remote.
func (r *Recorder) Publish(ctx context.Context) error {
	return r.store.Push(ctx)
}

func mimeFromExt(filePath string) string {
	ext := path.Ext(filePath)
	switch ext {
	case ".html", ".xhtml":
		return "text/html"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	case ".rtf":
		return "application/rtf"
	default:
		return "application/octet-stream"
	}
}
