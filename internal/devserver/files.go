package devserver

import (
	"sync"
	"time"

	"github.com/dpetrenko/filekeeper/internal/common"
)

// FileMeta describes one initiated upload as the backend sees it.
type FileMeta struct {
	ID          string
	Name        string
	Size        int64
	ContentType string
	ParentDirID string
	StorageKey  string
	Completed   bool
	CreatedAt   time.Time
}

// FileIndex tracks initiated uploads in memory. The development backend
// does not persist its side of the protocol between runs.
type FileIndex struct {
	mu    sync.Mutex
	files map[string]*FileMeta
}

func NewFileIndex() *FileIndex {
	return &FileIndex{files: make(map[string]*FileMeta)}
}

func (x *FileIndex) Register(meta *FileMeta) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.files[meta.ID] = meta
}

func (x *FileIndex) Get(id string) (*FileMeta, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	meta, ok := x.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *meta
	return &c, nil
}

// Complete marks the file as finalized. Unknown ids return
// common.ErrNotFound; completing twice is allowed so client ack retries
// stay idempotent.
func (x *FileIndex) Complete(id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	meta, ok := x.files[id]
	if !ok {
		return common.ErrNotFound
	}
	meta.Completed = true
	return nil
}
