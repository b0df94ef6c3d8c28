// Package devserver implements the development backend the FileKeeper
// client talks to: it issues upload ids with presigned destinations,
// finalizes uploads, and in local mode stores the bytes itself.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dpetrenko/filekeeper/internal/common"
	sc "github.com/dpetrenko/filekeeper/internal/devserver/config"
	"github.com/dpetrenko/filekeeper/internal/filex"
	"github.com/dpetrenko/filekeeper/internal/logging"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Server struct {
	config    *sc.Config
	logger    logging.Logger
	presigner Presigner
	index     *FileIndex
	newID     func() string
}

func NewServer(config *sc.Config, presigner Presigner, logger logging.Logger) (*Server, error) {
	if !config.UseS3 {
		if err := filex.EnsureDir(config.StorageDir); err != nil {
			return nil, err
		}
	}
	return &Server{
		config:    config,
		logger:    logger,
		presigner: presigner,
		index:     NewFileIndex(),
		newID:     func() string { return uuid.New().String() },
	}, nil
}

// Router wires the HTTP API. The storage route only exists in local mode;
// with S3 enabled the presigned URL points at the object store directly.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/uploads/initiate", s.handleInitiate).Methods(http.MethodPost)
	r.HandleFunc("/uploads/complete", s.handleComplete).Methods(http.MethodPost)
	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	if !s.config.UseS3 {
		r.HandleFunc("/storage/{id}", s.handleStoragePut).Methods(http.MethodPut)
	}
	return r
}

type initiateRequest struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ParentDirID string `json:"parentDirId"`
	ContentType string `json:"contentType"`
}

type initiateResponse struct {
	URL    string `json:"url"`
	FileID string `json:"fileId"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Size <= 0 {
		http.Error(w, "name and size are required", http.StatusBadRequest)
		return
	}

	id := s.newID()

	url, err := s.presigner.PresignPut(ctx, id, req.ContentType)
	if err != nil {
		s.logger.Error(ctx, "presign failed", "error", err)
		http.Error(w, "presign failed", http.StatusInternalServerError)
		return
	}

	s.index.Register(&FileMeta{
		ID:          id,
		Name:        req.Name,
		Size:        req.Size,
		ContentType: req.ContentType,
		ParentDirID: req.ParentDirID,
		StorageKey:  id,
		CreatedAt:   time.Now(),
	})

	s.logger.Info(ctx, "upload initiated", "id", id, "name", req.Name, "size", req.Size)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(initiateResponse{URL: url, FileID: id})
}

type completeRequest struct {
	FileID string `json:"fileId"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := s.index.Complete(req.FileID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.Error(w, "unknown file", http.StatusNotFound)
			return
		}
		http.Error(w, "complete failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info(ctx, "upload completed", "id", req.FileID)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleStoragePut stores the raw object body under the file id. The write
// goes to a temp file first so a dropped connection never leaves a partial
// object behind.
func (s *Server) handleStoragePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if _, err := s.index.Get(id); err != nil {
		http.Error(w, "unknown file", http.StatusNotFound)
		return
	}

	dst := filepath.Join(s.config.StorageDir, id)
	tmp := dst + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		s.logger.Error(ctx, "storage write failed", "id", id, "error", err)
		http.Error(w, "storage failed", http.StatusInternalServerError)
		return
	}

	if _, err := io.Copy(f, r.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		s.logger.Warn(ctx, "storage write interrupted", "id", id, "error", err)
		http.Error(w, "storage failed", http.StatusInternalServerError)
		return
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		http.Error(w, "storage failed", http.StatusInternalServerError)
		return
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		http.Error(w, "storage failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info(ctx, "object stored", "id", id)
	w.WriteHeader(http.StatusOK)
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.EndpointAddr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
