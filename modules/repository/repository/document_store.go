package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/andreypavlenko/caesub/internal/platform/archive"
	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	"github.com/andreypavlenko/caesub/modules/repository/model"
)

// DocumentStore persists each DocumentInstance as its own metadata file
// under meta/<doc_id>.json, with the PDF blob alongside under
// docs/<doc_id>.<ext> (spec.md §6.2). An optional archive.Client mirrors
// blobs to S3 the way the teacher's ResumeService nil-checks s3Client.
type DocumentStore struct {
	root    string
	archive *archive.Client // nil when S3 is not configured
	mu      sync.Mutex
}

func NewDocumentStore(repositoryRoot string, archiveClient *archive.Client) *DocumentStore {
	return &DocumentStore{root: repositoryRoot, archive: archiveClient}
}

func (s *DocumentStore) metaPath(docID string) string {
	return filepath.Join(s.root, "meta", docID+".json")
}

func (s *DocumentStore) Create(ctx context.Context, d *model.DocumentInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if atomicstore.Exists(s.metaPath(d.DocID)) {
		return model.ErrDocumentNotFound // doc_id collisions should not happen; uuid-generated
	}
	return atomicstore.WriteJSON(s.metaPath(d.DocID), d)
}

func (s *DocumentStore) GetByID(ctx context.Context, docID string) (*model.DocumentInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var d model.DocumentInstance
	if err := atomicstore.ReadJSON(s.metaPath(docID), &d); err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *DocumentStore) List(ctx context.Context) ([]*model.DocumentInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaDir := filepath.Join(s.root, "meta")
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var docs []*model.DocumentInstance
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var d model.DocumentInstance
		if err := atomicstore.ReadJSON(filepath.Join(metaDir, entry.Name()), &d); err != nil {
			continue // tolerate a torn/unreadable file, per atomicstore's own contract
		}
		docs = append(docs, &d)
	}
	return docs, nil
}

func (s *DocumentStore) Update(ctx context.Context, d *model.DocumentInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !atomicstore.Exists(s.metaPath(d.DocID)) {
		return model.ErrDocumentNotFound
	}
	return atomicstore.WriteJSON(s.metaPath(d.DocID), d)
}

func (s *DocumentStore) Delete(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.metaPath(docID)
	if !atomicstore.Exists(path) {
		return model.ErrDocumentNotFound
	}
	return os.Remove(path)
}

func (s *DocumentStore) blobPath(docID, ext string) string {
	return filepath.Join(s.root, "docs", docID+"."+ext)
}

func (s *DocumentStore) PutBlob(ctx context.Context, docID, ext string, data []byte) (string, error) {
	path := s.blobPath(docID, ext)
	if err := atomicstore.WriteFile(path, data); err != nil {
		return "", err
	}
	if s.archive != nil {
		// Best-effort off-box mirror; failure here never blocks the write,
		// matching the teacher's "orphaned S3 file is better than a failed
		// request" stance in ResumeService.Delete.
		_ = s.archive.PutBlob(ctx, "docs/"+docID+"."+ext, "application/pdf", data)
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return path, nil
	}
	return rel, nil
}

func (s *DocumentStore) GetBlob(ctx context.Context, storedPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, storedPath))
}

func (s *DocumentStore) DeleteBlob(ctx context.Context, storedPath string) error {
	err := os.Remove(filepath.Join(s.root, storedPath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
