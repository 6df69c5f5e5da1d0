// Package ports declares the interfaces the Document Repository's service
// layer depends on, the same seam the teacher draws between
// modules/resumes/service and modules/resumes/ports so repository and
// service stay independently testable.
package ports

import (
	"context"

	"github.com/andreypavlenko/caesub/modules/repository/model"
)

type TypeRepository interface {
	Create(ctx context.Context, t *model.DocumentType) error
	GetByID(ctx context.Context, typeID string) (*model.DocumentType, error)
	List(ctx context.Context) ([]*model.DocumentType, error)
	Update(ctx context.Context, t *model.DocumentType) error
	Delete(ctx context.Context, typeID string) error
}

type DocumentRepository interface {
	Create(ctx context.Context, d *model.DocumentInstance) error
	GetByID(ctx context.Context, docID string) (*model.DocumentInstance, error)
	List(ctx context.Context) ([]*model.DocumentInstance, error)
	Update(ctx context.Context, d *model.DocumentInstance) error
	Delete(ctx context.Context, docID string) error
	PutBlob(ctx context.Context, docID, ext string, data []byte) (storedPath string, err error)
	GetBlob(ctx context.Context, storedPath string) ([]byte, error)
	DeleteBlob(ctx context.Context, storedPath string) error
}
