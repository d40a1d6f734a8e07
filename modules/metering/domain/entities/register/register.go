package register

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("import register not found")

// Register groups the items created by a single spreadsheet import so the
// laboratory can work file by file.
type Register struct {
	id         uint
	ref        uuid.UUID
	filename   string
	importedBy uint
	rowCount   int
	createdAt  time.Time
}

func New(filename string, importedBy uint, rowCount int) Register {
	return Register{
		ref:        uuid.New(),
		filename:   filename,
		importedBy: importedBy,
		rowCount:   rowCount,
	}
}

func Hydrate(id uint, ref uuid.UUID, filename string, importedBy uint, rowCount int, createdAt time.Time) Register {
	return Register{
		id:         id,
		ref:        ref,
		filename:   filename,
		importedBy: importedBy,
		rowCount:   rowCount,
		createdAt:  createdAt,
	}
}

func (r Register) ID() uint             { return r.id }
func (r Register) Ref() uuid.UUID       { return r.ref }
func (r Register) Filename() string     { return r.filename }
func (r Register) ImportedBy() uint     { return r.importedBy }
func (r Register) RowCount() int        { return r.rowCount }
func (r Register) CreatedAt() time.Time { return r.createdAt }

type Repository interface {
	GetByID(ctx context.Context, id uint) (Register, error)
	GetByRef(ctx context.Context, ref uuid.UUID) (Register, error)
	GetAll(ctx context.Context) ([]Register, error)
	Create(ctx context.Context, reg Register) (Register, error)
	Delete(ctx context.Context, id uint) error
}
