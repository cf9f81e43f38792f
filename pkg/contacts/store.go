package contacts

import (
	"context"
	"time"

	"github.com/Ramsey-B/fern/internal/repositories/contact"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
)

// instrumentedRepository records metrics for every store call
type instrumentedRepository struct {
	next contact.ContactRepository
}

func instrument(next contact.ContactRepository) contact.ContactRepository {
	return &instrumentedRepository{next: next}
}

func observe(operation string, start time.Time, err error) {
	metrics.RecordStoreOperation(operation, string(ferrors.KindOf(err)), time.Since(start))
}

func (r *instrumentedRepository) Create(ctx context.Context, c models.Contact) (models.Contact, error) {
	start := time.Now()
	created, err := r.next.Create(ctx, c)
	observe("create", start, err)
	return created, err
}

func (r *instrumentedRepository) Get(ctx context.Context, id string) (models.Contact, error) {
	start := time.Now()
	c, err := r.next.Get(ctx, id)
	observe("get", start, err)
	return c, err
}

func (r *instrumentedRepository) List(ctx context.Context) ([]models.Contact, error) {
	start := time.Now()
	list, err := r.next.List(ctx)
	observe("list", start, err)
	return list, err
}

func (r *instrumentedRepository) Update(ctx context.Context, c models.Contact) (models.Contact, error) {
	start := time.Now()
	updated, err := r.next.Update(ctx, c)
	observe("update", start, err)
	return updated, err
}

func (r *instrumentedRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := r.next.Delete(ctx, id)
	observe("delete", start, err)
	return err
}
