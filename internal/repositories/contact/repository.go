package contact

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ContactRepository defines the contact store operations
type ContactRepository interface {
	Create(ctx context.Context, contact models.Contact) (models.Contact, error)
	Get(ctx context.Context, id string) (models.Contact, error)
	List(ctx context.Context) ([]models.Contact, error)
	Update(ctx context.Context, contact models.Contact) (models.Contact, error)
	Delete(ctx context.Context, id string) error
}

const tableName = "contacts"

var contactColumns = []string{
	"id", "seq", "name", "title", "company", "email", "phone", "website",
	"address", "notes", "image", "raw_scan", "source", "created_at",
}

// Repository implements ContactRepository on top of a SQL database
type Repository struct {
	db     database.DB
	logger ectologger.Logger
	now    func() time.Time
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Create inserts contact ahead of every stored contact
func (r *Repository) Create(ctx context.Context, contact models.Contact) (models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.Create")
	defer span.End()

	contact = prepareNew(contact, r.now)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return models.Contact{}, ferrors.NewStoreWriteFailure("create", contact.ID, err)
	}
	defer tx.Rollback(ctx)

	exists, err := r.exists(ctx, tx, contact.ID)
	if err != nil {
		return models.Contact{}, r.writeFailure(ctx, "create", contact.ID, err)
	}
	if exists {
		return models.Contact{}, ferrors.NewConflictError(contact.ID)
	}

	seq, err := r.nextSeq(ctx, tx)
	if err != nil {
		return models.Contact{}, r.writeFailure(ctx, "create", contact.ID, err)
	}

	ib := database.NewInsertBuilder(r.db.Flavor())
	ib.InsertInto(tableName).
		Cols(contactColumns...).
		Values(contact.ID, seq, contact.Name, contact.Title, contact.Company, contact.Email, contact.Phone,
			contact.Website, contact.Address, contact.Notes, contact.Image, contact.RawScan,
			string(contact.Source), contact.CreatedAt)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return models.Contact{}, r.writeFailure(ctx, "create", contact.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Contact{}, r.writeFailure(ctx, "create", contact.ID, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_id": contact.ID,
		"seq":        seq,
	}).Debugf("Created %s", tableName)
	return contact, nil
}

// Get retrieves a contact by id
func (r *Repository) Get(ctx context.Context, id string) (models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.Get")
	defer span.End()

	sb := database.NewStruct(new(models.Contact), r.db.Flavor()).SelectFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, ferrors.NewNotFoundError(id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"contact_id": id,
		}).Error("failed to get contact")
		return models.Contact{}, ferrors.NewStoreReadFailure("get", err)
	}

	return normalizeScanned(contact), nil
}

// List returns every contact, most recently created first
func (r *Repository) List(ctx context.Context) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.List")
	defer span.End()

	sb := database.NewStruct(new(models.Contact), r.db.Flavor()).SelectFrom(tableName)
	sb.OrderBy("seq").Desc()

	query, args := sb.Build()
	contacts := []models.Contact{}
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list contacts")
		return nil, ferrors.NewStoreReadFailure("list", err)
	}

	for i := range contacts {
		contacts[i] = normalizeScanned(contacts[i])
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_count": len(contacts),
	}).Debugf("Listed %s", tableName)
	return contacts, nil
}

// Update replaces the stored content of contact.ID. Its list position is kept.
func (r *Repository) Update(ctx context.Context, contact models.Contact) (models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.Update")
	defer span.End()

	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = r.now()
	}
	contact.CreatedAt = contact.CreatedAt.UTC()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return models.Contact{}, ferrors.NewStoreWriteFailure("update", contact.ID, err)
	}
	defer tx.Rollback(ctx)

	ub := database.NewUpdateBuilder(r.db.Flavor())
	ub.Update(tableName).
		Set(
			ub.Assign("name", contact.Name),
			ub.Assign("title", contact.Title),
			ub.Assign("company", contact.Company),
			ub.Assign("email", contact.Email),
			ub.Assign("phone", contact.Phone),
			ub.Assign("website", contact.Website),
			ub.Assign("address", contact.Address),
			ub.Assign("notes", contact.Notes),
			ub.Assign("image", contact.Image),
			ub.Assign("raw_scan", contact.RawScan),
			ub.Assign("source", string(contact.Source)),
			ub.Assign("created_at", contact.CreatedAt),
		).
		Where(ub.Equal("id", contact.ID))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Contact{}, r.writeFailure(ctx, "update", contact.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.Contact{}, r.writeFailure(ctx, "update", contact.ID, err)
	}
	if affected == 0 {
		return models.Contact{}, ferrors.NewNotFoundError(contact.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Contact{}, r.writeFailure(ctx, "update", contact.ID, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_id": contact.ID,
	}).Debugf("Updated %s", tableName)
	return contact, nil
}

// Delete removes a contact by id
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.Delete")
	defer span.End()

	delb := database.NewDeleteBuilder(r.db.Flavor())
	delb.DeleteFrom(tableName).Where(delb.Equal("id", id))

	query, args := delb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return r.writeFailure(ctx, "delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.writeFailure(ctx, "delete", id, err)
	}
	if affected == 0 {
		return ferrors.NewNotFoundError(id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_id": id,
	}).Debugf("Deleted %s", tableName)
	return nil
}

func (r *Repository) exists(ctx context.Context, tx database.Tx, id string) (bool, error) {
	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select("COUNT(*)").From(tableName).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var count int
	if err := tx.GetContext(ctx, &count, query, args...); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) nextSeq(ctx context.Context, tx database.Tx) (int64, error) {
	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select("COALESCE(MAX(seq), 0) + 1").From(tableName)

	query, args := sb.Build()
	var seq int64
	if err := tx.GetContext(ctx, &seq, query, args...); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *Repository) writeFailure(ctx context.Context, operation, id string, err error) error {
	r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"contact_id": id,
		"operation":  operation,
	}).Error("failed to write contact")
	return ferrors.NewStoreWriteFailure(operation, id, err)
}

// prepareNew assigns the identity and capture time of a contact about to be created
func prepareNew(contact models.Contact, now func() time.Time) models.Contact {
	contact = contact.Clone()
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now()
	}
	contact.CreatedAt = contact.CreatedAt.UTC()
	if contact.Source == "" {
		contact.Source = models.ProvenanceManual
	}
	return contact
}

// normalizeScanned maps driver representations back onto the model: an empty
// BLOB becomes nil and timestamps are reported in UTC.
func normalizeScanned(contact models.Contact) models.Contact {
	if len(contact.Image) == 0 {
		contact.Image = nil
	}
	contact.CreatedAt = contact.CreatedAt.UTC()
	return contact
}
