package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"media-registry/constant"
	"media-registry/dto"
	"media-registry/entities"
	"media-registry/metrics"
	"media-registry/repository"
	"media-registry/storage"
	"time"
)

const rollbackTimeout = 30 * time.Second

// Upload is a fully received payload handed over by the transport.
type Upload struct {
	Body         io.Reader
	OriginalName string
	// Size is the byte length observed by the transport. It is stored as is.
	Size int64
	// Title is optional; the original name is used when empty.
	Title string
}

// DeleteResult describes a completed Delete.
type DeleteResult struct {
	Recording *entities.Recording
	// BlobErr is set when the blob could not be removed. The metadata row is
	// gone regardless; the blob is left behind as an orphan.
	BlobErr error
}

// EventPublisher is notified after a Create or Delete has committed.
type EventPublisher interface {
	PublishRecordingEvent(ctx context.Context, event dto.RecordingEvent) error
}

// Registry keeps recording metadata and blobs consistent. Every metadata row
// it leaves behind has a blob under its Filename; a blob without a row is an
// accepted leak.
type Registry interface {
	Create(ctx context.Context, upload Upload) (*entities.Recording, error)
	List(ctx context.Context) ([]*entities.Recording, error)
	Get(ctx context.Context, id int64) (*entities.Recording, error)
	Delete(ctx context.Context, id int64) (*DeleteResult, error)
	Audit(ctx context.Context) (*dto.AuditReport, error)
}

type Option func(*registry)

func WithEventPublisher(p EventPublisher) Option {
	return func(r *registry) {
		r.events = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *registry) {
		r.now = now
	}
}

func WithKeyFunc(fn func(now time.Time, originalName string) string) Option {
	return func(r *registry) {
		r.newKey = fn
	}
}

type registry struct {
	blobs  storage.BlobStore
	repo   repository.RecordingRepository
	events EventPublisher
	now    func() time.Time
	newKey func(now time.Time, originalName string) string
}

func NewRegistry(blobs storage.BlobStore, repo repository.RecordingRepository, opts ...Option) Registry {
	r := &registry{
		blobs:  blobs,
		repo:   repo,
		now:    time.Now,
		newKey: NewStorageKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create writes the blob and only then inserts the row. A failed insert rolls
// the blob back on a best-effort basis.
func (s *registry) Create(ctx context.Context, upload Upload) (rec *entities.Recording, err error) {
	defer observe(metrics.OpCreate, time.Now(), &err)

	if upload.Body == nil || upload.Size <= 0 {
		return nil, fmt.Errorf("create recording %q: empty upload: %w", upload.OriginalName, ErrInvalidInput)
	}

	now := s.now().UTC()
	key := s.newKey(now, upload.OriginalName)
	logger := zerolog.Ctx(ctx).With().Str("storage_key", key).Logger()

	key, err = s.blobs.Put(ctx, key, upload.Body, upload.Size)
	if err != nil {
		logger.Error().Err(err).Msg("failed to write blob")
		return nil, fmt.Errorf("create recording %q: %w: %w", upload.OriginalName, ErrStorageWriteFailed, err)
	}

	title := upload.Title
	if title == "" {
		title = upload.OriginalName
	}
	rec = &entities.Recording{
		Title:     title,
		Filename:  key,
		Size:      upload.Size,
		URL:       Locator(key),
		CreatedAt: now,
	}

	if err = s.repo.Insert(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateFilename) {
			// The blob under this key belongs to the row that already holds it.
			logger.Error().Err(err).Msg("storage key already recorded, keeping blob")
			metrics.RollbackTotal.WithLabelValues("skipped").Inc()
		} else {
			logger.Error().Err(err).Msg("failed to insert recording, rolling back blob")
			s.rollbackBlob(ctx, &logger, key)
		}
		return nil, fmt.Errorf("create recording %q: %w: %w", upload.OriginalName, ErrMetadataWriteFailed, err)
	}

	metrics.UploadedBytesTotal.Add(float64(rec.Size))
	logger.Info().Int64("recording_id", rec.ID).Int64("size", rec.Size).Msg("recording created")
	s.publish(ctx, constant.EventRecordingCreated, rec)

	return rec, nil
}

// rollbackBlob must run even if the caller has gone away, otherwise a
// cancelled request would leak the blob it just wrote.
func (s *registry) rollbackBlob(ctx context.Context, logger *zerolog.Logger, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := s.blobs.Delete(ctx, key); err != nil {
		metrics.RollbackTotal.WithLabelValues("failed").Inc()
		logger.Warn().Err(err).Msg("blob rollback failed, leaving orphan blob")
		return
	}
	metrics.RollbackTotal.WithLabelValues("ok").Inc()
}

func (s *registry) List(ctx context.Context) (recs []*entities.Recording, err error) {
	defer observe(metrics.OpList, time.Now(), &err)

	recs, err = s.repo.ListAllDesc(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	if recs == nil {
		recs = []*entities.Recording{}
	}
	return recs, nil
}

func (s *registry) Get(ctx context.Context, id int64) (*entities.Recording, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, fmt.Errorf("get recording %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get recording %d: %w", id, err)
	}
	return rec, nil
}

// Delete removes the blob before the row. A crash in between leaves a row
// whose blob is missing, which Audit reports; the opposite order would leave
// an untracked blob nobody can find. The row's disappearance is what makes a
// delete visible, so a concurrent second Delete of the same id sees ErrNotFound.
func (s *registry) Delete(ctx context.Context, id int64) (res *DeleteResult, err error) {
	defer func(start time.Time) {
		outcome := err
		if outcome == nil && res != nil {
			outcome = res.BlobErr
		}
		observe(metrics.OpDelete, start, &outcome)
	}(time.Now())

	rec, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, fmt.Errorf("delete recording %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete recording %d: lookup: %w", id, err)
	}

	logger := zerolog.Ctx(ctx).With().Int64("recording_id", id).Str("storage_key", rec.Filename).Logger()
	// Past this point the protocol runs to completion even if the caller leaves.
	ctx = context.WithoutCancel(ctx)
	res = &DeleteResult{Recording: rec}

	if blobErr := s.blobs.Delete(ctx, rec.Filename); blobErr != nil {
		logger.Warn().Err(blobErr).Msg("failed to delete blob, removing row anyway")
		res.BlobErr = fmt.Errorf("delete recording %d blob %s: %w: %w", id, rec.Filename, ErrStorageDeleteFailed, blobErr)
	}

	n, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg("failed to delete recording row after blob removal")
		return nil, errors.Join(
			fmt.Errorf("delete recording %d: %w: %w", id, ErrMetadataDeleteFailed, err),
			res.BlobErr,
		)
	}
	if n == 0 {
		return nil, fmt.Errorf("delete recording %d: %w", id, ErrNotFound)
	}

	logger.Info().Bool("blob_removed", res.BlobErr == nil).Msg("recording deleted")
	s.publish(ctx, constant.EventRecordingDeleted, rec)

	return res, nil
}

// Audit checks every row against the blob store and reports rows whose blob is
// gone. It never modifies either store.
func (s *registry) Audit(ctx context.Context) (report *dto.AuditReport, err error) {
	defer observe(metrics.OpAudit, time.Now(), &err)

	recs, err := s.repo.ListAllDesc(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: list recordings: %w", err)
	}

	report = &dto.AuditReport{
		Checked:  len(recs),
		Dangling: []*entities.Recording{},
	}
	for _, rec := range recs {
		ok, err := s.blobs.Exists(ctx, rec.Filename)
		if err != nil {
			return nil, fmt.Errorf("audit recording %d: %w", rec.ID, err)
		}
		if !ok {
			zerolog.Ctx(ctx).Warn().Int64("recording_id", rec.ID).Str("storage_key", rec.Filename).Msg("recording row has no blob")
			report.Dangling = append(report.Dangling, rec)
		}
	}

	metrics.DanglingRows.Set(float64(len(report.Dangling)))
	return report, nil
}

func (s *registry) publish(ctx context.Context, eventType constant.EventType, rec *entities.Recording) {
	if s.events == nil {
		return
	}
	event := dto.RecordingEvent{
		Type:        eventType,
		RecordingId: rec.ID,
		Filename:    rec.Filename,
		Size:        rec.Size,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.events.PublishRecordingEvent(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", eventType.String()).Int64("recording_id", rec.ID).Msg("failed to publish recording event")
	}
}

func observe(op string, start time.Time, err *error) {
	metrics.OperationsTotal.WithLabelValues(op, errorKind(*err)).Inc()
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
