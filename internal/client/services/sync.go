package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/client/repositories/syncstate"
	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/dbx"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

// MergePolicy decides what happens when an incoming row meets an existing one.
type MergePolicy string

const (
	// MergeAccept overwrites the local row with the incoming one unconditionally.
	MergeAccept MergePolicy = "accept"
	// MergeNewer keeps the local row when it was modified after the incoming one.
	MergeNewer MergePolicy = "newer"
)

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(s) {
	case "", MergeAccept:
		return MergeAccept, nil
	case MergeNewer:
		return MergeNewer, nil
	}
	return "", fmt.Errorf("unknown merge policy %q", s)
}

// SyncService produces outgoing sync payloads and applies incoming ones.
type SyncService interface {
	Produce(ctx context.Context) (models.SyncPayload, error)
	Apply(ctx context.Context, tables []models.TableRows) error
	Run(ctx context.Context) error
}

type syncService struct {
	store    Store
	writer   Writer
	notifier Notifier
	link     Link
	policy   MergePolicy
	log      logging.Logger

	mu         sync.Mutex
	roundStart time.Time
}

// NewSyncService wires the service and subscribes it to sync replies of link.
func NewSyncService(store Store, writer Writer, notifier Notifier, link Link, policy MergePolicy, log logging.Logger) SyncService {
	s := &syncService{
		store:    store,
		writer:   writer,
		notifier: notifier,
		link:     link,
		policy:   policy,
		log:      log.With("module", "sync"),
	}
	link.OnResponse(s.onResponse)
	return s
}

// Produce collects every row modified since the watermark, tombstones
// included, for every table.
func (s *syncService) Produce(ctx context.Context) (models.SyncPayload, error) {
	since, err := s.store.LastSync(ctx)
	if err != nil {
		return models.SyncPayload{}, fmt.Errorf("read watermark: %w", err)
	}

	payload := models.SyncPayload{PreviousSyncDate: timex.FormatStamp(since)}
	var errs []error

	for _, table := range s.store.Tables() {
		recs, err := s.store.ListModifiedSince(ctx, table, since)
		if err != nil {
			errs = append(errs, fmt.Errorf("table %s: %w", table, err))
			continue
		}
		rows := make([]models.SyncRow, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, models.RowFromRecord(r))
		}
		payload.Tables = append(payload.Tables, models.TableRows{Name: table, ModifiedRows: rows})
	}
	return payload, errors.Join(errs...)
}

// Run starts a sync round: it posts the local changes and applies the
// server's reply when it arrives. The watermark then moves to the round
// start so that edits made meanwhile are sent again next round.
func (s *syncService) Run(ctx context.Context) error {
	start := timex.Now()

	payload, err := s.Produce(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.roundStart = start
	s.mu.Unlock()

	rows := 0
	for _, t := range payload.Tables {
		rows += len(t.ModifiedRows)
	}
	s.log.Info(ctx, "sync round started", "since", payload.PreviousSyncDate, "rows", rows)

	s.link.Post(common.QuerySync, map[string]any{
		"tables":           payload.Tables,
		"previousSyncDate": payload.PreviousSyncDate,
	})
	return nil
}

func (s *syncService) onResponse(resp models.Response) {
	if !resp.Answers(common.QuerySync) {
		return
	}
	ctx := context.Background()

	s.mu.Lock()
	at := s.roundStart
	s.roundStart = time.Time{}
	s.mu.Unlock()

	if !resp.Success {
		s.log.Warn(ctx, "sync rejected by server", "message", resp.Message)
		return
	}

	var content models.SyncPayload
	if len(resp.Content) > 0 {
		if err := json.Unmarshal(resp.Content, &content); err != nil {
			s.log.Error(ctx, "malformed sync content", "error", err)
			return
		}
	}

	if at.IsZero() {
		at = timex.Now()
	}
	if err := s.apply(ctx, content.Tables, at); err != nil {
		s.log.Error(ctx, "sync apply not scheduled", "error", err)
	}
}

// Apply schedules the incoming rows on the write queue, one transaction
// per table, and then advances the watermark to now.
func (s *syncService) Apply(ctx context.Context, tables []models.TableRows) error {
	return s.apply(ctx, tables, timex.Now())
}

func (s *syncService) apply(ctx context.Context, tables []models.TableRows, watermark time.Time) error {
	for _, t := range tables {
		if !s.store.HasTable(t.Name) {
			s.log.Warn(ctx, "skipping unknown table in sync payload", "table", t.Name, "rows", len(t.ModifiedRows))
			continue
		}
		t := t
		if err := s.writer.Enqueue("sync_apply", func(ctx context.Context, db *sql.DB) error {
			return s.applyTable(ctx, db, t)
		}); err != nil {
			return err
		}
	}

	return s.writer.Enqueue("sync_watermark", func(ctx context.Context, db *sql.DB) error {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return syncstate.NewSQLiteRepository(tx).Advance(ctx, watermark)
		})
	})
}

type availability struct {
	uuid      string
	available bool
}

func (s *syncService) applyTable(ctx context.Context, db *sql.DB, t models.TableRows) error {
	var (
		inserted []string
		flipped  []availability
		updated  []string
	)

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.store.Records(tx)

		for _, row := range t.ModifiedRows {
			if row.UUID == "" {
				s.log.Warn(ctx, "skipping row without uuid", "table", t.Name)
				continue
			}
			rec := row.Record(t.Name)

			existing, err := repo.Get(ctx, t.Name, rec.UUID)
			switch {
			case errors.Is(err, common.ErrNotFound):
				if err := repo.Put(ctx, rec); err != nil {
					return err
				}
				if !rec.Removed {
					inserted = append(inserted, rec.UUID)
				}
				continue
			case err != nil:
				return err
			}

			if s.policy == MergeNewer && rec.Modified.Before(existing.Modified) {
				continue
			}
			if existing.Removed != rec.Removed {
				flipped = append(flipped, availability{uuid: rec.UUID, available: !rec.Removed})
			} else if existing.Data != rec.Data {
				updated = append(updated, rec.UUID)
			}
			if err := repo.Put(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply %s: %w", t.Name, err)
	}

	for _, id := range inserted {
		s.notifier.Inserted(id, t.Name)
	}
	for _, f := range flipped {
		s.notifier.AvailabilityChanged(f.uuid, f.available)
	}
	for _, id := range updated {
		s.notifier.Updated(id)
	}
	return nil
}
