package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/studiosync/internal/dbx"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server/models"
	"github.com/dmitrijs2005/studiosync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

// SyncService merges client changes into the server copy and returns
// everything changed since the client's previous round.
type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *SyncService {
	return &SyncService{db: db, repomanager: m, log: log}
}

// Sync stores the incoming rows, newest modification winning, and replies
// with every row modified at or after req.PreviousSyncDate, grouped by
// table. A missing or unparsable date means the epoch.
func (s *SyncService) Sync(ctx context.Context, userName string, req models.SyncRequest) (models.SyncReply, error) {
	since, err := timex.ParseStamp(req.PreviousSyncDate)
	if err != nil {
		since = timex.Epoch
	}

	var (
		reply   models.SyncReply
		written int
	)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)

		for _, t := range req.Tables {
			for _, row := range t.ModifiedRows {
				ok, err := repo.Upsert(ctx, recordFromRow(t.Name, row))
				if err != nil {
					return fmt.Errorf("error storing %s/%s: %w", t.Name, row.UUID, err)
				}
				if ok {
					written++
				}
			}
		}

		changed, err := repo.ListModifiedSince(ctx, since)
		if err != nil {
			return fmt.Errorf("error listing changes: %w", err)
		}
		reply.Tables = groupByTable(changed)
		return nil
	})
	if err != nil {
		return models.SyncReply{}, err
	}

	s.log.Info(ctx, "sync", "user", userName, "written", written, "tables", len(reply.Tables), "since", timex.FormatStamp(since))
	return reply, nil
}

func recordFromRow(table string, row models.Row) models.Record {
	modified, err := timex.ParseStamp(row.Modified)
	if err != nil {
		modified = timex.Now()
	}
	return models.Record{
		Table:    table,
		UUID:     row.UUID,
		Data:     row.Data,
		Modified: modified,
		Removed:  row.Removed,
		UserName: row.UserName,
	}
}

// groupByTable expects recs ordered by table.
func groupByTable(recs []models.Record) []models.TableRows {
	result := []models.TableRows{}
	for _, r := range recs {
		if n := len(result); n == 0 || result[n-1].Name != r.Table {
			result = append(result, models.TableRows{Name: r.Table, ModifiedRows: []models.Row{}})
		}
		last := &result[len(result)-1]
		last.ModifiedRows = append(last.ModifiedRows, models.Row{
			UUID:     r.UUID,
			Data:     r.Data,
			Modified: timex.FormatStamp(r.Modified),
			Removed:  r.Removed,
			UserName: r.UserName,
		})
	}
	return result
}
