// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package report

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/models"
)

// Archive persists generated reports to BadgerDB so history survives
// restarts. Persistence failures are logged and swallowed: the in-memory
// history is the serving copy.
type Archive struct {
	db *badger.DB
}

// OpenArchive opens (or creates) the report archive at path.
func OpenArchive(path string) (*Archive, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open report archive: %w", err)
	}
	logging.Info().Str("path", path).Msg("Report archive opened")
	return &Archive{db: db}, nil
}

func archiveKey(rep *models.Report) []byte {
	return []byte(fmt.Sprintf("report:%s:%020d:%s", rep.Type, rep.Date.UnixMilli(), rep.ID))
}

// Save persists one report. Failure is logged, not returned.
func (a *Archive) Save(rep *models.Report) {
	payload, err := json.Marshal(rep)
	if err != nil {
		logging.Err(err).Str("report_id", rep.ID).Msg("Failed to marshal report for archive")
		return
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(archiveKey(rep), payload)
	})
	if err != nil {
		logging.Err(err).Str("report_id", rep.ID).Msg("Failed to archive report")
	}
}

// Load returns all archived reports of one type, oldest first.
func (a *Archive) Load(reportType models.ReportType) ([]*models.Report, error) {
	var out []*models.Report
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fmt.Sprintf("report:%s:", reportType))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rep models.Report
				if err := json.Unmarshal(val, &rep); err != nil {
					return fmt.Errorf("unmarshal report: %w", err)
				}
				out = append(out, &rep)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	return out, nil
}

// Close shuts down the archive.
func (a *Archive) Close() error {
	return a.db.Close()
}
