package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/model"
)

const defaultArchiveBatch = 500

// ArchiveResult summarizes one archive run.
type ArchiveResult struct {
	Objects []string
	Deleted int64
}

// Archiver moves expired ledger rows to object storage. A batch is deleted
// only after its upload succeeded.
type Archiver struct {
	store     model.RefreshTokenStore
	storage   model.Storage
	batchSize int
	logger    *logger.Logger
}

func NewArchiver(store model.RefreshTokenStore, storage model.Storage, batchSize int, logger *logger.Logger) *Archiver {
	if batchSize <= 0 {
		batchSize = defaultArchiveBatch
	}
	return &Archiver{store: store, storage: storage, batchSize: batchSize, logger: logger}
}

// Archive exports and deletes every ledger row that expired before the given
// time, one batch per object.
func (a *Archiver) Archive(ctx context.Context, before time.Time) (ArchiveResult, error) {
	var result ArchiveResult

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rows, err := a.store.ListExpired(ctx, before, a.batchSize)
		if err != nil {
			return result, unavailable("list expired refresh tokens", err)
		}
		if len(rows) == 0 {
			break
		}

		key := archiveKey(before)
		if err := a.upload(ctx, key, rows); err != nil {
			return result, err
		}
		result.Objects = append(result.Objects, key)

		ids := make([]uuid.UUID, len(rows))
		for i, rt := range rows {
			ids[i] = rt.ID
		}
		n, err := a.store.DeleteByIDs(ctx, ids)
		if err != nil {
			return result, unavailable("delete archived refresh tokens", err)
		}
		result.Deleted += n

		a.logger.Info("Archiver: batch archived",
			"object", key,
			"rows", len(rows))

		if len(rows) < a.batchSize {
			break
		}
	}

	return result, nil
}

func (a *Archiver) upload(ctx context.Context, key string, rows []model.RefreshToken) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rt := range rows {
		if err := enc.Encode(rt); err != nil {
			return fmt.Errorf("failed to encode refresh token %s: %w", rt.ID, err)
		}
	}

	if err := a.storage.Upload(ctx, key, &buf); err != nil {
		return fmt.Errorf("failed to upload archive %s: %w", key, err)
	}
	return nil
}

func archiveKey(before time.Time) string {
	return fmt.Sprintf("refresh-tokens/%s/%s.jsonl", before.UTC().Format("2006/01/02"), ulid.Make())
}
