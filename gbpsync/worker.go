package gbpsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/gbp"
	"bitbucket.org/mmdatafocus/listings_backend/models"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var logger = config.GetLogger()

const syncLockTTL = 10 * time.Minute

// Engine runs sync, publish and audit operations against one shared
// provider client. One Engine per process; the client's rate limiter is the
// process-wide request gate.
type Engine struct {
	client *gbp.Client
}

func NewEngine(client *gbp.Client) *Engine {
	return &Engine{client: client}
}

// ProcessSyncRun executes one queued sync run to completion. It is safe to
// call twice for the same run id: a finished run is skipped, and a listing
// level lock keeps two workers off the same listing.
func (e *Engine) ProcessSyncRun(ctx context.Context, runId uint) error {
	db := config.GetDB()
	if db == nil {
		return errors.New("db is not connected")
	}

	var run models.ListingSyncRun
	if err := db.WithContext(ctx).Where("id = ?", runId).Take(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("sync run %d not found", runId)
		}
		return err
	}

	switch run.Status {
	case models.SyncRunStatusSuccess, models.SyncRunStatusPartial, models.SyncRunStatusFailed:
		logger.WithFields(logrus.Fields{
			"run_id": run.ID,
			"status": run.Status,
		}).Info("sync run already finished; skipping")
		return nil
	}

	ctx = utils.SetBusinessIdInContext(ctx, run.BusinessId)

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, fmt.Sprintf("listing-sync:%d", run.ListingId), syncLockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return fmt.Errorf("listing %d is already syncing", run.ListingId)
			}
			config.LogError(logger, "gbpsync", "ProcessSyncRun", "obtain sync lock", run.ID, err)
		} else {
			defer lock.Release(context.Background())
		}
	}

	var listing models.Listing
	if err := db.WithContext(ctx).
		Where("id = ? AND business_id = ?", run.ListingId, run.BusinessId).
		Take(&listing).Error; err != nil {
		finishErr := fmt.Errorf("listing %d not found for business %s", run.ListingId, run.BusinessId)
		e.finishRun(ctx, db, &run, models.SyncRunStatusFailed, nil, 0, 1, time.Now())
		_ = createSyncError(ctx, db, &run, run.ListingId, "listing", "", "listing_missing", finishErr.Error(), nil, false)
		return finishErr
	}

	startedAt := time.Now()
	if err := db.WithContext(ctx).Model(&models.ListingSyncRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":     models.SyncRunStatusRunning,
			"started_at": startedAt,
		}).Error; err != nil {
		return err
	}
	run.Status = models.SyncRunStatusRunning
	run.StartedAt = &startedAt

	modules := DecodeModules(run.ModulesJSON)
	ts := TokenSourceForListing(db, run.BusinessId, run.ListingId)

	stats := map[string]int{}
	attempted := 0
	failedFamilies := 0
	records := 0

	runFamily := func(name string, fn func() (int, error)) {
		attempted++
		count, err := fn()
		if err != nil {
			failedFamilies++
			retryable := !errors.Is(err, ErrCredentialUnavailable)
			_ = createSyncError(ctx, db, &run, listing.ID, name, "", "family_failed", err.Error(), nil, retryable)
			config.LogError(logger, "gbpsync", "ProcessSyncRun", "sync "+name, run.ID, err)
			return
		}
		stats[name] = count
		records += count
	}

	if modules.Location {
		runFamily("location", func() (int, error) {
			if err := e.syncLocation(ctx, db, &listing, ts); err != nil {
				return 0, err
			}
			return 1, nil
		})
	}
	if modules.Media {
		runFamily("media", func() (int, error) {
			return e.syncMedia(ctx, db, &listing, ts)
		})
	}
	if modules.Reviews {
		runFamily("reviews", func() (int, error) {
			newCount, total, err := e.syncReviews(ctx, db, &run, &listing, ts)
			if err != nil {
				return 0, err
			}
			stats["reviews_new"] = newCount
			return total, err
		})
	}
	if modules.Performance {
		runFamily("performance", func() (int, error) {
			return e.syncPerformance(ctx, db, &listing, ts)
		})
	}
	if modules.Keywords {
		runFamily("keywords", func() (int, error) {
			return e.syncKeywords(ctx, db, &run, &listing, ts)
		})
	}

	var itemErrors int64
	_ = db.WithContext(ctx).Model(&models.ListingSyncError{}).
		Where("sync_run_id = ?", run.ID).
		Count(&itemErrors).Error

	status := models.SyncRunStatusSuccess
	switch {
	case attempted > 0 && failedFamilies == attempted:
		status = models.SyncRunStatusFailed
	case itemErrors > 0:
		status = models.SyncRunStatusPartial
	}

	e.finishRun(ctx, db, &run, status, stats, records, int(itemErrors), startedAt)

	_ = models.LogActivity(ctx, "listing_sync", fmt.Sprintf("Sync run #%d finished with status %s", run.ID, status), int(run.ID), "listing_sync_run", stats)

	logger.WithFields(logrus.Fields{
		"run_id":         run.ID,
		"listing_id":     run.ListingId,
		"status":         status,
		"records_synced": records,
		"error_count":    itemErrors,
	}).Info("sync run finished")

	if status == models.SyncRunStatusFailed {
		return fmt.Errorf("sync run %d failed", run.ID)
	}
	return nil
}

func (e *Engine) finishRun(ctx context.Context, db *gorm.DB, run *models.ListingSyncRun, status string, stats map[string]int, records int, errorCount int, startedAt time.Time) {
	finishedAt := time.Now()
	updates := map[string]interface{}{
		"status":         status,
		"finished_at":    finishedAt,
		"duration_ms":    finishedAt.Sub(startedAt).Milliseconds(),
		"records_synced": records,
		"error_count":    errorCount,
	}
	if stats != nil {
		if b, err := json.Marshal(stats); err == nil {
			updates["stats_json"] = b
		}
	}
	if err := db.WithContext(ctx).Model(&models.ListingSyncRun{}).
		Where("id = ?", run.ID).
		Updates(updates).Error; err != nil {
		config.LogError(logger, "gbpsync", "finishRun", "persist run status", run.ID, err)
	}
}
