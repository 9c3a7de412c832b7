package gbpsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/models"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
	"github.com/gin-gonic/gin"
)

const userCacheTTL = 10 * time.Minute

func LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := models.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if user.IsActive != nil && !*user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account is disabled"})
		return
	}
	if err := utils.ComparePassword(user.Password, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := utils.JwtGenerate(user.ID, user.Username, user.Role)
	if err != nil {
		config.LogError(logger, "gbpsync", "LoginHandler", "generate token", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// resolveBusinessID loads the caller's business from the authenticated
// username, caching the user row in Redis. Admins may act on another
// business via the business_id query param.
func resolveBusinessID(c *gin.Context) (context.Context, error) {
	ctx := c.Request.Context()

	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return ctx, errors.New("unauthorized")
	}

	var user models.User
	cacheKey := "user:" + username
	found, err := config.GetRedisObject(cacheKey, &user)
	if err != nil || !found {
		u, err := models.GetUserByUsername(ctx, username)
		if err != nil {
			return ctx, errors.New("unauthorized")
		}
		user = *u
		_ = config.SetRedisObject(cacheKey, user, userCacheTTL)
	}

	businessId := user.BusinessId
	if utils.GetIsAdminFromContext(ctx) {
		if override := c.Query("business_id"); override != "" {
			businessId = override
		}
	}
	if businessId == "" {
		return ctx, errors.New("unauthorized")
	}

	return utils.SetBusinessIdInContext(ctx, businessId), nil
}

func pathIntParam(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func syncRunResponseOf(run *models.ListingSyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:            run.ID,
		ListingId:     run.ListingId,
		Status:        run.Status,
		StartedAt:     utils.FormatTimePtr(run.StartedAt),
		FinishedAt:    utils.FormatTimePtr(run.FinishedAt),
		DurationMs:    run.DurationMs,
		RecordsSynced: run.RecordsSynced,
		ErrorCount:    run.ErrorCount,
		TriggeredBy:   run.TriggeredBy,
	}
}

func (e *Engine) queueSyncRun(ctx context.Context, listing *models.Listing, modules SyncModules, triggeredBy string, parentRunId *uint) (*models.ListingSyncRun, error) {
	db := config.GetDB()

	run := models.ListingSyncRun{
		BusinessId:  listing.BusinessId,
		ListingId:   listing.ID,
		Status:      models.SyncRunStatusQueued,
		TriggeredBy: triggeredBy,
		ModulesJSON: EncodeModules(modules),
		ParentRunId: parentRunId,
	}
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		run.CorrelationId = correlationId
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}

	err := PublishSyncRun(ctx, SyncPubSubPayload{
		RunId:      run.ID,
		BusinessId: run.BusinessId,
		ListingId:  run.ListingId,
	})
	if err != nil {
		_ = db.WithContext(ctx).Model(&models.ListingSyncRun{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"status":      models.SyncRunStatusFailed,
				"error_count": 1,
			}).Error
		return nil, fmt.Errorf("dispatch sync run: %w", err)
	}

	return &run, nil
}

// TriggerSyncHandler queues a sync run for one listing and dispatches it to
// the worker. Responds 202: the work happens out of band.
func TriggerSyncHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		listingId, err := pathIntParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var req TriggerSyncRequest
		_ = c.ShouldBindJSON(&req)
		modules := req.Modules
		if isEmptyModules(modules) {
			modules = DefaultModules()
		}

		listing, err := models.GetListing(ctx, listingId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		run, err := e.queueSyncRun(ctx, listing, modules, models.SyncTriggeredManual, nil)
		if err != nil {
			config.LogError(logger, "gbpsync", "TriggerSyncHandler", "queue sync run", listingId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, syncRunResponseOf(run))
	}
}

func SyncStatusHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	listingId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := models.GetListing(ctx, listingId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := SyncStatusResponse{
		ListingId:           listing.ID,
		Status:              listing.Status,
		LocationSyncedAt:    utils.FormatTimePtr(listing.LocationSyncedAt),
		MediaSyncedAt:       utils.FormatTimePtr(listing.MediaSyncedAt),
		ReviewsSyncedAt:     utils.FormatTimePtr(listing.ReviewsSyncedAt),
		PerformanceSyncedAt: utils.FormatTimePtr(listing.PerformanceSyncedAt),
		KeywordsSyncedAt:    utils.FormatTimePtr(listing.KeywordsSyncedAt),
	}

	db := config.GetDB()
	var lastRun models.ListingSyncRun
	if err := db.WithContext(ctx).
		Where("listing_id = ? AND business_id = ?", listing.ID, listing.BusinessId).
		Order("id desc").
		Take(&lastRun).Error; err == nil {
		r := syncRunResponseOf(&lastRun)
		resp.LastRun = &r
	}

	c.JSON(http.StatusOK, resp)
}

func SyncHistoryHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	listingId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	db := config.GetDB()
	var runs []*models.ListingSyncRun
	if err := db.WithContext(ctx).
		Where("listing_id = ? AND business_id = ?", listingId, businessId).
		Order("id desc").
		Limit(limit).
		Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := SyncHistoryResponse{Items: make([]SyncRunResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Items = append(resp.Items, syncRunResponseOf(run))
	}
	c.JSON(http.StatusOK, resp)
}

func SyncRunDetailHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	runId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	db := config.GetDB()

	var run models.ListingSyncRun
	if err := db.WithContext(ctx).
		Where("id = ? AND business_id = ?", runId, businessId).
		Take(&run).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sync run not found"})
		return
	}

	var syncErrors []*models.ListingSyncError
	_ = db.WithContext(ctx).
		Where("sync_run_id = ?", run.ID).
		Order("id").
		Find(&syncErrors).Error

	resp := SyncRunDetailResponse{
		SyncRunResponse: syncRunResponseOf(&run),
		Stats:           run.StatsJSON,
	}
	for _, se := range syncErrors {
		resp.Errors = append(resp.Errors, SyncErrorResponse{
			ID:         se.ID,
			EntityType: se.EntityType,
			ExternalId: se.ExternalId,
			Message:    se.Message,
			Retryable:  se.Retryable,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// RetrySyncRunHandler queues a fresh run with the same module selection as
// a failed or partial run, linked via parent_run_id.
func RetrySyncRunHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		runId, err := pathIntParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		businessId, _ := utils.GetBusinessIdFromContext(ctx)
		db := config.GetDB()

		var run models.ListingSyncRun
		if err := db.WithContext(ctx).
			Where("id = ? AND business_id = ?", runId, businessId).
			Take(&run).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "sync run not found"})
			return
		}

		if run.Status != models.SyncRunStatusFailed && run.Status != models.SyncRunStatusPartial {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("only failed or partial runs can be retried; run is %s", run.Status)})
			return
		}

		listing, err := models.GetListing(ctx, run.ListingId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}

		parentId := run.ID
		retry, err := e.queueSyncRun(ctx, listing, DecodeModules(run.ModulesJSON), models.SyncTriggeredRetry, &parentId)
		if err != nil {
			config.LogError(logger, "gbpsync", "RetrySyncRunHandler", "queue retry run", runId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, syncRunResponseOf(retry))
	}
}

// CreatePostHandler stores a draft (or scheduled) post for later publishing.
func CreatePostHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	listingId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := models.GetListing(ctx, listingId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = models.PostTypeStandard
	}

	post := models.Post{
		BusinessId:       listing.BusinessId,
		ListingId:        listing.ID,
		ContentType:      contentType,
		Title:            req.Title,
		Body:             req.Body,
		CallToActionType: req.CallToActionType,
		CallToActionUrl:  req.CallToActionUrl,
		EventTitle:       req.EventTitle,
		EventStartAt:     parseProviderTime(req.EventStartAt),
		EventEndAt:       parseProviderTime(req.EventEndAt),
		CouponCode:       req.CouponCode,
		RedeemOnlineUrl:  req.RedeemOnlineUrl,
		TermsConditions:  req.TermsConditions,
		Status:           models.PostStatusDraft,
	}
	if scheduledAt := parseProviderTime(req.ScheduledAt); scheduledAt != nil {
		post.Status = models.PostStatusScheduled
		post.ScheduledAt = scheduledAt
	}
	if len(req.Media) > 0 {
		if b, err := json.Marshal(req.Media); err == nil {
			post.MediaJSON = b
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&post).Error; err != nil {
		config.LogError(logger, "gbpsync", "CreatePostHandler", "create post", listingId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	_ = models.LogActivity(ctx, "post_created", fmt.Sprintf("Post #%d created for listing #%d", post.ID, listing.ID), post.ID, "post", nil)

	c.JSON(http.StatusCreated, post)
}

func PublishPostHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		postId, err := pathIntParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		post, err := e.PublishPost(ctx, postId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
				return
			}
			config.LogError(logger, "gbpsync", "PublishPostHandler", "publish post", postId, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, post)
	}
}

func BulkPublishPostsHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		var req BulkPublishRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := e.BulkPublishPosts(ctx, req)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			config.LogError(logger, "gbpsync", "BulkPublishPostsHandler", "bulk publish", req.PostIds, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func PublishReviewReplyHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		reviewId, err := pathIntParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		review, err := e.PublishReviewReply(ctx, reviewId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
				return
			}
			config.LogError(logger, "gbpsync", "PublishReviewReplyHandler", "publish reply", reviewId, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, review)
	}
}

// DraftReviewReplyHandler stores a draft reply on a review and moves it to
// draft_ready. Nothing is sent to the provider until the reply is approved
// and published.
func DraftReviewReplyHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	reviewId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req ReviewReplyDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := models.GetReview(ctx, reviewId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if review.ResponseStatus == models.ResponseStatusPublished {
		c.JSON(http.StatusConflict, gin.H{"error": "review reply is already published"})
		return
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]interface{}{
			"reply_draft":     req.Draft,
			"response_status": models.ResponseStatusDraftReady,
		}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	review.ReplyDraft = req.Draft
	review.ResponseStatus = models.ResponseStatusDraftReady

	c.JSON(http.StatusOK, review)
}

// ApproveReviewReplyHandler moves a draft-ready reply to approved.
func ApproveReviewReplyHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	reviewId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := models.GetReview(ctx, reviewId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if review.ReplyDraft == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "review has no draft reply to approve"})
		return
	}
	if review.ResponseStatus == models.ResponseStatusPublished {
		c.JSON(http.StatusConflict, gin.H{"error": "review reply is already published"})
		return
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]interface{}{
			"reply_text":      review.ReplyDraft,
			"response_status": models.ResponseStatusApproved,
		}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	review.ReplyText = review.ReplyDraft
	review.ResponseStatus = models.ResponseStatusApproved

	c.JSON(http.StatusOK, review)
}

func AuditNarrativeHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	auditId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := models.GetAuditRecord(ctx, auditId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "audit record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	narrative, err := NarrativeForAudit(record)
	if err != nil {
		config.LogError(logger, "gbpsync", "AuditNarrativeHandler", "render narrative", auditId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": record.ID, "narrative": narrative})
}

func RunAuditHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		listingId, err := pathIntParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		record, result, err := e.RunAudit(ctx, listingId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
				return
			}
			config.LogError(logger, "gbpsync", "RunAuditHandler", "run audit", listingId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":        record.ID,
			"listingId": record.ListingId,
			"result":    result,
			"createdAt": record.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
}

func AuditHistoryHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	listingId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := models.GetAuditRecords(ctx, listingId, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": records})
}

func ListListingsHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	listings, err := models.GetListings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": listings})
}

func GetListingHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	listingId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := models.GetListing(ctx, listingId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, listing)
}

func ListReviewsHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	listingId, err := pathIntParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviews, err := models.GetReviewsByListing(ctx, listingId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reviews})
}

func ListActivitiesHandler(c *gin.Context) {
	ctx, err := resolveBusinessID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var refId *int
	if v, err := strconv.Atoi(c.Query("reference_id")); err == nil && v > 0 {
		refId = &v
	}
	var refType *string
	if v := c.Query("reference_type"); v != "" {
		refType = &v
	}

	activities, err := models.GetActivities(ctx, refId, refType, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": activities})
}
