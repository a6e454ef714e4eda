package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/middleware"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/model"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/services"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/split"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/taskqueue"
)

// SplitHandler serves the split run endpoints
type SplitHandler struct {
	splitService *services.SplitService
	logger       *logrus.Logger
}

// NewSplitHandler creates a split handler
func NewSplitHandler(splitService *services.SplitService) *SplitHandler {
	return &SplitHandler{
		splitService: splitService,
		logger:       middleware.GetLogger(),
	}
}

// CreateSplit starts a split run, inline or through the queue
// POST /api/splits
func (h *SplitHandler) CreateSplit(c *gin.Context) {
	var req model.SplitCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Invalid split request")
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"invalid request: dataset_id is required and test_size must be in (0, 1)",
		))
		return
	}

	cfg := split.DefaultConfig()
	if req.TestSize != 0 {
		cfg.TestSize = req.TestSize
	}
	cfg.KeepRatio = req.KeepRatio
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}

	var (
		run *models.SplitRun
		err error
	)
	if req.Async {
		if h.splitService.GetTaskQueue() == nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(
				http.StatusBadRequest,
				"async processing is not enabled on this server",
			))
			return
		}
		run, err = h.splitService.CreateSplitAsync(c.Request.Context(), req.DatasetID, cfg)
	} else {
		run, err = h.splitService.CreateSplit(c.Request.Context(), req.DatasetID, cfg)
	}
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDatasetNotFound):
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "dataset not found"))
		case errors.Is(err, models.ErrInvalidTestSize),
			errors.Is(err, models.ErrNoClaims):
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, err.Error()))
		default:
			middleware.HandleError(c, err)
		}
		return
	}

	h.logger.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"dataset_id": run.DatasetID,
		"status":     run.Status,
		"async":      req.Async,
	}).Info("Split run created")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewSplitRunInfo(run)))
}

// GetSplit returns one split run
// GET /api/splits/:id
func (h *SplitHandler) GetSplit(c *gin.Context) {
	var req model.SplitGetRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid run id"))
		return
	}

	run, err := h.splitService.GetSplit(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, models.ErrSplitRunNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "split run not found"))
			return
		}
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewSplitRunInfo(run)))
}

// ListSplits returns the runs of one dataset
// GET /api/splits?dataset_id=...
func (h *SplitHandler) ListSplits(c *gin.Context) {
	var req model.SplitListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid query parameters: dataset_id is required"))
		return
	}

	offset := (req.GetPage() - 1) * req.GetPageSize()
	runs, total, err := h.splitService.ListSplits(c.Request.Context(), req.DatasetID, offset, req.GetPageSize())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := model.SplitListResponse{
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
		Runs:     make([]model.SplitRunInfo, 0, len(runs)),
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, model.NewSplitRunInfo(run))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// GetReport returns the operator summary of a completed run
// GET /api/splits/:id/report
func (h *SplitHandler) GetReport(c *gin.Context) {
	var req model.SplitGetRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid run id"))
		return
	}

	report, err := h.splitService.GetReport(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, models.ErrSplitRunNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "split run not found"))
			return
		}
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SplitReportResponse{
		RunID:  req.ID,
		Report: report,
	}))
}

// DownloadArtifact streams one output file of a completed run
// GET /api/splits/:id/artifacts/:name
func (h *SplitHandler) DownloadArtifact(c *gin.Context) {
	var req model.ArtifactRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"invalid artifact, expected train.json, test.json, train.jsonl or test.jsonl",
		))
		return
	}

	reader, err := h.splitService.GetArtifact(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		if errors.Is(err, models.ErrSplitRunNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "split run not found"))
			return
		}
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}
	defer reader.Close()

	contentType := "application/json"
	if req.Name == "train.jsonl" || req.Name == "test.jsonl" {
		contentType = "application/x-ndjson"
	}

	c.Header("Content-Disposition", `attachment; filename="`+req.Name+`"`)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"run_id": req.ID,
			"name":   req.Name,
		}).Error("Failed to stream artifact")
	}
}

// GetTask returns the queue status of an async run
// GET /api/tasks/:id
func (h *SplitHandler) GetTask(c *gin.Context) {
	var req model.TaskGetRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid task id"))
		return
	}

	queue := h.splitService.GetTaskQueue()
	if queue == nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"async processing is not enabled on this server",
		))
		return
	}

	task, err := queue.GetTask(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "task not found"))
			return
		}
		middleware.HandleError(c, err)
		return
	}

	info := taskqueue.NewTaskInfo(task)
	resp := model.TaskInfoResponse{
		TaskID:    info.ID,
		Type:      string(info.Type),
		Status:    string(info.Status),
		DatasetID: info.DatasetID,
		Progress:  info.Progress,
		Error:     info.Error,
	}
	if len(task.Result) > 0 {
		resp.Result = json.RawMessage(task.Result)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}
