package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/middleware"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/model"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/services"
)

// DatasetHandler serves the dataset endpoints
type DatasetHandler struct {
	datasetService *services.DatasetService
	logger         *logrus.Logger
}

// NewDatasetHandler creates a dataset handler
func NewDatasetHandler(datasetService *services.DatasetService) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
		logger:         middleware.GetLogger(),
	}
}

// UploadDataset handles a corpus upload
// POST /api/datasets
func (h *DatasetHandler) UploadDataset(c *gin.Context) {
	var req model.DatasetUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Invalid dataset upload request")
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"invalid request: a file is required",
		))
		return
	}

	filename := req.File.Filename
	if !isValidDatasetType(filepath.Ext(filename)) {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"unsupported file type, only .json, .jsonl and .ndjson are accepted",
		))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": filename,
		}).Error("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"failed to open uploaded file",
		))
		return
	}
	defer file.Close()

	record, err := h.datasetService.UploadDataset(c.Request.Context(), file, filename)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": filename,
		}).Error("Failed to store dataset")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"failed to store dataset",
		))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewDatasetInfo(record)))
}

// GetDataset returns one dataset record
// GET /api/datasets/:id
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	var req model.DatasetGetRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid dataset id"))
		return
	}

	record, err := h.datasetService.GetDataset(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, models.ErrDatasetNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "dataset not found"))
			return
		}
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewDatasetInfo(record)))
}

// ListDatasets returns a paged dataset listing
// GET /api/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	var req model.DatasetListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid query parameters"))
		return
	}

	filters := make(map[string]interface{})
	if req.Status != "" {
		filters["status"] = req.Status
	}
	if req.FileName != "" {
		filters["file_name"] = req.FileName
	}
	if req.StartTime != nil {
		filters["start_time"] = req.StartTime.Format(time.RFC3339)
	}
	if req.EndTime != nil {
		filters["end_time"] = req.EndTime.Format(time.RFC3339)
	}

	offset := (req.GetPage() - 1) * req.GetPageSize()
	records, total, err := h.datasetService.ListDatasets(c.Request.Context(), offset, req.GetPageSize(), filters)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := model.DatasetListResponse{
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
		Datasets: make([]model.DatasetInfo, 0, len(records)),
	}
	for _, record := range records {
		resp.Datasets = append(resp.Datasets, model.NewDatasetInfo(record))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DeleteDataset removes a dataset and its split runs
// DELETE /api/datasets/:id
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	var req model.DatasetDeleteRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid dataset id"))
		return
	}

	if err := h.datasetService.DeleteDataset(c.Request.Context(), req.ID); err != nil {
		if errors.Is(err, models.ErrDatasetNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "dataset not found"))
			return
		}
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DatasetDeleteResponse{
		Success:   true,
		DatasetID: req.ID,
	}))
}

// isValidDatasetType accepts the corpus file extensions
func isValidDatasetType(ext string) bool {
	validTypes := map[string]bool{
		".json":   true,
		".jsonl":  true,
		".ndjson": true,
	}
	return validTypes[ext]
}
