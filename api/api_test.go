package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/handler"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/cache"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/repository"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/services"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/storage"
)

// setupTestRouter builds a router backed by an in-memory database and
// a temp-dir local store.
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	dbName := fmt.Sprintf("file:apidb_%d?mode=memory", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.DatasetFile{}, &models.SplitRun{}))

	store, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	memCache, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)

	datasets := services.NewDatasetService(store,
		services.WithDatasetLogger(logger),
		services.WithDatasetRepository(repository.NewDatasetRepositoryWithDB(db)),
	)
	splits := services.NewSplitService(datasets, store,
		services.WithLogger(logger),
		services.WithSplitRepository(repository.NewSplitRepositoryWithDB(db)),
		services.WithCache(memCache),
	)

	return SetupRouter(handler.NewDatasetHandler(datasets), handler.NewSplitHandler(splits))
}

// sampleCorpus builds a small corpus where even-numbered documents
// carry one claim each.
func sampleCorpus(t *testing.T, docCount int) []byte {
	t.Helper()

	type item map[string]interface{}
	docs := make([]map[string]interface{}, 0, docCount)
	for i := 0; i < docCount; i++ {
		items := []item{{"id": fmt.Sprintf("d%d_c1", i), "claim": i%2 == 0, "text_segment": "segment"}}
		docs = append(docs, map[string]interface{}{
			"document": fmt.Sprintf("news_%04d.txt", i),
			"items":    items,
		})
	}

	data, err := json.Marshal(docs)
	require.NoError(t, err)
	return data
}

// uploadCorpus posts a corpus file and returns the dataset id.
func uploadCorpus(t *testing.T, router *gin.Engine, name string, content []byte) string {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Code int `json:"code"`
		Data struct {
			DatasetID string `json:"dataset_id"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 0, resp.Code)
	return resp.Data.DatasetID
}

func doJSON(router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestDatasetEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	id := uploadCorpus(t, router, "corpus.json", sampleCorpus(t, 10))

	t.Run("get dataset", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/datasets/"+id, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Status        string `json:"status"`
				DocumentCount int    `json:"document_count"`
				ClaimCount    int    `json:"claim_count"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Data.Status)
		assert.Equal(t, 10, resp.Data.DocumentCount)
		assert.Equal(t, 5, resp.Data.ClaimCount)
	})

	t.Run("list datasets", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/datasets?status=ready", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("unknown dataset", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/datasets/no-such-id", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unsupported file type", func(t *testing.T) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", "corpus.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete dataset", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/api/datasets/"+id, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(router, http.MethodGet, "/api/datasets/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSplitEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	id := uploadCorpus(t, router, "corpus.json", sampleCorpus(t, 20))

	w := doJSON(router, http.MethodPost, "/api/splits", map[string]interface{}{
		"dataset_id": id,
		"test_size":  0.3,
		"seed":       7,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		Data struct {
			RunID     string   `json:"run_id"`
			Status    string   `json:"status"`
			TrainDocs int      `json:"train_docs"`
			TestDocs  int      `json:"test_docs"`
			Artifacts []string `json:"artifacts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "completed", created.Data.Status)
	assert.Equal(t, 20, created.Data.TrainDocs+created.Data.TestDocs)
	assert.Len(t, created.Data.Artifacts, 4)
	runID := created.Data.RunID

	t.Run("get run", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/splits/"+runID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), runID)
	})

	t.Run("list runs", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/splits?dataset_id="+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), runID)
	})

	t.Run("report", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/splits/"+runID+"/report", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Split summary")
	})

	t.Run("download artifact", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/splits/"+runID+"/artifacts/test.json", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var docs []models.Document
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
		assert.Len(t, docs, created.Data.TestDocs)
	})

	t.Run("unknown artifact name", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/splits/"+runID+"/artifacts/other.json", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid test size", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/splits", map[string]interface{}{
			"dataset_id": id,
			"test_size":  1.5,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown dataset", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/splits", map[string]interface{}{
			"dataset_id": "no-such-id",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("async without queue", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/splits", map[string]interface{}{
			"dataset_id": id,
			"async":      true,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "async processing is not enabled")
	})

	t.Run("task status without queue", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/tasks/some-task", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
