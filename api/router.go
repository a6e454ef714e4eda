package api

import (
	"github.com/gin-gonic/gin"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/handler"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/middleware"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/model"
)

// SetupRouter wires all endpoints and middleware
func SetupRouter(
	datasetHandler *handler.DatasetHandler,
	splitHandler *handler.SplitHandler,
) *gin.Engine {
	model.RegisterValidations()

	router := gin.Default()

	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetTraceID())

	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	api := router.Group("/api")
	{
		datasetGroup := api.Group("/datasets")
		{
			// Upload a corpus - POST /api/datasets
			datasetGroup.POST("", datasetHandler.UploadDataset)

			// List datasets - GET /api/datasets
			datasetGroup.GET("", datasetHandler.ListDatasets)

			// Get one dataset - GET /api/datasets/:id
			datasetGroup.GET("/:id", datasetHandler.GetDataset)

			// Delete a dataset - DELETE /api/datasets/:id
			datasetGroup.DELETE("/:id", datasetHandler.DeleteDataset)
		}

		splitGroup := api.Group("/splits")
		{
			// Create a split run - POST /api/splits
			splitGroup.POST("", splitHandler.CreateSplit)

			// List runs of a dataset - GET /api/splits?dataset_id=...
			splitGroup.GET("", splitHandler.ListSplits)

			// Get one run - GET /api/splits/:id
			splitGroup.GET("/:id", splitHandler.GetSplit)

			// Get the run summary - GET /api/splits/:id/report
			splitGroup.GET("/:id/report", splitHandler.GetReport)

			// Download an output file - GET /api/splits/:id/artifacts/:name
			splitGroup.GET("/:id/artifacts/:name", splitHandler.DownloadArtifact)
		}

		// Async task status - GET /api/tasks/:id
		api.GET("/tasks/:id", splitHandler.GetTask)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors enables cross-origin requests when the API is served to a browser UI
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
