package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/taskqueue"
)

// writeCasExport writes a minimal CAS JSON export into dir.
func writeCasExport(t *testing.T, dir, name, title string) {
	t.Helper()

	text := "said today the economy grew fast. nothing else here."
	export := map[string]interface{}{
		"%FEATURE_STRUCTURES": []map[string]interface{}{
			{"%TYPE": "uima.cas.Sofa", "sofaString": text},
			{
				"%TYPE":         "de.tudarmstadt.ukp.dkpro.core.api.metadata.type.DocumentMetaData",
				"documentTitle": title,
			},
			{"%TYPE": "custom.Span", "Metadata": "News Article Topic", "categoria": "economy"},
			{"%TYPE": "custom.Span", "label": "Claim", "begin": 0, "end": 34},
			{"%TYPE": "custom.Span", "label": "Non-claim", "begin": 35, "end": 52},
		},
	}

	data, err := json.Marshal(export)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestDatasetService_ImportCasDirectory(t *testing.T) {
	datasets, _ := setupServices(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeCasExport(t, dir, "a.json", "news_0001.txt")
	writeCasExport(t, dir, "b.json", "news_0002.txt")

	file, count, err := datasets.ImportCasDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, models.DatasetStatusReady, file.Status)
	assert.Equal(t, 2, file.DocumentCount)
	assert.Equal(t, 2, file.ClaimCount)
	assert.Equal(t, 2, file.NonClaimCount)

	docs, err := datasets.LoadDocuments(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "news_0001.txt", docs[0].Document)
	assert.Equal(t, "economy", docs[0].NewsArticleTopic)

	t.Run("empty directory", func(t *testing.T) {
		_, _, err := datasets.ImportCasDirectory(ctx, t.TempDir())
		assert.Error(t, err)
	})
}

func TestTaskProcessor_CasConvert(t *testing.T) {
	datasets, splits := setupServices(t)

	dir := t.TempDir()
	writeCasExport(t, dir, "export.json", "news_0003.txt")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	processor := NewTaskProcessor(splits, datasets, logger)

	payload, err := taskqueue.MarshalPayload(&taskqueue.CasConvertPayload{SourceDir: dir})
	require.NoError(t, err)

	err = processor.ProcessTask(context.Background(), &taskqueue.Task{
		ID:      "task-1",
		Type:    taskqueue.TaskCasConvert,
		Payload: payload,
	})
	require.NoError(t, err)

	files, total, err := datasets.ListDatasets(context.Background(), 0, 10, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.DatasetStatusReady, files[0].Status)
}

func TestTaskProcessor_Split(t *testing.T) {
	datasets, splits := setupServices(t)
	ctx := context.Background()

	file := uploadSample(t, datasets, 10)

	// Create the pending run directly; the processor executes it.
	run := &models.SplitRun{
		ID:        "run-async-1",
		DatasetID: file.ID,
		Status:    models.SplitStatusPending,
		TestSize:  0.2,
		Seed:      42,
	}
	require.NoError(t, splits.repo.Create(run))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	processor := NewTaskProcessor(splits, datasets, logger)

	payload, err := taskqueue.MarshalPayload(&taskqueue.DatasetSplitPayload{
		RunID:     run.ID,
		DatasetID: file.ID,
		TestSize:  0.2,
		Seed:      42,
	})
	require.NoError(t, err)

	err = processor.ProcessTask(ctx, &taskqueue.Task{
		ID:        "task-2",
		Type:      taskqueue.TaskDatasetSplit,
		DatasetID: file.ID,
		Payload:   payload,
	})
	require.NoError(t, err)

	saved, err := splits.GetSplit(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SplitStatusCompleted, saved.Status)
	assert.Equal(t, 10, saved.TrainDocs+saved.TestDocs)

	t.Run("missing run id", func(t *testing.T) {
		payload, err := taskqueue.MarshalPayload(&taskqueue.DatasetSplitPayload{})
		require.NoError(t, err)

		err = processor.ProcessTask(ctx, &taskqueue.Task{
			ID:      "task-3",
			Type:    taskqueue.TaskDatasetSplit,
			Payload: payload,
		})
		assert.ErrorIs(t, err, taskqueue.ErrInvalidPayload)
	})

	t.Run("unsupported type", func(t *testing.T) {
		err := processor.ProcessTask(ctx, &taskqueue.Task{
			ID:   "task-4",
			Type: taskqueue.TaskType("unknown"),
		})
		assert.ErrorContains(t, err, "unsupported task type")
	})
}
