package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metadataDoc() map[string]any {
	return map[string]any{
		"id":           testWorkflowID,
		"workflowName": "test_workflow",
		"status":       "Succeeded",
		"start":        "2024-01-01T10:00:00Z",
		"end":          "2024-01-01T11:00:00Z",
		"calls": map[string]any{
			"illumina_demux": []any{
				map[string]any{
					"executionStatus": "Succeeded",
					"shardIndex":      float64(-1),
					"attempt":         float64(1),
					"outputs": map[string]any{
						"commonBarcodes": "gs://bucket/barcodes.txt",
						"metrics":        "gs://bucket/metrics.txt",
					},
					"runtimeAttributes": map[string]any{"cpu": float64(2)},
				},
			},
			"align": []any{
				map[string]any{
					"executionStatus":   "Succeeded",
					"shardIndex":        float64(-1),
					"attempt":           float64(1),
					"runtimeAttributes": map[string]any{"cpu": float64(4)},
				},
			},
		},
	}
}

func metadataService(t *testing.T) *Service {
	t.Helper()
	return newTestService(&fakePlatform{
		getWorkflowMetadata: func(ctx context.Context, namespace, name, submissionID, workflowID string, include, exclude []string) (map[string]any, error) {
			assert.Nil(t, include, "metadata fetches must not use includeKey")
			assert.Equal(t, []string{"submittedFiles"}, exclude)
			return metadataDoc(), nil
		},
	})
}

func TestGetJobMetadata_SummaryDefault(t *testing.T) {
	svc := metadataService(t)

	res, err := svc.handleGetJobMetadata(context.Background(), callReq(workflowArgs(nil)))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, testWorkflowID, doc["workflow_id"])
	assert.Equal(t, "test_workflow", doc["workflow_name"])
	assert.Equal(t, "Succeeded", doc["status"])
	tasks := doc["tasks"].(map[string]any)
	assert.Equal(t, float64(2), tasks["total"])
	byStatus := tasks["by_status"].(map[string]any)
	assert.Equal(t, float64(2), byStatus["Succeeded"])
	_, hasFailed := doc["failed_tasks"]
	assert.False(t, hasFailed, "no failed_tasks when nothing failed")
}

func TestGetJobMetadata_ExtractOutput(t *testing.T) {
	svc := metadataService(t)

	res, err := svc.handleGetJobMetadata(context.Background(), callReq(workflowArgs(map[string]any{
		"mode":        "extract",
		"task_name":   "illumina_demux",
		"output_name": "commonBarcodes",
	})))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, "extract", doc["mode"])
	assert.Equal(t, "gs://bucket/barcodes.txt", doc["extracted_data"])
	assert.Contains(t, doc["path_used"], "commonBarcodes")
	assert.Greater(t, doc["size_chars"], float64(0))
}

func TestGetJobMetadata_ExtractOutputByShard(t *testing.T) {
	scattered := map[string]any{
		"id":     testWorkflowID,
		"status": "Succeeded",
		"calls": map[string]any{
			"scatter_task": []any{
				map[string]any{"shardIndex": float64(0), "outputs": map[string]any{"result": "result_0"}},
				map[string]any{"shardIndex": float64(1), "outputs": map[string]any{"result": "result_1"}},
				map[string]any{"shardIndex": float64(2), "outputs": map[string]any{"result": "result_2"}},
			},
		},
	}
	svc := newTestService(&fakePlatform{
		getWorkflowMetadata: func(ctx context.Context, namespace, name, submissionID, workflowID string, include, exclude []string) (map[string]any, error) {
			return scattered, nil
		},
	})

	res, err := svc.handleGetJobMetadata(context.Background(), callReq(workflowArgs(map[string]any{
		"mode":        "extract",
		"task_name":   "scatter_task",
		"shard_index": float64(1),
		"output_name": "result",
	})))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, "result_1", doc["extracted_data"])
}

func TestGetJobMetadata_ExtractFieldPathWildcard(t *testing.T) {
	svc := metadataService(t)

	res, err := svc.handleGetJobMetadata(context.Background(), callReq(workflowArgs(map[string]any{
		"mode":       "extract",
		"field_path": "calls.*[0].runtimeAttributes",
	})))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	extracted := doc["extracted_data"].(map[string]any)
	require.Contains(t, extracted, "illumina_demux")
	require.Contains(t, extracted, "align")
	assert.Equal(t, float64(4), extracted["align"].(map[string]any)["cpu"])
}

func TestGetJobMetadata_ExtractMissingOutput(t *testing.T) {
	svc := metadataService(t)

	res, err := svc.handleGetJobMetadata(context.Background(), callReq(workflowArgs(map[string]any{
		"mode":        "extract",
		"task_name":   "illumina_demux",
		"output_name": "missing_output",
	})))
	require.NoError(t, err)

	msg := errorText(t, res)
	assert.Contains(t, msg, `"missing_output"`)
	assert.Contains(t, msg, "commonBarcodes", "the error lists the available outputs")
}

func TestGetJobMetadata_ExtractParameterConflicts(t *testing.T) {
	svc := metadataService(t)

	res, err := svc.handleGetJobMetadata(context.Background(), callReq(workflowArgs(map[string]any{
		"mode": "extract",
	})))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "requires either output_name")

	res, err = svc.handleGetJobMetadata(context.Background(), callReq(workflowArgs(map[string]any{
		"mode":        "extract",
		"task_name":   "illumina_demux",
		"output_name": "commonBarcodes",
		"field_path":  "status",
	})))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "not both")
}

func TestGetJobMetadata_FullMode(t *testing.T) {
	svc := metadataService(t)

	res, err := svc.handleGetJobMetadata(context.Background(), callReq(workflowArgs(map[string]any{
		"mode": "full",
	})))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, "full", doc["mode"])
	assert.Greater(t, doc["size_chars"], float64(0))
	assert.Greater(t, doc["estimated_tokens"], float64(0))
	assert.Contains(t, doc["size_warning"], "jq")
	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, "test_workflow", meta["workflowName"])
}

func TestGetJobMetadata_RejectsMalformedWorkflowID(t *testing.T) {
	svc := metadataService(t)

	args := workflowArgs(nil)
	args["workflow_id"] = "wf-456"
	res, err := svc.handleGetJobMetadata(context.Background(), callReq(args))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "not a valid UUID")
}

func TestGetWorkflowOutputs(t *testing.T) {
	svc := newTestService(&fakePlatform{
		getWorkflowOutputs: func(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error) {
			return map[string]any{"outputs": map[string]any{"assembly.fasta": "gs://b/a.fasta"}}, nil
		},
	})

	res, err := svc.handleGetWorkflowOutputs(context.Background(), callReq(workflowArgs(nil)))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	outputs := doc["outputs"].(map[string]any)
	assert.Equal(t, "gs://b/a.fasta", outputs["assembly.fasta"])
}

func TestGetWorkflowCost(t *testing.T) {
	svc := newTestService(&fakePlatform{
		getWorkflowCost: func(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error) {
			return map[string]any{"cost": 1.62, "currency": "USD", "status": "Succeeded"}, nil
		},
	})

	res, err := svc.handleGetWorkflowCost(context.Background(), callReq(workflowArgs(nil)))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, 1.62, doc["cost"])
	assert.Equal(t, "USD", doc["currency"])
}
