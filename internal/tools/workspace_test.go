package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terramcp/internal/terra"
)

func TestListWorkspaces(t *testing.T) {
	svc := newTestService(&fakePlatform{
		listWorkspaces: func(ctx context.Context) ([]terra.Workspace, error) {
			return []terra.Workspace{
				{Namespace: "broad", Name: "viral-genomics", CreatedBy: "user@example.com"},
				{Namespace: "broad", Name: "malaria", CreatedBy: "user@example.com"},
			}, nil
		},
	})

	res, err := svc.handleListWorkspaces(context.Background(), callReq(nil))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, float64(2), doc["count"])
	workspaces := doc["workspaces"].([]any)
	first := workspaces[0].(map[string]any)
	assert.Equal(t, "viral-genomics", first["name"])
}

func TestListWorkspaces_UpstreamError(t *testing.T) {
	svc := newTestService(&fakePlatform{
		listWorkspaces: func(ctx context.Context) ([]terra.Workspace, error) {
			return nil, &terra.AccessDeniedError{Resource: "workspaces", ID: "all"}
		},
	})

	res, err := svc.handleListWorkspaces(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "access denied")
}

func TestGetWorkspaceDataTables(t *testing.T) {
	svc := newTestService(&fakePlatform{
		listEntityTypes: func(ctx context.Context, namespace, name string) ([]terra.EntityType, error) {
			assert.Equal(t, "test-ns", namespace)
			assert.Equal(t, "test-ws", name)
			return []terra.EntityType{{Name: "sample", Count: 42}, {Name: "sample_set", Count: 3}}, nil
		},
	})

	res, err := svc.handleGetWorkspaceDataTables(context.Background(), callReq(map[string]any{
		"workspace_namespace": "test-ns",
		"workspace_name":      "test-ws",
	}))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, "test-ns/test-ws", doc["workspace"])
	assert.Equal(t, float64(2), doc["count"])
}

func TestGetEntities_BoundedByMaxEntities(t *testing.T) {
	rows := make([]terra.Entity, 250)
	for i := range rows {
		rows[i] = terra.Entity{Name: "sample", EntityType: "sample"}
	}
	svc := newTestService(&fakePlatform{
		getEntities: func(ctx context.Context, namespace, name, entityType string) ([]terra.Entity, error) {
			return rows, nil
		},
	})

	res, err := svc.handleGetEntities(context.Background(), callReq(map[string]any{
		"workspace_namespace": "test-ns",
		"workspace_name":      "test-ws",
		"entity_type":         "sample",
	}))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, float64(250), doc["total"])
	assert.Equal(t, float64(100), doc["returned"])
	assert.Equal(t, true, doc["truncated"])
	assert.Len(t, doc["entities"].([]any), 100)
}

func TestGetEntities_NoLimit(t *testing.T) {
	svc := newTestService(&fakePlatform{
		getEntities: func(ctx context.Context, namespace, name, entityType string) ([]terra.Entity, error) {
			return make([]terra.Entity, 150), nil
		},
	})

	res, err := svc.handleGetEntities(context.Background(), callReq(map[string]any{
		"workspace_namespace": "test-ns",
		"workspace_name":      "test-ws",
		"entity_type":         "sample",
		"max_entities":        float64(-1),
	}))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, false, doc["truncated"])
	assert.Len(t, doc["entities"].([]any), 150)
}

func TestUploadEntities_GateClosed(t *testing.T) {
	svc := newTestService(&fakePlatform{})

	res, err := svc.handleUploadEntities(context.Background(), callReq(map[string]any{
		"workspace_namespace": "test-ns",
		"workspace_name":      "test-ws",
		"tsv":                 "entity:sample_id\tbam\ns1\tgs://b/s1.bam\n",
	}))
	require.NoError(t, err)
	assert.Equal(t, readOnlyMessage, errorText(t, res))
}

func TestUploadEntities_HeaderValidation(t *testing.T) {
	cases := []struct {
		name string
		tsv  string
		want string
	}{
		{"empty", "", "must not be empty"},
		{"whitespace only", "   \n", "must not be empty"},
		{"wrong header", "sample_id\tbam\ns1\tgs://b/s1.bam", `must start with "entity:"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uploaded := false
			svc := newTestService(&fakePlatform{
				uploadEntities: func(ctx context.Context, namespace, name, tsv string) error {
					uploaded = true
					return nil
				},
			}, withWrites())

			res, err := svc.handleUploadEntities(context.Background(), callReq(map[string]any{
				"workspace_namespace": "test-ns",
				"workspace_name":      "test-ws",
				"tsv":                 tc.tsv,
			}))
			require.NoError(t, err)
			assert.Contains(t, errorText(t, res), tc.want)
			assert.False(t, uploaded, "invalid TSV must not reach the platform")
		})
	}
}

func TestUploadEntities_Valid(t *testing.T) {
	var got string
	svc := newTestService(&fakePlatform{
		uploadEntities: func(ctx context.Context, namespace, name, tsv string) error {
			got = tsv
			return nil
		},
	}, withWrites())

	tsv := "entity:sample_id\tbam\ns1\tgs://b/s1.bam\ns2\tgs://b/s2.bam\n"
	res, err := svc.handleUploadEntities(context.Background(), callReq(map[string]any{
		"workspace_namespace": "test-ns",
		"workspace_name":      "test-ws",
		"tsv":                 tsv,
	}))
	require.NoError(t, err)

	doc := resultDoc(t, res)
	assert.Equal(t, float64(2), doc["rows"])
	assert.Equal(t, tsv, got)
}
