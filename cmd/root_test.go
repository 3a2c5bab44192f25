package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contentplan/internal/plan"
)

func TestGenerateCommandPrintsJob(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html lang="de"><head><title>Kaffee Shop</title></head><body><h1>Kaffee</h1></body></html>`))
	}))
	defer site.Close()

	t.Setenv("CONTENTPLAN_LOGGING_LEVEL", "error")
	t.Setenv("CONTENTPLAN_SITE_HOST_RPS", "0")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"generate", "--url", site.URL, "--project", "p-1",
	})
	require.NoError(t, root.ExecuteContext(context.Background()))

	var job plan.Job
	require.NoError(t, json.Unmarshal(out.Bytes(), &job))
	assert.Equal(t, plan.StatusCompleted, job.Status)
	assert.Equal(t, "de", job.Language)
	assert.Equal(t, "p-1", job.ProjectRef)
	assert.NotEmpty(t, job.Plan)
}

func TestGenerateCommandRequiresURL(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--env-file", "", "generate"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestResolveConfigWithoutPreRun(t *testing.T) {
	t.Parallel()

	_, err := resolveConfig(context.Background())
	require.Error(t, err)
}
