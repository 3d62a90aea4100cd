package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/jobpost-scraper/internal/config"
	"github.com/JakeFAU/jobpost-scraper/internal/job"
	"github.com/JakeFAU/jobpost-scraper/internal/publisher"
	"github.com/JakeFAU/jobpost-scraper/internal/publisher/memory"
	"github.com/JakeFAU/jobpost-scraper/internal/storage"
)

func TestMain(m *testing.M) {
	newLogger = func(bool) (*zap.Logger, error) { return zap.NewNop(), nil }
	os.Exit(m.Run())
}

// writeConfig stores a config file with zero delays so commands run fast.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
scrape:
  delay_min: 0s
  delay_max: 0s
discover:
  delay_min: 0s
  delay_max: 0s
` + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	return root.ExecuteContext(context.Background())
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"discover", "split", "scrape", "combine", "upload"} {
		assert.Contains(t, names, want)
	}
}

func TestScrapeCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs/1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><span>Acme</span><h1>Go Engineer</h1></body></html>`))
	})
	mux.HandleFunc("/jobs/2", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	input := filepath.Join(dir, "urls.json")
	urls := []string{srv.URL + "/jobs/1", srv.URL + "/jobs/2"}
	data, err := json.Marshal(urls)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(input, data, 0o600))
	output := filepath.Join(dir, "out.json")
	backup := filepath.Join(dir, "backup.json")

	err = run(t, "scrape", "--config", writeConfig(t, ""), input, output, "--backup", backup)
	require.NoError(t, err)

	outcomes, err := job.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	var titles, reasons []string
	for _, o := range outcomes {
		if rec, ok := o.Record(); ok {
			require.NotNil(t, rec.Title)
			titles = append(titles, *rec.Title)
			assert.Equal(t, urls[0], rec.JobURL)
		}
		if reason, ok := o.RejectReason(); ok {
			reasons = append(reasons, reason)
		}
	}
	assert.Equal(t, []string{"Go Engineer"}, titles)
	assert.Equal(t, []string{"HTTP 404 on " + urls[1]}, reasons)

	backed, err := job.ReadFile(backup)
	require.NoError(t, err)
	assert.Len(t, backed, 2)
}

func TestScrapeCommandNeedsArgs(t *testing.T) {
	require.Error(t, run(t, "scrape", "--config", writeConfig(t, ""), "only-input"))
}

func TestSplitCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("https://a/1\nhttps://a/2\nhttps://a/3\nhttps://a/4\nhttps://a/5\n"))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	err := run(t, "split", "--config", writeConfig(t, ""), "--source", srv.URL, "--chunk-size", "2", "--output-dir", dir)
	require.NoError(t, err)

	for n, want := range map[int]int{1: 2, 2: 2, 3: 1} {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("job_urls_%d.json", n)))
		require.NoError(t, err)
		var chunk []string
		require.NoError(t, json.Unmarshal(data, &chunk))
		assert.Len(t, chunk, want)
	}
	_, err = os.Stat(filepath.Join(dir, "job_urls_4.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCombineCommand(t *testing.T) {
	root := t.TempDir()
	for dir, content := range map[string]string{
		"job-summary-1": `[{"a":1},{"a":2},{"a":3}]`,
		"job-summary-2": `[{"b":1},{"b":2},{"b":3},{"b":4},{"b":5}]`,
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, "job_summary.json"), []byte(content), 0o600))
	}
	output := filepath.Join(t.TempDir(), "combined.json")

	require.NoError(t, run(t, "combine", "--config", writeConfig(t, ""), "--root", root, "--output", output))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var elems []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &elems))
	assert.Len(t, elems, 8)
}

func TestCombineCommandMissingRoot(t *testing.T) {
	output := filepath.Join(t.TempDir(), "combined.json")
	err := run(t, "combine", "--config", writeConfig(t, ""), "--root", filepath.Join(t.TempDir(), "nope"), "--output", output)
	require.Error(t, err)
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDiscoverCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/websites.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"company_name":"acme"}]`))
	})
	mux.HandleFunc("/seed.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("https://join.com/companies/old/1\n"))
	})
	mux.HandleFunc("/companies/acme", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a class="JobTile-x__JobLink-y" data-testid="Link" href="https://join.com/companies/acme/7">job</a>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	output := filepath.Join(t.TempDir(), "job_post_url.txt")
	cfg := writeConfig(t, fmt.Sprintf(`  base_url: %s/companies
  company_source: %s/websites.json
  url_source: %s/seed.txt
`, srv.URL, srv.URL, srv.URL))

	require.NoError(t, run(t, "discover", "--config", cfg, "--output", output))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "https://join.com/companies/old/1\nhttps://join.com/companies/acme/7\n", string(data))
}

func TestUploadCommandLocalWithNotice(t *testing.T) {
	pub := memory.New()
	restore := newPublisher
	newPublisher = func(context.Context, config.NotifyConfig, []byte) (publisher.Publisher, closeFunc, error) {
		return pub, noClose, nil
	}
	t.Cleanup(func() { newPublisher = restore })

	dir := t.TempDir()
	artifact := filepath.Join(dir, "job_summary.json")
	require.NoError(t, os.WriteFile(artifact, []byte(`[{"reject_reason":"x"},{"reject_reason":"y"}]`), 0o600))
	uploads := filepath.Join(dir, "uploads")

	cfg := writeConfig(t, fmt.Sprintf(`upload:
  provider: local
  folder_id: shared
  local_dir: %s
notify:
  project_id: proj
  topic: uploads
`, uploads))

	require.NoError(t, run(t, "upload", "--config", cfg, "--file", artifact))

	stored, err := os.ReadFile(filepath.Join(uploads, "shared", "job_summary.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"reject_reason":"x"},{"reject_reason":"y"}]`, string(stored))

	notices, err := pub.Notices("uploads")
	require.NoError(t, err)
	require.Len(t, notices, 1)
	notice := notices[0]
	assert.Equal(t, "job_summary.json", notice.File)
	assert.Equal(t, config.ProviderLocal, notice.Provider)
	assert.Equal(t, 2, notice.Records)
	assert.Len(t, notice.SHA256, 64)
	assert.NotEmpty(t, notice.RunID)
	assert.True(t, strings.HasPrefix(notice.URI, "file://"))
}

func TestUploadCommandPreconditions(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "job_summary.json")
	require.NoError(t, os.WriteFile(artifact, []byte(`[]`), 0o600))

	// drive without folder id or credentials
	err := run(t, "upload", "--config", writeConfig(t, ""), "--file", artifact)
	require.ErrorContains(t, err, "folder_id")

	cfg := writeConfig(t, fmt.Sprintf("upload:\n  provider: local\n  folder_id: f\n  local_dir: %s\n", dir))
	err = run(t, "upload", "--config", cfg, "--file", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestUploadCommandDryRun(t *testing.T) {
	restore := newUploader
	newUploader = func(context.Context, config.UploadConfig, *zap.Logger) (storage.Uploader, closeFunc, error) {
		t.Fatal("dry run must not build a provider")
		return nil, noClose, nil
	}
	t.Cleanup(func() { newUploader = restore })

	dir := t.TempDir()
	artifact := filepath.Join(dir, "job_summary.json")
	require.NoError(t, os.WriteFile(artifact, []byte(`[{},{}]`), 0o600))

	// drive without credentials is accepted because nothing is contacted
	require.NoError(t, run(t, "upload", "--config", writeConfig(t, ""), "--file", artifact, "--dry-run"))

	err := run(t, "upload", "--config", writeConfig(t, ""), "--file", filepath.Join(dir, "missing.json"), "--dry-run")
	require.Error(t, err)
}

func TestHostLimiter(t *testing.T) {
	assert.Nil(t, hostLimiter(config.ScrapeConfig{}))
	assert.Nil(t, hostLimiter(config.ScrapeConfig{HostRPS: -1, HostBurst: 3}))
	assert.NotNil(t, hostLimiter(config.ScrapeConfig{HostRPS: 2, HostBurst: 1}))
}

func TestExecuteLogsCommandFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := newLogger
	newLogger = func(bool) (*zap.Logger, error) { return zap.New(core), nil }
	t.Cleanup(func() { newLogger = restore })

	root := NewRootCmd()
	root.SetArgs([]string{"combine", "--config", writeConfig(t, ""), "--root", filepath.Join(t.TempDir(), "nope")})
	var stderr strings.Builder
	require.Error(t, execute(context.Background(), root, &stderr))

	assert.Empty(t, stderr.String())
	failures := logs.FilterMessage("command failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zap.ErrorLevel, failures[0].Level)
	assert.Equal(t, "combine", failures[0].ContextMap()["command"])
}

func TestExecuteWritesStderrBeforeLogger(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"combine", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	var stderr strings.Builder
	require.Error(t, execute(context.Background(), root, &stderr))
	assert.True(t, strings.HasPrefix(stderr.String(), "jobscraper: load config"))
}

func TestDescribeArtifact(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`[1,2,3]`), 0o600))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))

	n, digest := describeArtifact(good)
	assert.Equal(t, 3, n)
	assert.Len(t, digest, 64)

	n, digest = describeArtifact(bad)
	assert.Equal(t, 0, n)
	assert.NotEmpty(t, digest)

	n, digest = describeArtifact(filepath.Join(dir, "missing.json"))
	assert.Equal(t, 0, n)
	assert.Empty(t, digest)
}
