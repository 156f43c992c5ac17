package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func init() {
	color.NoColor = true
}

// run parses args and executes the selected command.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	var cli CLI
	parser, err := NewParser(&cli, &out)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = kctx.Run()
	return out.String(), err
}

func newTestSite(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "site")
	_, err := run(t, "new", dir, "--title", "CLI Blog", "--base-url", "https://cli.example")
	require.NoError(t, err)
	return dir
}

func TestNew_ListsCreatedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	out, err := run(t, "new", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created site in "+dir)
	assert.Contains(t, out, "+ config.toml")
	assert.Contains(t, out, "+ themes/default/index.html")

	_, err = run(t, "new", dir)
	require.Error(t, err)
	assert.Equal(t, 2, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))

	_, err = run(t, "new", dir, "--force")
	require.NoError(t, err)
}

func TestBuild_WritesSiteReportAndHistory(t *testing.T) {
	in := newTestSite(t)
	outDir := filepath.Join(t.TempDir(), "public")
	reportPath := filepath.Join(t.TempDir(), "report.json")

	out, err := run(t, "build", "-i", in, "-o", outDir, "--report", reportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "posts=1")
	assert.Contains(t, out, "outcome=success")
	assert.FileExists(t, filepath.Join(outDir, "posts", "hello-world", "index.html"))

	var report build.Report
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, TriggerCLI, report.Trigger)
	assert.Equal(t, 1, report.Posts)

	out, err = run(t, "history", "-i", in, "--json")
	require.NoError(t, err)
	var builds []eventstore.BuildSummary
	require.NoError(t, json.Unmarshal([]byte(out), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, report.BuildID, builds[0].BuildID)
	assert.Equal(t, eventstore.StatusCompleted, builds[0].Status)
	assert.Equal(t, TriggerCLI, builds[0].Trigger)

	out, err = run(t, "history", "-i", in)
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "completed")
	assert.Regexp(t, `completed\s+`+report.BuildID[:8]+`\s+cli\s+(now|\d+ \w+ ago)\s+\S+\s+1\s`, out)
}

func TestBuild_FailureMapsToExitCodeAndIsRecorded(t *testing.T) {
	in := newTestSite(t)
	require.NoError(t, os.WriteFile(filepath.Join(in, "themes", "default", "post.html"), []byte(`{{ .post.nope.deeper }}`), 0o600))
	outDir := filepath.Join(t.TempDir(), "public")

	_, err := run(t, "build", "-i", in, "-o", outDir)
	require.Error(t, err)
	var se *build.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, build.StageRenderPosts, se.Stage)
	assert.Equal(t, 9, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))

	out, err := run(t, "history", "-i", in)
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, string(build.StageRenderPosts)+":")
}

func TestBuild_NoHistory(t *testing.T) {
	in := newTestSite(t)
	_, err := run(t, "build", "-i", in, "-o", filepath.Join(t.TempDir(), "public"), "--no-history")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(in, filepath.FromSlash(DefaultHistoryDB)))

	_, err = run(t, "history", "-i", in)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestPrintHistory(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	done := now.Add(-time.Hour + 1500*time.Millisecond)
	builds := []eventstore.BuildSummary{
		{BuildID: "0123456789abcdef", Status: eventstore.StatusFailed, Trigger: "watch", StartedAt: now.Add(-2 * time.Minute),
			CompletedAt: &done, Duration: 40 * time.Millisecond, ErrorStage: "render_posts", ErrorMessage: "boom"},
		{BuildID: "fedcba98", Status: eventstore.StatusCompleted, Trigger: "cli", StartedAt: now.Add(-time.Hour),
			CompletedAt: &done, Duration: 1500 * time.Millisecond, Posts: 3, Fingerprint: "abc"},
		{BuildID: "running1", Status: eventstore.StatusRunning, Trigger: "schedule", StartedAt: now},
	}

	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, builds, now))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Regexp(t, regexp.MustCompile(`^failed\s+01234567\s+watch\s+2 minutes ago\s+40ms\s+0\s+render_posts: boom$`), lines[1])
	assert.Regexp(t, regexp.MustCompile(`^completed\s+fedcba98\s+cli\s+1 hour ago\s+1.5s\s+3\s+abc$`), lines[2])
	assert.Regexp(t, regexp.MustCompile(`^running\s+running1\s+schedule\s+now\s+-\s+0`), lines[3])

	buf.Reset()
	require.NoError(t, printHistory(&buf, nil, now))
	assert.Equal(t, "No builds recorded.\n", buf.String())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServe_ExposesSiteAndMetrics(t *testing.T) {
	in := newTestSite(t)
	cmd := &ServeCmd{
		Input:    in,
		Output:   filepath.Join(t.TempDir(), "public"),
		Host:     "127.0.0.1",
		Port:     0,
		Debounce: 50 * time.Millisecond,
		MaxDelay: time.Second,
	}
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- cmd.run(ctx, &Global{Stdout: out}) }()

	urlPattern := regexp.MustCompile(`at (http://\S+/)`)
	var url string
	require.Eventually(t, func() bool {
		m := urlPattern.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		url = m[1]
		return true
	}, 10*time.Second, 20*time.Millisecond)

	get := func(target string) string {
		resp, err := http.Get(target)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}
	assert.Contains(t, get(url), "Hello, World")
	assert.Contains(t, get(url+"_blogbuilder/metrics"), `blogbuilder_rebuild_triggers_total{trigger="initial"} 1`)

	cancel()
	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}

	history, err := run(t, "history", "-i", in, "--json")
	require.NoError(t, err)
	var builds []eventstore.BuildSummary
	require.NoError(t, json.Unmarshal([]byte(history), &builds))
	require.NotEmpty(t, builds)
	assert.Equal(t, "initial", builds[0].Trigger)
}
