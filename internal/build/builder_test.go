package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/events"
	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

const (
	indexTmpl    = `<h1>{{ .config.title }}</h1>{{ range .posts }}<a href="{{ .url }}">{{ .meta.title }}</a>{{ end }}<p>{{ .paginator.current_page }}/{{ .paginator.total_pages }}</p>`
	postTmpl     = `<article><h1>{{ .post.meta.title }}</h1>{{ .post.content }}</article>`
	taxonomyTmpl = `<h1>{{ .kind }}: {{ .name }}</h1>{{ range .posts }}<li>{{ .meta.slug }}</li>{{ end }}`
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// newSite writes a site with three posts and a full theme.
func newSite(t *testing.T, configExtra string) string {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "config.toml"), "title = \"Test Blog\"\nbase_url = \"https://blog.test/\"\n"+configExtra)
	write(t, filepath.Join(dir, "themes", "default", "index.html"), indexTmpl)
	write(t, filepath.Join(dir, "themes", "default", "post.html"), postTmpl)
	write(t, filepath.Join(dir, "themes", "default", "taxonomy.html"), taxonomyTmpl)
	write(t, filepath.Join(dir, "content", "first.md"), "---\ntitle: First\ndate: 2024-01-01\nslug: first\ntags: [go]\ncategories: [notes]\n---\n# One\n")
	write(t, filepath.Join(dir, "content", "2024", "second.md"), "---\ntitle: Second\ndate: 2024-02-01\nslug: second\ntags: [go, web]\n---\nSome *text* with <span class=\"raw\">html</span>.\n")
	write(t, filepath.Join(dir, "content", "third.md"), "---\ntitle: Third\ndate: 2024-03-01\nslug: third\n---\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	write(t, filepath.Join(dir, "static", "css", "style.css"), "body{}")
	return dir
}

func outDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "public")
}

func TestRun_EndToEnd(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)

	report, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)

	assert.Equal(t, metrics.OutcomeSuccess, report.Outcome)
	assert.Equal(t, 3, report.Posts)
	assert.Equal(t, 1, report.StaticFiles)
	assert.NotEmpty(t, report.BuildID)
	assert.NotEmpty(t, report.Fingerprint)
	for _, stage := range []StageName{StageLoadConfig, StageLoadTheme, StageLoadContent, StagePrepareOutput, StageRenderIndex, StageCopyStatic, StageRenderPosts, StageRenderTaxonomies, StagePromote} {
		assert.Contains(t, report.StageDurations, string(stage))
		assert.Equal(t, "success", report.StageResults[string(stage)])
	}

	index := read(t, filepath.Join(out, "index.html"))
	assert.Equal(t, `<h1>Test Blog</h1>`+
		`<a href="https://blog.test/posts/third/">Third</a>`+
		`<a href="https://blog.test/posts/second/">Second</a>`+
		`<a href="https://blog.test/posts/first/">First</a><p>1/1</p>`, index)

	second := read(t, filepath.Join(out, "posts", "second", "index.html"))
	assert.Contains(t, second, "<em>text</em>")
	assert.Contains(t, second, `<span class="raw">html</span>`)
	assert.Contains(t, read(t, filepath.Join(out, "posts", "third", "index.html")), "<table>")

	assert.Equal(t, "<h1>tags: go</h1><li>second</li><li>first</li>", read(t, filepath.Join(out, "tags", "go", "index.html")))
	assert.Equal(t, "<h1>tags: web</h1><li>second</li>", read(t, filepath.Join(out, "tags", "web", "index.html")))
	assert.Equal(t, "<h1>categories: notes</h1><li>first</li>", read(t, filepath.Join(out, "categories", "notes", "index.html")))

	sitemap := read(t, filepath.Join(out, "sitemap.xml"))
	for _, loc := range []string{"https://blog.test/", "https://blog.test/posts/first/", "https://blog.test/posts/second/", "https://blog.test/posts/third/"} {
		assert.Contains(t, sitemap, "<loc>"+loc+"</loc>")
	}
	assert.Contains(t, read(t, filepath.Join(out, "rss.xml")), "<pubDate>2024-03-01</pubDate>")
	assert.Contains(t, read(t, filepath.Join(out, "search.json")), `"slug":"first"`)
	assert.Equal(t, "body{}", read(t, filepath.Join(out, "css", "style.css")))

	assert.NoDirExists(t, StagingDir(out))
	assert.NoDirExists(t, BackupDir(out))
}

func TestRun_IsIdempotent(t *testing.T) {
	in := newSite(t, "posts_per_page = 2\n")
	b := NewBuilder()

	outA, outB := outDir(t), outDir(t)
	_, err := b.Run(context.Background(), Request{InputDir: in, OutputDir: outA})
	require.NoError(t, err)
	_, err = b.Run(context.Background(), Request{InputDir: in, OutputDir: outB})
	require.NoError(t, err)

	assert.Equal(t, snapshot(t, outA), snapshot(t, outB))
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[filepath.ToSlash(rel)] = read(t, path)
		return nil
	}))
	return files
}

func TestRun_DuplicateSlugFails(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	write(t, filepath.Join(in, "content", "copy.md"), "---\ntitle: Copy\ndate: 2024-04-01\nslug: first\n---\nx\n")

	report, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLoadContent, se.Stage)
	assert.True(t, errors.Is(err, content.ErrDuplicateSlug))
	assert.Contains(t, err.Error(), "copy.md")
	assert.Contains(t, err.Error(), "first.md")

	assert.Equal(t, metrics.OutcomeFailed, report.Outcome)
	assert.Equal(t, string(StageLoadContent), report.ErrorStage)
	assert.NoDirExists(t, out)
	assert.NoDirExists(t, StagingDir(out))
}

func TestRun_DraftsExcludedByDefault(t *testing.T) {
	in := newSite(t, "")
	write(t, filepath.Join(in, "content", "wip.md"), "---\ntitle: WIP\ndate: 2024-05-01\nslug: wip\ndraft: true\n---\nsoon\n")

	out := outDir(t)
	report, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Posts)
	assert.NoFileExists(t, filepath.Join(out, "posts", "wip", "index.html"))

	out = outDir(t)
	report, err = NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out, IncludeDrafts: true})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Posts)
	assert.FileExists(t, filepath.Join(out, "posts", "wip", "index.html"))
}

func TestRun_PaginatedIndex(t *testing.T) {
	in, out := newSite(t, "posts_per_page = 2\n"), outDir(t)

	_, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)

	assert.Contains(t, read(t, filepath.Join(out, "index.html")), "Third</a><a href=\"https://blog.test/posts/second/\">Second</a><p>1/2</p>")
	assert.Contains(t, read(t, filepath.Join(out, "page", "2", "index.html")), "First</a><p>2/2</p>")
	assert.NoFileExists(t, filepath.Join(out, "page", "1", "index.html"))
	assert.NoDirExists(t, filepath.Join(out, "page", "3"))
}

func TestRun_TagWithSlashGetsNormalizedDirectory(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	write(t, filepath.Join(in, "content", "ops.md"), "---\ntitle: Ops\ndate: 2024-04-01\nslug: ops\ntags: [CI/CD]\n---\nship it\n")

	_, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	assert.Contains(t, read(t, filepath.Join(out, "tags", "cicd", "index.html")), "<h1>tags: CI/CD</h1><li>ops</li>")
	assert.FileExists(t, filepath.Join(out, "tags", "go", "index.html"))
}

func TestRun_UnusableTermNamesPost(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	write(t, filepath.Join(in, "content", "odd.md"), "---\ntitle: Odd\ndate: 2024-04-01\nslug: odd\ntags: [\"/\"]\n---\nbody\n")

	report, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.Error(t, err)
	assert.Equal(t, string(StageRenderTaxonomies), report.ErrorStage)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryContent))
	assert.Contains(t, err.Error(), "odd.md")
	assert.NoDirExists(t, out)
}

func TestRun_MarkdownOptionsFromConfig(t *testing.T) {
	body := "---\ntitle: Links\ndate: 2024-04-01\nslug: links\n---\nline one\nsee https://example.com\n"

	in, out := newSite(t, ""), outDir(t)
	write(t, filepath.Join(in, "content", "links.md"), body)
	_, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	page := read(t, filepath.Join(out, "posts", "links", "index.html"))
	assert.NotContains(t, page, "<br>")
	assert.NotContains(t, page, `<a href="https://example.com">`)

	in, out = newSite(t, "[markdown]\nhard_wraps = true\nlinkify = true\n"), outDir(t)
	write(t, filepath.Join(in, "content", "links.md"), body)
	_, err = NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	page = read(t, filepath.Join(out, "posts", "links", "index.html"))
	assert.Contains(t, page, "line one<br>")
	assert.Contains(t, page, `<a href="https://example.com">`)
}

func TestRun_HighlightStyle(t *testing.T) {
	code := "---\ntitle: Code\ndate: 2024-04-01\nslug: code\n---\n```go\nfunc main() {}\n```\n"

	in, out := newSite(t, ""), outDir(t)
	write(t, filepath.Join(in, "content", "code.md"), code)
	_, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	assert.Contains(t, read(t, filepath.Join(out, "posts", "code", "index.html")), `<code class="language-go">`)

	in, out = newSite(t, "highlight_style = \"monokai\"\n"), outDir(t)
	write(t, filepath.Join(in, "content", "code.md"), code)
	_, err = NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	page := read(t, filepath.Join(out, "posts", "code", "index.html"))
	assert.NotContains(t, page, `class="language-go"`)
	assert.Contains(t, page, `<span style="`)
}

func TestRun_FailedRebuildKeepsPreviousOutput(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	b := NewBuilder()

	_, err := b.Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	before := snapshot(t, out)

	write(t, filepath.Join(in, "themes", "default", "post.html"), `{{ .post.meta.nope.deeper }}`)
	write(t, filepath.Join(in, "content", "fourth.md"), "---\ntitle: Fourth\ndate: 2024-06-01\nslug: fourth\n---\nnew\n")

	report, err := b.Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.Error(t, err)
	assert.Equal(t, string(StageRenderPosts), report.ErrorStage)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTemplate))

	assert.Equal(t, before, snapshot(t, out))
	assert.NoDirExists(t, StagingDir(out))
}

func TestRun_MissingTemplateFailsThemeStage(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	require.NoError(t, os.Remove(filepath.Join(in, "themes", "default", "post.html")))

	_, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLoadTheme, se.Stage)
}

func TestRun_NoTaxonomyTemplateSkipsTaxonomyPages(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	require.NoError(t, os.Remove(filepath.Join(in, "themes", "default", "taxonomy.html")))

	_, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(out, "tags"))
	assert.FileExists(t, filepath.Join(out, "posts", "first", "index.html"))
}

func TestRun_InPlace(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	write(t, filepath.Join(out, "stale.html"), "old")

	report, err := NewBuilder(WithInPlace(true)).Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)
	assert.NotContains(t, report.StageDurations, string(StagePromote))
	assert.NoFileExists(t, filepath.Join(out, "stale.html"))
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.NoDirExists(t, StagingDir(out))
}

func TestRun_RejectsOutputContainingInput(t *testing.T) {
	in := newSite(t, "")

	_, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: in})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: filepath.Dir(in)})
	require.Error(t, err)

	_, err = NewBuilder().Run(context.Background(), Request{InputDir: in})
	require.Error(t, err)
}

func TestRun_CanceledContext(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewBuilder().Run(ctx, Request{InputDir: in, OutputDir: out})
	require.Error(t, err)
	assert.Equal(t, metrics.OutcomeCanceled, report.Outcome)
	assert.NoDirExists(t, out)
}

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	bus := events.NewBus()
	defer bus.Close()
	ch, unsubscribe := events.Subscribe[events.BuildEvent](bus, 4)
	defer unsubscribe()

	report, err := NewBuilder(WithEventBus(bus)).Run(context.Background(), Request{InputDir: in, OutputDir: out, Trigger: "test"})
	require.NoError(t, err)

	started := (<-ch).(events.BuildStarted)
	assert.Equal(t, report.BuildID, started.BuildID)
	assert.Equal(t, "test", started.Trigger)

	completed := (<-ch).(events.BuildCompleted)
	assert.Equal(t, report.BuildID, completed.BuildID)
	assert.Equal(t, 3, completed.Posts)
	assert.Equal(t, report.Fingerprint, completed.Fingerprint)
}

func TestReport_Persist(t *testing.T) {
	in, out := newSite(t, ""), outDir(t)
	report, err := NewBuilder().Run(context.Background(), Request{InputDir: in, OutputDir: out})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "build.json")
	require.NoError(t, report.Persist(path))

	data := read(t, path)
	assert.Contains(t, data, `"build_id": "`+report.BuildID+`"`)
	assert.Contains(t, data, `"outcome": "success"`)
	assert.True(t, strings.HasSuffix(data, "}\n"))
	assert.Contains(t, report.Summary(), "posts=3")
}
