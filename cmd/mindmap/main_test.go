package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmapapp/mindmap/internal/api"
	"github.com/mindmapapp/mindmap/internal/auth"
	"github.com/mindmapapp/mindmap/internal/config"
	"github.com/mindmapapp/mindmap/internal/search"
	"github.com/mindmapapp/mindmap/internal/service"
	"github.com/mindmapapp/mindmap/internal/sse"
	"github.com/mindmapapp/mindmap/internal/store/sqlite"
	"github.com/mindmapapp/mindmap/internal/validation"
)

// newBackend runs the diagram service over a temp directory.
func newBackend(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(dir, "mindmap.db"), logger)
	require.NoError(t, err)
	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)
	index, _, err := search.NewSearchIndex(search.Options{DataPath: dir, Logger: logger})
	require.NoError(t, err)

	events := sse.NewManager(logger)
	st.SetEmitter(events)
	searchService := service.NewSearchService(index, st, logger)
	st.SetSearchIndexer(searchService)

	cfg := &config.Config{
		App:       config.AppConfig{Environment: "development"},
		Auth:      config.AuthConfig{AccessTokenDuration: time.Hour, CookieName: "jwt"},
		RateLimit: config.RateLimitConfig{AuthRPS: 100, AuthBurst: 100},
	}
	s := api.NewServer(st, &api.Services{
		Auth:    service.NewAuthService(st, tokens, validation.New(), logger),
		Diagram: service.NewDiagramService(st, searchService, logger),
		Search:  searchService,
	}, events, cfg, logger)

	srv := httptest.NewServer(s)
	t.Cleanup(func() {
		srv.Close()
		s.Close()
		_ = index.Close()
		_ = st.Close()
	})
	return srv.URL + "/api"
}

type cli struct {
	t   *testing.T
	cfg *config.ClientConfig
}

func newCLI(t *testing.T, baseURL string) *cli {
	return &cli{t: t, cfg: &config.ClientConfig{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Level: "error"},
		Remote: config.RemoteConfig{BaseURL: baseURL, RequestTimeout: 5 * time.Second},
		Device: config.DeviceConfig{
			DataDir:          filepath.Join(t.TempDir(), "device"),
			MaxSnapshotBytes: 5 << 20,
			UnloadBudget:     2 * time.Second,
		},
	}}
}

// exec runs one command with stdin and returns exit code, stdout and stderr.
func (c *cli) exec(stdin string, args ...string) (int, string, string) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, c.cfg, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

// ok runs a command that must succeed and returns its stdout.
func (c *cli) ok(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.exec("", args...)
	require.Equal(c.t, 0, code, "mindmap %s\nstdout: %s\nstderr: %s", strings.Join(args, " "), out, errOut)
	return out
}

var (
	savedID   = regexp.MustCompile(`Saved diagram (\d+)`)
	addedNode = regexp.MustCompile(`Added node (\S+) \(`)
)

func (c *cli) register() {
	c.t.Helper()
	out := c.ok("register", "Ana", "ana@example.com", "--password=secret1")
	require.Contains(c.t, out, "Logged in as Ana <ana@example.com>")
}

func TestEditSaveAndReopen(t *testing.T) {
	c := newCLI(t, newBackend(t))
	c.register()

	added := addedNode.FindStringSubmatch(c.ok("add-node", "Idea", "--at=500,120"))
	require.Len(t, added, 2)
	node := added[1]
	assert.Contains(t, c.ok("connect", "1", node), "reactflow__edge-1-"+node)
	c.ok("relabel-edge", "reactflow__edge-1-"+node, "causa")
	assert.Contains(t, c.ok("status"), "local-only")

	out := c.ok("save", "Plan A")
	m := savedID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	status := c.ok("status")
	assert.Contains(t, status, "remote-clean")
	assert.Contains(t, status, "Plan A")

	list := c.ok("list")
	assert.Contains(t, list, "Plan A")
	assert.Regexp(t, `>\s+`+id+`\s+Plan A\s+\S+ \S+\s+3\s+1`, list)

	// Edits after the save are kept on the device and differ from the server.
	c.ok("relabel", "1", "Raíz")
	assert.Contains(t, c.ok("status"), "remote-dirty")

	code, out, _ := c.exec("c\n", "goto", "catalog")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Cancelled")

	out = c.ok("goto", "catalog", "--save")
	assert.Contains(t, out, "Saved changes to the server")
	assert.Contains(t, out, "Left the editor for catalog")

	assert.Contains(t, c.ok("new"), "Started a new diagram")
	assert.Contains(t, c.ok("status"), "not saved on the server")
	assert.NotContains(t, c.ok("show"), "Raíz")

	assert.Contains(t, c.ok("open", id), "Plan A")
	show := c.ok("show")
	assert.Contains(t, show, "Raíz")
	assert.Contains(t, show, "reactflow__edge-1-"+node)
	assert.Contains(t, show, "causa")
	assert.Contains(t, c.ok("status"), "remote-clean")
}

func TestSearchAndFilter(t *testing.T) {
	c := newCLI(t, newBackend(t))
	c.register()

	c.ok("save", "Diseño de base de datos")
	c.ok("new")
	c.ok("save", "Ventas trimestrales")

	assert.Contains(t, c.ok("search", "ventas"), "Ventas trimestrales")
	filtered := c.ok("list", "--filter=DISENO")
	assert.Contains(t, filtered, "Diseño de base de datos")
	assert.NotContains(t, filtered, "Ventas")
	assert.Contains(t, c.ok("list", "--filter=nada"), "No diagrams found")
}

func TestExportImport(t *testing.T) {
	c := newCLI(t, newBackend(t))
	dir := t.TempDir()

	c.ok("title", "Lluvia de ideas")
	c.ok("add-image-node", "https://example.com/cat.png", "Gato")
	path := filepath.Join(dir, "dump.json")
	assert.Contains(t, c.ok("export", "json", "--out="+path), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"nodes\""))

	png := filepath.Join(dir, "map.png")
	c.ok("export", "png", "--out="+png)
	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	c.ok("new")
	assert.NotContains(t, c.ok("show"), "Gato")
	assert.Contains(t, c.ok("import", path), "Imported 3 node(s)")
	assert.Contains(t, c.ok("show"), "https://example.com/cat.png")
}

func TestDeleteDiagramBeingEdited(t *testing.T) {
	c := newCLI(t, newBackend(t))
	c.register()

	c.ok("add-node", "Conservar")
	m := savedID.FindStringSubmatch(c.ok("save", "Temporal"))
	require.Len(t, m, 2)

	code, out, _ := c.exec("n\n", "delete", m[1])
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Nothing deleted")

	out = c.ok("delete", m[1], "--yes")
	assert.Contains(t, out, "diagram being edited")

	assert.Contains(t, c.ok("status"), "not saved on the server")
	assert.Contains(t, c.ok("show"), "Conservar")
	assert.Contains(t, c.ok("list"), "No diagrams found")

	// The next save creates a fresh record.
	m2 := savedID.FindStringSubmatch(c.ok("save", "Temporal"))
	require.Len(t, m2, 2)
	assert.NotEqual(t, m[1], m2[1])
}

func TestLogoutResetsEditor(t *testing.T) {
	c := newCLI(t, newBackend(t))
	c.register()

	c.ok("add-node", "Privado")
	assert.Contains(t, c.ok("whoami"), "ana@example.com")
	assert.Contains(t, c.ok("logout"), "Logged out")

	status := c.ok("status")
	assert.Contains(t, status, "not logged in")
	assert.NotContains(t, c.ok("show"), "Privado")
	assert.Contains(t, c.ok("logout"), "Not logged in")

	assert.Contains(t, c.ok("login", "ana@example.com", "--password=secret1"), "Logged in as Ana")
	assert.Contains(t, c.ok("profile", "--name=Ana María"), "Ana María")
	assert.Contains(t, c.ok("status"), "Ana María")
}

func TestErrors(t *testing.T) {
	c := newCLI(t, newBackend(t))

	code, _, errOut := c.exec("", "save", "Plan")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "you must be logged in")

	code, _, errOut = c.exec("", "whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Please log in")

	code, _, errOut = c.exec("", "login", "nobody@example.com", "--password=wrongpass")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error:")

	code, _, errOut = c.exec("", "register", "Ana", "not-an-email", "--password=123")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "email")
	assert.Contains(t, errOut, "password")

	code, _, errOut = c.exec("", "connect", "1", "99")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "99")

	code, _, _ = c.exec("", "move", "1", "left", "up")
	assert.Equal(t, 1, code)

	code, _, _ = c.exec("", "export", "pdf")
	assert.Equal(t, 1, code)

	code, _, _ = c.exec("", "frobnicate")
	assert.Equal(t, 2, code)

	code, out, _ := c.exec("", "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, version)
}

func TestPasswordPrompt(t *testing.T) {
	c := newCLI(t, newBackend(t))

	code, out, errOut := c.exec("secret1\n", "register", "Ana", "ana@example.com")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "Logged in as Ana")
}

func TestGraphEditing(t *testing.T) {
	c := newCLI(t, newBackend(t))

	assert.Contains(t, c.ok("move", "2", "640", "80"), "Moved node 2 to 640,80")
	assert.Contains(t, c.ok("connect", "1", "2"), "reactflow__edge-1-2")
	out := c.ok("connect", "1", "2")
	assert.Contains(t, out, "reactflow__edge-1-2-2")
	assert.Contains(t, out, "already connected")

	assert.Contains(t, c.ok("delete-edge", "reactflow__edge-1-2-2"), "Deleted edge")
	assert.Contains(t, c.ok("set-image", "2", "https://example.com/map.png"), "now shows an image")
	assert.Contains(t, c.ok("relabel-edge", "reactflow__edge-1-2"), "Cleared the label")

	show := c.ok("show")
	assert.Contains(t, show, "640,80")
	assert.Contains(t, show, "imageNode")
	assert.NotContains(t, show, "reactflow__edge-1-2-2")

	assert.Contains(t, c.ok("delete-node", "1"), "and 1 edge(s)")
	assert.NotContains(t, c.ok("show"), "reactflow__edge-1-2")

	code, _, errOut := c.exec("", "relabel", "1", "Nada")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not found")
}

func TestParsePosition(t *testing.T) {
	pos, err := parsePosition(" 12.5, -40 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, pos.X)
	assert.Equal(t, -40.0, pos.Y)

	for _, in := range []string{"10", "a,b", "NaN,0", "0,nan", "Inf,1", "1,-Inf", "1e400,0"} {
		_, err := parsePosition(in)
		assert.Error(t, err, in)
	}
}
