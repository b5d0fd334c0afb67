package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"mezzanine/internal/document/repository"
	"mezzanine/internal/document/scene"
	"mezzanine/internal/mezzanine/pipeline"
	"mezzanine/internal/session/service"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	pipeline.SetLogger(nil)
	os.Exit(m.Run())
}

type fixture struct {
	app *fiber.App
	doc *repository.Document
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "document.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	doc := repository.New(db)
	require.NoError(t, doc.Init(context.Background(), ""))

	sessions := service.NewManager(doc, pipeline.Config{DefaultHeightOffsetMM: 2800}, time.Minute)
	t.Cleanup(func() { sessions.Shutdown(context.Background()) })

	app := fiber.New()
	app.Get("/health/live", LivenessProbe)
	app.Get("/health/ready", ReadinessProbe(db))
	Register(app, NewSessionHandler(sessions), NewSceneHandler(doc))
	return fixture{app: app, doc: doc}
}

func (f fixture) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// post retries while the session is not yet waiting for this input.
func (f fixture) post(t *testing.T, path, body string) {
	t.Helper()
	require.Eventually(t, func() bool {
		status, _ := f.do(t, http.MethodPost, path, body)
		return status == http.StatusAccepted
	}, 2*time.Second, 5*time.Millisecond, "POST %s", path)
}

func (f fixture) snapshot(t *testing.T, id string) service.Snapshot {
	t.Helper()
	status, data := f.do(t, http.MethodGet, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, status)
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func (f fixture) start(t *testing.T, body string) string {
	t.Helper()
	status, data := f.do(t, http.MethodPost, "/sessions", body)
	require.Equal(t, http.StatusCreated, status, string(data))
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	require.NotEmpty(t, snap.ID)
	return snap.ID
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, status)
	status, body := f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "ready")
}

func TestSessionOverHTTP(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "")

	for _, p := range []string{`{"x":0,"y":0,"z":0}`, `{"x":10,"y":0,"z":0}`, `{"x":10,"y":10,"z":0}`, `{"x":0,"y":10,"z":0}`} {
		f.post(t, "/sessions/"+id+"/points", p)
	}
	f.post(t, "/sessions/"+id+"/finish", "")

	status, _ := f.do(t, http.MethodPost, "/sessions/"+id+"/points", `{"x":1,"y":1}`)
	assert.Equal(t, http.StatusConflict, status)

	f.post(t, "/sessions/"+id+"/height", `{"value":"2800"}`)

	require.Eventually(t, func() bool {
		return f.snapshot(t, id).State.Finished()
	}, 2*time.Second, 5*time.Millisecond)

	snap := f.snapshot(t, id)
	require.Equal(t, service.StateCompleted, snap.State, snap.Error)
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, 2800.0, snap.Outcome.HeightOffsetMM)
	assert.Len(t, snap.Outcome.Structure.Walls, 4)

	status, data := f.do(t, http.MethodGet, "/scene", "")
	require.Equal(t, http.StatusOK, status)
	var s scene.Scene
	require.NoError(t, json.Unmarshal(data, &s))
	base := s.Layers[snap.Outcome.Elevations.Base.ID]
	assert.Len(t, base.Lines, 4)
	assert.Len(t, base.Areas, 1)
	_, hasSketch := s.Layers[scene.SketchLayerID]
	assert.False(t, hasSketch, "previews are gone after generation")

	status, data = f.do(t, http.MethodGet, "/scene.svg?level="+snap.Outcome.Elevations.Base.ID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4, strings.Count(string(data), `class="wall"`))

	status, data = f.do(t, http.MethodPost, "/render", `{"unit":"mm","layers":{}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(data))
}

func TestHeightAsNumberAndCancel(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "")

	status, _ := f.do(t, http.MethodPost, "/sessions/"+id+"/height", `{"value":2800}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = f.do(t, http.MethodPost, "/sessions/"+id+"/points", `{"x":1}`)
	assert.Equal(t, http.StatusBadRequest, status)

	for _, p := range []string{`{"x":0,"y":0}`, `{"x":10,"y":0}`, `{"x":10,"y":10}`} {
		f.post(t, "/sessions/"+id+"/points", p)
	}
	f.post(t, "/sessions/"+id+"/finish", "")

	require.Eventually(t, func() bool {
		return f.snapshot(t, id).State == service.StateAwaitingHeight
	}, 2*time.Second, 5*time.Millisecond)

	status, _ = f.do(t, http.MethodPost, "/sessions/"+id+"/height", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	f.post(t, "/sessions/"+id+"/height", `{"cancel":true}`)
	require.Eventually(t, func() bool {
		return f.snapshot(t, id).State == service.StateAbandoned
	}, 2*time.Second, 5*time.Millisecond)

	elems, err := f.doc.Elements(context.Background())
	require.NoError(t, err)
	assert.Empty(t, elems)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "")

	f.post(t, "/sessions/"+id+"/points", `{"x":0,"y":0}`)
	f.post(t, "/sessions/"+id+"/points", `{"x":10,"y":0}`)
	require.Eventually(t, func() bool {
		return f.snapshot(t, id).Previews == 1
	}, 2*time.Second, 5*time.Millisecond)

	status, busy := f.do(t, http.MethodPost, "/sessions", "")
	assert.Equal(t, http.StatusConflict, status, string(busy))

	status, data := f.do(t, http.MethodDelete, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, status)
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, service.StateAbandoned, snap.State)

	elems, err := f.doc.Elements(context.Background())
	require.NoError(t, err)
	assert.Empty(t, elems)
}

func TestUnknownSessionAndLevel(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodGet, "/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodDelete, "/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodPost, "/sessions", `{"view_level_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/scene.svg?level=nope", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLevels(t *testing.T) {
	f := newFixture(t)

	status, data := f.do(t, http.MethodGet, "/levels", "")
	require.Equal(t, http.StatusOK, status)

	var levels []levelPayload
	require.NoError(t, json.Unmarshal(data, &levels))
	require.Len(t, levels, 2)
	assert.Equal(t, "Level 1", levels[0].Name)
	assert.InDelta(t, 3000, levels[1].ElevationMM, 1e-6)
}

func TestOpenAPICoversRoutes(t *testing.T) {
	f := newFixture(t)

	status, data := f.do(t, http.MethodGet, "/docs/openapi.yaml", "")
	require.Equal(t, http.StatusOK, status)

	var doc struct {
		Paths map[string]map[string]any `yaml:"paths"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))

	for _, r := range f.app.GetRoutes(true) {
		if r.Method == http.MethodHead || strings.HasPrefix(r.Path, "/health") {
			continue
		}
		path := r.Path
		for _, seg := range strings.Split(path, "/") {
			if strings.HasPrefix(seg, ":") {
				path = strings.Replace(path, seg, "{"+seg[1:]+"}", 1)
			}
		}
		ops, ok := doc.Paths[path]
		if assert.True(t, ok, "path %s is not documented", path) {
			assert.Contains(t, ops, strings.ToLower(r.Method), "%s %s is not documented", r.Method, path)
		}
	}

	status, page := f.do(t, http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(page), "swagger-ui")
}
