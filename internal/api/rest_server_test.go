package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/gridcast/internal/app"
	"github.com/annel0/gridcast/internal/editor"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/render"
	"github.com/annel0/gridcast/internal/vec"
	"github.com/annel0/gridcast/internal/visibility"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// newTestServer сцена 5x7, сплошная клетка (2,6), камера в (2,1) смотрит на +Z
func newTestServer(t *testing.T) *RestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	defaults := editor.Defaults{Wall: "wall.png", Floor: "floor.png", Ceiling: "ceiling.png"}
	m, err := gridmap.New(5, 7, 0, 16)
	require.NoError(t, err)
	m.Cell(2, 6).SetSolid()
	editor.NewService(m, defaults, nil).RebuildInventory()

	scene := app.NewScene(m, app.Options{
		Render:   render.DefaultOptions(),
		Defaults: defaults,
		Camera: visibility.Camera{
			Position: vec.Vec3Float{X: 2.4, Y: 0.3, Z: 1.5},
			Target:   vec.Vec3Float{X: 2.4, Y: 0.3, Z: 2.5},
			FovX:     0.1,
		},
	}, nil, nil)
	t.Cleanup(scene.Close)

	return NewRestServer(Config{Scene: scene, Registry: prometheus.NewRegistry()})
}

func doJSON(t *testing.T, rs *RestServer, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	rs.Router().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealthAndMetrics(t *testing.T) {
	rs := newTestServer(t)

	w, _ := doJSON(t, rs, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, rs, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rest_api_http_request_duration_seconds")

	w, env := doJSON(t, rs, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestGetMap(t *testing.T) {
	rs := newTestServer(t)
	w, env := doJSON(t, rs, http.MethodGet, "/api/map", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Width      int               `json:"width"`
		Height     int               `json:"height"`
		SolidCells int               `json:"solid_cells"`
		Materials  map[string]string `json:"materials"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 5, data.Width)
	assert.Equal(t, 7, data.Height)
	assert.Equal(t, 1, data.SolidCells)
	assert.Len(t, data.Materials, 3, "Стены, пол и потолок")
}

func TestGetCell(t *testing.T) {
	rs := newTestServer(t)

	w, env := doJSON(t, rs, http.MethodGet, "/api/cells/2/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cell CellResponse
	require.NoError(t, json.Unmarshal(env.Data, &cell))
	assert.Equal(t, 27, cell.Index)
	assert.False(t, cell.Solid)
	assert.Equal(t, "wall.png", cell.Materials["ZPos"], "Стена к сплошной клетке (2,6)")
	assert.Equal(t, 3, cell.Faces)

	w, _ = doJSON(t, rs, http.MethodGet, "/api/cells/9/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, rs, http.MethodGet, "/api/cells/a/b", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutCell_SolidChangesVisibility(t *testing.T) {
	rs := newTestServer(t)

	solid := true
	w, _ := doJSON(t, rs, http.MethodPut, "/api/cells/2/3", CellUpdateRequest{Solid: &solid})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, rs, http.MethodPost, "/api/visibility", VisibilityRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	var vis VisibilityResponse
	require.NoError(t, json.Unmarshal(env.Data, &vis))
	assert.Equal(t, []int{17}, vis.Targets, "Новая сплошная клетка закрывает обзор")
	assert.Len(t, vis.Minimap, 5)

	// Открываем обратно с явными высотами
	open := false
	ceiling := uint8(12)
	w, _ = doJSON(t, rs, http.MethodPut, "/api/cells/2/3", CellUpdateRequest{Solid: &open, Ceiling: &ceiling})
	require.Equal(t, http.StatusOK, w.Code)
	resp := rs.cellResponse(2, 3)
	require.NotNil(t, resp)
	assert.False(t, resp.Solid)
	assert.Equal(t, uint8(0), resp.Floor)
	assert.Equal(t, uint8(12), resp.Ceiling)
}

func TestPutCell_Rejected(t *testing.T) {
	rs := newTestServer(t)

	floor := uint8(255)
	w, _ := doJSON(t, rs, http.MethodPut, "/api/cells/1/1", CellUpdateRequest{Floor: &floor})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "Пол 255 зарезервирован")

	w, _ = doJSON(t, rs, http.MethodPut, "/api/cells/1/1", CellUpdateRequest{Materials: map[string]string{"Up": "x.png"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, rs, http.MethodPut, "/api/cells/1/1", CellUpdateRequest{Materials: map[string]string{"ZPos": "x.png"}})
	assert.Equal(t, http.StatusNotFound, w.Code, "У клетки нет стены ZPos")

	w, _ = doJSON(t, rs, http.MethodPut, "/api/cells/2/6", CellUpdateRequest{Materials: map[string]string{"YNeg": "x.png"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutCell_CombinedUpdateIsAtomic(t *testing.T) {
	rs := newTestServer(t)

	floor, ceiling := uint8(2), uint8(8)
	w, _ := doJSON(t, rs, http.MethodPut, "/api/cells/1/1", CellUpdateRequest{
		Floor: &floor, Ceiling: &ceiling, Materials: map[string]string{"ZPos": "x.png"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code, "После правки высот стены ZPos не будет")
	resp := rs.cellResponse(1, 1)
	require.NotNil(t, resp)
	assert.Equal(t, uint8(0), resp.Floor, "Отклонённый запрос не меняет высоты")
	assert.Equal(t, uint8(16), resp.Ceiling)

	// Стена, появляющаяся из-за новых высот, принимает материал в том же запросе
	ceiling = 20
	w, _ = doJSON(t, rs, http.MethodPut, "/api/cells/1/1", CellUpdateRequest{
		Ceiling: &ceiling, Materials: map[string]string{"XPos": "x.png"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp = rs.cellResponse(1, 1)
	assert.Equal(t, uint8(20), resp.Ceiling)
	assert.Equal(t, "x.png", resp.Materials["XPos"])
	assert.Equal(t, "wall.png", resp.Materials["ZPos"])

	solid := true
	w, _ = doJSON(t, rs, http.MethodPut, "/api/cells/1/2", CellUpdateRequest{
		Solid: &solid, Materials: map[string]string{"YNeg": "x.png"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code, "Сплошная клетка не принимает материалов")
	resp = rs.cellResponse(1, 2)
	assert.False(t, resp.Solid, "Клетка осталась открытой")
}

func TestIncrementCell(t *testing.T) {
	rs := newTestServer(t)
	w, _ := doJSON(t, rs, http.MethodPost, "/api/cells/1/1/increment", IncrementRequest{Floor: 2, Ceiling: -4})
	require.Equal(t, http.StatusOK, w.Code)

	resp := rs.cellResponse(1, 1)
	assert.Equal(t, uint8(2), resp.Floor)
	assert.Equal(t, uint8(12), resp.Ceiling)

	w, _ = doJSON(t, rs, http.MethodPost, "/api/cells/2/6/increment", IncrementRequest{Floor: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "Сплошную клетку нельзя поднять")
}

func TestSets(t *testing.T) {
	rs := newTestServer(t)
	cam := CameraRequest{Position: [3]float64{0.5, 0.3, 0.5}, Target: [3]float64{1.5, 0.3, 0.5}, FovX: 1}

	w, _ := doJSON(t, rs, http.MethodPut, "/api/sets/spectator", cam)
	assert.Equal(t, http.StatusCreated, w.Code)
	w, _ = doJSON(t, rs, http.MethodPut, "/api/sets/spectator", cam)
	assert.Equal(t, http.StatusOK, w.Code)

	_, env := doJSON(t, rs, http.MethodGet, "/api/sets", nil)
	var names []string
	require.NoError(t, json.Unmarshal(env.Data, &names))
	assert.Equal(t, []string{"main", "spectator"}, names)

	w, _ = doJSON(t, rs, http.MethodGet, "/api/sets/spectator/minimap", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n"), 5)

	w, _ = doJSON(t, rs, http.MethodDelete, "/api/sets/spectator", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, rs, http.MethodDelete, "/api/sets/spectator", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, rs, http.MethodPost, "/api/visibility", VisibilityRequest{Set: "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVisibility_NewSetFromCamera(t *testing.T) {
	rs := newTestServer(t)
	everything := true
	req := VisibilityRequest{
		Set:            "overview",
		Camera:         &CameraRequest{Position: [3]float64{2.5, 0.3, 3.5}, Target: [3]float64{2.5, 0.3, 4.5}, FovX: 1},
		DrawEverything: &everything,
	}
	w, env := doJSON(t, rs, http.MethodPost, "/api/visibility", req)
	require.Equal(t, http.StatusOK, w.Code)

	var vis VisibilityResponse
	require.NoError(t, json.Unmarshal(env.Data, &vis))
	assert.Equal(t, 35, vis.Cells, "DrawEverything рисует всю карту")
}

func TestPickAndCollide(t *testing.T) {
	rs := newTestServer(t)
	doJSON(t, rs, http.MethodPost, "/api/visibility", VisibilityRequest{})

	w, env := doJSON(t, rs, http.MethodPost, "/api/pick", PickRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	var pick struct {
		Hit  bool `json:"hit"`
		Cell int  `json:"cell"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pick))
	assert.True(t, pick.Hit)
	assert.Equal(t, 27, pick.Cell)

	w, env = doJSON(t, rs, http.MethodPost, "/api/collide", CollideRequest{Position: [3]float64{0.05, 0, 3.5}, Radius: 0.1})
	require.Equal(t, http.StatusOK, w.Code)
	var col struct {
		Hit bool `json:"hit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &col))
	assert.True(t, col.Hit, "Край карты считается стеной")
}

func TestMaps_NoStore(t *testing.T) {
	rs := newTestServer(t)
	w, _ := doJSON(t, rs, http.MethodGet, "/api/maps", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w, _ = doJSON(t, rs, http.MethodPost, "/api/maps/level/save", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
