package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/gridcast/internal/app"
	"github.com/annel0/gridcast/internal/editor"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/logging"
	"github.com/annel0/gridcast/internal/middleware"
	"github.com/annel0/gridcast/internal/picking"
	"github.com/annel0/gridcast/internal/vec"
	"github.com/annel0/gridcast/internal/visibility"
	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer отладочный и редакторский REST API сцены
type RestServer struct {
	router     *gin.Engine
	scene      *app.Scene
	port       string
	stats      *ProcessStats
	httpServer *http.Server
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string               // порт для запуска сервера
	Scene       *app.Scene           // обслуживаемая сцена
	ServiceName string               // имя сервиса для otelgin
	Registry    *prometheus.Registry // регистр метрик, nil для дефолтного
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "gridcast"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger(nil).Handler())

	promMw := middleware.NewPrometheusMiddleware("rest_api", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	router.Use(corsMiddleware())

	rs := &RestServer{
		router: router,
		scene:  config.Scene,
		port:   config.Port,
		stats:  NewProcessStats(),
		logger: logging.GetAPILogger(),
	}
	rs.setupRoutes()
	return rs
}

// Router возвращает gin.Engine, используется в тестах
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/map", rs.handleGetMap)
		api.GET("/stats", rs.handleStats)

		cells := api.Group("/cells")
		cells.GET("/:x/:y", rs.handleGetCell)
		cells.PUT("/:x/:y", rs.handlePutCell)
		cells.POST("/:x/:y/increment", rs.handleIncrementCell)

		sets := api.Group("/sets")
		sets.GET("", rs.handleListSets)
		sets.PUT("/:name", rs.handlePutSet)
		sets.DELETE("/:name", rs.handleDeleteSet)
		sets.GET("/:name/minimap", rs.handleMinimap)

		api.POST("/visibility", rs.handleVisibility)
		api.POST("/pick", rs.handlePick)
		api.POST("/collide", rs.handleCollide)

		maps := api.Group("/maps")
		maps.GET("", rs.handleListMaps)
		maps.POST("/:name/save", rs.handleSaveMap)
		maps.POST("/:name/load", rs.handleLoadMap)
	}
}

// === Запросы и ответы ===

// CameraRequest камера в мировых координатах
type CameraRequest struct {
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
	FovX     float64    `json:"fov_x"`
}

func (r CameraRequest) camera() visibility.Camera {
	return visibility.Camera{
		Position: vec.Vec3Float{X: r.Position[0], Y: r.Position[1], Z: r.Position[2]},
		Target:   vec.Vec3Float{X: r.Target[0], Y: r.Target[1], Z: r.Target[2]},
		FovX:     r.FovX,
	}
}

// CellUpdateRequest правка клетки; применяются только заданные поля
type CellUpdateRequest struct {
	Solid     *bool             `json:"solid,omitempty"`
	Floor     *uint8            `json:"floor,omitempty"`
	Ceiling   *uint8            `json:"ceiling,omitempty"`
	Materials map[string]string `json:"materials,omitempty"` // направление -> путь
}

// IncrementRequest сдвиг высот клетки
type IncrementRequest struct {
	Floor   int `json:"floor"`
	Ceiling int `json:"ceiling"`
}

// CellResponse состояние клетки
type CellResponse struct {
	Index     int               `json:"index"`
	X         int               `json:"x"`
	Y         int               `json:"y"`
	Solid     bool              `json:"solid"`
	Floor     uint8             `json:"floor"`
	Ceiling   uint8             `json:"ceiling"`
	Materials map[string]string `json:"materials"`
	Faces     int               `json:"faces"`
}

// VisibilityRequest расчёт видимости набора; камера необязательна
type VisibilityRequest struct {
	Set            string         `json:"set"`
	Camera         *CameraRequest `json:"camera,omitempty"`
	DrawEverything *bool          `json:"draw_everything,omitempty"`
}

// VisibilityResponse итог кадра
type VisibilityResponse struct {
	Set       string           `json:"set"`
	Visible   []int            `json:"visible"`
	Targets   []int            `json:"targets"`
	Stats     visibility.Stats `json:"stats"`
	Cells     int              `json:"drawn_cells"`
	Faces     int              `json:"drawn_faces"`
	Groups    int              `json:"material_groups"`
	TookMicro int64            `json:"took_us"`
	Minimap   []string         `json:"minimap"`
	Collided  bool             `json:"collided"`
}

// PickRequest луч выбора; без origin используется луч камеры набора
type PickRequest struct {
	Set       string      `json:"set"`
	Origin    *[3]float32 `json:"origin,omitempty"`
	Direction *[3]float32 `json:"direction,omitempty"`
}

// CollideRequest проверка столкновения точки с картой
type CollideRequest struct {
	Position [3]float64 `json:"position"`
	Radius   float64    `json:"radius"`
}

// === Обработчики ===

// handleHealth проверка доступности
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleGetMap возвращает сводку карты
func (rs *RestServer) handleGetMap(c *gin.Context) {
	data := gin.H{"name": rs.scene.MapName()}
	rs.scene.View(func(m *gridmap.GridMap) {
		materials := make(map[string]string)
		for _, id := range m.MaterialIDs() {
			path, _ := m.MaterialPath(id)
			materials[strconv.Itoa(int(id))] = path
		}
		solid := 0
		m.ForEachCell(func(cell *gridmap.Cell) {
			if cell.IsSolid() {
				solid++
			}
		})
		data["width"] = m.Width()
		data["height"] = m.Height()
		data["cells"] = m.CellCount()
		data["solid_cells"] = solid
		data["materials"] = materials
	})
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Карта", Data: data})
}

func parseCoords(c *gin.Context) (int, int, bool) {
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		fail(c, http.StatusBadRequest, "Координаты должны быть целыми числами")
		return 0, 0, false
	}
	return x, y, true
}

// cellResponse собирает состояние клетки, nil если клетки нет
func (rs *RestServer) cellResponse(x, y int) *CellResponse {
	var resp *CellResponse
	rs.scene.View(func(m *gridmap.GridMap) {
		cell := m.Cell(x, y)
		if cell == nil {
			return
		}
		materials := make(map[string]string)
		for _, dir := range cell.MaterialDirections() {
			id, _ := cell.Material(dir)
			path, _ := m.MaterialPath(id)
			materials[dir.String()] = path
		}
		resp = &CellResponse{
			Index:     cell.Index,
			X:         x,
			Y:         y,
			Solid:     cell.IsSolid(),
			Floor:     cell.Floor(),
			Ceiling:   cell.Ceiling(),
			Materials: materials,
		}
	})
	if resp != nil {
		resp.Faces = len(rs.scene.Faces(resp.Index))
	}
	return resp
}

// handleGetCell возвращает клетку (x,y)
func (rs *RestServer) handleGetCell(c *gin.Context) {
	x, y, ok := parseCoords(c)
	if !ok {
		return
	}
	resp := rs.cellResponse(x, y)
	if resp == nil {
		failErr(c, fmt.Errorf("%w: (%d,%d)", editor.ErrNoCell, x, y))
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Клетка", Data: resp})
}

// handlePutCell применяет правку клетки через редактор
func (rs *RestServer) handlePutCell(c *gin.Context) {
	x, y, ok := parseCoords(c)
	if !ok {
		return
	}
	var req CellUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}

	materials := make(map[gridmap.Direction]string, len(req.Materials))
	for name, path := range req.Materials {
		dir, ok := gridmap.ParseDirection(name)
		if !ok {
			fail(c, http.StatusBadRequest, "Неизвестное направление: "+name)
			return
		}
		materials[dir] = path
	}

	dirty, err := rs.scene.Edit(func(ed *editor.Service) ([]int, error) {
		return applyCellUpdate(ed, x, y, req, materials)
	})
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Клетка обновлена",
		Data:    gin.H{"dirty": dirty, "cell": rs.cellResponse(x, y)},
	})
}

// applyCellUpdate переводит запрос в последовательность правок редактора
func applyCellUpdate(ed *editor.Service, x, y int, req CellUpdateRequest, materials map[gridmap.Direction]string) ([]int, error) {
	cell := ed.Map().Cell(x, y)
	if cell == nil {
		return nil, fmt.Errorf("%w: (%d,%d)", editor.ErrNoCell, x, y)
	}
	floor, ceiling := cell.Floor(), cell.Ceiling()
	if req.Floor != nil {
		floor = *req.Floor
	}
	if req.Ceiling != nil {
		ceiling = *req.Ceiling
	}
	opening := req.Solid != nil && !*req.Solid && cell.IsSolid()
	if opening && req.Floor == nil {
		floor = 0
	}
	if err := validateCellUpdate(ed, x, y, cell, req, floor, ceiling, materials); err != nil {
		return nil, err
	}

	var dirty []int
	merge := func(more []int, err error) error {
		dirty = appendUnique(dirty, more)
		return err
	}

	switch {
	case req.Solid != nil && *req.Solid:
		if err := merge(ed.SetSolid(x, y)); err != nil {
			return dirty, err
		}
	case opening:
		if err := merge(ed.SetOpen(x, y, floor, ceiling)); err != nil {
			return dirty, err
		}
	case req.Floor != nil || req.Ceiling != nil:
		if err := merge(ed.SetCellHeights(x, y, floor, ceiling)); err != nil {
			return dirty, err
		}
	}

	for _, dir := range gridmap.AllDirections {
		path, ok := materials[dir]
		if !ok {
			continue
		}
		if err := merge(ed.SetCellMaterial(x, y, dir, path)); err != nil {
			return dirty, err
		}
	}
	return dirty, nil
}

// validateCellUpdate отклоняет запрос до первой правки, чтобы ошибка не оставляла клетку изменённой наполовину
func validateCellUpdate(ed *editor.Service, x, y int, cell *gridmap.Cell, req CellUpdateRequest,
	floor, ceiling uint8, materials map[gridmap.Direction]string) error {
	solid := cell.IsSolid()
	if req.Solid != nil {
		solid = *req.Solid
	}
	if req.Solid == nil && cell.IsSolid() && (req.Floor != nil || req.Ceiling != nil) {
		return gridmap.ErrCellSolid
	}
	if !solid && floor == gridmap.SolidFloor {
		return gridmap.ErrSolidFloor
	}
	if len(materials) == 0 {
		return nil
	}
	faces, err := ed.FacesAfter(x, y, solid, floor, ceiling)
	if err != nil {
		return err
	}
	for _, dir := range gridmap.AllDirections {
		if _, ok := materials[dir]; ok && !slices.Contains(faces, dir) {
			return fmt.Errorf("%w: (%d,%d) %s", editor.ErrNoFace, x, y, dir)
		}
	}
	return nil
}

func appendUnique(dst, src []int) []int {
	for _, v := range src {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

// handleIncrementCell сдвигает высоты клетки
func (rs *RestServer) handleIncrementCell(c *gin.Context) {
	x, y, ok := parseCoords(c)
	if !ok {
		return
	}
	var req IncrementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	dirty, err := rs.scene.Edit(func(ed *editor.Service) ([]int, error) {
		return ed.IncrementCellHeights(x, y, req.Floor, req.Ceiling)
	})
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Высоты изменены",
		Data:    gin.H{"dirty": dirty, "cell": rs.cellResponse(x, y)},
	})
}

// handleListSets перечисляет наборы видимости
func (rs *RestServer) handleListSets(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Наборы видимости", Data: rs.scene.SetNames()})
}

// handlePutSet создаёт набор или меняет его камеру
func (rs *RestServer) handlePutSet(c *gin.Context) {
	var req CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат камеры: "+err.Error())
		return
	}
	name := c.Param("name")
	if err := rs.scene.SetCamera(name, req.camera()); errors.Is(err, app.ErrNoSet) {
		vs := rs.scene.AddSet(name, req.camera())
		c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Набор создан", Data: gin.H{"id": vs.ID, "name": name}})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Камера обновлена"})
}

// handleDeleteSet удаляет набор видимости
func (rs *RestServer) handleDeleteSet(c *gin.Context) {
	name := c.Param("name")
	if !rs.scene.RemoveSet(name) {
		failErr(c, fmt.Errorf("%w: %s", app.ErrNoSet, name))
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Набор удалён"})
}

// handleMinimap возвращает текстовую миникарту последнего кадра набора
func (rs *RestServer) handleMinimap(c *gin.Context) {
	res, err := rs.scene.Frame(c.Request.Context(), c.Param("name"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.String(http.StatusOK, strings.Join(res.Minimap, "\n")+"\n")
}

// handleVisibility считает видимость и отрисовывает кадр
func (rs *RestServer) handleVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.Set == "" {
		req.Set = app.DefaultSet
	}
	if req.Camera != nil {
		if err := rs.scene.SetCamera(req.Set, req.Camera.camera()); errors.Is(err, app.ErrNoSet) {
			rs.scene.AddSet(req.Set, req.Camera.camera())
		}
	}
	if req.DrawEverything != nil {
		if err := rs.scene.SetDrawEverything(req.Set, *req.DrawEverything); err != nil {
			failErr(c, err)
			return
		}
	}

	res, err := rs.scene.Frame(c.Request.Context(), req.Set)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Видимость рассчитана",
		Data: VisibilityResponse{
			Set:       res.Set,
			Visible:   res.Visible,
			Targets:   res.Targets,
			Stats:     res.Stats,
			Cells:     res.Draw.Cells,
			Faces:     res.Draw.Faces,
			Groups:    res.Draw.Groups,
			TookMicro: res.Took.Microseconds(),
			Minimap:   res.Minimap,
			Collided:  res.Collided,
		},
	})
}

// handlePick выбирает грань под лучом
func (rs *RestServer) handlePick(c *gin.Context) {
	var req PickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.Set == "" {
		req.Set = app.DefaultSet
	}
	var ray *picking.Ray
	if req.Origin != nil && req.Direction != nil {
		ray = &picking.Ray{
			Origin:    mgl32.Vec3(*req.Origin),
			Direction: mgl32.Vec3(*req.Direction).Normalize(),
		}
	}
	res, err := rs.scene.Pick(req.Set, ray)
	if err != nil {
		failErr(c, err)
		return
	}
	data := gin.H{"hit": res.Hit}
	if res.Hit {
		data["cell"] = res.CellIndex
		data["direction"] = res.Direction.String()
		data["position"] = [3]float32(res.Position)
		data["distance"] = res.Distance
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Выбор грани", Data: data})
}

// handleCollide проверяет столкновение точки с картой
func (rs *RestServer) handleCollide(c *gin.Context) {
	var req CollideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	pos := vec.Vec3Float{X: req.Position[0], Y: req.Position[1], Z: req.Position[2]}
	report := rs.scene.Collide(pos, req.Radius)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Проверка столкновения", Data: gin.H{
		"hit":      report.Hit,
		"current":  report.Current,
		"hit_cell": report.HitCell,
		"checked":  report.Checked,
	}})
}

// handleListMaps перечисляет сохранённые карты
func (rs *RestServer) handleListMaps(c *gin.Context) {
	infos, err := rs.scene.ListMaps()
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сохранённые карты", Data: infos})
}

// handleSaveMap сохраняет карту сцены
func (rs *RestServer) handleSaveMap(c *gin.Context) {
	info, err := rs.scene.Save(c.Param("name"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Карта сохранена", Data: info})
}

// handleLoadMap загружает карту в сцену
func (rs *RestServer) handleLoadMap(c *gin.Context) {
	info, err := rs.scene.Load(c.Param("name"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Карта загружена", Data: info})
}

// handleStats возвращает статистику процесса и рендера
func (rs *RestServer) handleStats(c *gin.Context) {
	cpuPercent, err := rs.stats.CPUPercent()
	if err != nil {
		rs.logger.Debug("CPU процесса недоступен: %v", err)
	}
	backend := rs.scene.Backend()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"server": gin.H{
				"uptime":      rs.stats.Uptime(),
				"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
				"server_time": time.Now().Unix(),
			},
			"memory": rs.stats.MemoryStats(),
			"render": gin.H{
				"live_meshes": backend.LiveMeshes(),
				"materials":   backend.MaterialCount(),
			},
			"sets": rs.scene.SetNames(),
		},
	})
}

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{Addr: rs.port, Handler: rs.router}
	rs.logger.Info("REST API слушает %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop завершает обработку запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	return rs.httpServer.Shutdown(ctx)
}
