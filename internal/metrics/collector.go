package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector инкапсулирует Prometheus-метрики видимости, геометрии и отрисовки.
// Все методы безопасны для nil-получателя: без коллектора метрики просто не пишутся.
type Collector struct {
	visibilityRuns     *prometheus.CounterVec
	visibilityDuration prometheus.Histogram
	visibleCells       *prometheus.GaugeVec
	targetCells        *prometheus.GaugeVec
	wedgeSplits        prometheus.Counter

	cellRebuilds   prometheus.Counter
	meshesLive     prometheus.Gauge
	uploadFailures prometheus.Counter

	drawnCells prometheus.Gauge
	drawnFaces prometheus.Gauge
}

// NewCollector создаёт коллектор и регистрирует метрики в указанном регистре.
// nil означает глобальный регистр Prometheus.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		visibilityRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visibility_computations_total",
			Help:      "Общее число вычислений видимости.",
		}, []string{"set"}),
		visibilityDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "visibility_duration_seconds",
			Help:      "Длительность одного вычисления видимости.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		visibleCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_cells",
			Help:      "Количество видимых клеток в последнем проходе.",
		}, []string{"set"}),
		targetCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_cells",
			Help:      "Количество сплошных клеток, в которые попали лучи.",
		}, []string{"set"}),
		wedgeSplits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wedge_splits_total",
			Help:      "Общее число разбиений угловых секторов.",
		}),
		cellRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cell_rebuilds_total",
			Help:      "Общее число пересборок геометрии клеток.",
		}),
		meshesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meshes_live",
			Help:      "Количество загруженных мешей граней.",
		}),
		uploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mesh_upload_failures_total",
			Help:      "Граней, отброшенных из-за ошибки загрузки меша.",
		}),
		drawnCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drawn_cells",
			Help:      "Клеток, отправленных на отрисовку в последнем кадре.",
		}),
		drawnFaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drawn_faces",
			Help:      "Граней, отправленных на отрисовку в последнем кадре.",
		}),
	}

	reg.MustRegister(
		c.visibilityRuns, c.visibilityDuration, c.visibleCells, c.targetCells, c.wedgeSplits,
		c.cellRebuilds, c.meshesLive, c.uploadFailures, c.drawnCells, c.drawnFaces,
	)
	return c
}

// ObserveVisibility записывает результат одного прохода видимости
func (c *Collector) ObserveVisibility(set string, visible, targets, splits int, took time.Duration) {
	if c == nil {
		return
	}
	c.visibilityRuns.WithLabelValues(set).Inc()
	c.visibilityDuration.Observe(took.Seconds())
	c.visibleCells.WithLabelValues(set).Set(float64(visible))
	c.targetCells.WithLabelValues(set).Set(float64(targets))
	c.wedgeSplits.Add(float64(splits))
}

// ObserveRebuild записывает пересборку клетки
func (c *Collector) ObserveRebuild() {
	if c == nil {
		return
	}
	c.cellRebuilds.Inc()
}

// AddMeshes изменяет число живых мешей
func (c *Collector) AddMeshes(delta int) {
	if c == nil {
		return
	}
	c.meshesLive.Add(float64(delta))
}

// ObserveUploadFailure считает отброшенную грань
func (c *Collector) ObserveUploadFailure() {
	if c == nil {
		return
	}
	c.uploadFailures.Inc()
}

// ObserveDraw записывает счётчики кадра
func (c *Collector) ObserveDraw(cells, faces int) {
	if c == nil {
		return
	}
	c.drawnCells.Set(float64(cells))
	c.drawnFaces.Set(float64(faces))
}
