package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mathmatrix_solve_duration_seconds",
			Help:    "Time spent waiting for the text-generation service per chat turn",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"provider"},
	)

	SolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathmatrix_solve_total",
			Help: "Chat turns by outcome",
		},
		[]string{"status"},
	)

	CSVLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathmatrix_csv_load_total",
			Help: "Dashboard CSV loads by source and outcome",
		},
		[]string{"source", "status"},
	)

	DashboardRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mathmatrix_dashboard_records",
			Help: "Records seen in the last dashboard load",
		},
		[]string{"table"},
	)

	FormatRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mathmatrix_format_runs_total",
			Help: "Response markup pipeline runs",
		},
	)
)

// Registry holds the collectors above plus Go runtime collectors.
var Registry = prometheus.NewRegistry()

var once sync.Once

// Init registers all collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SolveTotal)
		Registry.MustRegister(CSVLoads)
		Registry.MustRegister(DashboardRecords)
		Registry.MustRegister(FormatRuns)
	})
}

func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
