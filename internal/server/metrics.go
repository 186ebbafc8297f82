package server

import (
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/Noratrieb/does-it-build/internal/grid"
	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/store"
)

// handleMetrics exposes build state in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := s.st.StatusCounts(r.Context())
	if err != nil {
		slog.Error("error collecting build counts", "error", err)
		http.Error(w, "failed to collect metrics", http.StatusInternalServerError)
		return
	}
	finished, err := s.st.FinishedCounts(r.Context())
	if err != nil {
		slog.Error("error collecting finished counts", "error", err)
		http.Error(w, "failed to collect metrics", http.StatusInternalServerError)
		return
	}
	builds, err := s.st.BuildStatus(r.Context())
	if err != nil {
		slog.Error("error collecting build state", "error", err)
		http.Error(w, "failed to collect metrics", http.StatusInternalServerError)
		return
	}

	families := []*dto.MetricFamily{
		buildsFamily(counts),
		brokenFamily(builds),
		finishedFamily(finished),
		clientsFamily(s.hub.Count()),
	}
	if s.builds != nil {
		families = append(families, queueFamily(s.builds.QueueLen()))
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			slog.Error("error encoding metrics", "error", err)
			return
		}
	}
}

func buildsFamily(counts []store.StatusCount) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String("does_it_build_builds"),
		Help: proto.String("Recorded build attempts by mode and status."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, c := range counts {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: proto.String("mode"), Value: proto.String(string(c.Mode))},
				{Name: proto.String("status"), Value: proto.String(string(c.Status))},
			},
			Gauge: &dto.Gauge{Value: proto.Float64(float64(c.Count))},
		})
	}
	return mf
}

// brokenFamily counts nightlies without a single passing build, per
// mode, using the same classification the matrix views show.
func brokenFamily(builds []model.BuildAttempt) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String("does_it_build_broken_nightlies"),
		Help: proto.String("Nightlies where nothing builds, by mode."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	parts := model.PartitionByMode(builds)
	for _, mode := range model.Modes() {
		n := 0
		for _, isBroken := range grid.BrokenNightlies(parts[mode]) {
			if isBroken {
				n++
			}
		}
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: proto.String("mode"), Value: proto.String(string(mode))},
			},
			Gauge: &dto.Gauge{Value: proto.Float64(float64(n))},
		})
	}
	return mf
}

func finishedFamily(finished map[model.Mode]int) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String("does_it_build_finished_nightlies"),
		Help: proto.String("Nightlies fully swept, by mode."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	// Ranging over the map would scramble the order between scrapes.
	for _, mode := range model.Modes() {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: proto.String("mode"), Value: proto.String(string(mode))},
			},
			Gauge: &dto.Gauge{Value: proto.Float64(float64(finished[mode]))},
		})
	}
	return mf
}

func clientsFamily(n int) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String("does_it_build_websocket_clients"),
		Help: proto.String("Currently connected live-update clients."),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: proto.Float64(float64(n))}},
		},
	}
}

func queueFamily(n int) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String("does_it_build_trigger_queue"),
		Help: proto.String("Manually triggered sweeps waiting for the builder."),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: proto.Float64(float64(n))}},
		},
	}
}
