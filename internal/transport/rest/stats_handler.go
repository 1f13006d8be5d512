package rest

import (
	"math"
	"net/http"

	"bandmon-server/internal/core"
	"bandmon-server/internal/domain"
	"bandmon-server/internal/pkg"
)

type StatsHandler struct {
	monitor *core.Monitor
}

func NewStatsHandler(monitor *core.Monitor) *StatsHandler {
	return &StatsHandler{monitor: monitor}
}

func (h *StatsHandler) Bandwidth(w http.ResponseWriter, r *http.Request) {
	snap := h.monitor.BandwidthSnapshot()
	snap.AvgSentMbps = round2(snap.AvgSentMbps)
	snap.AvgRecvMbps = round2(snap.AvgRecvMbps)
	snap.AvgTotalMbps = round2(snap.AvgTotalMbps)

	JSONSuccess(w, http.StatusOK, APIResponse{Data: snap})
}

type monthlyResponse struct {
	domain.MonthlyUsage
	TotalBytes uint64 `json:"total_bytes"`
	SentHuman  string `json:"total_sent_human"`
	RecvHuman  string `json:"total_recv_human"`
	TotalHuman string `json:"total_human"`
}

func (h *StatsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	usage := h.monitor.MonthlySnapshot()

	JSONSuccess(w, http.StatusOK, APIResponse{Data: monthlyResponse{
		MonthlyUsage: usage,
		TotalBytes:   usage.Total(),
		SentHuman:    pkg.HumanBytes(usage.BytesSent),
		RecvHuman:    pkg.HumanBytes(usage.BytesRecv),
		TotalHuman:   pkg.HumanBytes(usage.Total()),
	}})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
