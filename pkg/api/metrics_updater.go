package api

import (
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/metrics"
)

// StartMetrics refreshes system and per-graph gauges every metrics
// interval until StopMetrics.
func (s *Server) StartMetrics() {
	s.refreshMetrics()
	s.metricsWg.Add(1)
	go s.updateMetricsPeriodically()
}

// StopMetrics stops the updater and waits for it. Safe to call more than
// once, or without StartMetrics.
func (s *Server) StopMetrics() {
	if s.metricsStopCh == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.metricsStopCh) })
	s.metricsWg.Wait()
}

func (s *Server) updateMetricsPeriodically() {
	defer s.metricsWg.Done()

	ticker := time.NewTicker(s.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.metricsStopCh:
			return
		case <-ticker.C:
			s.refreshMetrics()
		}
	}
}

func (s *Server) refreshMetrics() {
	s.registry.UpdateSystemMetrics()

	infos := s.graphs.List()
	stats := make([]metrics.GraphStats, 0, len(infos))
	for _, info := range infos {
		stats = append(stats, metrics.GraphStats{
			Graph:           info.ID,
			Vertices:        info.Vertices,
			Edges:           info.Edges,
			Keys:            uint64(len(info.Keys)),
			WALBytesWritten: info.WALBytesWritten,
		})
	}
	s.registry.UpdateGraphMetrics(stats)
}
