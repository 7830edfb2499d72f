// Package metrics exports controller activity to Prometheus.
//
// A Collector is handed to the transport client as its ecp.Observer and to
// the sequencer as its sequencer.Observer, so every command and every
// operation is counted by device and result. Device reachability, the
// foreground app and the scheduler queue depth are read at scrape time.
//
//	collector := metrics.NewCollector(cfg.Devices)
//	collector.SetStateSource(tracker)
//	client.Observer = collector
//	mux.Handle("/metrics", metrics.Handler(metrics.NewRegistry(collector)))
package metrics
