// Package server implements the HTTP status surface of easyremote.
//
// The surface is a chi router with three parts:
//
//   - a JSON API reporting tracked device state and queueing requests,
//   - a WebSocket endpoint mirroring the display frames,
//   - the Prometheus metrics endpoint, when a handler is supplied.
//
// Requests never drive devices directly. Every mutating endpoint turns into a
// scheduler event and is answered with 202 Accepted once queued, or 503 when
// the queue is full. The scheduler loop dispatches it on its next tick.
//
// # Endpoints
//
//	GET  /health
//	GET  /metrics
//	GET  /ws
//	GET  /api/status
//	GET  /api/shows
//	POST /api/refresh
//	POST /api/buttons/{button}
//	POST /api/devices/{device}/launch          {"show": "Good Witch"}
//	POST /api/devices/{device}/power-off
//	POST /api/devices/{device}/volume/{up|down}
//
// # WebSocket
//
// Clients receive {"type":"connected"} followed by the last rendered frame and
// every frame after it as {"type":"frame","payload":{...}}. A client may send
// {"button": N} to press keypad button N.
//
// # TLS
//
// When both cert_file and key_file are configured the surface is served over
// TLS 1.2 or later.
//
// # Usage Example
//
//	srv, err := server.New(cfg.Server, server.Deps{
//	    States:  tracker,
//	    Catalog: cat,
//	    Events:  sched,
//	    Busy:    ctrl.Busy,
//	    Metrics: metrics.Handler(reg),
//	})
//	if err != nil {
//	    return err
//	}
//	manager.AddRenderer(srv.Hub())
//	return srv.Start(ctx)
package server
