package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/ecp"
	"github.com/muurk/easyremote/internal/sequencer"
	"github.com/muurk/easyremote/internal/state"
)

const (
	namespace = "easyremote"
)

// StateSource supplies per-device state at scrape time. *state.Tracker
// implements it.
type StateSource interface {
	Snapshot() []state.DeviceState
}

// Collector counts transport commands and controller sequences, and exports
// the tracked device state. It implements ecp.Observer, sequencer.Observer
// and prometheus.Collector.
type Collector struct {
	mu        sync.RWMutex
	names     map[string]string // address -> device name
	commands  map[commandKey]float64
	attempts  map[string]float64
	sequences map[sequenceKey]float64
	durations map[string]float64
	lastSeq   time.Time

	states  StateSource
	pending func() int

	commandsTotalDesc    *prometheus.Desc
	commandAttemptsDesc  *prometheus.Desc
	sequencesTotalDesc   *prometheus.Desc
	sequenceDurationDesc *prometheus.Desc
	lastSequenceDesc     *prometheus.Desc
	deviceReachableDesc  *prometheus.Desc
	deviceActiveAppDesc  *prometheus.Desc
	pendingEventsDesc    *prometheus.Desc
}

type commandKey struct {
	device string
	kind   string
	result string
}

type sequenceKey struct {
	op     string
	device string
	result string
}

// NewCollector creates a collector for the configured devices.
func NewCollector(devices []config.Device) *Collector {
	names := make(map[string]string, len(devices))
	for _, d := range devices {
		names[d.Addr()] = d.Name
	}
	return &Collector{
		names:     names,
		commands:  make(map[commandKey]float64),
		attempts:  make(map[string]float64),
		sequences: make(map[sequenceKey]float64),
		durations: make(map[string]float64),

		commandsTotalDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "commands", "total"),
			"Commands sent to devices by kind and result",
			[]string{"device", "kind", "result"}, nil,
		),
		commandAttemptsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "commands", "attempts_total"),
			"HTTP attempts made for commands, including retries",
			[]string{"device"}, nil,
		),
		sequencesTotalDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sequences", "total"),
			"Controller operations by result",
			[]string{"op", "device", "result"}, nil,
		),
		sequenceDurationDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sequence", "last_duration_seconds"),
			"Duration of the last operation of each kind",
			[]string{"op"}, nil,
		),
		lastSequenceDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_sequence_timestamp"),
			"Timestamp of the last finished operation",
			nil, nil,
		),
		deviceReachableDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "device", "reachable"),
			"Whether the device answered at the last refresh (1 = yes)",
			[]string{"device"}, nil,
		),
		deviceActiveAppDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "device", "active_app"),
			"Foreground app id of the device (0 = none or unknown)",
			[]string{"device", "app", "show"}, nil,
		),
		pendingEventsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "pending_events"),
			"Input events waiting for the loop",
			nil, nil,
		),
	}
}

// SetStateSource exports device state read from src at scrape time.
func (c *Collector) SetStateSource(src StateSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = src
}

// SetPendingFunc exports the scheduler queue depth.
func (c *Collector) SetPendingFunc(f func() int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = f
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.commandsTotalDesc
	ch <- c.commandAttemptsDesc
	ch <- c.sequencesTotalDesc
	ch <- c.sequenceDurationDesc
	ch <- c.lastSequenceDesc
	ch <- c.deviceReachableDesc
	ch <- c.deviceActiveAppDesc
	ch <- c.pendingEventsDesc
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.commands {
		ch <- prometheus.MustNewConstMetric(c.commandsTotalDesc, prometheus.CounterValue, v, k.device, k.kind, k.result)
	}
	for device, v := range c.attempts {
		ch <- prometheus.MustNewConstMetric(c.commandAttemptsDesc, prometheus.CounterValue, v, device)
	}
	for k, v := range c.sequences {
		ch <- prometheus.MustNewConstMetric(c.sequencesTotalDesc, prometheus.CounterValue, v, k.op, k.device, k.result)
	}
	for op, v := range c.durations {
		ch <- prometheus.MustNewConstMetric(c.sequenceDurationDesc, prometheus.GaugeValue, v, op)
	}
	if !c.lastSeq.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastSequenceDesc, prometheus.GaugeValue, float64(c.lastSeq.Unix()))
	}

	if c.states != nil {
		for _, s := range c.states.Snapshot() {
			reachable := 0.0
			if s.Reachable {
				reachable = 1
			}
			ch <- prometheus.MustNewConstMetric(c.deviceReachableDesc, prometheus.GaugeValue, reachable, s.Name)
			ch <- prometheus.MustNewConstMetric(c.deviceActiveAppDesc, prometheus.GaugeValue,
				float64(s.ActiveApp), s.Name, s.AppName(), s.Show)
		}
	}
	if c.pending != nil {
		ch <- prometheus.MustNewConstMetric(c.pendingEventsDesc, prometheus.GaugeValue, float64(c.pending()))
	}
}

// ObserveCommand implements ecp.Observer.
func (c *Collector) ObserveCommand(address string, cmd ecp.Command, attempts int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	device := c.device(address)
	c.commands[commandKey{device: device, kind: commandKind(cmd), result: commandResult(err)}]++
	c.attempts[device] += float64(attempts)
}

// ObserveSequence implements sequencer.Observer.
func (c *Collector) ObserveSequence(op, device string, d time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sequences[sequenceKey{op: op, device: device, result: sequenceResult(err)}]++
	c.durations[op] = d.Seconds()
	c.lastSeq = time.Now()
}

func (c *Collector) device(address string) string {
	if name, ok := c.names[address]; ok {
		return name
	}
	return address
}

func commandKind(cmd ecp.Command) string {
	switch {
	case cmd.IsQuery():
		return strings.TrimPrefix(cmd.Path, "query/")
	case cmd.IsLaunch():
		return "launch"
	case cmd.IsLiteral():
		return "literal"
	default:
		return "keypress"
	}
}

func commandResult(err error) string {
	if err == nil {
		return "ok"
	}
	var te *ecp.TransportError
	if errors.As(err, &te) {
		return strings.ReplaceAll(strings.ToLower(te.Type.String()), " ", "_")
	}
	return "error"
}

func sequenceResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sequencer.ErrUnreachable):
		return "unreachable"
	case errors.Is(err, sequencer.ErrConfirmationTimeout):
		return "unconfirmed"
	case errors.Is(err, sequencer.ErrUnknownDevice), errors.Is(err, sequencer.ErrUnknownShow):
		return "rejected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
