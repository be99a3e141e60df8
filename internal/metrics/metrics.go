package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/sat-broadcast/satrecv/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_rx_total",
		Help: "Total link frames accepted by the link frame parser.",
	})
	FramesShort = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_short_total",
		Help: "Total frames dropped for being below the minimum length.",
	})
	FramesBadCRC = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_bad_crc_total",
		Help: "Total frames dropped for a bad outer CRC16.",
	})
	ServiceUnknown = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "service_unknown_total",
		Help: "Total frames routed to an undocumented service id.",
	}, []string{"service_id"})
	TimeEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "time_events_total",
		Help: "Total time beacons decoded.",
	})
	RecordsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "records_malformed_total",
		Help: "Total file-service records dropped for malformed encoding.",
	})
	AnnouncementsSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "announcements_total",
		Help: "Total announcement records admitted by the tracker.",
	})
	BlocksIntegrityFail = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blocks_integrity_fail_total",
		Help: "Total blocks dropped for a bad inner CRC.",
	})
	BlocksDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blocks_duplicate_total",
		Help: "Total blocks dropped as exact duplicates of a stored block.",
	})
	BlocksConflict = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blocks_conflict_total",
		Help: "Total blocks that disagreed with an already-stored block at the same index.",
	})
	OrphanBlocksBuffered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orphan_blocks_buffered_total",
		Help: "Total blocks buffered before their announcement was seen.",
	})
	OrphanBlocksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orphan_blocks_dropped_total",
		Help: "Total orphan blocks evicted from the bounded orphan buffer.",
	})
	AssembliesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assemblies_evicted_total",
		Help: "Total in-flight assemblies evicted (LRU cap or age-out).",
	})
	AssembliesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assemblies_active",
		Help: "Current number of in-flight file assemblies.",
	})
	FilesCompletedFast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "files_completed_fast_total",
		Help: "Total files completed via the fast path (all systematic blocks present).",
	})
	FilesCompletedFEC = promauto.NewCounter(prometheus.CounterOpts{
		Name: "files_completed_fec_total",
		Help: "Total files completed via LDPC recovery of missing systematic blocks.",
	})
	LDPCInsufficient = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ldpc_insufficient_total",
		Help: "Total LDPC decode attempts that stalled without recovering all unknowns.",
	})
	LDPCRecoveredBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ldpc_recovered_blocks_total",
		Help: "Total systematic blocks recovered by the LDPC decoder.",
	})
	OutputErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "output_errors_total",
		Help: "Total file-write failures at emission time.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrTransport = "transport"
	ErrFraming   = "framing"
	ErrOutput    = "output"
)

// StartHTTP serves Prometheus metrics at /metrics on a fresh mux.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap in-process logging without scraping Prometheus.
var (
	localFramesRx       uint64
	localFramesShort    uint64
	localFramesBadCRC   uint64
	localTimeEvents     uint64
	localMalformed      uint64
	localIntegrityFail  uint64
	localDuplicate      uint64
	localConflict       uint64
	localOrphanBuffered uint64
	localOrphanDropped  uint64
	localEvicted        uint64
	localCompletedFast  uint64
	localCompletedFEC   uint64
	localInsufficient   uint64
	localRecovered      uint64
	localOutputErrors   uint64
	localErrors         uint64
)

// Snapshot is a cheap copy of local counters for periodic log lines.
type Snapshot struct {
	FramesRx       uint64
	FramesShort    uint64
	FramesBadCRC   uint64
	TimeEvents     uint64
	Malformed      uint64
	IntegrityFail  uint64
	Duplicate      uint64
	Conflict       uint64
	OrphanBuffered uint64
	OrphanDropped  uint64
	Evicted        uint64
	CompletedFast  uint64
	CompletedFEC   uint64
	Insufficient   uint64
	Recovered      uint64
	OutputErrors   uint64
	Errors         uint64
}

func Snap() Snapshot {
	return Snapshot{
		FramesRx:       atomic.LoadUint64(&localFramesRx),
		FramesShort:    atomic.LoadUint64(&localFramesShort),
		FramesBadCRC:   atomic.LoadUint64(&localFramesBadCRC),
		TimeEvents:     atomic.LoadUint64(&localTimeEvents),
		Malformed:      atomic.LoadUint64(&localMalformed),
		IntegrityFail:  atomic.LoadUint64(&localIntegrityFail),
		Duplicate:      atomic.LoadUint64(&localDuplicate),
		Conflict:       atomic.LoadUint64(&localConflict),
		OrphanBuffered: atomic.LoadUint64(&localOrphanBuffered),
		OrphanDropped:  atomic.LoadUint64(&localOrphanDropped),
		Evicted:        atomic.LoadUint64(&localEvicted),
		CompletedFast:  atomic.LoadUint64(&localCompletedFast),
		CompletedFEC:   atomic.LoadUint64(&localCompletedFEC),
		Insufficient:   atomic.LoadUint64(&localInsufficient),
		Recovered:      atomic.LoadUint64(&localRecovered),
		OutputErrors:   atomic.LoadUint64(&localOutputErrors),
		Errors:         atomic.LoadUint64(&localErrors),
	}
}

func IncFramesRx() {
	FramesRx.Inc()
	atomic.AddUint64(&localFramesRx, 1)
}

func IncFramesShort() {
	FramesShort.Inc()
	atomic.AddUint64(&localFramesShort, 1)
}

func IncFramesBadCRC() {
	FramesBadCRC.Inc()
	atomic.AddUint64(&localFramesBadCRC, 1)
}

func IncServiceUnknown(serviceID string) {
	ServiceUnknown.WithLabelValues(serviceID).Inc()
}

func IncTimeEvents() {
	TimeEvents.Inc()
	atomic.AddUint64(&localTimeEvents, 1)
}

func IncMalformed() {
	RecordsMalformed.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncAnnouncementsSeen() { AnnouncementsSeen.Inc() }

func IncIntegrityFail() {
	BlocksIntegrityFail.Inc()
	atomic.AddUint64(&localIntegrityFail, 1)
}

func IncDuplicate() {
	BlocksDuplicate.Inc()
	atomic.AddUint64(&localDuplicate, 1)
}

func IncConflict() {
	BlocksConflict.Inc()
	atomic.AddUint64(&localConflict, 1)
}

func IncOrphanBuffered() {
	OrphanBlocksBuffered.Inc()
	atomic.AddUint64(&localOrphanBuffered, 1)
}

func IncOrphanDropped() {
	OrphanBlocksDropped.Inc()
	atomic.AddUint64(&localOrphanDropped, 1)
}

func IncEvicted() {
	AssembliesEvicted.Inc()
	atomic.AddUint64(&localEvicted, 1)
}

func SetAssembliesActive(n int) { AssembliesActive.Set(float64(n)) }

func IncCompletedFast() {
	FilesCompletedFast.Inc()
	atomic.AddUint64(&localCompletedFast, 1)
}

func IncCompletedFEC() {
	FilesCompletedFEC.Inc()
	atomic.AddUint64(&localCompletedFEC, 1)
}

func IncInsufficient() {
	LDPCInsufficient.Inc()
	atomic.AddUint64(&localInsufficient, 1)
}

func AddRecovered(n int) {
	LDPCRecoveredBlocks.Add(float64(n))
	atomic.AddUint64(&localRecovered, uint64(n))
}

func IncOutputError() {
	OutputErrors.Inc()
	atomic.AddUint64(&localOutputErrors, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrTransport, ErrFraming, ErrOutput} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias for IsReady.
func Ready() bool { return IsReady() }
