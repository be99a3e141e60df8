// Package carousel is the central reassembler: it tracks in-flight file
// transmissions keyed by (carousel id, file id), admits announcements and
// blocks in either order, drives the outer erasure decoder on completion,
// and hands finished files to a sink.
//
// It keeps one mutex-guarded map of assemblies, a least-recently-touched
// eviction policy enforced on every insert, an optional idle age-out that
// callers drive through AgeOut, and counters for everything that gets
// dropped.
package carousel

import (
	"container/list"
	"sync"
	"time"

	"github.com/sat-broadcast/satrecv/internal/filesvc"
	"github.com/sat-broadcast/satrecv/internal/ldpc"
	"github.com/sat-broadcast/satrecv/internal/logging"
	"github.com/sat-broadcast/satrecv/internal/metrics"
)

// Key identifies a transmission within a carousel.
type Key struct {
	CarouselID uint32
	FileID     uint32
}

// Sink receives completed files.
type Sink interface {
	Emit(name string, data []byte) error
}

// Tracker is the carousel/file reassembler. The zero value is not usable;
// construct with New.
type Tracker struct {
	mu            sync.Mutex
	assemblies    map[Key]*assembly
	lru           *list.List // front = most recently touched
	elems         map[Key]*list.Element
	orphans       []orphanBlock
	sink          Sink
	maxAssemblies int
	maxOrphans    int
	ageOut        time.Duration // 0 disables age-out
	asyncDecode   bool

	decodeDone chan decodeResult
}

type orphanBlock struct {
	key   Key
	block filesvc.Block
}

type assembly struct {
	key        Key
	ann        filesvc.Announcement
	hasAnn     bool
	completed  bool // file already emitted for this generation; retained to suppress re-emission
	received   map[uint32][]byte
	createdAt  time.Time
	lastTouch  time.Time
	decoding   bool
	replayed   []filesvc.Block // blocks that arrived while a decode was in flight
}

// Option configures a Tracker at construction time.
type Option func(*Tracker)

// WithMaxAssemblies bounds the number of concurrent in-flight files; the
// least-recently-touched assembly is evicted on overflow. Default 256.
func WithMaxAssemblies(n int) Option { return func(t *Tracker) { t.maxAssemblies = n } }

// WithMaxOrphans bounds the orphan-block FIFO; oldest entries are dropped
// on overflow. Default 1024.
func WithMaxOrphans(n int) Option { return func(t *Tracker) { t.maxOrphans = n } }

// WithAgeOut discards assemblies idle longer than d. Zero (the default)
// disables age-out, matching long-running carousels that repeat for hours.
func WithAgeOut(d time.Duration) Option { return func(t *Tracker) { t.ageOut = d } }

// WithAsyncDecode offloads LDPC recovery to a worker goroutine once a FEC
// completion condition is met, per the snapshot/replay/happens-once
// contract: the assembly is snapshotted before hand-off, blocks arriving
// during decode are buffered and replayed against a fresh assembly if
// decode fails, and each file emits at most once.
func WithAsyncDecode(enabled bool) Option { return func(t *Tracker) { t.asyncDecode = enabled } }

// New constructs a Tracker that delivers completed files to sink.
func New(sink Sink, opts ...Option) *Tracker {
	t := &Tracker{
		assemblies:    make(map[Key]*assembly),
		lru:           list.New(),
		elems:         make(map[Key]*list.Element),
		sink:          sink,
		maxAssemblies: 256,
		maxOrphans:    1024,
		decodeDone:    make(chan decodeResult, 8),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) touch(key Key, a *assembly) {
	a.lastTouch = time.Now()
	if e, ok := t.elems[key]; ok {
		t.lru.MoveToFront(e)
		return
	}
	t.elems[key] = t.lru.PushFront(key)
}

func (t *Tracker) evictIfOverflow() {
	for len(t.assemblies) > t.maxAssemblies {
		back := t.lru.Back()
		if back == nil {
			return
		}
		key := back.Value.(Key)
		t.lru.Remove(back)
		delete(t.elems, key)
		delete(t.assemblies, key)
		metrics.IncEvicted()
		metrics.SetAssembliesActive(len(t.assemblies))
	}
}

// AgeOut discards assemblies that have seen no activity for longer than
// the configured interval. It is a no-op when age-out is disabled; callers
// running the live pipeline should invoke it periodically (e.g. from a
// ticker) since the reassembler itself never blocks to schedule one.
func (t *Tracker) AgeOut() {
	if t.ageOut <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-t.ageOut)
	for key, a := range t.assemblies {
		if a.lastTouch.Before(cutoff) {
			if e, ok := t.elems[key]; ok {
				t.lru.Remove(e)
				delete(t.elems, key)
			}
			delete(t.assemblies, key)
			metrics.IncEvicted()
		}
	}
	metrics.SetAssembliesActive(len(t.assemblies))
}

// OnAnnouncement admits or updates the descriptor for a transmission,
// retroactively adopting any buffered orphan blocks for that key.
func (t *Tracker) OnAnnouncement(a filesvc.Announcement) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key{CarouselID: a.CarouselID, FileID: a.FileID}
	metrics.IncAnnouncementsSeen()

	fa, exists := t.assemblies[key]
	switch {
	case !exists:
		fa = &assembly{key: key, createdAt: time.Now(), received: make(map[uint32][]byte)}
		t.assemblies[key] = fa
		t.evictIfOverflow()
	case !compatible(fa.ann, a):
		logging.L().Info("file announcement changed, starting new generation",
			"carousel_id", a.CarouselID, "file_id", a.FileID)
		fa.received = make(map[uint32][]byte)
		fa.completed = false
	}
	fa.ann = a
	fa.hasAnn = true
	t.touch(key, fa)
	if fa.completed {
		// Same generation repeating after its file was already emitted;
		// nothing left to reassemble (§8: at most one emission per key).
		return
	}
	t.adoptOrphans(key, fa)
	t.checkCompletion(key, fa)
}

// compatible reports whether a repeated announcement describes the same
// generation of a transmission (§4.6: block size and total count must
// match for already-received blocks to remain valid).
func compatible(prev, next filesvc.Announcement) bool {
	if prev.TotalBlocks == 0 && prev.Systematic == 0 {
		return true // no previous announcement, nothing to conflict with
	}
	return prev.TotalBlocks == next.TotalBlocks &&
		prev.Systematic == next.Systematic &&
		prev.BlockSize == next.BlockSize
}

func (t *Tracker) adoptOrphans(key Key, fa *assembly) {
	if len(t.orphans) == 0 {
		return
	}
	kept := t.orphans[:0]
	for _, o := range t.orphans {
		if o.key == key {
			t.admitBlock(fa, o.block)
			continue
		}
		kept = append(kept, o)
	}
	t.orphans = kept
}

// OnBlock admits a data fragment, buffering it as an orphan when no
// announcement has been seen yet for its key.
func (t *Tracker) OnBlock(b filesvc.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key{CarouselID: b.CarouselID, FileID: b.FileID}
	fa, exists := t.assemblies[key]
	if !exists || !fa.hasAnn {
		t.bufferOrphan(key, fa, b)
		return
	}
	if fa.completed {
		// Carousel repeat of an already-emitted file; drop (§8: at most
		// one emission per key).
		metrics.IncDuplicate()
		t.touch(key, fa)
		return
	}
	if fa.decoding {
		fa.replayed = append(fa.replayed, b)
		return
	}
	if fa.hasAnn && b.Index >= uint32(fa.ann.TotalBlocks) {
		metrics.IncMalformed()
		return
	}
	t.admitBlock(fa, b)
	t.touch(key, fa)
	t.checkCompletion(key, fa)
}

func (t *Tracker) bufferOrphan(key Key, fa *assembly, b filesvc.Block) {
	if len(t.orphans) >= t.maxOrphans {
		t.orphans = t.orphans[1:]
		metrics.IncOrphanDropped()
	}
	t.orphans = append(t.orphans, orphanBlock{key: key, block: b})
	metrics.IncOrphanBuffered()
	if fa == nil {
		fa = &assembly{key: key, createdAt: time.Now(), received: make(map[uint32][]byte)}
		t.assemblies[key] = fa
		t.evictIfOverflow()
	}
	t.touch(key, fa)
}

func (t *Tracker) admitBlock(fa *assembly, b filesvc.Block) {
	existing, had := fa.received[b.Index]
	switch {
	case had && bytesEqual(existing, b.Payload):
		metrics.IncDuplicate()
		return
	case had:
		metrics.IncConflict() // last write wins
	}
	fa.received[b.Index] = b.Payload
	metrics.SetAssembliesActive(len(t.assemblies))
	logging.L().Debug("block received", "carousel_id", fa.key.CarouselID, "file_id", fa.key.FileID,
		"received", len(fa.received), "needed", fa.ann.Systematic, "total", fa.ann.TotalBlocks)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkCompletion tests the fast and FEC completion paths; caller holds t.mu.
func (t *Tracker) checkCompletion(key Key, fa *assembly) {
	if !fa.hasAnn || fa.decoding || fa.completed {
		return
	}
	k := int(fa.ann.Systematic)

	complete := true
	for i := 0; i < k; i++ {
		if _, ok := fa.received[uint32(i)]; !ok {
			complete = false
			break
		}
	}
	if complete {
		metrics.IncCompletedFast()
		t.finish(key, fa, fa.received)
		return
	}

	if len(fa.received) < k {
		return // not enough blocks on hand for any FEC path yet
	}

	if t.asyncDecode {
		t.startAsyncDecode(key, fa)
		return
	}
	t.synchronousDecode(key, fa)
}

func (t *Tracker) synchronousDecode(key Key, fa *assembly) {
	recovered, ok := decode(fa)
	if !ok {
		metrics.IncInsufficient()
		return
	}
	merged := mergeSystematic(fa.received, recovered)
	metrics.IncCompletedFEC()
	metrics.AddRecovered(len(recovered))
	t.finish(key, fa, merged)
}

func decode(fa *assembly) (map[int][]byte, bool) {
	code := ldpc.SelectCode(int(fa.ann.Systematic), int(fa.ann.TotalBlocks), fa.ann.CodeID)
	received := make(map[int][]byte, len(fa.received))
	for idx, payload := range fa.received {
		received[int(idx)] = payload
	}
	recovered, err := ldpc.Decode(code, received, int(fa.ann.BlockSize))
	if err != nil {
		return nil, false
	}
	return recovered, true
}

func mergeSystematic(received map[uint32][]byte, recovered map[int][]byte) map[uint32][]byte {
	out := make(map[uint32][]byte, len(received)+len(recovered))
	for idx, payload := range received {
		out[idx] = payload
	}
	for idx, payload := range recovered {
		out[uint32(idx)] = payload
	}
	return out
}

// finish concatenates the systematic blocks, truncates to the announced
// file length, emits, and marks the assembly completed. Caller holds t.mu.
//
// The assembly is retained rather than deleted: a carousel repeats its
// announcement and blocks for the same (carousel, file) key as a matter of
// course, and without a completed marker that repeat would be reassembled
// and emitted again, violating the at-most-one-emission-per-key property
// (§8). The retained entry still counts against maxAssemblies and still
// ages out like any other, so it does not pin memory indefinitely; its
// received-block payloads are dropped immediately since they are no longer
// needed once emitted.
func (t *Tracker) finish(key Key, fa *assembly, blocks map[uint32][]byte) {
	k := int(fa.ann.Systematic)
	buf := make([]byte, 0, int(fa.ann.FileLength))
	for i := 0; i < k; i++ {
		buf = append(buf, blocks[uint32(i)]...)
	}
	if uint64(len(buf)) > fa.ann.FileLength {
		buf = buf[:fa.ann.FileLength]
	}

	fa.completed = true
	fa.received = nil
	fa.replayed = nil
	t.touch(key, fa)

	name := fa.ann.FileName
	if err := t.sink.Emit(name, buf); err != nil {
		metrics.IncOutputError()
		logging.L().Error("file emit failed", "file", name, "error", err)
		return
	}
	logging.L().Info("file completed", "carousel_id", key.CarouselID, "file_id", key.FileID,
		"name", name, "bytes", len(buf))
}

// Len reports the number of distinct carousel ids currently tracked
// (in-flight or completed-but-retained), for external introspection such as
// an mDNS TXT record.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := make(map[uint32]struct{}, len(t.assemblies))
	for key := range t.assemblies {
		seen[key.CarouselID] = struct{}{}
	}
	return len(seen)
}
