package carousel

import (
	"github.com/sat-broadcast/satrecv/internal/filesvc"
	"github.com/sat-broadcast/satrecv/internal/metrics"
)

// decodeResult carries a completed background decode back to the owning
// goroutine for application against live tracker state.
type decodeResult struct {
	key       Key
	ann       filesvc.Announcement
	recovered map[int][]byte
	received  map[uint32][]byte
	ok        bool
}

// startAsyncDecode snapshots the assembly and hands it to a worker
// goroutine, satisfying the snapshot/replay/happens-once contract: the
// snapshot is immutable, blocks arriving while decoding is in flight are
// queued on fa.replayed instead of mutating the snapshot, and the result
// is only ever applied once by the owning goroutine via Drain. Caller
// holds t.mu.
func (t *Tracker) startAsyncDecode(key Key, fa *assembly) {
	fa.decoding = true
	snapshot := &assembly{ann: fa.ann, hasAnn: true, received: copyReceived(fa.received)}

	go func() {
		recovered, ok := decode(snapshot)
		t.decodeDone <- decodeResult{
			key:       key,
			ann:       snapshot.ann,
			recovered: recovered,
			received:  snapshot.received,
			ok:        ok,
		}
	}()
}

func copyReceived(in map[uint32][]byte) map[uint32][]byte {
	out := make(map[uint32][]byte, len(in))
	for idx, payload := range in {
		out[idx] = payload
	}
	return out
}

// Drain applies any background decode results that have completed,
// re-admitting blocks that arrived while the decode was in flight. It is
// a no-op unless async decode is enabled. Callers running the live
// pipeline should call it once per frame alongside dispatch, so decode
// completions are folded into tracker state on the owning goroutine only.
func (t *Tracker) Drain() {
	for {
		select {
		case res := <-t.decodeDone:
			t.applyDecodeResult(res)
		default:
			return
		}
	}
}

func (t *Tracker) applyDecodeResult(res decodeResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fa, exists := t.assemblies[res.key]
	if !exists {
		return // evicted or superseded while decoding
	}
	replayed := fa.replayed
	fa.replayed = nil
	fa.decoding = false

	if res.ok {
		metrics.IncCompletedFEC()
		metrics.AddRecovered(len(res.recovered))
		t.finish(res.key, fa, mergeSystematic(res.received, res.recovered))
		// Any blocks replayed during decode belonged to a now-retired
		// generation; they were superseded by a successful completion.
		return
	}

	metrics.IncInsufficient()
	for _, b := range replayed {
		t.admitBlock(fa, b)
	}
	t.touch(res.key, fa)
	t.checkCompletion(res.key, fa)
}
