package simnet

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// TraceEntry records one delivery or drop.
type TraceEntry struct {
	At      time.Duration `json:"at"`
	From    Address       `json:"from"`
	To      Address       `json:"to"`
	Dropped bool          `json:"dropped,omitempty"`
	Msg     Message       `json:"msg"`
}

// Trace is the append-only record of everything the network carried. If we
// record all the messages we deliver then a run can be audited after the
// fact.
type Trace struct {
	mtx *sync.Mutex
	Log []TraceEntry
}

func NewTrace() *Trace {
	return &Trace{mtx: &sync.Mutex{}}
}

func (t *Trace) Append(e TraceEntry) {
	t.mtx.Lock()
	t.Log = append(t.Log, e)
	t.mtx.Unlock()
}

func (t *Trace) List() []TraceEntry {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	es := make([]TraceEntry, len(t.Log))
	copy(es, t.Log)
	return es
}

// WriteTo dumps the trace as a json stream, one entry per line.
func (t *Trace) WriteTo(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, e := range t.List() {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
