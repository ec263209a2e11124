/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package health

import (
	"sync"
	"sync/atomic"
	"time"

	huuid "github.com/hashicorp/go-uuid"
)

type entry struct {
	id        string
	state     atomic.Uint32
	lastProbe atomic.Int64 // unix nano
	lastMs    atomic.Int64
	seen      atomic.Bool // reset each GC sweep, set on every Ensure
}

func newEntry() *entry {
	id, err := huuid.GenerateUUID()
	if err != nil {
		id = ""
	}
	return &entry{id: id}
}

// Snapshot is a point-in-time read of one address's health entry. ID
// identifies the entry instance itself (not the address): it changes when
// an address is purged and later re-Ensure'd, letting log correlation
// distinguish a renewed entry from one that was continuously tracked.
type Snapshot struct {
	ID          string
	Address     string
	State       State
	LastProbeAt time.Time
	LastLatency time.Duration
}

// Registry holds one entry per backend address known to the current
// snapshot. Readers (the pipeline) read lock-free; the scheduler is the sole
// writer of state, though Ensure/Purge may run concurrently with reads since
// sync.Map tolerates concurrent access.
type Registry struct {
	m sync.Map // string -> *entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Ensure guarantees an entry exists for address, defaulting new entries to
// Unresponsive until the first probe completes. It also marks the entry as
// seen for the next Purge sweep.
func (r *Registry) Ensure(address string) {
	v, _ := r.m.LoadOrStore(address, newEntry())
	v.(*entry).seen.Store(true)
}

// Purge removes entries that were not Ensure'd since the last call to
// ResetSeen, i.e. addresses that disappeared from the snapshot more than one
// probe cycle ago.
func (r *Registry) Purge() {
	r.m.Range(func(k, v any) bool {
		e := v.(*entry)
		if !e.seen.Load() {
			r.m.Delete(k)
		}
		return true
	})
}

// ResetSeen clears the seen flag on every entry; call once per probe cycle
// before re-Ensure-ing every address in the current snapshot.
func (r *Registry) ResetSeen() {
	r.m.Range(func(_, v any) bool {
		v.(*entry).seen.Store(false)
		return true
	})
}

func (r *Registry) Set(address string, st State, latency time.Duration, at time.Time) {
	v, _ := r.m.LoadOrStore(address, newEntry())
	e := v.(*entry)
	e.state.Store(uint32(st))
	e.lastProbe.Store(at.UnixNano())
	e.lastMs.Store(latency.Milliseconds())
}

func (r *Registry) Get(address string) (Snapshot, bool) {
	v, ok := r.m.Load(address)
	if !ok {
		return Snapshot{}, false
	}
	e := v.(*entry)
	return Snapshot{
		ID:          e.id,
		Address:     address,
		State:       State(e.state.Load()),
		LastProbeAt: time.Unix(0, e.lastProbe.Load()),
		LastLatency: time.Duration(e.lastMs.Load()) * time.Millisecond,
	}, true
}

// Filter splits addresses by state, returning the Healthy subset and, if
// that is empty, the Slow subset; per §4.2 of the pipeline, Unresponsive
// addresses are never returned.
func (r *Registry) Filter(addresses []string) []string {
	healthy := make([]string, 0, len(addresses))
	slow := make([]string, 0, len(addresses))

	for _, a := range addresses {
		snap, ok := r.Get(a)
		if !ok {
			continue
		}
		switch snap.State {
		case Healthy:
			healthy = append(healthy, a)
		case Slow:
			slow = append(slow, a)
		}
	}

	if len(healthy) > 0 {
		return healthy
	}
	return slow
}
