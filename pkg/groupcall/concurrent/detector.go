package concurrent

import (
	"sort"
	"sync"
	"time"

	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

// Detect silent members by verifying how long it
// has been since each member was last heard of.
type Detector struct {
	mutex   *sync.Mutex
	timeout time.Duration
	mem     map[types.Address]time.Time
}

func NewDetector(timeout time.Duration) *Detector {
	return &Detector{
		mutex:   &sync.Mutex{},
		timeout: timeout,
		mem:     make(map[types.Address]time.Time),
	}
}

// Reset the detector cleaning the old saved times.
func (d *Detector) Reset() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.mem = make(map[types.Address]time.Time)
}

// Record that the member was heard of now. If the member was
// tracked before, verify if it exceeded the timeout since the
// last time.
// Returns true if the member still in a valid timeout duration,
// false and by how much if the member exceeded the timeout.
func (d *Detector) Happened(member types.Address) (bool, time.Duration) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	ok := true
	now := time.Now()
	exceed := time.Duration(0)

	if old, happened := d.mem[member]; happened {
		exceed = now.Sub(old) - d.timeout
		if exceed > 0 {
			ok = false
		}
	}
	d.mem[member] = now
	return ok, exceed
}

// Track only the given members. Members not tracked before
// start counting from now, the others keep their last time.
func (d *Detector) Track(members []types.Address) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	now := time.Now()
	mem := make(map[types.Address]time.Time, len(members))
	for _, member := range members {
		if last, ok := d.mem[member]; ok {
			mem[member] = last
			continue
		}
		mem[member] = now
	}
	d.mem = mem
}

// Stop tracking the member.
func (d *Detector) Forget(member types.Address) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	delete(d.mem, member)
}

// Members silent for longer than the timeout, sorted by name.
// A member is reported on every call until heard of again.
func (d *Detector) Expired() []types.Address {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	var expired []types.Address
	now := time.Now()
	for member, last := range d.mem {
		if now.Sub(last) > d.timeout {
			expired = append(expired, member)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].String() < expired[j].String()
	})
	return expired
}
