package reactive

// Dep is the subscriber set of a single (target, key) pair. Subscribers are
// kept in registration order, and version is bumped every time the pair is
// triggered so lazy readers can tell whether anything moved since they last
// looked.
type Dep struct {
	key      string
	version  uint64
	subs     []subscriber
	computed refresher
}

type refresher interface {
	refresh()
}

// Key returns the key this dep tracks on its target.
func (d *Dep) Key() string {
	return d.key
}

// Version returns how many times the pair has been triggered.
func (d *Dep) Version() uint64 {
	return d.version
}

// Len returns the number of live subscribers.
func (d *Dep) Len() int {
	return len(d.subs)
}

func (d *Dep) add(sub subscriber) {
	for _, s := range d.subs {
		if s == sub {
			return
		}
	}
	d.subs = append(d.subs, sub)
}

func (d *Dep) remove(sub subscriber) {
	for i, s := range d.subs {
		if s == sub {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// Target is anything that owns a per-key dependency table. Embed Observable
// to make a type trackable.
type Target interface {
	depFor(key string, create bool) *Dep
}

// Observable is an embeddable per-key dependency table.
type Observable struct {
	deps map[string]*Dep
}

func (o *Observable) depFor(key string, create bool) *Dep {
	if d, ok := o.deps[key]; ok {
		return d
	}
	if !create {
		return nil
	}
	if o.deps == nil {
		o.deps = make(map[string]*Dep)
	}
	d := &Dep{key: key}
	o.deps[key] = d
	return d
}

// Dep returns the dependency for key, or nil when nothing ever tracked it.
func (o *Observable) Dep(key string) *Dep {
	return o.depFor(key, false)
}

// Track records that the active computation read key on target. Reads made
// outside a tracking scope are ignored.
func (rs *ReactiveSystem) Track(target Target, key string) {
	if rs.activeSub == nil {
		return
	}
	rs.track(target.depFor(key, true))
}

func (rs *ReactiveSystem) track(dep *Dep) {
	sub := rs.activeSub
	if sub == nil || sub.flags()&fStopped != 0 {
		return
	}
	if sub.base().record(dep) {
		dep.add(sub)
	}
}

// Trigger notifies every computation that depends on key of target.
func (rs *ReactiveSystem) Trigger(target Target, key string) {
	dep := target.depFor(key, false)
	if dep == nil {
		return
	}
	rs.trigger(dep, true)
}

// trigger snapshots the live subscriber set, clears it, and invokes each
// snapshot member once. Subscribers that re-register while the pass is running
// land in the fresh set and are not invoked again by this pass. bump is false
// when a computed only propagates that it may have changed.
func (rs *ReactiveSystem) trigger(dep *Dep, bump bool) {
	if bump {
		dep.version++
	}
	if len(dep.subs) == 0 {
		return
	}
	subs := dep.subs
	dep.subs = nil

	rs.StartBatch()
	defer rs.EndBatch()
	for _, sub := range subs {
		if sub.flags()&(fTracking|fStopped) != 0 {
			// a running computation does not invalidate itself
			if sub.flags()&fStopped == 0 {
				dep.add(sub)
			}
			continue
		}
		rs.notifyGuarded(sub)
	}
}

// notifyGuarded invalidates one subscriber. A panic escaping it is reported to
// the error sink so the remaining subscribers of the pass still run.
func (rs *ReactiveSystem) notifyGuarded(sub subscriber) {
	defer func() {
		if r := recover(); r != nil {
			rs.Report(sub, NewPanicError("reactive.trigger", r))
		}
	}()
	sub.notify()
}
