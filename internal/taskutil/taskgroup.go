package taskutil

import (
	"context"
	"fmt"
	"sync"
)

// TaskGroup provides sync.WaitGroup-like functionality, with the following
// differences:
//
//  1. Tasks are named, added one at a time with [TaskGroup.Add]
//  2. TaskGroups are hierarchical, with subgroups that can be separately
//     waited on (the server tracks its in-flight connection handlers in a
//     root TaskGroup of its own)
//  3. [TaskGroup.Wait] returns a channel, so it can be selected over
//     alongside a listener's accept loop or a shutdown signal
//  4. The set of running tasks can be inspected with [TaskGroup.Tasks],
//     [TaskGroup.Subgroups], or [TaskGroup.TaskTree] — useful when a
//     shutdown is taking longer than expected and it's not obvious which
//     connection handler is still running
//  5. More tasks may be added after all have previously completed
//
// Other than those, the general idea should be familiar from sync.WaitGroup.
type TaskGroup struct {
	mu             sync.Mutex
	parent         *TaskGroup
	idInParent     subgroupID
	name           string
	count          uint
	allDone        chan struct{}
	tasks          map[string]uint
	subgroups      map[subgroupID]*TaskGroup
	nextSubgroupID subgroupID
}

// TaskTree represents the structure of unfinished tasks in a TaskGroup,
// returned by [TaskGroup.TaskTree].
type TaskTree struct {
	Name      string     `json:"name"`
	Tasks     []TaskInfo `json:"tasks"`
	Subgroups []TaskTree `json:"subgroups"`
}

type subgroupID uint64

func (g *TaskGroup) initialize() {
	if g.tasks == nil {
		g.tasks = make(map[string]uint)
		g.subgroups = make(map[subgroupID]*TaskGroup)
	}
}

// NewTaskGroup creates a new TaskGroup with the given name.
func NewTaskGroup(name string) *TaskGroup {
	return &TaskGroup{name: name}
}

// Name returns the name of the TaskGroup, as constructed via [NewTaskGroup]
// or [TaskGroup.NewSubgroup].
func (g *TaskGroup) Name() string {
	return g.name
}

// NewSubgroup creates a new TaskGroup that is contained within g.
//
// Waiting on the parent TaskGroup will not complete if the child TaskGroup
// has unfinished tasks.
func (g *TaskGroup) NewSubgroup(name string) *TaskGroup {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialize()

	id := g.nextSubgroupID
	g.nextSubgroupID++
	return &TaskGroup{
		parent:     g,
		idInParent: id,
		name:       name,
	}
}

// Add adds a task with the given name to the TaskGroup. Add may be called
// multiple times with the same name, in which case multiple instances of
// that task are counted separately.
//
// Waiting on the TaskGroup will not complete until there is exactly one call
// to [TaskGroup.Done] with a matching name for each call to Add.
func (g *TaskGroup) Add(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialize()

	g.count++
	g.tasks[name]++
	g.rectifyAdded()
}

func (g *TaskGroup) rectifyAdded() {
	if g.count+uint(len(g.subgroups)) == 1 && g.parent != nil {
		g.parent.mu.Lock()
		defer g.parent.mu.Unlock()

		g.parent.subgroups[g.idInParent] = g
		g.parent.rectifyAdded()
	}
}

// Done marks a task with the given name as completed.
//
// Done panics if there are no remaining tasks with that name — this is a
// programmer error (an unbalanced Add/Done pair), not a runtime condition
// callers should recover from.
func (g *TaskGroup) Done(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialize()

	c := g.tasks[name]
	if c == 0 {
		panic(fmt.Sprintf("taskutil: zero remaining tasks with name %q", name))
	}

	c--
	if c == 0 {
		delete(g.tasks, name)
	} else {
		g.tasks[name] = c
	}

	g.count--
	g.rectifyDone()
}

func (g *TaskGroup) rectifyDone() {
	if g.count+uint(len(g.subgroups)) == 0 {
		if g.allDone != nil {
			close(g.allDone)
			g.allDone = nil
		}

		if g.parent != nil {
			g.parent.mu.Lock()
			defer g.parent.mu.Unlock()

			delete(g.parent.subgroups, g.idInParent)
			g.parent.rectifyDone()
		}
	}
}

// Wait returns a channel that is closed once all tasks have been completed
// with [TaskGroup.Done].
func (g *TaskGroup) Wait() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialize()

	if g.count == 0 && len(g.subgroups) == 0 {
		return alwaysClosed
	}

	if g.allDone == nil {
		g.allDone = make(chan struct{})
	}

	return g.allDone
}

// TryWait waits on the TaskGroup, returning early with ctx.Err() if the
// context is canceled first. The server's Stop calls it with a context that
// is never canceled, so shutdown waits for every in-flight connection
// handler to drain.
func (g *TaskGroup) TryWait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.Wait():
		return nil
	}
}

// Finished reports whether all tasks are finished, i.e. whether Wait would
// return immediately.
func (g *TaskGroup) Finished() bool {
	return isClosed(g.Wait())
}

// TaskInfo describes a set of tasks sharing a name, as returned by
// [TaskGroup.Tasks] or [TaskGroup.TaskTree].
type TaskInfo struct {
	Name string `json:"name"`
	// Count is the number of running tasks named Name. Never zero when
	// returned by Tasks or TaskTree.
	Count uint `json:"count"`
}

// Tasks returns information about the set of currently running tasks. It
// does not recurse into subgroups.
func (g *TaskGroup) Tasks() []TaskInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tasks == nil {
		return nil
	}

	var ts []TaskInfo
	for name, count := range g.tasks {
		ts = append(ts, TaskInfo{Name: name, Count: count})
	}
	return ts
}

// Subgroups returns the set of TaskGroups that currently have running
// tasks. Between calling Subgroups and calling a method on the result, some
// or all of them may have finished.
func (g *TaskGroup) Subgroups() []*TaskGroup {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.subgroups == nil {
		return nil
	}

	var sgs []*TaskGroup
	for _, sg := range g.subgroups {
		sgs = append(sgs, sg)
	}
	return sgs
}

// TaskTree returns a snapshot of all running tasks and subgroups.
//
// This is meant for runtime diagnostics — e.g. logging exactly which
// connection handlers are still running when a shutdown is taking longer
// than expected — not for correctness-critical decisions, since the result
// may not correspond to any single point in time under concurrent mutation.
func (g *TaskGroup) TaskTree() TaskTree {
	g.mu.Lock()

	var tasks []TaskInfo
	for name, count := range g.tasks {
		tasks = append(tasks, TaskInfo{Name: name, Count: count})
	}

	var sgs []*TaskGroup
	for _, sg := range g.subgroups {
		sgs = append(sgs, sg)
	}

	// Unlock before recursing into subgroups; otherwise concurrent
	// Add/Done calls on a descendant could deadlock against us.
	g.mu.Unlock()

	var subgroups []TaskTree
	for _, sg := range sgs {
		t := sg.TaskTree()
		if len(t.Tasks) != 0 || len(t.Subgroups) != 0 {
			subgroups = append(subgroups, t)
		}
	}

	return TaskTree{
		Name:      g.name,
		Tasks:     tasks,
		Subgroups: subgroups,
	}
}
