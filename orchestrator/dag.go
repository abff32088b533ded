// Package orchestrator runs a set of dependent jobs under per-resource
// concurrency limits.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDependencyFailed is recorded on tasks that never ran because an
// upstream task failed.
var ErrDependencyFailed = errors.New("dependency failed")

// ResourceType represents a class of work sharing a concurrency limit
type ResourceType string

const (
	ResourceEncode ResourceType = "encode" // ffmpeg encode (sequential)
	ResourceProbe  ResourceType = "probe"  // ffprobe metadata queries (parallel)
	ResourceIO     ResourceType = "io"     // File I/O
)

// Job is a unit of work executed by the orchestrator.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a plain function to the Job interface.
type JobFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Task represents a unit of work with dependencies and resource requirements
type Task struct {
	ID           string
	Job          Job
	Dependencies []string // IDs of tasks that must complete before this one
	Resource     ResourceType
	Status       TaskStatus
	Error        error
	StartTime    time.Time
	EndTime      time.Time
}

// TaskStatus represents the current state of a task
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskReady              // Dependencies met, waiting for resource
	TaskRunning
	TaskCompleted
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ResourceConstraint defines limits for a resource type
type ResourceConstraint struct {
	Type     ResourceType
	MaxSlots int // Maximum concurrent tasks for this resource
}

// DAGOrchestrator manages task execution with dependencies and resource constraints
type DAGOrchestrator struct {
	tasks       map[string]*Task
	order       []string
	constraints map[ResourceType]*ResourceConstraint

	// Resource tracking
	activeSlots map[ResourceType]int
	slotsMutex  sync.Mutex

	tasksMutex sync.RWMutex
	completeCh chan string

	onProgress func(completed, total int, task *Task)
}

// NewDAGOrchestrator creates a new orchestrator with resource constraints
func NewDAGOrchestrator(constraints []ResourceConstraint) *DAGOrchestrator {
	constraintMap := make(map[ResourceType]*ResourceConstraint)
	for i := range constraints {
		constraintMap[constraints[i].Type] = &constraints[i]
	}

	return &DAGOrchestrator{
		tasks:       make(map[string]*Task),
		constraints: constraintMap,
		activeSlots: make(map[ResourceType]int),
	}
}

// AddTask adds a task to the orchestrator
func (o *DAGOrchestrator) AddTask(task *Task) error {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	if task.Job == nil {
		return fmt.Errorf("task %s has no job", task.ID)
	}
	if _, exists := o.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.Status = TaskPending
	o.tasks[task.ID] = task
	o.order = append(o.order, task.ID)
	return nil
}

// SetProgressCallback sets a callback for progress updates
func (o *DAGOrchestrator) SetProgressCallback(callback func(completed, total int, task *Task)) {
	o.onProgress = callback
}

// Execute runs all tasks respecting dependencies and resource constraints.
//
// Tasks are returned in completion order. A failing task does not make
// Execute fail; its dependents are marked failed with ErrDependencyFailed.
// When ctx is cancelled, tasks that have not started are marked failed with
// the context error and Execute returns that error once running tasks exit.
func (o *DAGOrchestrator) Execute(ctx context.Context) ([]*Task, error) {
	if err := o.validateDAG(); err != nil {
		return nil, err
	}

	totalTasks := len(o.tasks)
	if totalTasks == 0 {
		return nil, nil
	}

	// Every task reports exactly once, so a full buffer never blocks.
	o.completeCh = make(chan string, totalTasks)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.scheduler(ctx, &wg)
	}()

	finished := make([]*Task, 0, totalTasks)
	for len(finished) < totalTasks {
		taskID := <-o.completeCh

		o.tasksMutex.RLock()
		task := o.tasks[taskID]
		o.tasksMutex.RUnlock()

		finished = append(finished, task)
		if o.onProgress != nil {
			o.onProgress(len(finished), totalTasks, task)
		}
	}
	wg.Wait()

	return finished, ctx.Err()
}

// scheduler continuously checks for ready tasks and executes them
func (o *DAGOrchestrator) scheduler(ctx context.Context, wg *sync.WaitGroup) {
	for {
		if ctx.Err() != nil {
			o.abandonPending(ctx.Err())
			return
		}

		if o.allTasksCompleteOrBlocked() {
			return
		}

		for _, task := range o.getReadyTasks() {
			if !o.tryAcquireResource(task.Resource) {
				continue
			}

			o.tasksMutex.Lock()
			task.Status = TaskRunning
			task.StartTime = time.Now()
			o.tasksMutex.Unlock()

			wg.Add(1)
			go func(t *Task) {
				defer wg.Done()
				o.executeTask(ctx, t)
			}(task)
		}

		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// getReadyTasks returns tasks that are ready to execute, in insertion order
func (o *DAGOrchestrator) getReadyTasks() []*Task {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	ready := make([]*Task, 0)

	for _, id := range o.order {
		task := o.tasks[id]
		if task.Status == TaskPending && o.dependenciesMet(task) {
			task.Status = TaskReady
		}
		if task.Status == TaskReady {
			ready = append(ready, task)
		}
	}

	return ready
}

// dependenciesMet checks if all dependencies of a task are completed
func (o *DAGOrchestrator) dependenciesMet(task *Task) bool {
	for _, depID := range task.Dependencies {
		depTask, exists := o.tasks[depID]
		if !exists || depTask.Status != TaskCompleted {
			return false
		}
	}
	return true
}

// tryAcquireResource attempts to acquire a resource slot
func (o *DAGOrchestrator) tryAcquireResource(resourceType ResourceType) bool {
	o.slotsMutex.Lock()
	defer o.slotsMutex.Unlock()

	constraint, exists := o.constraints[resourceType]
	if !exists {
		// No constraint, allow execution
		return true
	}

	if o.activeSlots[resourceType] < constraint.MaxSlots {
		o.activeSlots[resourceType]++
		return true
	}

	return false
}

// releaseResource releases a resource slot
func (o *DAGOrchestrator) releaseResource(resourceType ResourceType) {
	o.slotsMutex.Lock()
	defer o.slotsMutex.Unlock()

	if o.activeSlots[resourceType] > 0 {
		o.activeSlots[resourceType]--
	}
}

// executeTask runs a single task
func (o *DAGOrchestrator) executeTask(ctx context.Context, task *Task) {
	defer o.releaseResource(task.Resource)

	err := task.Job.Run(ctx)

	o.tasksMutex.Lock()
	task.EndTime = time.Now()
	if err != nil {
		task.Status = TaskFailed
		task.Error = err
	} else {
		task.Status = TaskCompleted
	}
	o.tasksMutex.Unlock()

	o.completeCh <- task.ID
}

// allTasksCompleteOrBlocked checks if all tasks are done or permanently blocked
func (o *DAGOrchestrator) allTasksCompleteOrBlocked() bool {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	done := true
	for _, id := range o.order {
		task := o.tasks[id]
		switch task.Status {
		case TaskCompleted, TaskFailed:
			continue
		case TaskRunning:
			done = false
		case TaskPending, TaskReady:
			if o.hasFailedDependency(task) {
				task.Status = TaskFailed
				task.Error = ErrDependencyFailed
				o.completeCh <- task.ID
				continue
			}
			done = false
		}
	}
	return done
}

// abandonPending fails every task that has not started
func (o *DAGOrchestrator) abandonPending(cause error) {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	for _, id := range o.order {
		task := o.tasks[id]
		if task.Status == TaskPending || task.Status == TaskReady {
			task.Status = TaskFailed
			task.Error = cause
			o.completeCh <- task.ID
		}
	}
}

// hasFailedDependency checks if any dependency has failed
func (o *DAGOrchestrator) hasFailedDependency(task *Task) bool {
	for _, depID := range task.Dependencies {
		if depTask, exists := o.tasks[depID]; exists {
			if depTask.Status == TaskFailed {
				return true
			}
			if o.hasFailedDependency(depTask) {
				return true
			}
		}
	}
	return false
}

// validateDAG validates the task graph
func (o *DAGOrchestrator) validateDAG() error {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	for _, task := range o.tasks {
		for _, depID := range task.Dependencies {
			if _, exists := o.tasks[depID]; !exists {
				return fmt.Errorf("task %s depends on non-existent task %s", task.ID, depID)
			}
		}
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(taskID string) bool
	hasCycle = func(taskID string) bool {
		visited[taskID] = true
		recStack[taskID] = true

		for _, depID := range o.tasks[taskID].Dependencies {
			if !visited[depID] {
				if hasCycle(depID) {
					return true
				}
			} else if recStack[depID] {
				return true
			}
		}

		recStack[taskID] = false
		return false
	}

	for _, taskID := range o.order {
		if !visited[taskID] && hasCycle(taskID) {
			return fmt.Errorf("cycle detected in task dependencies")
		}
	}

	return nil
}

// GetTaskStatus returns the status of a task
func (o *DAGOrchestrator) GetTaskStatus(taskID string) (TaskStatus, error) {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	task, exists := o.tasks[taskID]
	if !exists {
		return TaskPending, fmt.Errorf("task %s not found", taskID)
	}

	return task.Status, nil
}

// GetStats returns execution statistics
func (o *DAGOrchestrator) GetStats() map[string]int {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	stats := map[string]int{
		"total":     len(o.tasks),
		"pending":   0,
		"ready":     0,
		"running":   0,
		"completed": 0,
		"failed":    0,
	}

	for _, task := range o.tasks {
		stats[task.Status.String()]++
	}

	return stats
}
