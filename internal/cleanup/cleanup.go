// Package cleanup drains registered cleanup tasks when the process
// receives SIGINT or SIGTERM, then exits.
package cleanup

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Task is one unit of cleanup work, registered and removed by identity
// (by pointer). During a drain the Async tasks are fanned out
// concurrently and all awaited first, then the blocking tasks run
// strictly sequentially in unspecified order. That lets final teardown
// work (closing a database) be registered as a blocking task while the
// drains that still need the resource run as Async tasks.
type Task struct {
	Name  string
	Run   func() error
	Async bool
}

type state int

const (
	stateIdle state = iota
	stateDraining
	stateDrained
)

// Coordinator runs registered tasks exactly once on the first
// termination signal and exits the process afterwards. A second signal
// during the drain abandons the pending tasks and exits immediately
// with the signal's numeric value.
//
// Construct one at process start and hand it to every component that
// needs to register cleanup work.
type Coordinator struct {
	logger  *slog.Logger
	signals chan os.Signal
	done    chan struct{}
	exit    func(code int)
	tasks   map[*Task]struct{}
	state   state
	mu      sync.Mutex
}

// New creates a coordinator. Listen must be called to subscribe it to
// termination signals.
func New(logger *slog.Logger) *Coordinator {
	return &Coordinator{
		logger:  logger,
		signals: make(chan os.Signal, 2),
		done:    make(chan struct{}),
		exit:    os.Exit,
		tasks:   make(map[*Task]struct{}),
	}
}

// Listen subscribes the coordinator to SIGINT and SIGTERM and handles
// them until the process exits.
func (c *Coordinator) Listen() {
	signal.Notify(c.signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range c.signals {
			c.handle(sig)
		}
	}()
}

// Add registers a task. Adding the same task twice is a no-op.
func (c *Coordinator) Add(task *Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[task] = struct{}{}
}

// Remove unregisters a task, silently doing nothing if it is absent.
func (c *Coordinator) Remove(task *Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, task)
}

// IsCleaning reports whether a drain is running at the current time.
func (c *Coordinator) IsCleaning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateDraining
}

// Wait blocks until the coordinator has exited the process. Used by main
// to keep the process alive while a drain triggered elsewhere finishes.
func (c *Coordinator) Wait() {
	<-c.done
}

func (c *Coordinator) handle(sig os.Signal) {
	c.mu.Lock()
	switch c.state {
	case stateIdle:
		c.state = stateDraining
		// Снимок зарегистрированных задач на момент сигнала
		tasks := make([]*Task, 0, len(c.tasks))
		for task := range c.tasks {
			tasks = append(tasks, task)
		}
		c.mu.Unlock()

		// Дренаж в отдельной горутине, чтобы продолжать принимать сигналы
		go c.drain(sig, tasks)

	case stateDraining:
		c.mu.Unlock()
		c.logger.Warn("the pending tasks are cancelled")
		c.exit(exitCode(sig))

	case stateDrained:
		// Дренаж уже завершился, предупреждение не нужно
		c.mu.Unlock()
		c.exit(exitCode(sig))
	}
}

func (c *Coordinator) drain(sig os.Signal, tasks []*Task) {
	var blocking, async []*Task
	for _, task := range tasks {
		if task.Async {
			async = append(async, task)
		} else {
			blocking = append(blocking, task)
		}
	}

	if len(tasks) > 0 {
		message := "waiting for the scheduled tasks to finish"
		if sig == syscall.SIGINT {
			message += " (Ctrl+C to skip)"
		}
		c.logger.Info(message, slog.Int("tasks", len(tasks)))
	}

	var wg sync.WaitGroup
	for _, task := range async {
		wg.Add(1)
		go func(task *Task) {
			defer wg.Done()
			if err := task.Run(); err != nil {
				c.logger.Error("cleanup task failed",
					slog.String("task", task.Name), slog.Any("error", err))
			}
		}(task)
	}
	wg.Wait()

	for _, task := range blocking {
		if err := task.Run(); err != nil {
			// Процесс завершается в любом случае - только логируем
			c.logger.Error("cleanup task failed",
				slog.String("task", task.Name), slog.Any("error", err))
		}
	}

	c.mu.Lock()
	c.state = stateDrained
	c.mu.Unlock()

	c.logger.Debug("the scheduled tasks are finished")
	c.exit(0)
	close(c.done)
}

// exitCode maps a termination signal to the process exit status,
// matching the convention of exiting with the signal number.
func exitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 1
}
