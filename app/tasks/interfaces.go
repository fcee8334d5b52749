package tasks

// TaskSchedulerInterface is what the HTTP layer needs from the scheduler.
//
//	scheduler := NewScheduler(configCache, runner, store, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	task, err := scheduler.EnqueueRun()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueRun() (TaskInterface, error)
}
