package tasks

// TaskSchedulerInterface is what the application and the admin API need
// from the background importer.
//
//	scheduler := NewScheduler(configCache, catalog, httpClient, parser, filterer, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.ImportChannel("anna")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	ImportChannel(name string) error
}
