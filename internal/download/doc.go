// Package download fetches release artifacts with bounded concurrency.
//
// # Task
//
// A Task streams one model.WorkItem to disk in fixed-size chunks, reporting
// Progress after each chunk and exactly one terminal Result. The body is
// written to "{path}.part" and renamed into place on success; failed and
// cancelled tasks remove the partial file.
//
// # Scheduler
//
// The Scheduler owns a FIFO queue of pending items and a table of running
// tasks. At most Limit tasks run at once; each completion admits the next
// queued item.
//
//	s := download.NewScheduler(client, fs, download.WithConcurrency(3))
//	batch, err := s.Submit(items, func() { fmt.Println("done") })
//	<-batch.Done()
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Resolve release ids against the mirror listing
//  2. Expand descriptors into work items
//  3. Skip files that are already present
//  4. Download items through the Scheduler
//  5. Verify checksums (optional)
//  6. Retry failed items (optional)
//
// # Basic Usage
//
//	manager := download.NewManager(settings, download.WithEvents(download.Events{
//	    OnMessage: func(event download.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    },
//	}))
//
//	err := manager.Initialize(ctx, []string{"1.20.1"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = manager.StartDownloads(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// The Manager uses configurable concurrency limits:
//   - MaxConcurrentResolves: How many release descriptors to fetch in parallel
//   - MaxConcurrentDownloads: How many files to download in parallel
//
// # Retry Logic
//
// Failed downloads are retried with exponential backoff, configurable via
// settings.DownloadMaxRetries, settings.DownloadRetryCooldown and
// settings.DownloadRetryExponent. Retries are off by default.
package download
