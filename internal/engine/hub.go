package engine

import (
	"errors"

	"album-engine/internal/events"
	"album-engine/internal/metrics"
	"album-engine/internal/operator"
	"album-engine/internal/tasks"
)

// hub applies background results to the cache and publishes the matching
// events. It is the only goroutine that turns results into cache writes, so
// events always describe a cache state that has already been applied.
func (e *Engine) hub() {
	defer close(e.hubDone)
	for msg := range e.results.C() {
		switch r := msg.(type) {
		case tasks.Result:
			e.applyTask(r)
		case operator.Reply:
			e.applyReply(r)
		default:
			e.log.Warn("hub: unexpected message %T", msg)
		}
		metrics.EventsPending.Set(float64(e.bus.Pending()))
	}
}

func failuresWith(failures []error, err error) []error {
	if err == nil {
		return failures
	}
	return append(append([]error(nil), failures...), err)
}

func (e *Engine) applyTask(res tasks.Result) {
	switch r := res.(type) {
	case *tasks.ImportResult:
		if len(r.Records) > 0 {
			e.cache.UpsertMany(r.Records)
			e.bus.Publish(events.BatchReady{Records: r.Records})
		}
		if r.Requester.IsZero() {
			return
		}
		if !e.objects.Exists(r.Requester) {
			metrics.RegistryMissesTotal.Inc()
			e.log.Debug("import %s finished after its requester %s was released", r.ID, r.Requester)
			return
		}
		e.bus.Publish(events.ImportCompleted{
			TaskID:   r.ID,
			Handle:   r.Requester,
			Album:    r.Album,
			Records:  r.Records,
			Failures: failuresWith(r.Failures, r.Err),
		})

	case *tasks.TrashResult:
		if !r.AlreadyTrash {
			e.cache.Remove(r.Paths...)
		}
		e.bus.Publish(events.TrashCompleted{
			TaskID:       r.ID,
			Paths:        r.Paths,
			AlreadyTrash: r.AlreadyTrash,
			Failures:     failuresWith(r.Failures, r.Err),
		})

	case *tasks.RecoverResult:
		if len(r.Records) > 0 {
			e.cache.UpsertMany(r.Records)
			e.bus.Publish(events.BatchReady{Records: r.Records})
		}
		e.bus.Publish(events.RecoverCompleted{
			TaskID:   r.ID,
			Records:  r.Records,
			Failures: failuresWith(r.Failures, r.Err),
		})

	case *tasks.ReloadResult:
		if r.Err == nil {
			e.cache.Remove(r.Missing...)
			for _, rec := range r.Valid {
				if e.cache.Contains(rec.Path) {
					e.cache.Upsert(rec.Path, rec)
				}
			}
		}
		e.bus.Publish(events.ReloadCompleted{
			TaskID:  r.ID,
			Valid:   len(r.Valid),
			Missing: r.Missing,
			Err:     r.Err,
		})

	case *tasks.CleanTrashResult:
		e.cache.Remove(r.Paths...)
		e.cache.Remove(r.TrashPaths...)
		e.bus.Publish(events.TrashCleaned{
			TaskID:   r.ID,
			Paths:    r.Paths,
			Failures: failuresWith(r.Failures, r.Err),
		})

	case *tasks.RemoveResult:
		if r.Err == nil {
			e.cache.Remove(r.Paths...)
		}
		e.bus.Publish(events.ImagesRemoved{TaskID: r.ID, Paths: r.Paths, Err: r.Err})

	case *tasks.ProbeResult:
		ev := events.ImageReady{Path: r.Path}
		if len(r.Failures) > 0 {
			ev.Err = r.Failures[0]
		} else {
			ev.Record = e.cache.Upsert(r.Path, r.Record)
		}
		e.bus.Publish(ev)

	case *tasks.ThumbnailResult:
		ev := events.ImageReady{Path: r.Record.Path, Record: r.Record, Thumbnail: r.Thumbnail}
		if len(r.Failures) > 0 {
			ev.Err = r.Failures[0]
		}
		e.bus.Publish(ev)

	case *tasks.ThumbnailSummary:
		e.log.Debug("thumbnail warm-up %s: %d ready, %d failed", r.ID, r.Succeeded, len(r.Failures))

	default:
		e.log.Warn("hub: unexpected result %T", res)
	}
}

func (e *Engine) applyReply(reply operator.Reply) {
	switch r := reply.(type) {
	case operator.PageLoaded:
		if r.Err != nil {
			if !errors.Is(r.Err, operator.ErrStopped) {
				e.log.Error("first page load failed: %v", r.Err)
			}
			e.bus.Publish(events.FirstPageReady{Err: r.Err})
			return
		}
		e.cache.SetPage(r.Records)
		page := e.cache.Page()
		e.bus.Publish(events.BatchReady{Records: page})
		e.bus.Publish(events.FirstPageReady{Records: page})
		if len(page) > 0 && e.env.Thumbnails != nil && e.env.Thumbnails.IsEnabled() {
			e.submit(tasks.NewThumbnails(page))
		}

	case operator.MountListed:
		e.bus.Publish(events.MountListReady{Mount: r.Mount, Paths: r.Paths, Err: r.Err})

	case operator.Unmounted:
		e.bus.Publish(events.DeviceUnmounted{Mount: r.Mount})

	case operator.Rotated:
		ev := events.ImageReady{Path: r.Path, Err: r.Err}
		if r.Err == nil {
			ev.Record = e.cache.Upsert(r.Path, r.Record)
		}
		e.bus.Publish(ev)

	default:
		e.log.Warn("hub: unexpected reply %T", reply)
	}
}
