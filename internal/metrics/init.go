package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, op := range []string{"upsert", "remove", "set_page", "clear"} {
		CacheOperationsTotal.WithLabelValues(op)
	}

	taskKinds := []string{"import", "mount_import", "trash", "trash_delete", "recover", "reload", "clean_trash", "remove", "thumbnail", "probe"}
	for _, kind := range taskKinds {
		TasksSubmittedTotal.WithLabelValues(kind)
		TasksCompletedTotal.WithLabelValues(kind, "success")
		TasksCompletedTotal.WithLabelValues(kind, "partial")
		TasksCompletedTotal.WithLabelValues(kind, "error")
		TaskDuration.WithLabelValues(kind)
	}

	for _, req := range []string{"load_page", "load_mount_list", "device_unmount", "rotate"} {
		OperatorRequestsTotal.WithLabelValues(req, "success")
		OperatorRequestsTotal.WithLabelValues(req, "error")
		OperatorRequestsTotal.WithLabelValues(req, "stopped")
		OperatorRequestDuration.WithLabelValues(req)
	}

	volumes := []string{"library", "trash", "mount", "cache", "unknown"}
	fsOps := []string{"stat", "move", "copy", "remove"}
	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, kind := range []string{"picture", "video"} {
		ThumbnailGenerationsTotal.WithLabelValues(kind, "success")
		ThumbnailGenerationsTotal.WithLabelValues(kind, "error")
		ThumbnailGenerationDuration.WithLabelValues(kind)
	}

	for _, op := range []string{"insert_images", "scan_recent", "all_images", "delete_images",
		"move_to_trash", "trash_entries", "restore_from_trash", "delete_trash_entries", "expired_trash"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, ev := range []string{"mount", "unmount"} {
		MountEventsTotal.WithLabelValues(ev)
	}
}
