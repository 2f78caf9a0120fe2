package tasks

import (
	"context"

	"album-engine/internal/mediatypes"
)

// ThumbnailTask warms the thumbnail cache for a list of records, reporting a
// ThumbnailResult per record as it goes.
type ThumbnailTask struct {
	base
	Records []mediatypes.ImageRecord
}

// ThumbnailResult reports one warmed thumbnail.
type ThumbnailResult struct {
	Outcome
	Record    mediatypes.ImageRecord
	Thumbnail string
}

// Kind returns the task kind label.
func (r *ThumbnailResult) Kind() string { return KindThumbnail }

// ThumbnailSummary is the final result of a ThumbnailTask.
type ThumbnailSummary struct {
	Outcome
}

// Kind returns the task kind label.
func (r *ThumbnailSummary) Kind() string { return KindThumbnail }

// NewThumbnails returns a warm-up task for records.
func NewThumbnails(records []mediatypes.ImageRecord) *ThumbnailTask {
	return &ThumbnailTask{base: newBase(), Records: append([]mediatypes.ImageRecord(nil), records...)}
}

// Kind returns the task kind label.
func (t *ThumbnailTask) Kind() string { return KindThumbnail }

// Run warms each thumbnail in order.
func (t *ThumbnailTask) Run(ctx context.Context, env Env) Result {
	sum := &ThumbnailSummary{Outcome: Outcome{ID: t.id}}
	fails := &failures{kind: t.Kind()}

	if env.Thumbnails == nil || !env.Thumbnails.IsEnabled() {
		return sum
	}

	for _, rec := range t.Records {
		if ctx.Err() != nil {
			sum.Err = ctx.Err()
			break
		}

		kind := rec.Kind
		if kind == mediatypes.KindUnknown {
			kind = mediatypes.KindForPath(rec.Path)
		}

		one := &ThumbnailResult{Outcome: Outcome{ID: t.id}, Record: rec}
		thumb, err := env.Thumbnails.Warm(ctx, rec.Path, kind)
		if err != nil {
			fails.add(rec.Path, "thumbnail", err)
			one.Failures = []error{&FileError{Path: rec.Path, Op: "thumbnail", Err: err}}
		} else {
			one.Thumbnail = thumb
			one.Succeeded = 1
			sum.Succeeded++
		}
		env.report(one)
	}

	sum.Failures = fails.list()
	return sum
}
