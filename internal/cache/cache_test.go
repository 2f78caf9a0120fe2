package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"album-engine/internal/mediatypes"
)

func TestUpsertMerges(t *testing.T) {
	c := New()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	c.Upsert("/a.jpg", mediatypes.ImageRecord{Kind: mediatypes.KindPicture, ImportTime: t1})
	c.Upsert("/a.jpg", mediatypes.ImageRecord{CaptureTime: t2})

	got, ok := c.Get("/a.jpg")
	if !ok {
		t.Fatal("record missing after upsert")
	}
	if got.Kind != mediatypes.KindPicture {
		t.Errorf("Kind = %v, want picture", got.Kind)
	}
	if !got.ImportTime.Equal(t1) {
		t.Errorf("ImportTime = %v, want %v", got.ImportTime, t1)
	}
	if !got.CaptureTime.Equal(t2) {
		t.Errorf("CaptureTime = %v, want %v", got.CaptureTime, t2)
	}
	if got.Name != "a.jpg" || got.Dir != "/" {
		t.Errorf("Name/Dir = %q/%q, want a.jpg and /", got.Name, got.Dir)
	}
}

func TestUpsertReclassifies(t *testing.T) {
	c := New()
	c.Upsert("/clip", mediatypes.ImageRecord{Kind: mediatypes.KindPicture})
	c.Upsert("/clip", mediatypes.ImageRecord{Kind: mediatypes.KindVideo})

	got, _ := c.Get("/clip")
	if got.Kind != mediatypes.KindVideo {
		t.Errorf("Kind = %v, want video", got.Kind)
	}
}

func TestGetMissing(t *testing.T) {
	c := New()
	if _, ok := c.Get("/nope"); ok {
		t.Error("Get on empty cache reported a record")
	}
	if c.Contains("/nope") {
		t.Error("Contains on empty cache returned true")
	}
}

func TestRemove(t *testing.T) {
	c := New()
	c.Upsert("/a", mediatypes.ImageRecord{})
	c.Upsert("/b", mediatypes.ImageRecord{})

	if n := c.Remove("/a", "/missing"); n != 1 {
		t.Errorf("Remove returned %d, want 1", n)
	}
	if c.Contains("/a") {
		t.Error("/a still present")
	}
	if c.Count() != 1 {
		t.Errorf("Count = %d, want 1", c.Count())
	}
	if n := c.Remove(); n != 0 {
		t.Errorf("Remove() with no paths returned %d", n)
	}
}

func TestPageKeepsMapInvariant(t *testing.T) {
	c := New()
	c.Upsert("/extra", mediatypes.ImageRecord{})
	c.SetPage([]mediatypes.ImageRecord{
		{Path: "/3", Kind: mediatypes.KindPicture},
		{Path: "/2", Kind: mediatypes.KindVideo},
		{Path: "/1", Kind: mediatypes.KindPicture},
	})

	if c.PageLen() != 3 {
		t.Fatalf("PageLen = %d, want 3", c.PageLen())
	}
	if c.Count() != 4 {
		t.Errorf("Count = %d, want 4", c.Count())
	}

	c.Remove("/2")
	page := c.Page()
	if len(page) != 2 || page[0].Path != "/3" || page[1].Path != "/1" {
		t.Errorf("page after remove = %+v", page)
	}
	for _, r := range page {
		if !c.Contains(r.Path) {
			t.Errorf("page path %s has no map entry", r.Path)
		}
	}

	c.ClearPage()
	if c.PageLen() != 0 {
		t.Error("ClearPage left entries")
	}
	if c.Count() != 3 {
		t.Errorf("ClearPage changed Count to %d", c.Count())
	}
}

func TestConcurrentUpsertRemove(t *testing.T) {
	c := New()

	const writers = 8
	const perWriter = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				path := fmt.Sprintf("/w%d/%d.jpg", w, i)
				c.Upsert(path, mediatypes.ImageRecord{Kind: mediatypes.KindPicture})
				// odd paths are removed after their last write
				if i%2 == 1 {
					c.Remove(path)
				}
			}
		}(w)
	}

	// readers run alongside the writers
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = c.Count()
				_ = c.Contains("/w0/0.jpg")
			}
		}()
	}
	wg.Wait()

	want := writers * perWriter / 2
	if got := c.Count(); got != want {
		t.Errorf("Count = %d, want %d", got, want)
	}
}

func TestUpsertMany(t *testing.T) {
	c := New()
	c.UpsertMany([]mediatypes.ImageRecord{{Path: "/a"}, {Path: "/b"}, {Path: "/a", Width: 10}})
	if c.Count() != 2 {
		t.Errorf("Count = %d, want 2", c.Count())
	}
	got, _ := c.Get("/a")
	if got.Width != 10 {
		t.Errorf("Width = %d, want 10", got.Width)
	}
	if len(c.Paths()) != 2 {
		t.Errorf("Paths = %v", c.Paths())
	}
}
