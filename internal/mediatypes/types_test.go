package mediatypes

import (
	"testing"
	"time"
)

func TestGetKind(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want ItemKind
	}{
		{name: "JPEG image", ext: ".jpg", want: KindPicture},
		{name: "PNG image", ext: ".png", want: KindPicture},
		{name: "raw image", ext: ".dng", want: KindPicture},
		{name: "MP4 video", ext: ".mp4", want: KindVideo},
		{name: "MKV video", ext: ".mkv", want: KindVideo},
		{name: "Unknown extension", ext: ".xyz", want: KindUnknown},
		{name: "Empty extension", ext: "", want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetKind(tt.ext); got != tt.want {
				t.Errorf("GetKind(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestKindForPathIgnoresCase(t *testing.T) {
	if got := KindForPath("/photos/IMG_0001.JPG"); got != KindPicture {
		t.Errorf("KindForPath(upper-case jpg) = %v, want picture", got)
	}
	if got := KindForPath("/clips/Holiday.MOV"); got != KindVideo {
		t.Errorf("KindForPath(upper-case mov) = %v, want video", got)
	}
	if IsMediaFile("/notes/readme.txt") {
		t.Error("IsMediaFile(txt) = true, want false")
	}
}

func TestGetMimeType(t *testing.T) {
	if got := GetMimeType(".jpg"); got != "image/jpeg" {
		t.Errorf("GetMimeType(.jpg) = %q", got)
	}
	if got := GetMimeType(".nope"); got != "application/octet-stream" {
		t.Errorf("GetMimeType(.nope) = %q", got)
	}
}

func TestItemKindString(t *testing.T) {
	if KindPicture.String() != "picture" || KindVideo.String() != "video" || KindUnknown.String() != "unknown" {
		t.Error("unexpected ItemKind string values")
	}
}

func TestNewRecord(t *testing.T) {
	r := NewRecord("/photos/2021/a.jpg")
	if r.Name != "a.jpg" || r.Dir != "/photos/2021" || r.Path != "/photos/2021/a.jpg" {
		t.Errorf("NewRecord() = %+v", r)
	}
}

func TestMerge(t *testing.T) {
	t1 := time.Date(2021, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	prev := ImageRecord{Path: "/a.jpg", Kind: KindPicture, ImportTime: t1, Width: 640}

	t.Run("keeps fields the patch leaves zero", func(t *testing.T) {
		got := Merge(prev, ImageRecord{CaptureTime: t2})
		if got.Kind != KindPicture {
			t.Errorf("Kind = %v, want picture", got.Kind)
		}
		if !got.ImportTime.Equal(t1) {
			t.Errorf("ImportTime = %v, want %v", got.ImportTime, t1)
		}
		if !got.CaptureTime.Equal(t2) {
			t.Errorf("CaptureTime = %v, want %v", got.CaptureTime, t2)
		}
		if got.Path != "/a.jpg" || got.Width != 640 {
			t.Errorf("unexpected merged record %+v", got)
		}
	})

	t.Run("supplied fields replace", func(t *testing.T) {
		got := Merge(prev, ImageRecord{Kind: KindVideo, Width: 1920})
		if got.Kind != KindVideo || got.Width != 1920 {
			t.Errorf("unexpected merged record %+v", got)
		}
	})

	t.Run("merge into empty", func(t *testing.T) {
		got := Merge(ImageRecord{}, prev)
		if got != prev {
			t.Errorf("Merge(empty, prev) = %+v, want %+v", got, prev)
		}
	})
}
