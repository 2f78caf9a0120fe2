// Package mediatypes provides shared type definitions for the album engine.
//
// This package exists as a dependency-free foundation that can be imported by
// every other package without creating import cycles. It contains the item
// kind enum, the extension tables used for classification, and the
// ImageRecord and TrashEntry values passed between the cache, the database
// and background tasks.
//
// # Item Kinds
//
// The ItemKind values match the integer file-type codes stored in the
// database:
//
//	mediatypes.KindUnknown // not classified (also "not supplied" in a patch)
//	mediatypes.KindPicture // still images
//	mediatypes.KindVideo   // video files
//
// Use KindForPath to classify a file by extension:
//
//	kind := mediatypes.KindForPath("/photos/a.jpg") // KindPicture
//
// # Records
//
// An ImageRecord uses zero values to mean "not supplied". Merge combines a
// stored record with a partial update, keeping every field the update leaves
// at its zero value:
//
//	prev := mediatypes.ImageRecord{Path: "/a.jpg", Kind: mediatypes.KindPicture}
//	next := mediatypes.Merge(prev, mediatypes.ImageRecord{CaptureTime: t})
//	// next.Kind == KindPicture, next.CaptureTime == t
package mediatypes
