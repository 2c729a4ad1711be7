// Package filehost hosts uploaded PDF, image and video files on local disk
// and keeps their metadata in two places: a per-category in-memory
// MetadataStore mirrored to a JSON snapshot, and an external DocumentStore.
//
// Every mutation goes through the Coordinator, which orders the writes to
// disk, the metadata store and the document store. The in-memory store is
// canonical while the process runs; the snapshot exists for restarts and the
// document store carries the free-form classification payload ("division").
//
// Consistency Model
//
// There is no transaction across the three stores. Create writes the local
// record first and the external document second; when the second write fails
// the local record is kept and an internal error is returned. Edit and Delete
// only touch disk and the metadata store, so the external document keeps the
// values it was created with.
package filehost
