// Package transfer downloads remote files into the local mirror.
//
// A transfer is idempotent: an existing destination is left alone unless
// overwrite is requested. Content is streamed into "<dest>.part" and
// renamed to the final name only once the body has been read completely,
// so an interrupted run leaves at most a .part file behind and the next run
// starts that file over.
package transfer
