// Package pipeline runs the stages of building a local ACS data set in
// sequence: mirroring the remote trees, unpacking table archives and
// assembling the column metadata.
//
// Each stage is a Step. A Pipeline executes its steps in order, checks
// for cancellation between them and collects their results in a State.
package pipeline
