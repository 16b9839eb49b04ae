// Package burst unpacks downloaded ACS table archives into a fixed tree.
//
// Archives named acs_<type>_<year>_<range>.zip, where type is "places" or
// "non_places", are extracted into <top>/acs/<type>/<year>/. A previous
// acs/ directory is moved aside with a timestamp suffix before unpacking,
// so every run starts from an empty tree. Archives are unpacked
// concurrently; entries with absolute names or ".." are refused.
package burst
