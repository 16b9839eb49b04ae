// Package classify decides what a directory listing entry is from its label.
//
// Every rule is a pure function of the label (and, for region matching, the
// configured region set). The same label can mean different things at
// different depths of the tree, so the crawler picks which rules to apply
// based on where it is; nothing here is stored on the link itself.
package classify
