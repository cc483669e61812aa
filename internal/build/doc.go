// Package build runs the book pipeline: load content, build the section
// tree, resolve references, render pages, verify anchors and emit the site.
//
// Every run gets its own Context holding the stage outputs; nothing is kept
// at package level, so several builds may run in one process. Per-document
// and per-reference problems are collected as Issues in the Report and never
// abort a build; only a root-level failure or cancellation does.
package build
