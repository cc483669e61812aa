// Package errors provides sentinel errors for content loading.
package errors

import "errors"

var (
	// ErrContentRootNotFound indicates the content root does not exist.
	ErrContentRootNotFound = errors.New("content root not found")

	// ErrContentRootNotDir indicates the content root is not a directory.
	ErrContentRootNotDir = errors.New("content root is not a directory")

	// ErrContentRootUnreadable indicates the content root could not be listed.
	ErrContentRootUnreadable = errors.New("content root unreadable")

	// ErrDirWalkFailed indicates a directory below the content root could not be traversed.
	ErrDirWalkFailed = errors.New("content directory walk failed")

	// ErrFileReadFailed indicates reading a discovered Markdown file failed.
	ErrFileReadFailed = errors.New("content file read failed")

	// ErrFrontMatterInvalid indicates a document's front matter could not be parsed
	// or carried a recognized key of the wrong type.
	ErrFrontMatterInvalid = errors.New("invalid front matter")

	// ErrPathCollision indicates two documents map to the same output path.
	ErrPathCollision = errors.New("output path collision")
)
