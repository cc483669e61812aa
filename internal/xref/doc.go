// Package xref resolves in-content references between documents.
//
// References are found with markdown.Scan outside code:
//
//	{{< relref "docs/chapter-01" >}}            bare, substituted by the target URL
//	[text]({{< ref "/docs/chapter-01#setup" >}}) as a link destination
//	{{< button relref="docs/intro" >}}Go{{< /button >}}
//	[text](../other/page.md)                     relative Markdown link
//
// Resolution never touches the filesystem; the result is a Table keyed by the
// source document and the byte offset of the reference token in its body.
package xref
