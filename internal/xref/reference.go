package xref

import "fmt"

// Kind is the syntactic form a reference was written in.
type Kind string

const (
	KindShortcode    Kind = "shortcode"     // bare {{< relref "x" >}}
	KindLink         Kind = "link"          // [text]({{< relref "x" >}})
	KindMarkdownLink Kind = "markdown_link" // [text](x.md)
	KindButton       Kind = "button"        // {{< button relref="x" >}}
)

// Reason explains why a reference did not resolve.
type Reason string

const (
	ReasonNotFound    Reason = "not_found"
	ReasonAmbiguous   Reason = "ambiguous"
	ReasonEscapesRoot Reason = "escapes_root"
	ReasonEmpty       Reason = "empty"
)

// CrossReference is a resolved link from one document to another.
type CrossReference struct {
	SourceID   string
	SourcePath string
	TargetID   string
	OutputPath string // target page relative to the output root
	URL        string // target URL, fragment included
	Fragment   string
	Ref        string // reference text as written
	Kind       Kind
	Line       int // line in the source file
	Offset     int // token start within the source body
}

// BrokenReference is a reference whose target could not be determined.
type BrokenReference struct {
	SourceID   string
	SourcePath string
	Ref        string
	Kind       Kind
	Line       int
	Offset     int
	Reason     Reason
	Candidates []string // document paths when Reason is ReasonAmbiguous
}

// Message describes the failure for reports and placeholders.
func (b *BrokenReference) Message() string {
	switch b.Reason {
	case ReasonAmbiguous:
		return fmt.Sprintf("reference %q is ambiguous: %d documents match", b.Ref, len(b.Candidates))
	case ReasonEscapesRoot:
		return fmt.Sprintf("reference %q points outside the content root", b.Ref)
	case ReasonEmpty:
		return "reference has no target"
	default:
		return fmt.Sprintf("reference %q does not match any document", b.Ref)
	}
}

func (b *BrokenReference) Error() string {
	return fmt.Sprintf("%s:%d: %s", b.SourcePath, b.Line, b.Message())
}
