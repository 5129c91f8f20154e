// Package artifact inspects the HTML file produced by the document processor.
//
// A zero exit status from the processor is not enough: the output must exist
// and look like HTML. Inspection also extracts the document title and link
// counts that appear in reports.
package artifact
