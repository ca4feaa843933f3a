package sheets

import (
	"fmt"
	"strings"
)

// Kind classifies a configured external target.
type Kind string

const (
	// KindExport is a spreadsheet whose content can be fetched as CSV. Only
	// this kind is pollable by the change watcher.
	KindExport Kind = "export"
	// KindWebhook is a push-style endpoint (e.g. an Apps Script web app);
	// it receives batches, it is never polled.
	KindWebhook Kind = "webhook"
	// KindYNAB is a YNAB budget account used as a push target.
	KindYNAB Kind = "ynab"
)

// Source is a user-supplied reference to an external spreadsheet or endpoint.
type Source struct {
	Ref  string
	Kind Kind
}

// New builds a source, inferring the kind when not pinned by configuration.
func New(ref string, kind Kind) Source {
	if kind == "" {
		kind = DetectKind(ref)
	}
	return Source{Ref: ref, Kind: kind}
}

// DetectKind infers the target kind from the reference's shape. Apps Script
// web app URLs are push endpoints; everything else is assumed to be a
// fetchable spreadsheet.
func DetectKind(ref string) Kind {
	if strings.Contains(ref, "script.google.com/macros") {
		return KindWebhook
	}
	if strings.HasPrefix(ref, "ynab:") {
		return KindYNAB
	}
	return KindExport
}

// ExportURL resolves the reference to a fetchable CSV export URL. A bare
// spreadsheet id gets the standard export URL built around it; a full URL
// passes through untouched.
func (s Source) ExportURL() (string, error) {
	if s.Kind != KindExport {
		return "", fmt.Errorf("source %q is not a spreadsheet export", s.Ref)
	}
	ref := strings.TrimSpace(s.Ref)
	if ref == "" {
		return "", fmt.Errorf("no source configured")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		// a full sheet URL still needs the export suffix
		if strings.Contains(ref, "docs.google.com/spreadsheets/d/") && !strings.Contains(ref, "/export") {
			if id := sheetID(ref); id != "" {
				return exportURL(id), nil
			}
		}
		return ref, nil
	}
	return exportURL(ref), nil
}

func exportURL(id string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", id)
}

func sheetID(url string) string {
	const marker = "/spreadsheets/d/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return ""
	}
	rest := url[idx+len(marker):]
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
