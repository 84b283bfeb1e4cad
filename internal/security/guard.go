// Package security wraps prompt-injection scanning for content flowing
// into the ingestion pipeline (spec §4.D step 1).
package security

import (
	"context"

	"github.com/mdombrov-33/go-promptguard/detector"
)

// guard is the package-level detector, initialized once with all
// pattern/statistical detectors enabled and no LLM judge, keeping scan
// latency sub-millisecond for every ingested record.
var guard = detector.New(
	detector.WithThreshold(0.6),
	detector.WithAllDetectors(),
	detector.WithMaxInputLength(20000),
)

// ScanText runs the detector against ingested content and reports whether
// it looks like a prompt-injection attempt. Flagged content is never
// rejected outright — callers still persist it, but exclude it from
// embedding and retrieval ranking, per spec §4.D's flag-don't-reject policy.
func ScanText(text string) bool {
	if text == "" {
		return false
	}
	result := guard.Detect(context.Background(), text)
	return !result.Safe
}
