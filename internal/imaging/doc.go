// Package imaging decodes camera pictures and provides cat detectors.
//
// FakeAnalyzer returns pseudo-random verdicts for demos and load tests.
// ColorAnalyzer is a cheap deterministic heuristic that looks for tabby and
// ginger fur colours in a downscaled copy of the picture.
package imaging
