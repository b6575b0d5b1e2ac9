// Package services defines the shared error taxonomy and context correlation
// helpers used by every external boundary in notepipe.
//
// All failures that cross a component boundary are tagged with one of the
// exported sentinel errors so callers can classify them with errors.Is
// instead of matching concrete types. The context helpers carry run and item
// identifiers so log lines emitted deep inside a stage can be correlated
// with the batch that produced them.
package services
