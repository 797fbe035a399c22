// Package sanitizer normalizes member and catalog input before validation and storage.
//
// All functions are idempotent and never fail. Text that cannot be normalized
// is passed through trimmed, or dropped from a slice, and left for validation
// to reject.
//
// Normalization includes:
//   - Phone numbers: E.164, national numbers parsed against DefaultPhoneRegion
//   - Emails: trimmed and lowercased
//   - Names and locations: whitespace collapsed, leading/trailing spaces trimmed
//   - Features: lowercased, separator runs collapsed to one underscore, returned as a sorted set
package sanitizer
