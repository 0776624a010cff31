// Package language provides language code normalization and the source to
// target pairs a translation run may use.
//
// Codes, ISO 639-2 forms, and English words ("korean", "Myanmar") all
// resolve to ISO 639-1. Names for codes outside the built-in table come from
// golang.org/x/text so prompts always carry a readable language name.
package language
