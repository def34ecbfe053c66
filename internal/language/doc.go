// Package language holds the two fixed language tables sematube works with:
// the speech model's language codes and the translation service's FLORES-200
// codes. The two code spaces are kept as distinct types so callers cannot hand
// a speech code to the translation service by accident.
package language
