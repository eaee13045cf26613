// Package dquery parses the compact block filter language used by
// FileService.DQuery and the `nludb query` command.
//
//	paragraph @person:"Bob" #contains:"loan"
//
// Text before the first marker names a block type. '#' introduces a
// free-text filter, optionally prefixed by a match mode ("exact:", and
// "contains" when omitted). '@' introduces a span filter keyed by label,
// optionally with the span text in quotes.
//
// The parser is permissive: every input yields a (possibly empty) token list.
package dquery
