// Package normalisers provides implementations of the Normaliser interface
// for the text formats accepted at ingestion. Each normaliser extracts the
// readable text of one family of file types.
package normalisers
