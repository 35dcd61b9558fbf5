// Package html provides a Normaliser for HTML pages, typically exported
// knowledge-base pages. It strips tags, scripts and styles and decodes
// entities.
package html
