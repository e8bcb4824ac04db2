// Package render draws conversation state for people.
//
// Terminal writes messages and dashboard panels to a text stream with a
// theme-dependent palette. ExportHTML writes the whole transcript as a
// standalone HTML page, with agent replies rendered from markdown.
package render
