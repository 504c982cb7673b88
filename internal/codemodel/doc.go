// Package codemodel builds a lightweight symbol model for a source file
// using go-tree-sitter: the file is parsed with a grammar selected by its
// extension, and the resulting syntax tree is walked into a flat list of
// Symbols (packages, functions, methods, types) that mirrors the shape of
// code_model/ast in the system this package's extraction logic is modeled
// on.
//
// Extract is meant to be used as the transform function of a
// pipeline.Pipeline: it is pure with respect to its input file content, and
// a parse failure on one file must never affect any other.
package codemodel
