// Package cache wraps a badger.DB as a byte-oriented, content-hash-keyed
// store. Callers (codemodel's Extractor, in particular) own the
// serialization format; this package only knows about keys and bytes, so
// it has no dependency on what it's caching.
//
// A miss is not an error: Get's second return value simply reports
// whether the key was found.
package cache
