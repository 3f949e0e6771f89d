// Package naming generates human-readable room identifiers such as
// "fluffy-brave-otter".
//
// Names are drawn from two vocabularies (adjectives and animals). The
// built-in lists give roughly a hundred thousand combinations, which is
// plenty for an in-memory broker, but the generator does not remember
// what it handed out: a name may repeat, and callers that need uniqueness
// must check and retry.
//
// Word lists can be replaced at startup by JSON files in a directory:
//
//	{
//	  "adjectives": ["amber", "brisk", ...],
//	  "animals": ["badger", "crane", ...]
//	}
//
// Loader reads and caches those files the same way game configurations
// are cached elsewhere in the server: on first use, guarded by a
// read-write lock.
package naming
