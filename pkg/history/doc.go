// Package history stores submission records for runs outside the
// platform, where no submission_metadata.json exists. Watch mode
// appends an entry after every local grading run and feeds the stored
// entries back into the rate limit engine, so local development
// exercises the same token accounting a platform run would.
//
// Three backends are provided: an in-memory store for single runs and
// tests, a SQLite store for persistence across local runs, and a Redis
// store for shared setups. Entries are always listed oldest first, the
// ordering the engine requires.
package history
