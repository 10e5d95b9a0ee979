// Package directory provides TechnicianDirectory implementations: an
// in-memory roster for tests and single-process use, a SQLite-backed one,
// and a Redis-backed one for rosters shared between processes.
//
// All implementations honor the Reserve contract: the capacity check and
// the counter increment happen atomically, so concurrent assignments can
// never push a technician past the cap.
package directory
