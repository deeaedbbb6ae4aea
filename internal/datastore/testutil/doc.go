// Package testutil opens throwaway SQLite databases with the full schema and
// builds fixture rows for tests of the packages above the datastore.
package testutil
