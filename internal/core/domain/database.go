package domain

import "regexp"

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.$-]{0,62}$`)

// ValidDatabaseName reports whether name can be handed to the dump tools as
// a database argument. Enumeration and request validation both use it, so a
// listed database is always one that can be backed up.
func ValidDatabaseName(name string) bool {
	return databaseNamePattern.MatchString(name)
}
