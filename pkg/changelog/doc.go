// Package changelog scaffolds Liquibase formatted-SQL changelog files.
// Generated files are named <timestamp>_<name>.sql so that the lexicographic
// order in which the deploy engine applies them matches creation order.
package changelog
