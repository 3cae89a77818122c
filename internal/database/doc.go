// Package database opens PostgreSQL connection pools for the token store.
package database
