// Package db provides the embedded database schema for the Postgres store.
package db

import _ "embed"

// Schema contains the DDL for the products, inventory, orders, customers,
// and promotions tables.
//
//go:embed migrations/001_schema.sql
var Schema string
