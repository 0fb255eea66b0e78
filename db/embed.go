// Package db embeds the catalog and order schema applied at startup.
package db

import _ "embed"

// Schema creates the products, orders, order_lines and api_keys tables.
// Every statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
