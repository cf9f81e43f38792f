// Package db ships the contact schema migrations, one directory per driver.
package db

import "embed"

//go:embed pg/*.sql sqlite/*.sql
var Migrations embed.FS
