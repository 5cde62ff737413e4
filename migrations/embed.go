// Package migrations embeds the member profile and audit event schema so the
// Postgres test containers and tooling apply the same DDL as deployments.
package migrations

import "embed"

//go:embed *.up.sql *.down.sql
var FS embed.FS
