// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

//go:build integration

package store_test

import "net/url"

// replaceDatabase points a PostgreSQL URL at another database.
func replaceDatabase(raw, database string) string {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	u.Path = "/" + database
	return u.String()
}
