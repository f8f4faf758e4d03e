// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

//go:build tools
// +build tools

// Package main pins test dependencies used only behind the integration build
// tag, so go mod tidy keeps them without that tag.
// See https://go.dev/wiki/Modules#how-can-i-track-tool-dependencies-for-a-module
package main

import (
	_ "github.com/onsi/ginkgo/v2"
	_ "github.com/onsi/gomega"
	_ "github.com/stretchr/testify/mock"
	_ "github.com/testcontainers/testcontainers-go"
	_ "github.com/testcontainers/testcontainers-go/modules/postgres"
)
