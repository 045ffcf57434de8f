// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build tools

// Package main pins the ginkgo suite runner to go.mod so `go run
// github.com/onsi/ginkgo/v2/ginkgo` uses the same version as the match suite.
package main

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
)
