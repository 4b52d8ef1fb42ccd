/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

// Package version provides the build version string.
package version

// Version is the current version of cabjovi. Set at build time via
// ldflags:
//
//	-X github.com/eepp/cabjovi/internal/version.Version=X.Y.Z
var Version = "dev"
