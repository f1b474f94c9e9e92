/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package x

import (
	"fmt"
	"runtime"
)

var (
	// These variables are set using -ldflags
	usergraphVersion string
	gitBranch        string
	lastCommitSHA    string
	lastCommitTime   string
)

// BuildDetails returns a string describing the build of this binary.
func BuildDetails() string {
	return fmt.Sprintf(`
usergraph version : %v
Commit SHA-1      : %v
Commit timestamp  : %v
Branch            : %v
Go version        : %v

Licensed under the Apache License, Version 2.0.

`,
		Version(), lastCommitSHA, lastCommitTime, gitBranch, runtime.Version())
}

// Version returns the version of this build, or "dev" when built without ldflags.
func Version() string {
	if usergraphVersion == "" {
		return "dev"
	}
	return usergraphVersion
}
