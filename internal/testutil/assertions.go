// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertScriptRan checks that the harness ran file to completion, using the
// engine's debug log line for a finished run.
func AssertScriptRan(t *testing.T, result *HarnessResult, file string) {
	t.Helper()

	require.NoError(t, result.Err)
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, "Script run finished.") && strings.Contains(line, file) {
			return
		}
	}
	require.Failf(t, "script did not finish", "expected a finished run of %q in the logs", file)
}
