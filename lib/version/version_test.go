// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	defer func(version, commit, built string) {
		Version, GitCommit, BuildTime = version, commit, built
	}(Version, GitCommit, BuildTime)

	Version, GitCommit, BuildTime = "1.2.3", "abc1234", "2026-03-02T09:00:00Z"
	if got, want := Info(), "1.2.3 (abc1234, 2026-03-02T09:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if got := UserAgent(); got != "dailyfix/1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
	full := Full()
	if !strings.HasPrefix(full, Info()) || !strings.Contains(full, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Full() = %q", full)
	}
}
