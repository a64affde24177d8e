/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GitCommit)
	assert.NotEmpty(t, info.BuildDate)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Platform)
}

func TestGetBuildInfo_ParsesValidDate(t *testing.T) {
	originalBuildDate := BuildDate
	defer func() { BuildDate = originalBuildDate }()

	validDate := "2026-01-13T20:00:00Z"
	BuildDate = validDate

	info := GetBuildInfo()

	expectedTime, _ := time.Parse(time.RFC3339, validDate)
	assert.True(t, info.BuildTime.Equal(expectedTime), "BuildTime = %v, want %v", info.BuildTime, expectedTime)
}

func TestGetBuildInfo_IgnoresInvalidDate(t *testing.T) {
	originalBuildDate := BuildDate
	defer func() { BuildDate = originalBuildDate }()

	BuildDate = "yesterday"
	assert.True(t, GetBuildInfo().BuildTime.IsZero())
}

func TestBuildInfoString(t *testing.T) {
	s := GetBuildInfo().String()
	assert.True(t, strings.HasPrefix(s, "email-notifier "))
	assert.Contains(t, s, GoVersion)
	assert.Contains(t, s, Platform)
}
