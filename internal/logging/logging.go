// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging configures the shared logrus logger. Components take a
// child entry tagged with their name.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// EnvVar names the environment variable holding the initial log level.
const EnvVar = "NETSYNTH_LOG"

var (
	once sync.Once
	std  = logrus.New()
)

func setup() {
	once.Do(func() {
		std.SetOutput(os.Stderr)
		std.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		level := logrus.WarnLevel
		if v := os.Getenv(EnvVar); v != "" {
			if l, err := logrus.ParseLevel(v); err == nil {
				level = l
			}
		}
		std.SetLevel(level)
	})
}

// For returns the logger for component.
func For(component string) *logrus.Entry {
	setup()
	return std.WithField("component", component)
}

// SetLevel parses and applies level, overriding the environment.
func SetLevel(level string) error {
	setup()
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	std.SetLevel(l)
	return nil
}

// SetOutput redirects all logging to w.
func SetOutput(w io.Writer) {
	setup()
	std.SetOutput(w)
}
