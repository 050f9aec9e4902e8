// Copyright 2024 Google LLC
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

package emitter

type (
	// Option configures a backend.
	Option interface {
		// Backend returns the name of the backend the option is for.
		// Options for all backends return an empty string.
		Backend() string
	}

	// WithTracer sets the tracer receiving traced values.
	WithTracer struct {
		Tracer Tracer
	}
)

// Backend returns an empty string: the option applies to all backends.
func (WithTracer) Backend() string {
	return ""
}

// Filter returns the options applying to a given backend.
func Filter(backend string, opts []Option) []Option {
	var r []Option
	for _, opt := range opts {
		if b := opt.Backend(); b != "" && b != backend {
			continue
		}
		r = append(r, opt)
	}
	return r
}
