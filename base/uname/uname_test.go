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

package uname_test

import (
	"testing"

	"github.com/gx-org/vir/base/uname"
)

func TestName(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{name: "loop", want: "loop"},
		{name: "loop", want: "loop1"},
		{name: "loop", want: "loop2"},
		{name: "if", want: "if"},
		{name: "loop1", want: "loop11"},
		{name: "if", want: "if1"},
	}
	unames := uname.New()
	for i, test := range tests {
		got := unames.Name(test.name)
		if got != test.want {
			t.Errorf("test %d: for name %s, got %s but want %s", i, test.name, got, test.want)
		}
	}
}

func TestReserve(t *testing.T) {
	unames := uname.New()
	if !unames.Reserve("f") {
		t.Errorf("cannot reserve f")
	}
	if unames.Reserve("f") {
		t.Errorf("f reserved twice")
	}
	if got := unames.Name("f"); got != "f1" {
		t.Errorf("got %s but want f1", got)
	}
	if !unames.Reserve("g") {
		t.Errorf("cannot reserve g")
	}
}
