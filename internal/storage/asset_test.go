package storage

import (
	"fmt"
	"strings"
	"testing"
)

type testSpec struct {
	valid bool
}

func (s *testSpec) Validate() error {
	if !s.valid {
		return fmt.Errorf("spec is invalid")
	}
	return nil
}

func TestAsset_Validate(t *testing.T) {
	tests := map[string]struct {
		asset   Asset[*testSpec]
		expErrs []string
	}{
		"valid asset": {
			asset: Asset[*testSpec]{Version: 1, Identifier: "alice", Spec: &testSpec{valid: true}},
		},
		"username with underscore": {
			asset: Asset[*testSpec]{Version: 1, Identifier: "dark_knight", Spec: &testSpec{valid: true}},
		},
		"missing version": {
			asset:   Asset[*testSpec]{Identifier: "alice", Spec: &testSpec{valid: true}},
			expErrs: []string{"version must be set"},
		},
		"missing id": {
			asset:   Asset[*testSpec]{Version: 1, Spec: &testSpec{valid: true}},
			expErrs: []string{"id must be set"},
		},
		"path traversal id": {
			asset:   Asset[*testSpec]{Version: 1, Identifier: "../etc", Spec: &testSpec{valid: true}},
			expErrs: []string{"must contain only letters"},
		},
		"id with spaces": {
			asset:   Asset[*testSpec]{Version: 1, Identifier: "two words", Spec: &testSpec{valid: true}},
			expErrs: []string{"must contain only letters"},
		},
		"invalid spec": {
			asset:   Asset[*testSpec]{Version: 1, Identifier: "alice", Spec: &testSpec{}},
			expErrs: []string{"spec is invalid"},
		},
		"every problem reported": {
			asset:   Asset[*testSpec]{Spec: &testSpec{}},
			expErrs: []string{"version must be set", "id must be set", "spec is invalid"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.asset.Validate()

			if len(tt.expErrs) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected errors %v, got nil", tt.expErrs)
			}
			for _, e := range tt.expErrs {
				if !strings.Contains(err.Error(), e) {
					t.Errorf("error %q does not contain %q", err.Error(), e)
				}
			}
		})
	}
}
