package protocol

import (
	"encoding/json"
	"testing"

	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-testutil"
)

func TestMessageType(t *testing.T) {
	tests := map[string]struct {
		data    string
		expType string
		expErr  bool
	}{
		"tagged":            {data: `{"type":"challenge_request","from":"a","to":"b"}`, expType: TypeChallengeRequest},
		"untagged update":   {data: `{"x":1,"y":2}`, expType: TypePlayerUpdate},
		"unknown type kept": {data: `{"type":"dance"}`, expType: "dance"},
		"not json":          {data: `hello`, expErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := MessageType([]byte(tt.data))
			if tt.expErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "type", got, tt.expType)
		})
	}
}

func TestPlayerUpdateRequest_Transform(t *testing.T) {
	tests := map[string]struct {
		data   string
		exp    game.Transform
		expErr string
	}{
		"defaults filled": {
			data: `{"x":10,"y":20}`,
			exp:  game.Transform{X: 10, Y: 20, Animation: "stand", Scale: 1},
		},
		"all fields": {
			data: `{"x":1.5,"y":2,"animation":"walk","flipX":true,"scale":2}`,
			exp:  game.Transform{X: 1.5, Y: 2, Animation: "walk", FlipX: true, Scale: 2},
		},
		"missing y": {
			data:   `{"x":10}`,
			expErr: "requires x and y",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var req PlayerUpdateRequest
			if err := json.Unmarshal([]byte(tt.data), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, err := req.Transform()
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "transform", got, tt.exp)
		})
	}
}

func TestPlayerUpdateWireShape(t *testing.T) {
	data, err := json.Marshal(NewPlayerUpdate("alice", game.Transform{X: 1, Y: 2, Animation: "stand", Scale: 1}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	testutil.AssertEqual(t, "type", got["type"], any("playerUpdate"))
	testutil.AssertEqual(t, "username", got["username"], any("alice"))
	testutil.AssertEqual(t, "x", got["x"], any(1.0))
	testutil.AssertEqual(t, "flipX", got["flipX"], any(false))
}
