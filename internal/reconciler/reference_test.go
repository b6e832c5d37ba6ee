package reconciler

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseExternalReference(t *testing.T) {
	orderID := uuid.New()
	subID := uuid.New()
	userID := uuid.New()
	planID := uuid.New()

	tests := []struct {
		name     string
		ref      string
		wantKind ReferenceKind
		wantID   uuid.UUID
		wantErr  bool
	}{
		{name: "order", ref: "order:" + orderID.String(), wantKind: ReferenceOrder, wantID: orderID},
		{name: "subscription", ref: "subscription:" + subID.String(), wantKind: ReferenceSubscription, wantID: subID},
		{name: "surrounding whitespace", ref: "  order:" + orderID.String() + " ", wantKind: ReferenceOrder, wantID: orderID},
		{name: "signup carries user and plan", ref: "signup:" + userID.String() + ":" + planID.String(), wantKind: ReferenceSignup, wantID: userID},
		{name: "signup bad plan", ref: "signup:" + userID.String() + ":not-a-uuid", wantErr: true},
		{name: "empty", ref: "", wantErr: true},
		{name: "no separator", ref: orderID.String(), wantErr: true},
		{name: "unknown kind", ref: "invoice:" + orderID.String(), wantErr: true},
		{name: "bad uuid", ref: "order:not-a-uuid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id, err := ParseExternalReference(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.ref)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tt.ref, err)
			}
			if kind != tt.wantKind {
				t.Fatalf("expected kind %s, got %s", tt.wantKind, kind)
			}
			if id != tt.wantID {
				t.Fatalf("expected id %s, got %s", tt.wantID, id)
			}
		})
	}
}
