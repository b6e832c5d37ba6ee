package reconciler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ReferenceKind names the aggregate family an external reference points at.
type ReferenceKind string

const (
	ReferenceOrder        ReferenceKind = "order"
	ReferenceSubscription ReferenceKind = "subscription"
	ReferenceSignup       ReferenceKind = "signup"
)

// ParseExternalReference splits the "<kind>:<uuid>" reference the platform
// writes on every gateway charge back into its aggregate coordinates.
//
// Signup charges are the exception: they are created before the subscription
// exists, so their reference carries "signup:<user>:<plan>" and the returned
// id is the user's. The subscription itself is resolved from the gateway
// payment id at dispatch time.
func ParseExternalReference(ref string) (ReferenceKind, uuid.UUID, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", uuid.Nil, fmt.Errorf("external reference is empty")
	}
	kindPart, idPart, found := strings.Cut(trimmed, ":")
	if !found {
		return "", uuid.Nil, fmt.Errorf("external reference %q is not in kind:id form", trimmed)
	}
	kind := ReferenceKind(kindPart)
	switch kind {
	case ReferenceOrder, ReferenceSubscription:
	case ReferenceSignup:
		userPart, planPart, _ := strings.Cut(idPart, ":")
		id, err := uuid.Parse(userPart)
		if err != nil {
			return "", uuid.Nil, fmt.Errorf("signup reference user %q is not a uuid: %w", userPart, err)
		}
		if planPart != "" {
			if _, err := uuid.Parse(planPart); err != nil {
				return "", uuid.Nil, fmt.Errorf("signup reference plan %q is not a uuid: %w", planPart, err)
			}
		}
		return kind, id, nil
	default:
		return "", uuid.Nil, fmt.Errorf("external reference kind %q is not recognized", kindPart)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("external reference id %q is not a uuid: %w", idPart, err)
	}
	return kind, id, nil
}
