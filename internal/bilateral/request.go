// Package bilateral implements the two-party request state machine shared by
// trade requests and friendships: one side proposes, only the other side may
// answer, and an answer is final.
package bilateral

import (
	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/apperrors"
)

// StatusPending is the only state from which a request can still move.
const StatusPending = "pending"

// Request is the common shape of a two-party proposal.
type Request struct {
	Requester uuid.UUID
	Addressee uuid.UUID
	Status    string
}

// ValidateCreate checks the parties of a new request.
func ValidateCreate(requester, addressee uuid.UUID) error {
	if requester == uuid.Nil || addressee == uuid.Nil {
		return apperrors.Validation("both parties are required")
	}
	if requester == addressee {
		return apperrors.Validation("cannot send a request to yourself")
	}
	return nil
}

// CanRespond checks that actor may move req to decision. The decisions slice
// lists the statuses a responder may choose (trades allow fewer than
// friendships).
func CanRespond(req Request, actor uuid.UUID, decision string, decisions []string) error {
	valid := false
	for _, d := range decisions {
		if d == decision {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.Validation("invalid decision %q", decision)
	}

	if actor != req.Addressee {
		return apperrors.Authorization("only the recipient may respond to this request")
	}

	if req.Status != StatusPending {
		return apperrors.StateConflict("request is already %s", req.Status)
	}

	return nil
}
