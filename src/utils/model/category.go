package model

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

var ErrUnknownCategory = errors.New("unknown category")

// Role of an on-chain record in the ambassador program
type Category string

const (
	CategoryMembershipIntent  Category = "membership_intent"
	CategoryMember            Category = "member"
	CategoryProposal          Category = "proposal"
	CategoryProposalIntent    Category = "proposal_intent"
	CategorySignOfApproval    Category = "sign_of_approval"
	CategoryAmbassadorProfile Category = "ambassador_profile"
)

var categories = []Category{
	CategoryMembershipIntent,
	CategoryMember,
	CategoryProposal,
	CategoryProposalIntent,
	CategorySignOfApproval,
	CategoryAmbassadorProfile,
}

// Categories that a sync pass may fetch, in the order they are requested
var syncContexts = []Category{
	CategoryMember,
	CategoryMembershipIntent,
	CategoryProposal,
	CategoryProposalIntent,
	CategorySignOfApproval,
}

func Categories() []Category {
	return slices.Clone(categories)
}

func SyncContexts() []Category {
	return slices.Clone(syncContexts)
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !slices.Contains(categories, c) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Parses a category that can be used as a sync context
func ParseSyncContext(s string) (Category, error) {
	c := Category(s)
	if !c.IsSyncContext() {
		return "", fmt.Errorf("%w: %q is not a sync context", ErrUnknownCategory, s)
	}
	return c, nil
}

func (self Category) IsSyncContext() bool {
	return slices.Contains(syncContexts, self)
}

func (self Category) String() string {
	return string(self)
}
