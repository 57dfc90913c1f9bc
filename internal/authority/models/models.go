package models

import (
	"sort"
	"time"

	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// Powers is a bitset of granted regulatory capabilities. Powers are checked
// individually; holding one implies nothing about any other.
type Powers uint8

const (
	PowerViewTransactions Powers = 1 << iota
	PowerFreezeAccounts
	PowerSeizeFunds
	PowerRequestUserInfo
	PowerIssueCommunications
	PowerBlockTransactions
)

// AllPowers is every defined capability bit set.
const AllPowers = PowerViewTransactions | PowerFreezeAccounts | PowerSeizeFunds |
	PowerRequestUserInfo | PowerIssueCommunications | PowerBlockTransactions

var powerNames = map[Powers]string{
	PowerViewTransactions:    "view_transactions",
	PowerFreezeAccounts:      "freeze_accounts",
	PowerSeizeFunds:          "seize_funds",
	PowerRequestUserInfo:     "request_user_info",
	PowerIssueCommunications: "issue_communications",
	PowerBlockTransactions:   "block_transactions",
}

// Has reports whether every bit in flag is granted.
func (p Powers) Has(flag Powers) bool {
	return p&flag == flag
}

// Names renders the set as sorted wire names.
func (p Powers) Names() []string {
	names := make([]string, 0, 6)
	for bit, name := range powerNames {
		if p.Has(bit) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Name returns the wire name of a single power bit.
func (p Powers) Name() string {
	if name, ok := powerNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePowers builds a bitset from wire names, rejecting unknown ones.
func ParsePowers(names []string) (Powers, error) {
	var p Powers
	for _, name := range names {
		found := false
		for bit, known := range powerNames {
			if known == name {
				p |= bit
				found = true
				break
			}
		}
		if !found {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown power: "+name)
		}
	}
	return p, nil
}

// Record is a registered compliance authority. Deactivation is logical:
// the record stays for audit trail continuity but grants no powers.
type Record struct {
	Principal    domain.PrincipalID
	AuthorityID  string // human-readable registry identifier, e.g. "BAFIN-DE"
	Institution  string
	Jurisdiction string
	Powers       Powers
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastActionAt time.Time // zero until the authority first exercises a power
}

// EffectivePowers returns the granted bitset, or zero when deactivated.
func (r *Record) EffectivePowers() Powers {
	if r == nil || !r.Active {
		return 0
	}
	return r.Powers
}
