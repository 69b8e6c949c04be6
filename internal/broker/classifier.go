// Package broker provides broker identity classification for partitioning
// trade events into independent ledgers.
package broker

import "strings"

// UnknownBroker is the identity assigned when the broker field is blank.
const UnknownBroker = "unknown"

// Classifier maps free-text broker and account fields to a ledger group key.
// Broker names in statement exports are free text, so classification is
// injectable; new aliases must not require engine changes.
type Classifier interface {
	// BrokerID normalizes a free-text broker name to a stable identity.
	BrokerID(name string) string
	// GroupKey derives the ledger partition key for a broker/account pair.
	GroupKey(name, account string) string
}

type aliasRule struct {
	substr string
	id     string
}

// AliasClassifier classifies by case-insensitive substring match against an
// ordered alias list, falling back to the uppercased literal name.
type AliasClassifier struct {
	rules []aliasRule
}

// NewAliasClassifier creates a classifier with the built-in aliases.
func NewAliasClassifier() *AliasClassifier {
	return &AliasClassifier{
		rules: []aliasRule{
			{substr: "sbi", id: "SBI"},
			{substr: "rakuten", id: "RAKUTEN"},
		},
	}
}

// AddAlias appends a substring alias. Later aliases are matched after the
// built-in ones, in insertion order.
func (c *AliasClassifier) AddAlias(substr, id string) {
	substr = strings.ToLower(strings.TrimSpace(substr))
	if substr == "" || id == "" {
		return
	}
	c.rules = append(c.rules, aliasRule{substr: substr, id: id})
}

// BrokerID normalizes a free-text broker name.
func (c *AliasClassifier) BrokerID(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return UnknownBroker
	}
	lower := strings.ToLower(trimmed)
	for _, r := range c.rules {
		if strings.Contains(lower, r.substr) {
			return r.id
		}
	}
	return strings.ToUpper(trimmed)
}

// GroupKey derives the partition key for a broker/account pair.
func (c *AliasClassifier) GroupKey(name, account string) string {
	return c.BrokerID(name) + "/" + strings.TrimSpace(account)
}
