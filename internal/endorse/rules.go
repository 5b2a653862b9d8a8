package endorse

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/remedykit/bill-endorser/internal/apperrors"
)

// Placement values recognized on rules; anything other than front targets
// the last page.
const PlacementFront = "Front"

// Rule is one operator-configured endorsement. Each rule applied to a bill
// produces one signed, logged and stamped artifact.
type Rule struct {
	Trigger   string `mapstructure:"trigger"`
	Meaning   string `mapstructure:"meaning"`
	InkColor  string `mapstructure:"ink_color"`
	Placement string `mapstructure:"placement"`
}

// LoadRules reads the sovereign overlay configuration file. A missing or
// unparseable file is a configuration error; an existing file with no rules
// yields an empty slice, which short-circuits the endorsement run.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: overlay rules path not set", apperrors.ErrConfiguration)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: configuration file not found: %s", apperrors.ErrConfiguration, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: error parsing %s: %v", apperrors.ErrConfiguration, path, err)
	}

	var rules []Rule
	if err := v.UnmarshalKey("sovereign_endorsements", &rules); err != nil {
		return nil, fmt.Errorf("%w: invalid rule entries in %s: %v", apperrors.ErrConfiguration, path, err)
	}

	for i := range rules {
		rules[i].applyDefaults()
	}
	return rules, nil
}

func (r *Rule) applyDefaults() {
	if r.Trigger == "" {
		r.Trigger = "Unknown"
	}
	if r.InkColor == "" {
		r.InkColor = "black"
	}
	if r.Placement == "" {
		r.Placement = PlacementFront
	}
}

// EndorsementText renders the annotation text recorded and stamped for this
// rule.
func (r Rule) EndorsementText() string {
	return fmt.Sprintf("%s: %s", r.Trigger, r.Meaning)
}

// PageIndexFor resolves the rule's placement against a concrete page count:
// front targets the first page, anything else the last.
func (r Rule) PageIndexFor(pageCount int) int {
	if strings.EqualFold(r.Placement, PlacementFront) {
		return 0
	}
	return pageCount - 1
}

// ArtifactSuffix is the trigger with spaces removed, used in output
// filenames.
func (r Rule) ArtifactSuffix() string {
	return strings.ReplaceAll(r.Trigger, " ", "")
}
