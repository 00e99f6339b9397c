package slack

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// TierChangeText is the plain text fallback of a tier change alert
func TierChangeText(facility *model.FacilityMetadata, previous, current model.FacilityMarkerState) string {
	return fmt.Sprintf("%s %s: %s → %s (%d waiting)",
		TierEmoji(current.Tier), facility.Name, previous.Tier, current.Tier, current.TotalPatients)
}

// BuildTierChangeBlocks builds the message blocks of a tier change alert
func BuildTierChangeBlocks(facility *model.FacilityMetadata, previous, current model.FacilityMarkerState) []slack.Block {
	title := fmt.Sprintf("%s %s is now %s", TierEmoji(current.Tier), facility.Name, current.Tier)
	if current.Tier.Rank() < previous.Tier.Rank() {
		title = fmt.Sprintf("%s %s dropped to %s", TierEmoji(current.Tier), facility.Name, current.Tier)
	}

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Waiting patients:*\n%d (was %d)", current.TotalPatients, previous.TotalPatients), false, false),
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Tier:*\n%s → %s", previous.Tier, current.Tier), false, false),
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, true, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}

	if location := facilityLocation(facility); location != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, location, false, false)))
	}
	return blocks
}

func facilityLocation(facility *model.FacilityMetadata) string {
	var parts []string
	if facility.Address != "" {
		parts = append(parts, facility.Address)
	}
	if facility.Neighborhood != "" {
		parts = append(parts, facility.Neighborhood)
	}
	if facility.Phone != "" {
		parts = append(parts, "☎ "+facility.Phone)
	}
	if facility.ID != types.FacilityID("") {
		parts = append(parts, fmt.Sprintf("`%s`", facility.ID))
	}
	return strings.Join(parts, " · ")
}
