package slack

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/thientv98/slack-oauth/internal/storage"
)

var triggerOptions = []struct {
	value string
	label string
}{
	{OptionTranslateOnReaction, "Translate when reacting with 🌐"},
	{OptionTranslateOnNewMessage, "Translate every new message"},
	{OptionTranslateOnMention, "Translate when the app is mentioned"},
}

// BuildConfigModal renders the trigger checkboxes with the options currently
// in effect pre-selected. All submission context travels in private_metadata.
func BuildConfigModal(cfg *storage.ChannelConfig, meta ModalMetadata) (slack.ModalViewRequest, error) {
	privateMetadata, err := meta.Encode()
	if err != nil {
		return slack.ModalViewRequest{}, err
	}

	enabled := map[string]bool{
		OptionTranslateOnReaction:   cfg.TranslateOnReaction,
		OptionTranslateOnNewMessage: cfg.TranslateOnNewMessage,
		OptionTranslateOnMention:    cfg.TranslateOnMention,
	}

	var options, initial []*slack.OptionBlockObject
	for _, opt := range triggerOptions {
		option := slack.NewOptionBlockObject(opt.value, slack.NewTextBlockObject(slack.PlainTextType, opt.label, true, false), nil)
		options = append(options, option)
		if enabled[opt.value] {
			initial = append(initial, option)
		}
	}

	checkboxes := slack.NewCheckboxGroupsBlockElement(OptionsActionID, options...)
	checkboxes.InitialOptions = initial

	headerText := "Configure Translation"
	if meta.ChannelName != "" {
		headerText = fmt.Sprintf("Configure Translation for #%s", meta.ChannelName)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, headerText, true, false)),
		slack.NewDividerBlock(),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*Translation Triggers*\nSelect when to automatically translate messages:", false, false),
			nil, nil,
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "Choose translation options:", false, false),
			nil,
			slack.NewAccessory(checkboxes),
			slack.SectionBlockOptionBlockID(OptionsBlockID),
		),
	}

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      ConfigModalCallbackID,
		Title:           slack.NewTextBlockObject(slack.PlainTextType, "Translation Config", false, false),
		Submit:          slack.NewTextBlockObject(slack.PlainTextType, "Save", false, false),
		Close:           slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		PrivateMetadata: privateMetadata,
		Blocks:          slack.Blocks{BlockSet: blocks},
	}, nil
}

// SelectedTriggers reads the checked options out of a submitted view
func SelectedTriggers(state *slack.ViewState) (reaction, newMessage, mention bool) {
	if state == nil {
		return false, false, false
	}
	action, ok := state.Values[OptionsBlockID][OptionsActionID]
	if !ok {
		return false, false, false
	}
	for _, opt := range action.SelectedOptions {
		switch opt.Value {
		case OptionTranslateOnReaction:
			reaction = true
		case OptionTranslateOnNewMessage:
			newMessage = true
		case OptionTranslateOnMention:
			mention = true
		}
	}
	return reaction, newMessage, mention
}

// confirmationBlocks summarizes the saved triggers for the channel
func confirmationBlocks(cfg *storage.ChannelConfig, channelName string) (string, []slack.Block) {
	title := fmt.Sprintf("✅ Translation configuration updated for #%s", channelName)

	summary := "*Enabled triggers:*\nNo translation triggers are enabled."
	if triggers := cfg.EnabledTriggers(); len(triggers) > 0 {
		summary = "*Enabled triggers:*\n• " + strings.Join(triggers, "\n• ")
	}

	return title, []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("✅ *Translation configuration updated for #%s*", channelName), false, false), nil, nil),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, summary, false, false), nil, nil),
	}
}

// translationBlocks is the layout of a posted translation
func translationBlocks(translated, note string) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "🌐 "+translated, false, false), nil, nil),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, "_"+note+"_", false, false)),
	}
}
