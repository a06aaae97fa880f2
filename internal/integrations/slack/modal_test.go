package slack

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thientv98/slack-oauth/internal/apperror"
	"github.com/thientv98/slack-oauth/internal/storage"
)

func checkboxesOf(t *testing.T, view slack.ModalViewRequest) *slack.CheckboxGroupsBlockElement {
	t.Helper()

	for _, block := range view.Blocks.BlockSet {
		section, ok := block.(*slack.SectionBlock)
		if !ok || section.BlockID != OptionsBlockID {
			continue
		}
		require.NotNil(t, section.Accessory)
		require.NotNil(t, section.Accessory.CheckboxGroupsBlockElement)
		return section.Accessory.CheckboxGroupsBlockElement
	}
	t.Fatal("options block not found")
	return nil
}

func initialValues(boxes *slack.CheckboxGroupsBlockElement) []string {
	var values []string
	for _, opt := range boxes.InitialOptions {
		values = append(values, opt.Value)
	}
	return values
}

func TestBuildConfigModalFreshChannel(t *testing.T) {
	meta := ModalMetadata{TeamID: "T1", ChannelID: "C1", ChannelName: "general"}

	view, err := BuildConfigModal(storage.DefaultChannelConfig("T1", "C1"), meta)
	require.NoError(t, err)

	assert.Equal(t, slack.VTModal, view.Type)
	assert.Equal(t, ConfigModalCallbackID, view.CallbackID)

	boxes := checkboxesOf(t, view)
	assert.Equal(t, OptionsActionID, boxes.ActionID)
	assert.Len(t, boxes.Options, 3)
	assert.Equal(t, []string{OptionTranslateOnReaction}, initialValues(boxes))

	decoded, err := DecodeModalMetadata(view.PrivateMetadata)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)
}

func TestBuildConfigModalMirrorsSavedConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      storage.ChannelConfig
		expected []string
	}{
		{
			name:     "mention only",
			cfg:      storage.ChannelConfig{TranslateOnMention: true},
			expected: []string{OptionTranslateOnMention},
		},
		{
			name:     "message and reaction",
			cfg:      storage.ChannelConfig{TranslateOnReaction: true, TranslateOnNewMessage: true},
			expected: []string{OptionTranslateOnReaction, OptionTranslateOnNewMessage},
		},
		{
			name:     "all triggers",
			cfg:      storage.ChannelConfig{TranslateOnReaction: true, TranslateOnNewMessage: true, TranslateOnMention: true},
			expected: []string{OptionTranslateOnReaction, OptionTranslateOnNewMessage, OptionTranslateOnMention},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			view, err := BuildConfigModal(&cfg, ModalMetadata{TeamID: "T1", ChannelID: "C1"})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, initialValues(checkboxesOf(t, view)))
		})
	}
}

func TestBuildConfigModalRequiresMetadata(t *testing.T) {
	_, err := BuildConfigModal(storage.DefaultChannelConfig("T1", "C1"), ModalMetadata{TeamID: "T1"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDecodeModalMetadata(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid", raw: `{"team_id":"T1","channel_id":"C1","channel_name":"general"}`},
		{name: "missing channel name is fine", raw: `{"team_id":"T1","channel_id":"C1"}`},
		{name: "not json", raw: `team=T1`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
		{name: "missing team", raw: `{"channel_id":"C1"}`, wantErr: true},
		{name: "missing channel", raw: `{"team_id":"T1"}`, wantErr: true},
		{name: "unknown field", raw: `{"team_id":"T1","channel_id":"C1","admin":true}`, wantErr: true},
		{name: "trailing data", raw: `{"team_id":"T1","channel_id":"C1"}{"team_id":"T2"}`, wantErr: true},
		{name: "malformed team id", raw: `{"team_id":"T1; DROP","channel_id":"C1"}`, wantErr: true},
		{name: "malformed channel id", raw: `{"team_id":"T1","channel_id":"c-1"}`, wantErr: true},
		{name: "too long", raw: `{"team_id":"T1","channel_id":"C1","channel_name":"` + strings.Repeat("a", 3000) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeModalMetadata(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectedTriggers(t *testing.T) {
	state := &slack.ViewState{
		Values: map[string]map[string]slack.BlockAction{
			OptionsBlockID: {
				OptionsActionID: {
					SelectedOptions: []slack.OptionBlockObject{
						{Value: OptionTranslateOnNewMessage},
						{Value: OptionTranslateOnMention},
					},
				},
			},
		},
	}

	reaction, newMessage, mention := SelectedTriggers(state)
	assert.False(t, reaction)
	assert.True(t, newMessage)
	assert.True(t, mention)

	reaction, newMessage, mention = SelectedTriggers(nil)
	assert.False(t, reaction || newMessage || mention)

	reaction, newMessage, mention = SelectedTriggers(&slack.ViewState{})
	assert.False(t, reaction || newMessage || mention)
}

func TestConfirmationBlocks(t *testing.T) {
	cfg := &storage.ChannelConfig{TranslateOnReaction: true, TranslateOnMention: true}

	text, blocks := confirmationBlocks(cfg, "general")
	assert.Equal(t, "✅ Translation configuration updated for #general", text)
	require.Len(t, blocks, 2)

	raw, err := json.Marshal(blocks[1])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Translate when reacting")
	assert.Contains(t, string(raw), "Translate when the app is mentioned")
	assert.NotContains(t, string(raw), "every new message")

	_, blocks = confirmationBlocks(&storage.ChannelConfig{}, "general")
	raw, err = json.Marshal(blocks[1])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "No translation triggers are enabled."))
}
