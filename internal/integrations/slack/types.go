package slack

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/thientv98/slack-oauth/internal/apperror"
)

const (
	// ConfigModalCallbackID identifies the translation config modal on submission
	ConfigModalCallbackID = "translate_config_modal"
	// OptionsBlockID and OptionsActionID locate the trigger checkboxes in view state
	OptionsBlockID  = "translate_options_block"
	OptionsActionID = "translate_options"

	OptionTranslateOnReaction   = "translate_on_reaction"
	OptionTranslateOnNewMessage = "translate_on_new_message"
	OptionTranslateOnMention    = "translate_on_mention"

	// GlobeReaction is the only reaction that triggers a translation
	GlobeReaction = "globe_with_meridians"

	SubtypeMessageChanged = "message_changed"
	SubtypeMessageDeleted = "message_deleted"
	SubtypeBotMessage     = "bot_message"
)

// ModalMetadata is the context carried through the modal's private_metadata.
// It only selects which config row a submission writes.
type ModalMetadata struct {
	TeamID      string `json:"team_id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

func (m ModalMetadata) Encode() (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode modal metadata: %w", err)
	}
	return string(raw), nil
}

// Slack team and channel ids are upper-case alphanumerics
var slackIDPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// maxModalMetadataLen is Slack's limit on private_metadata
const maxModalMetadataLen = 3000

func (m ModalMetadata) Validate() error {
	if strings.TrimSpace(m.TeamID) == "" {
		return fmt.Errorf("modal metadata: team_id is required: %w", apperror.ErrValidation)
	}
	if strings.TrimSpace(m.ChannelID) == "" {
		return fmt.Errorf("modal metadata: channel_id is required: %w", apperror.ErrValidation)
	}
	if !slackIDPattern.MatchString(m.TeamID) {
		return fmt.Errorf("modal metadata: malformed team_id %q: %w", m.TeamID, apperror.ErrValidation)
	}
	if !slackIDPattern.MatchString(m.ChannelID) {
		return fmt.Errorf("modal metadata: malformed channel_id %q: %w", m.ChannelID, apperror.ErrValidation)
	}
	return nil
}

// DecodeModalMetadata parses and validates private_metadata from a submission.
// Unknown fields and trailing data are rejected.
func DecodeModalMetadata(raw string) (ModalMetadata, error) {
	if len(raw) > maxModalMetadataLen {
		return ModalMetadata{}, fmt.Errorf("modal metadata is too long (%d bytes): %w", len(raw), apperror.ErrValidation)
	}

	var m ModalMetadata
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return ModalMetadata{}, fmt.Errorf("modal metadata is not valid JSON: %w: %w", apperror.ErrValidation, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ModalMetadata{}, fmt.Errorf("modal metadata has trailing data: %w", apperror.ErrValidation)
	}
	if err := m.Validate(); err != nil {
		return ModalMetadata{}, err
	}
	return m, nil
}
