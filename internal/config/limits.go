package config

const (
	// TitleDerivationLength is where titles derived from the first user
	// message are truncated (plus an ellipsis marker) when longer.
	TitleDerivationLength = 50

	// MaxChatTitleLength is the maximum length for explicit chat titles.
	MaxChatTitleLength = 255

	// MaxMessageLength is the maximum length for a single message body.
	// Limited to keep rows small and the chat UI responsive.
	MaxMessageLength = 8000

	// MaxImagesPerChat is the maximum number of images attached to one chat.
	MaxImagesPerChat = 20
)
