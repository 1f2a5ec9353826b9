package logger

const (
	FieldChannel  = "channel"
	FieldChatID   = "chat_id"
	FieldSenderID = "sender_id"
	FieldUpdateID = "update_id"
	FieldPreview  = "preview"
	FieldError    = "error"
	FieldKind     = "kind"

	FieldMessageContentLength = "message_content_length"
	FieldResponseLength       = "response_length"
)
