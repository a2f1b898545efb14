package utils

import "github.com/google/uuid"

// GenMessageID mints a globally unique message identifier. Uniqueness
// matters more than sortability here: the log orders by (timestamp, id)
// and the id only breaks ties.
func GenMessageID() string { return uuid.NewString() }

// GenConversationID mints a conversation identifier.
func GenConversationID() string { return uuid.NewString() }

// GenUserID mints a user identifier.
func GenUserID() string { return uuid.NewString() }
