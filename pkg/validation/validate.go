package validation

import (
	"strings"
	"unicode/utf8"

	"messengerdb/pkg/errs"
)

// Rules holds request validation limits, set once at startup.
type Rules struct {
	// MaxContentLen bounds message content length in runes.
	MaxContentLen int
	// MaxNameLen bounds user display names in runes.
	MaxNameLen int
}

var rules = Rules{MaxContentLen: 4096, MaxNameLen: 128}

func SetRules(r Rules) {
	if r.MaxContentLen > 0 {
		rules.MaxContentLen = r.MaxContentLen
	}
	if r.MaxNameLen > 0 {
		rules.MaxNameLen = r.MaxNameLen
	}
}

// ValidateSend checks a send-message request before any storage work.
func ValidateSend(sender, receiver, content string) error {
	if strings.TrimSpace(sender) == "" {
		return errs.InvalidArgumentf("sender_id is required")
	}
	if strings.TrimSpace(receiver) == "" {
		return errs.InvalidArgumentf("receiver_id is required")
	}
	if sender == receiver {
		return errs.InvalidArgumentf("sender and receiver must differ")
	}
	if content == "" {
		return errs.InvalidArgumentf("content is required")
	}
	if utf8.RuneCountInString(content) > rules.MaxContentLen {
		return errs.InvalidArgumentf("content exceeds %d characters", rules.MaxContentLen)
	}
	return nil
}

// ValidateUserName checks a create-user request.
func ValidateUserName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.InvalidArgumentf("username is required")
	}
	if utf8.RuneCountInString(name) > rules.MaxNameLen {
		return errs.InvalidArgumentf("username exceeds %d characters", rules.MaxNameLen)
	}
	return nil
}
