package domain

import "strings"

// Intent classifies a free-text inbound message.
type Intent string

const (
	IntentConfirmPayment Intent = "CONFIRM_PAYMENT"
	IntentStatusQuery    Intent = "STATUS_QUERY"
	IntentUnknown        Intent = "UNKNOWN"
)

// intentVocabulary maps every accepted keyword to its intent. New keywords go here.
var intentVocabulary = map[string]Intent{
	"paid":     IntentConfirmPayment,
	"done":     IntentConfirmPayment,
	"complete": IntentConfirmPayment,
	"yes":      IntentConfirmPayment,
	"status":   IntentStatusQuery,
	"check":    IntentStatusQuery,
}

// ClassifyMessage matches the trimmed, lower-cased body against the vocabulary.
func ClassifyMessage(body string) Intent {
	if intent, ok := intentVocabulary[strings.ToLower(strings.TrimSpace(body))]; ok {
		return intent
	}
	return IntentUnknown
}
