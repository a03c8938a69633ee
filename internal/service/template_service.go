package service

import (
	"strings"

	"github.com/prolinq/messaging-backend/internal/model"
)

// The recognized placeholder set is closed: each token maps to one accessor
// on the recipient record. Unrecognized {{...}} tokens pass through verbatim
// so future placeholders do not break older campaigns.
var placeholders = []struct {
	token string
	field func(model.User) string
}{
	{"{{full_name}}", func(u model.User) string { return u.FullName }},
	{"{{username}}", func(u model.User) string { return u.Username }},
	{"{{email}}", func(u model.User) string { return u.Email }},
}

// Personalize expands every recognized placeholder in template against the
// recipient, replacing all occurrences. Empty fields substitute an empty
// string. Pure: same inputs, same output.
func Personalize(template string, recipient model.User) string {
	result := template
	for _, p := range placeholders {
		result = strings.ReplaceAll(result, p.token, p.field(recipient))
	}
	return result
}
